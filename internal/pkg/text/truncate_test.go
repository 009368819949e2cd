package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abc", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
	assert.Equal(t, "₹12...", Truncate("₹120–125", 3), "cuts on rune boundaries")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "Trade #1: CE 24500", Preview("Trade #1:\n  CE\t24500\n", 50))
	assert.Equal(t, "Trade...", Preview("Trade #1:\n CE", 5))
}
