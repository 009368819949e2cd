package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed presets/*.txt
var presetFS embed.FS

const (
	PresetStandard   = "standard"
	PresetStrategist = "strategist"

	DefaultSystem = "Act as a professional NIFTY options trader and market analyst."
)

// Prompt is the system/user pair sent with one request.
type Prompt struct {
	System string
	User   string
}

// Presets lists the built-in user prompts.
func Presets() []string {
	entries, err := presetFS.ReadDir("presets")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(out)
	return out
}

func preset(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = PresetStandard
	}
	data, err := presetFS.ReadFile("presets/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// Options selects the prompt source: files first, then a built-in preset.
type Options struct {
	Preset     string
	UserFile   string
	SystemFile string
	System     string
	// FormatHint appends layout instructions matching the extraction strategy.
	FormatHint string
}

// Load resolves the prompt pair. A configured file always wins over the preset.
func Load(opts Options) (Prompt, error) {
	var p Prompt
	if path := strings.TrimSpace(opts.UserFile); path != "" {
		txt, err := readFile(path)
		if err != nil {
			return Prompt{}, err
		}
		p.User = txt
	} else {
		txt, ok := preset(opts.Preset)
		if !ok {
			return Prompt{}, fmt.Errorf("unknown prompt preset %q (available: %s)", opts.Preset, strings.Join(Presets(), ", "))
		}
		p.User = txt
	}
	switch {
	case strings.TrimSpace(opts.SystemFile) != "":
		txt, err := readFile(opts.SystemFile)
		if err != nil {
			return Prompt{}, err
		}
		p.System = txt
	case strings.TrimSpace(opts.System) != "":
		p.System = strings.TrimSpace(opts.System)
	default:
		p.System = DefaultSystem
	}
	if hint := FormatHint(opts.FormatHint); hint != "" {
		p.User = p.User + "\n\n" + hint
	}
	return p, nil
}

// FormatHint returns the answer-layout instruction for an extraction strategy.
func FormatHint(strategy string) string {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "block":
		return "Format: start each trade with a line \"📈 Trade #<n>:\" and give every field on its own line as \"Label: value\"."
	case "labeled":
		return "Format: for each trade write the fields in exactly the order above, one per line as \"Label: value\", using the labels Option Type, Strike Price, Premium Entry Range, Target(s), Stop Loss, Ideal Entry Time, Ideal Exit Time, Confidence Level, Key Factors, Short Reason."
	default:
		return ""
	}
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", path, err)
	}
	txt := strings.TrimSpace(string(data))
	if txt == "" {
		return "", fmt.Errorf("prompt %s is empty", path)
	}
	return txt, nil
}
