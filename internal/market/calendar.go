package market

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// IST is the exchange timezone (+05:30, no DST).
var IST = time.FixedZone("IST", 5*3600+30*60)

const dateLayout = "2006-01-02"

// NSE2025Holidays is the built-in trading-holiday list.
var NSE2025Holidays = []string{
	"2025-02-26", // Mahashivratri
	"2025-03-14", // Holi
	"2025-03-31", // Id-Ul-Fitr
	"2025-04-10", // Shri Mahavir Jayanti
	"2025-04-14", // Dr. Baba Saheb Ambedkar Jayanti
	"2025-04-18", // Good Friday
	"2025-05-01", // Maharashtra Day
	"2025-08-15", // Independence Day
	"2025-08-27", // Ganesh Chaturthi
	"2025-10-02", // Gandhi Jayanti / Dussehra
	"2025-10-21", // Diwali Laxmi Pujan
	"2025-10-22", // Balipratipada
	"2025-11-05", // Guru Nanak Jayanti
	"2025-12-25", // Christmas
}

// HolidaySet is an immutable set of ISO dates.
type HolidaySet struct {
	dates map[string]struct{}
}

// NewHolidaySet validates every entry as YYYY-MM-DD.
func NewHolidaySet(dates []string) (HolidaySet, error) {
	set := HolidaySet{dates: make(map[string]struct{}, len(dates))}
	for _, raw := range dates {
		d := strings.TrimSpace(raw)
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return HolidaySet{}, fmt.Errorf("invalid holiday %q: %w", raw, err)
		}
		set.dates[d] = struct{}{}
	}
	return set, nil
}

func mustHolidaySet(dates []string) HolidaySet {
	set, err := NewHolidaySet(dates)
	if err != nil {
		panic(err)
	}
	return set
}

func (s HolidaySet) Contains(date string) bool {
	_, ok := s.dates[date]
	return ok
}

func (s HolidaySet) Len() int { return len(s.dates) }

// Dates returns the set in ascending order.
func (s HolidaySet) Dates() []string {
	out := make([]string, 0, len(s.dates))
	for d := range s.dates {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Calendar is the market-closed gate. The holiday set may be replaced at
// runtime (file reload); each query sees one consistent set.
type Calendar struct {
	loc      *time.Location
	holidays atomic.Pointer[HolidaySet]
}

// NewCalendar builds a calendar for loc. A nil loc means IST; a nil set
// means the built-in list.
func NewCalendar(loc *time.Location, holidays *HolidaySet) *Calendar {
	if loc == nil {
		loc = IST
	}
	c := &Calendar{loc: loc}
	if holidays == nil {
		builtin := mustHolidaySet(NSE2025Holidays)
		holidays = &builtin
	}
	c.holidays.Store(holidays)
	return c
}

func (c *Calendar) Location() *time.Location { return c.loc }

// SetHolidays swaps the holiday set used by later queries.
func (c *Calendar) SetHolidays(set HolidaySet) {
	c.holidays.Store(&set)
}

func (c *Calendar) Holidays() HolidaySet {
	return *c.holidays.Load()
}

// IsClosed reports whether ref falls on a weekend or a listed holiday,
// evaluated in the exchange location.
func (c *Calendar) IsClosed(ref time.Time) bool {
	local := ref.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return c.Holidays().Contains(local.Format(dateLayout))
}

// Reason explains why ref is closed, or returns "" for a trading day.
func (c *Calendar) Reason(ref time.Time) string {
	local := ref.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return "weekend"
	}
	if c.Holidays().Contains(local.Format(dateLayout)) {
		return "holiday"
	}
	return ""
}

// NextOpen returns the start of the first trading day on or after ref's date
// (midnight, exchange location). It gives up after a year of closed days.
func (c *Calendar) NextOpen(ref time.Time) (time.Time, bool) {
	local := ref.In(c.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	for i := 0; i < 366; i++ {
		if !c.IsClosed(day) {
			return day, true
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}
