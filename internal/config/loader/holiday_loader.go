package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"niftybot/internal/logger"
	"niftybot/internal/market"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// HolidayFile is the on-disk holiday list:
//
//	holidays:
//	  - 2026-01-26
//	  - 2026-03-03
type HolidayFile struct {
	Holidays []string `mapstructure:"holidays"`
}

// HolidaySnapshot is a read-only copy of the loaded holidays.
type HolidaySnapshot struct {
	Version  int64
	LoadedAt time.Time
	Set      market.HolidaySet
}

// ChangeListener is called after the file changes and parses cleanly.
type ChangeListener func(HolidaySnapshot)

// HolidayLoader reads a holiday list from YAML/JSON and watches it for edits.
// A file that fails to parse keeps the previous snapshot in place.
type HolidayLoader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  HolidaySnapshot
	listeners []ChangeListener
}

// NewHolidayLoader reads the holiday file and starts watching it.
func NewHolidayLoader(path string) (*HolidayLoader, error) {
	l, err := readHolidayFile(path)
	if err != nil {
		return nil, err
	}
	l.v.OnConfigChange(func(evt fsnotify.Event) {
		if err := l.reload(); err != nil {
			logger.Errorf("holiday reload failed (%s): %v", evt.Name, err)
			return
		}
		l.notify()
	})
	l.v.WatchConfig()
	return l, nil
}

// LoadHolidays reads path once without watching it.
func LoadHolidays(path string) (market.HolidaySet, error) {
	l, err := readHolidayFile(path)
	if err != nil {
		return market.HolidaySet{}, err
	}
	return l.Snapshot().Set, nil
}

func readHolidayFile(path string) (*HolidayLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("holiday loader requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read holiday file failed: %w", err)
	}
	l := &HolidayLoader{path: path, v: v}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *HolidayLoader) Snapshot() HolidaySnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

// Subscribe registers fn and calls it once with the current snapshot.
func (l *HolidayLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := l.snapshot
	l.mu.Unlock()
	safeCall(fn, snap)
}

func (l *HolidayLoader) notify() {
	l.mu.RLock()
	snap := l.snapshot
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		safeCall(fn, snap)
	}
}

func safeCall(fn ChangeListener, snap HolidaySnapshot) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("holiday listener panic: %v", r)
		}
	}()
	fn(snap)
}

func (l *HolidayLoader) reload() error {
	var file HolidayFile
	if err := l.v.Unmarshal(&file); err != nil {
		return fmt.Errorf("parse holiday file failed: %w", err)
	}
	set, err := market.NewHolidaySet(file.Holidays)
	if err != nil {
		return fmt.Errorf("parse holiday file failed: %w", err)
	}
	l.mu.Lock()
	l.snapshot = HolidaySnapshot{
		Version:  l.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Set:      set,
	}
	l.mu.Unlock()
	logger.Infof("Holiday loader loaded %d dates from %s", set.Len(), filepath.Base(l.path))
	return nil
}

// WatchCalendar keeps cal's holiday set in sync with the file.
func (l *HolidayLoader) WatchCalendar(cal *market.Calendar) {
	if cal == nil {
		return
	}
	l.Subscribe(func(snap HolidaySnapshot) {
		cal.SetHolidays(snap.Set)
	})
}
