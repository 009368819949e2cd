package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvConfigPath names the variable consulted when no --config flag is given.
const EnvConfigPath = "NIFTYBOT_CONFIG"

// Load reads the YAML config at path (following include: lists), applies
// defaults for keys the files leave unset and validates the result. An empty
// path yields the defaults. Variables from a .env file in the working
// directory are loaded first without overriding the process environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	if strings.TrimSpace(path) == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if strings.TrimSpace(path) == "" {
		cfg := Default()
		if err := validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	files, err := configFiles(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	keys := make(keySet)
	markKeys("", v.AllSettings(), keys)
	cfg.applyDefaults(keys)
	cfg.applyEnv()
	cfg.resolvePaths(filepath.Dir(files[len(files)-1]))
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths makes file references relative to the main config file.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Market.HolidaysFile, &c.Prompt.UserFile, &c.Prompt.SystemFile} {
		if v := strings.TrimSpace(*p); v != "" && !filepath.IsAbs(v) {
			*p = filepath.Join(dir, v)
		}
	}
}

// configFiles returns path and everything it includes, depth first, so that
// later files override earlier ones and the main file is merged last.
func configFiles(path string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := includeWalker{done: map[string]bool{}, active: map[string]bool{}}
	if err := w.visit(abs); err != nil {
		return nil, err
	}
	return w.order, nil
}

type includeWalker struct {
	done   map[string]bool
	active map[string]bool
	order  []string
}

func (w *includeWalker) visit(path string) error {
	path = filepath.Clean(path)
	switch {
	case w.active[path]:
		return fmt.Errorf("include cycle detected: %s", path)
	case w.done[path]:
		return nil
	}
	w.active[path] = true
	includes, err := readIncludes(path)
	if err != nil {
		return fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.visit(inc); err != nil {
			return err
		}
	}
	delete(w.active, path)
	w.done[path] = true
	w.order = append(w.order, path)
	return nil
}

// readIncludes accepts "include: a.yaml" as well as a list.
func readIncludes(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var out []string
	for _, inc := range v.GetStringSlice("include") {
		if inc = strings.TrimSpace(inc); inc != "" {
			out = append(out, inc)
		}
	}
	return out, nil
}

// markKeys records every leaf key present in the merged files, so defaults
// never overwrite an explicit zero value.
func markKeys(prefix string, node any, keys keySet) {
	m, ok := node.(map[string]any)
	if !ok {
		if prefix != "" {
			keys.mark(prefix)
		}
		return
	}
	for k, v := range m {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if prefix != "" {
			k = prefix + "." + k
		}
		markKeys(k, v, keys)
	}
}
