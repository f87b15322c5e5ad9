package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// loadConfig reads a flat table of flag defaults from a .toml, .yaml or
// .yml file.
func loadConfig(path string) (map[string]any, error) {
	cfg := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config %s: unknown file type, want .toml or .yaml", path)
	}
	return cfg, nil
}

// applyConfig sets every flag of set that was not given on the command line
// and that cfg has a value for. Keys that are not flags of set are ignored
// and returned.
func applyConfig(set *pflag.FlagSet, cfg map[string]any) (unused []string, err error) {
	for key, val := range cfg {
		f := set.Lookup(key)
		if f == nil {
			unused = append(unused, key)
			continue
		}
		if f.Changed {
			continue
		}
		s, err := cast.ToStringE(val)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", key, err)
		}
		if err := f.Value.Set(s); err != nil {
			return nil, fmt.Errorf("config %s: %w", key, err)
		}
	}
	return unused, nil
}
