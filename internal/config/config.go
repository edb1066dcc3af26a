// Package config merges repository settings from defaults, the data
// directory's config.yaml, .env files, AK_* environment variables and
// command flags, then validates the result against an embedded CUE schema.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/event"
)

// EnvPrefix is the prefix of environment overrides, e.g. AK_USERNAME.
const EnvPrefix = "AK"

// Keys, shared by config.yaml, AK_<KEY> variables and flag bindings.
const (
	KeyDataDir    = "data_dir"
	KeyUsername   = "username"
	KeyEmail      = "email"
	KeyTimeMode   = "time_mode"
	KeyKinds      = "kinds"
	KeyIgnore     = "ignore"
	KeyAutoRepair = "auto_repair"
	KeySnapshot   = "snapshot"
)

// Config is the merged configuration.
type Config struct {
	DataDir    string   `mapstructure:"data_dir" yaml:"data_dir" json:"data_dir"`
	Author     string   `mapstructure:"username" yaml:"username,omitempty" json:"username,omitempty"`
	Email      string   `mapstructure:"email" yaml:"email,omitempty" json:"email,omitempty"`
	TimeMode   string   `mapstructure:"time_mode" yaml:"time_mode" json:"time_mode"`
	Kinds      []string `mapstructure:"kinds" yaml:"kinds" json:"kinds"`
	Ignore     []string `mapstructure:"ignore" yaml:"ignore" json:"ignore"`
	AutoRepair bool     `mapstructure:"auto_repair" yaml:"auto_repair" json:"auto_repair"`
	Snapshot   bool     `mapstructure:"snapshot" yaml:"snapshot" json:"snapshot"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:  cube.DefaultDataDir,
		TimeMode: "local",
		Kinds:    append([]string(nil), event.WellKnownKinds...),
		Ignore:   []string{},
		Snapshot: true,
	}
}

// Identity returns the configured author identity.
func (c Config) Identity() event.Identity {
	return event.Identity{Author: c.Author, Email: c.Email}
}

// Layout returns the data directory layout for repoRoot.
func (c Config) Layout(repoRoot string) cube.Layout {
	return cube.NewLayout(repoRoot, c.DataDir)
}

// Options tells Load where to look.
type Options struct {
	// RepoRoot is the repository working directory. .env files are read from here.
	RepoRoot string

	// Flags are bound by key name; only flags the user set take effect.
	// Flag names use dashes, e.g. --data-dir binds data_dir.
	Flags *pflag.FlagSet
}

// Load merges all sources. Precedence, highest first: flags, environment,
// .env.local, .env, config.yaml, defaults.
func Load(opts Options) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault(KeyDataDir, def.DataDir)
	v.SetDefault(KeyUsername, "")
	v.SetDefault(KeyEmail, "")
	v.SetDefault(KeyTimeMode, def.TimeMode)
	v.SetDefault(KeyKinds, def.Kinds)
	v.SetDefault(KeyIgnore, def.Ignore)
	v.SetDefault(KeyAutoRepair, def.AutoRepair)
	v.SetDefault(KeySnapshot, def.Snapshot)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for _, key := range []string{KeyDataDir, KeyUsername, KeyEmail, KeyTimeMode, KeyAutoRepair} {
			if f := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	dotenv, err := readDotenv(opts.RepoRoot)
	if err != nil {
		return Config{}, err
	}

	// The data directory decides where config.yaml lives, so resolve it from
	// the layers above the file first.
	dataDir := v.GetString(KeyDataDir)
	if dd, ok := dotenv[KeyDataDir].(string); ok && !overridden(opts.Flags, KeyDataDir) {
		dataDir = dd
	}
	layout := cube.NewLayout(opts.RepoRoot, dataDir)

	v.SetConfigFile(layout.ConfigPath())
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", layout.ConfigPath(), err)
	}
	if err := v.MergeConfigMap(dotenv); err != nil {
		return Config{}, fmt.Errorf("merge .env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Kinds == nil {
		cfg.Kinds = []string{}
	}
	if cfg.Ignore == nil {
		cfg.Ignore = []string{}
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// overridden reports whether key was set by a changed flag or an AK_ variable.
func overridden(flags *pflag.FlagSet, key string) bool {
	if flags != nil && flags.Changed(strings.ReplaceAll(key, "_", "-")) {
		return true
	}
	_, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(key))
	return ok
}

// readDotenv reads .env then .env.local from root, keeping only AK_* keys,
// and returns them by config key. Later files win.
func readDotenv(root string) (map[string]any, error) {
	out := map[string]any{}
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(root, name)
		vals, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		for k, val := range vals {
			key, ok := strings.CutPrefix(k, EnvPrefix+"_")
			if !ok {
				continue
			}
			key = strings.ToLower(key)
			switch key {
			case KeyKinds, KeyIgnore:
				out[key] = strings.Fields(strings.ReplaceAll(val, ",", " "))
			default:
				out[key] = val
			}
		}
	}
	return out, nil
}

// Write stores cfg as YAML at path, creating parent directories.
func Write(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
