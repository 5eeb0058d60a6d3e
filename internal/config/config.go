// Package config loads the runtime configuration from three layers, each
// overriding the one before: a YAML file, HASHCARDS_* environment
// variables, and command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is the config file looked for when --config is not given.
const DefaultFile = "hashcards.yml"

const envPrefix = "HASHCARDS_"

// Config is the fully resolved runtime configuration.
type Config struct {
	// Dir is the collection root: the directory walked for deck files.
	Dir string `koanf:"dir" validate:"required"`

	// DB is the SQLite database path. Empty means hashcards.db inside Dir.
	DB string `koanf:"db"`

	// Listen is the address of the drill web UI.
	Listen string `koanf:"listen" validate:"required,hostname_port"`

	LogLevel string `koanf:"log-level" validate:"oneof=debug info warn error"`

	// Sources are git URLs mirrored into Dir before loading.
	Sources []string `koanf:"sources" validate:"dive,required"`
}

// Level maps the configured log level to slog.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Flags returns the flag set shared by every subcommand. Flag defaults are
// the configuration defaults: posflag only overrides a layered value when
// the user actually set the flag.
func Flags(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.String("config", "", "path to a YAML config file")
	flags.String("dir", ".", "collection directory to load decks from")
	flags.String("db", "", "SQLite database path (default: <dir>/hashcards.db)")
	flags.String("listen", "127.0.0.1:8045", "address for the drill web UI")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.StringSlice("sources", nil, "git URLs to mirror into the collection")
	return flags
}

// Load resolves the configuration from file, environment and flags, in
// that order of increasing precedence. A --config file must exist; the
// default file is optional.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, _ := flags.GetString("config")
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			key = strings.ReplaceAll(key, "_", "-")
			if key == "sources" {
				return key, strings.Fields(value)
			}
			return key, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("loading flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if cfg.DB == "" {
		cfg.DB = filepath.Join(cfg.Dir, "hashcards.db")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
