package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: SQLEE_LLM__PROVIDER sets llm.provider.
const EnvPrefix = "SQLEE_"

// Config file names looked up in the working directory.
const (
	ConfigFileName    = "sqlee.yaml"
	ConfigFileNameAlt = "sqlee.yml"
)

// ErrNoDatabase is returned when no connection is configured and no SQLite
// file can be found.
var ErrNoDatabase = errors.New("no SQLite .db file found: pass a path, set DB_PATH, configure a dsn or connection, or place a .db in the current directory or in 'instance/'")

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"engine":        "engine",
	"dsn":           "dsn",
	"connection":    "connection",
	"max-rows":      "max_rows",
	"query-timeout": "query_timeout",
	"debug":         "debug",
	"log-file":      "log_file",
	"history-file":  "history_file",
	"llm-provider":  "llm.provider",
	"llm-model":     "llm.model",
	"llm-url":       "llm.server_url",
}

// Load reads configuration. Precedence, highest first: flags set on the
// command line, SQLEE_ environment variables, the config file, defaults.
// cfgFile overrides config file discovery.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"engine":        DefaultEngine,
		"max_rows":      DefaultMaxRows,
		"query_timeout": DefaultQueryTimeout.String(),
		"debug":         false,
		"log_file":      DefaultLogFile,
		"history_file":  DefaultHistoryFile,
		"llm.provider":  DefaultLLMProvider,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Older switches kept working.
	legacy := map[string]interface{}{}
	if os.Getenv("DEBUG") != "" {
		legacy["debug"] = true
	}
	if m := os.Getenv("LLM_MODEL"); m != "" {
		legacy["llm.model"] = m
	}
	if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load legacy env vars: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.HistoryFile = ExpandHome(cfg.HistoryFile)
	if cfg.MaxRows < 0 {
		return nil, fmt.Errorf("max_rows must not be negative, got %d", cfg.MaxRows)
	}
	return &cfg, nil
}

// findConfigFile returns the config file to read, or "" for none.
// Priority: explicit path > ./sqlee.yaml > ./sqlee.yml > user config dir.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		p := filepath.Join(dir, "sqlee", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Active resolves the connection to open. A path given on the command line
// wins, then an explicit dsn, then the named connection, then DB_PATH, then
// the newest .db file in the working directory or instance/.
func (c *Config) Active(args []string) (Connection, error) {
	if len(args) > 0 && args[0] != "" {
		return Connection{Engine: DefaultEngine, DSN: args[0]}, nil
	}
	if c.DSN != "" {
		return newConnection("", c.Engine, c.DSN)
	}
	if c.Connection != "" {
		return c.Named(c.Connection)
	}
	if p := os.Getenv("DB_PATH"); p != "" {
		return Connection{Engine: DefaultEngine, DSN: p}, nil
	}
	for _, dir := range []string{".", "instance"} {
		if p, ok := NewestDBInDir(dir); ok {
			return Connection{Engine: DefaultEngine, DSN: p}, nil
		}
	}
	return Connection{}, ErrNoDatabase
}

// Named resolves a connection from the connections section.
func (c *Config) Named(name string) (Connection, error) {
	cc, ok := c.Connections[name]
	if !ok {
		return Connection{}, fmt.Errorf("unknown connection %q", name)
	}
	if cc.DSN == "" {
		return Connection{}, fmt.Errorf("connection %q has no dsn", name)
	}
	return newConnection(name, cc.Engine, cc.DSN)
}

// ConnectionNames returns the configured connection names, sorted.
func (c *Config) ConnectionNames() []string {
	if c == nil {
		return nil
	}
	names := slices.Collect(maps.Keys(c.Connections))
	slices.Sort(names)
	return names
}

func newConnection(name, engine, dsn string) (Connection, error) {
	engine = strings.ToLower(engine)
	switch engine {
	case "":
		engine = DefaultEngine
	case "postgresql", "pg":
		engine = "postgres"
	case "sqlite", "postgres", "mysql":
	default:
		return Connection{}, fmt.Errorf("unsupported engine %q (want sqlite, postgres or mysql)", engine)
	}
	return Connection{Name: name, Engine: engine, DSN: dsn}, nil
}

// NewestDBInDir returns the most recently modified .db file in dir, not
// recursive.
func NewestDBInDir(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var newestPath string
	var newestModNano int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime().UnixNano()
		if newestPath == "" || mod > newestModNano {
			newestPath = filepath.Join(dir, name)
			newestModNano = mod
		}
	}
	return newestPath, newestPath != ""
}
