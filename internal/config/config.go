package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xtg/pdo/internal/pdo"
)

// Config is the resolved CLI configuration.
type Config struct {
	DSN          string
	User         string
	Password     string
	ErrorMode    pdo.ErrorMode
	InitCommands []string
	LogLevel     slog.Level
}

// RegisterFlags defines the connection flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("dsn", "", "connection string, e.g. mysql:host=localhost;dbname=app")
	fs.String("user", "", "database user")
	fs.String("password", "", "database password")
	fs.String("error-mode", pdo.ModeException.String(), "silent, warning or exception")
	fs.StringArray("init-command", nil, "command run after connecting (repeatable)")
	fs.String("log-level", slog.LevelInfo.String(), "debug, info, warn or error")
}

// flagKeys maps command-line flags to their configuration keys.
var flagKeys = map[string]string{
	"dsn":          "dsn",
	"user":         "user",
	"password":     "password",
	"error-mode":   "error_mode",
	"init-command": "init_commands",
	"log-level":    "log_level",
}

// Load reads config from flags, environment (PDO_ prefix) and an optional
// pdo.yaml found in paths, in that order of precedence. paths defaults to
// the working directory.
func Load(flags *pflag.FlagSet, paths ...string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("pdo")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read pdo.yaml: %w", err)
		}
	}

	v.SetDefault("error_mode", pdo.ModeException.String())
	v.SetDefault("log_level", slog.LevelInfo.String())

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		DSN:      v.GetString("dsn"),
		User:     v.GetString("user"),
		Password: v.GetString("password"),
	}

	mode, err := pdo.ParseErrorMode(v.GetString("error_mode"))
	if err != nil {
		return nil, fmt.Errorf("invalid PDO_ERROR_MODE: %w", err)
	}
	cfg.ErrorMode = mode

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("invalid PDO_LOG_LEVEL: %w", err)
	}

	cmds, err := commands(v.Get("init_commands"))
	if err != nil {
		return nil, fmt.Errorf("invalid PDO_INIT_COMMANDS: %w", err)
	}
	cfg.InitCommands = cmds

	return cfg, nil
}

// commands normalizes init commands. From the environment they arrive as
// one string separated by semicolons; from flags and YAML as a list.
func commands(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	var list []string
	if s, ok := raw.(string); ok {
		list = strings.Split(s, ";")
	} else {
		var err error
		if list, err = cast.ToStringSliceE(raw); err != nil {
			return nil, err
		}
	}
	out := list[:0]
	for _, c := range list {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Options returns the connection options the configuration implies.
func (c *Config) Options() []pdo.Option {
	opts := []pdo.Option{pdo.WithAttribute(pdo.AttrErrorMode, c.ErrorMode)}
	for _, cmd := range c.InitCommands {
		opts = append(opts, pdo.WithAttribute(pdo.AttrInitCommand, cmd))
	}
	return opts
}
