package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xtg/pdo/internal/config"
	"github.com/xtg/pdo/internal/pdo"
)

var errNoDSN = errors.New("a connection string is required: set --dsn or PDO_DSN")

// open loads the configuration and builds a connection from it. The
// connection is not yet connected.
func open(cmd *cobra.Command) (*pdo.Conn, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, errNoDSN
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	opts := append(cfg.Options(), pdo.WithLogger(logger))
	c, err := pdo.New(cfg.DSN, cfg.User, cfg.Password, opts...)
	if err != nil {
		return nil, err
	}
	logger.Debug("connection configured", "target", c.Descriptor().String(), "mode", c.Mode())
	return c, nil
}

// failure turns the recorded error state into an error after an operation
// returned its failure value outside exception mode.
func failure(info [3]string) error {
	return fmt.Errorf("%s : %s", info[0], info[2])
}

// parseParams turns repeated key=value flags into statement parameters.
// Keys keep their textual form; ":name" is named, digits are positional.
func parseParams(raw []string) (pdo.Params, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(pdo.Params, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", kv)
		}
		params[key] = value
	}
	return params, nil
}
