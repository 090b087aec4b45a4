package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

// LogLevelEnv overrides the log level chosen by --verbose.
const LogLevelEnv = "DOCSITE_LOG_LEVEL"

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docsite.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Build the site pages, navigation and assets once"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	Sync     SyncCmd     `cmd:"" help:"Clone or update the source checkout from source.clone_url"`
	Watch    WatchCmd    `cmd:"" help:"Rebuild whenever the source docs or examples change"`
	Schedule ScheduleCmd `cmd:"" help:"Sync and rebuild periodically"`
	Audit    AuditCmd    `cmd:"" help:"Report relative links left in produced pages"`
	History  HistoryCmd  `cmd:"" help:"Show recent builds recorded in the ledger"`
}

// AfterApply runs after flag parsing and sets up logging once.
func (c *CLI) AfterApply(g *Global) error {
	level := parseLogLevel(c.Verbose)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return nil
}

// parseLogLevel maps --verbose and DOCSITE_LOG_LEVEL to a level. The
// environment wins when it names a known level.
func parseLogLevel(verbose bool) slog.Level {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return level
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.IsClassified(err) {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to load configuration").
			WithContext("path", path).Build()
	}
	return cfg, nil
}

func logger(g *Global) *slog.Logger {
	if g != nil && g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
