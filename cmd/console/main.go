// Command console is the Hydra terminal console binary. It loads an
// optional YAML configuration file, opens the local state store and audit
// trail, connects the backend gateway, and runs the interactive command
// loop until EOF, quit, or an interrupt signal.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/webhydra/console/internal/app"
	"github.com/webhydra/console/internal/audit"
	"github.com/webhydra/console/internal/config"
	"github.com/webhydra/console/internal/gateway"
	"github.com/webhydra/console/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML configuration file (optional)")
		wafURL     = flag.String("waf-url", "", "Override the WAF backend base URL")
		logLevel   = flag.String("log-level", "", "Override the log level: debug | info | warn | error")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			slog.Error("failed to load configuration", slog.Any("error", err))
			os.Exit(1)
		}
		cfg = loaded
	}
	if *wafURL != "" {
		cfg.WAFBaseURL = *wafURL
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		logger.Error("failed to open state store", slog.Any("error", err))
		os.Exit(1)
	}

	var trail *audit.Trail
	if cfg.AuditPath != "" {
		trail, err = audit.Open(cfg.AuditPath)
		if err != nil {
			logger.Error("failed to open audit trail", slog.Any("error", err))
			_ = st.Close()
			os.Exit(1)
		}
	}

	gw := gateway.New(cfg, logger, gateway.WithTokenStore(st))

	console, err := app.New(cfg, logger, st, gw, trail, os.Stdin, os.Stdout)
	if err != nil {
		logger.Error("failed to assemble console", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := console.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("console exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

// newLogger constructs a *slog.Logger that writes JSON-structured log
// records to stderr at the requested minimum level. Logs go to stderr so
// they never interleave with the rendered pages on stdout.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
