// Command stubwaf is the stand-in Web Hydra WAF backend. It serves the
// full console API from seeded fixture data over HTTP, optionally archives
// its event log to PostgreSQL, optionally serves static assets, and shuts
// down gracefully on SIGTERM or SIGINT.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/webhydra/console/internal/server"
	"github.com/webhydra/console/internal/server/storage"
)

func main() {
	var (
		addr      = flag.String("addr", ":8080", "HTTP listener address")
		dsn       = flag.String("dsn", "", "PostgreSQL DSN for the event archive (empty = in-memory only)")
		staticDir = flag.String("static", "", "Directory of static assets to serve (empty = disabled)")
		secret    = flag.String("secret", "", "HS256 token signing secret (empty = random per run)")
		seed      = flag.Int64("seed", 1, "Fixture dataset seed")
		logLevel  = flag.String("log-level", "info", "Log level: debug | info | warn | error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	signingKey := []byte(*secret)
	if len(signingKey) == 0 {
		signingKey = randomSecret()
		logger.Warn("no signing secret configured; tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts := []server.Option{server.WithSeed(*seed)}
	if *staticDir != "" {
		opts = append(opts, server.WithStaticDir(*staticDir))
	}

	var archive *storage.Archive
	if *dsn != "" {
		var err error
		archive, err = storage.New(ctx, *dsn, 0, 0)
		if err != nil {
			logger.Error("failed to open archive", slog.Any("error", err))
			os.Exit(1)
		}
		defer archive.Close(context.Background())
		opts = append(opts, server.WithArchive(archive))
		logger.Info("PostgreSQL archive connected")
	} else {
		logger.Warn("no DSN configured; serving from in-memory fixtures")
	}

	srv := server.New(logger, signingKey, opts...)

	if archive != nil {
		for _, e := range srv.SeedEvents() {
			if err := archive.Insert(ctx, e); err != nil {
				logger.Error("failed to seed archive", slog.Any("error", err))
				os.Exit(1)
			}
		}
		if err := archive.Flush(ctx); err != nil {
			logger.Error("failed to flush archive seed", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("archive seeded with fixture events")
	}

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("stub WAF backend listening", slog.String("addr", *addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", slog.Any("error", err))
	}
	logger.Info("stub WAF backend exited cleanly")
}

// randomSecret generates a fresh signing secret for dev runs.
func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	out := make([]byte, hex.EncodedLen(len(buf)))
	hex.Encode(out, buf)
	return out
}

// newLogger constructs a *slog.Logger that writes JSON-structured log
// records to stderr at the requested minimum level.
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
