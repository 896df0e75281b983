package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	cfgpkg "github.com/strandio/strand/internal/config"
	"github.com/strandio/strand/internal/harness"
	"github.com/strandio/strand/internal/harness/echo"
	"github.com/strandio/strand/internal/runtime"
	httpserver "github.com/strandio/strand/internal/server/http"
	"github.com/strandio/strand/internal/session"
	pebblestore "github.com/strandio/strand/internal/storage/pebble"
	"github.com/strandio/strand/internal/streams"
	logpkg "github.com/strandio/strand/pkg/log"
)

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config

	// Harness overrides the built-in echo harness. Used by tests and
	// alternative builds.
	Harness harness.Factory
}

// Run opens the runtime, starts the HTTP server and blocks until ctx is
// cancelled. Shutdown order matters: the server stops accepting first, then
// session adapters are stopped, then the store is closed.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{DataDir: storeDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval, Config: opts.Config})
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := &logpkg.Config{
		Level:  getenvDefault("STRAND_LOG_LEVEL", "info"),
		Format: getenvDefault("STRAND_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(cfg)
	if err != nil {
		procLogger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g. Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	procLogger.Info("Starting strand server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("level", cfg.Level),
		logpkg.Str("format", cfg.Format),
	)

	factory := opts.Harness
	if factory == nil {
		factory = echo.Factory{}
	}
	streamsSvc := streams.NewWithLogger(rt, procLogger.With(logpkg.Component("streams")))
	supervisor := session.New(streamsSvc, factory, procLogger.With(logpkg.Component("session")))
	hsrv := httpserver.New(rt, streamsSvc, supervisor, procLogger.With(logpkg.Component("http")))

	errCh := make(chan error, 1)
	go func() { errCh <- hsrv.ListenAndServe(sctx, opts.HTTPAddr) }()

	select {
	case <-sctx.Done():
	case err := <-errCh:
		if err != nil && sctx.Err() == nil {
			supervisor.Close()
			return err
		}
	}
	hsrv.Close()
	supervisor.Close()
	return nil
}
