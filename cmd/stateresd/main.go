// Command stateresd runs the state-resolution debug HTTP surface: it loads
// a YAML config, opens an EventStore backend, optionally starts an embedded
// NATS publisher, and serves the /resolve and /healthz endpoints defined in
// server.go. Flag and shutdown handling follow dendrite's cmd/ entrypoints
// (contrib/dendrite-demo-i2p/main.go, contrib/dendrite-demo-embedded/example/main.go).
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/coreroom/stateres/internal/tracing"
	"github.com/coreroom/stateres/stateres"
	"github.com/coreroom/stateres/store/memory"
	"github.com/coreroom/stateres/store/notify"
	"github.com/coreroom/stateres/store/sql/postgres"
	"github.com/coreroom/stateres/store/sql/sqlite"
)

var configPath = flag.String("config", "stateresd.yaml", "Path to the stateresd configuration file")

func main() {
	flag.Parse()

	data, err := os.ReadFile(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to read config file")
	}
	cfg, err := LoadConfig(data)
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	if err := SetupLogging(cfg.Logging); err != nil {
		logrus.WithError(err).Fatal("failed to configure logging")
	}
	if cfg.Logging.SentryDSN != "" {
		defer func() {
			if !sentry.Flush(5 * time.Second) {
				logrus.Warn("failed to flush all Sentry events")
			}
		}()
	}

	tracerCloser, err := tracing.InitGlobalTracer("stateresd")
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize tracer")
	}
	defer tracerCloser.Close()

	store, closeStore, err := openStore(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open event store")
	}
	defer closeStore()

	if cfg.PublishResolutions {
		publisher, err := notify.StartEmbedded()
		if err != nil {
			logrus.WithError(err).Fatal("failed to start embedded notification publisher")
		}
		defer publisher.Close()
		logrus.WithField("url", publisher.ClientURL()).Info("embedded NATS server started; the /resolve handler does not publish to it")
	}

	router := NewRouter(store)
	httpServer := &http.Server{Addr: cfg.Bind, Handler: router}

	go func() {
		logrus.WithField("bind", cfg.Bind).Info("stateresd listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("http server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logrus.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("error during http server shutdown")
	}
}

// openStore opens the configured EventStore backend and returns a function
// to release it on shutdown.
func openStore(cfg DatabaseConfig) (stateres.EventStore, func(), error) {
	switch cfg.Dialect {
	case "postgres":
		s, err := postgres.Open(cfg.ConnectionString)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.ConnectionString)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		// Verify already rejects unknown dialects, so this is unreachable
		// via LoadConfig; kept as a safe fallback for direct Config construction.
		return memory.New(), func() {}, nil
	}
}
