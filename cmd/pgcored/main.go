// Command pgcored is the server process: it loads configuration,
// wires the catalog/storage/executor/session/auth collaborators into
// a server.Engine, and serves the PostgreSQL wire protocol until
// interrupted. Root command wiring follows
// hamzaKhattat-ara-production-system/cmd/router/main.go's cobra+viper
// bootstrap shape.
package main

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/spf13/cobra"

	"github.com/alex-dukhno/pgcore/internal/auth"
	"github.com/alex-dukhno/pgcore/internal/catalog"
	"github.com/alex-dukhno/pgcore/internal/config"
	"github.com/alex-dukhno/pgcore/internal/executor"
	"github.com/alex-dukhno/pgcore/internal/logging"
	"github.com/alex-dukhno/pgcore/internal/metrics"
	"github.com/alex-dukhno/pgcore/internal/server"
	"github.com/alex-dukhno/pgcore/internal/session"
	"github.com/alex-dukhno/pgcore/internal/sqlfront"
	"github.com/alex-dukhno/pgcore/internal/storage"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:   "pgcored",
		Short: "pgcored speaks the PostgreSQL wire protocol over an in-process relational engine",
		RunE:  runServe,
	}
	root.Flags().StringVar(&configFile, "config", "", "configuration file path")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File: logging.FileConfig{
			Enabled:    cfg.Logging.File.Enabled,
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAgeDays: cfg.Logging.File.MaxAgeDays,
			Compress:   cfg.Logging.File.Compress,
		},
	})
	if err != nil {
		return err
	}

	store := storage.NewMemStore()
	cat := catalog.New(store)
	exec := executor.New(cat, store)
	parser := sqlfront.New()
	sup := session.NewSupervisor(cfg.Session.MinConnID, cfg.Session.MaxConnID)

	authBackend, err := buildAuthBackend(cfg.Auth)
	if err != nil {
		return err
	}

	engine := server.NewEngine(cat, store, exec, parser, sup, authBackend)
	engine.Logger = log

	var collector *metrics.Collector
	if cfg.Monitoring.MetricsEnabled {
		collector = metrics.New()
		engine.Metrics = collector
	}

	if cfg.Listen.TLSEnabled {
		cert, err := tls.LoadX509KeyPair(cfg.Listen.TLSCertFile, cfg.Listen.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("pgcored: load TLS certificate: %w", err)
		}
		engine.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	srv := server.New(engine)

	if collector != nil {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			log.WithField("addr", cfg.Monitoring.MetricsAddress).Info("pgcore: serving metrics")
			if err := http.ListenAndServe(cfg.Monitoring.MetricsAddress, mux); err != nil {
				log.WithError(err).Error("pgcore: metrics server stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.Listen.Address) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("pgcore: shutting down")
		return nil
	}
}

func buildAuthBackend(cfg config.AuthConfig) (auth.Backend, error) {
	switch cfg.Method {
	case "scram-sha-256":
		return auth.SCRAM{Store: auth.StaticStore(cfg.Credentials)}, nil
	case "gssapi":
		kt, err := keytab.Load(cfg.KeytabFile)
		if err != nil {
			return nil, fmt.Errorf("pgcored: load keytab: %w", err)
		}
		return auth.GSSAPI{Keytab: kt}, nil
	default:
		return auth.Cleartext{}, nil
	}
}
