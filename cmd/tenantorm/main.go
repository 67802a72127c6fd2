package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/medatechnology/tenantorm/internal/api"
	"github.com/medatechnology/tenantorm/internal/auth"
	"github.com/medatechnology/tenantorm/internal/config"
	"github.com/medatechnology/tenantorm/internal/logger"
	"github.com/medatechnology/tenantorm/internal/metrics"
	"github.com/medatechnology/tenantorm/internal/store"
	"github.com/medatechnology/tenantorm/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "tenantorm"

func main() {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Multi-tenant commerce API on PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), statusCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (env SERVER_PORT)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			defer logger.GetLogger().Sync()

			db, err := openDB(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			return db.Migrate(cmd.Context())
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print database version and pool usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			status, err := db.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status.Summary())
			return nil
		},
	}
}

// setup loads the configuration and installs the process logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	err = logger.InitLogger(logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*postgres.DB, error) {
	pgConfig, err := cfg.DB.Postgres()
	if err != nil {
		return nil, err
	}

	opts := []postgres.Option{postgres.WithLogger(logger.ORM(logger.GetLogger(), cfg.Log.Level))}
	if m != nil {
		opts = append(opts, postgres.WithObserver(m.ObserveDB))
	}
	return postgres.NewDatabase(ctx, *pgConfig, opts...)
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting "+cfg.ServiceName, cfg.LogConfig()...)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.ServiceName)
	}

	db, err := openDB(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer db.Close()
	if status, err := db.Status(ctx); err == nil {
		log.Info("Database connection established", zap.String("status", status.Summary()))
	}

	if cfg.DB.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	server := api.New(api.Deps{
		Store:       store.New(db, store.Config{AtomicOrders: cfg.Store.AtomicOrders}),
		Issuer:      auth.NewIssuer(cfg.JWT.SigningKey, cfg.JWT.Expiration),
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
