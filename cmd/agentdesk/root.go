package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/youssefsiam38/agentdesk"
	"github.com/youssefsiam38/agentdesk/hooks"
	"github.com/youssefsiam38/agentdesk/internal/server"
	"github.com/youssefsiam38/agentdesk/storage"
	"github.com/youssefsiam38/agentdesk/tasks"
	"github.com/youssefsiam38/agentdesk/ui"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "agentdesk",
		Short:         "Agent management UI and API",
		Version:       agentdesk.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./agentdesk.yaml)")
	flags.String("driver", driverFile, "storage driver: pgx, sql or file")
	flags.String("database-url", "", "PostgreSQL connection URL for the pgx and sql drivers")
	flags.String("data-dir", "./data", "data directory for the file driver")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("log-file", "", "write logs to a rotating file instead of stderr")

	root.AddCommand(newServeCmd(&cfgFile), newMigrateCmd(&cfgFile))
	return root
}

func newServeCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(*cfgFile, cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, s)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("read-only", false, "reject every write from the UI and API")
	cmd.Flags().String("task-policy", string(tasks.PolicyReject), "starting a task for a busy agent: reject or replace")
	return cmd
}

func newMigrateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the storage schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(*cfgFile, cmd)
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), s)
		},
	}
}

func runMigrate(ctx context.Context, s *settings) error {
	logger, closer, err := newLogger(s)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, release, err := openStore(ctx, s)
	if err != nil {
		return err
	}
	defer release()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("storage migrated", "driver", s.Driver)
	return nil
}

func runServe(ctx context.Context, s *settings) error {
	logger, closer, err := newLogger(s)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, release, err := openStore(ctx, s)
	if err != nil {
		return err
	}
	defer release()

	client, err := newClient(store, s, logger)
	if err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil && !errors.Is(err, agentdesk.ErrClientNotStarted) {
			logger.Error("failed to stop client", "error", err)
		}
	}()

	srv, err := server.New(client, &server.Config{
		Addr: s.Addr,
		UI: &ui.Config{
			ReadOnly:        s.ReadOnly,
			PageSize:        s.PageSize,
			RefreshInterval: s.RefreshInterval,
			Logger:          logger,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	logger.Info("agentdesk starting", "version", agentdesk.Version, "addr", s.Addr, "driver", s.Driver, "read_only", s.ReadOnly)
	return srv.ListenAndServe(ctx)
}

// newClient builds the client with task lifecycle logging.
func newClient(store storage.Store, s *settings, logger *slog.Logger) (*agentdesk.Client, error) {
	policy, err := tasks.ParsePolicy(s.TaskPolicy)
	if err != nil {
		return nil, err
	}

	reg := hooks.NewRegistry()
	hooks.NewLoggingHooks(logger).Register(reg)

	return agentdesk.NewClient(store, &agentdesk.ClientConfig{
		DuplicatePolicy:   policy,
		MaxTaskIterations: s.MaxTaskIterations,
		CleanupInterval:   s.CleanupInterval,
		RunRetention:      s.RunRetention,
		Hooks:             reg,
		Logger:            logger,
		OnError: func(err error) {
			logger.Error("background operation failed", "error", err)
		},
	})
}
