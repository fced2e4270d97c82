package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/mycms-backend/internal/docstore"
	"github.com/angelmondragon/mycms-backend/internal/tenants"
	"github.com/angelmondragon/mycms-backend/pkg/config"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "mycms",
		Short:         "Operator tooling for the storefront backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(siteCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env holds the connections a command runs against.
type env struct {
	cfg     *config.Config
	logg    *logger.Logger
	backend *docstore.Backend
	repo    *tenants.Repository
}

func openEnv(ctx context.Context) (*env, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "mycms-cli",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		Output:      os.Stderr,
	})
	backend, err := docstore.Open(ctx, cfg, logg)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	repo, err := tenants.NewRepository(backend.Store)
	if err != nil {
		_ = backend.Close(ctx)
		return nil, err
	}
	return &env{cfg: cfg, logg: logg, backend: backend, repo: repo}, nil
}

func (e *env) close(ctx context.Context) {
	if err := e.backend.Close(ctx); err != nil {
		e.logg.Error(ctx, "error closing document store", err)
	}
}
