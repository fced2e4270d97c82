package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/mycms-backend/api/controllers"
	"github.com/angelmondragon/mycms-backend/api/routes"
	"github.com/angelmondragon/mycms-backend/internal/callbacks"
	"github.com/angelmondragon/mycms-backend/internal/checkout"
	"github.com/angelmondragon/mycms-backend/internal/docstore"
	"github.com/angelmondragon/mycms-backend/internal/events"
	"github.com/angelmondragon/mycms-backend/internal/payments"
	"github.com/angelmondragon/mycms-backend/internal/sitegen"
	"github.com/angelmondragon/mycms-backend/internal/tenants"
	"github.com/angelmondragon/mycms-backend/pkg/config"
	"github.com/angelmondragon/mycms-backend/pkg/instance"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
	"github.com/angelmondragon/mycms-backend/pkg/metrics"
	"github.com/angelmondragon/mycms-backend/pkg/migrate"
	"github.com/angelmondragon/mycms-backend/pkg/paypal"
	"github.com/angelmondragon/mycms-backend/pkg/pubsub"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Instance:    instance.ID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := docstore.Open(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open document store", err)
		os.Exit(1)
	}

	if err := migrate.MaybeAutoRun(ctx, cfg, logg, backend.DB); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		closeAll(logg, backend, nil)
		os.Exit(1)
	}

	var psClient *pubsub.Client
	var publisher events.Publisher = events.Nop{}
	if cfg.PubSub.Enabled {
		psClient, err = pubsub.NewClient(ctx, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			closeAll(logg, backend, nil)
			os.Exit(1)
		}
		publisher, err = events.NewPubSubPublisher(psClient.OrdersPublisher())
		if err != nil {
			logg.Error(ctx, "failed to create order event publisher", err)
			closeAll(logg, backend, psClient)
			os.Exit(1)
		}
	}

	handler, err := buildHandler(cfg, logg, backend, publisher, psClient)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		closeAll(logg, backend, psClient)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	srvCtx := logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"driver": cfg.DocStore.Backend(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(srvCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(srvCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(srvCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(srvCtx, "graceful shutdown failed", err)
			exitCode = 1
		}
		cancel()
	}

	if err := closeAll(logg, backend, psClient); err != nil {
		exitCode = 1
	}
	os.Exit(exitCode)
}

func buildHandler(cfg *config.Config, logg *logger.Logger, backend *docstore.Backend, publisher events.Publisher, psClient *pubsub.Client) (http.Handler, error) {
	repo, err := tenants.NewRepository(backend.Store)
	if err != nil {
		return nil, err
	}
	tenantSvc, err := tenants.NewService(repo, logg, tenants.WithLocker(backend.Locker))
	if err != nil {
		return nil, err
	}

	provider, err := payments.NewPayPalProvider(paypal.NewClient(cfg.PayPal, logg))
	if err != nil {
		return nil, err
	}

	opMetrics := metrics.NewOperationMetrics(prometheus.DefaultRegisterer)

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Repository:      repo,
		Provider:        provider,
		Locker:          backend.Locker,
		Events:          publisher,
		Metrics:         opMetrics,
		Logger:          logg,
		CallbackBaseURL: cfg.App.PublicURL(),
	})
	if err != nil {
		return nil, err
	}

	callbackSvc, err := callbacks.NewService(callbacks.ServiceParams{
		Repository: repo,
		Provider:   provider,
		Locker:     backend.Locker,
		Events:     publisher,
		Metrics:    opMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	generator, err := sitegen.NewGenerator(sitegen.Params{
		Repository:      repo,
		Logger:          logg,
		Metrics:         opMetrics,
		WorkRoot:        cfg.SiteGen.WorkRoot,
		OutputRoot:      cfg.SiteGen.OutputRoot,
		ArchiveName:     cfg.SiteGen.ArchiveName,
		MaxExtractBytes: cfg.SiteGen.MaxExtractBytes(),
	})
	if err != nil {
		return nil, err
	}

	ready := map[string]controllers.Pinger{"docstore": backend.Pinger}
	if backend.Redis != nil {
		ready["redis"] = backend.Redis
	}
	if psClient != nil {
		ready["pubsub"] = psClient
	}

	return routes.NewRouter(cfg, logg, routes.Deps{
		Tenants:   tenantSvc,
		Checkout:  checkoutSvc,
		Callbacks: callbackSvc,
		SiteGen:   generator,
		Ready:     ready,
		Gatherer:  prometheus.DefaultGatherer,
	}), nil
}

func closeAll(logg *logger.Logger, backend *docstore.Backend, psClient *pubsub.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := multierr.Combine(backend.Close(ctx), psClient.Close())
	if err != nil {
		logg.Error(ctx, "error closing connections", err)
	}
	return err
}
