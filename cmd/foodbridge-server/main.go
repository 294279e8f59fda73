package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	server "github.com/foodbridge/server/internal"
	"github.com/foodbridge/server/internal/assignment"
	"github.com/foodbridge/server/internal/config"
	"github.com/foodbridge/server/internal/dashboard"
	"github.com/foodbridge/server/internal/donation"
	donationrepo "github.com/foodbridge/server/internal/donation/repositoryimpl"
	"github.com/foodbridge/server/internal/eventbus"
	"github.com/foodbridge/server/internal/geocode"
	"github.com/foodbridge/server/internal/identity"
	"github.com/foodbridge/server/internal/metrics"
	metricsrepo "github.com/foodbridge/server/internal/metrics/repositoryimpl"
	"github.com/foodbridge/server/internal/organization"
	"github.com/foodbridge/server/internal/pushnotification"
	"github.com/foodbridge/server/internal/pushsubscription"
	pushsubrepo "github.com/foodbridge/server/internal/pushsubscription/repositoryimpl"
	taskrepo "github.com/foodbridge/server/internal/task/repositoryimpl"
	"github.com/foodbridge/server/internal/volunteer"
	volunteerrepo "github.com/foodbridge/server/internal/volunteer/repositoryimpl"
	"github.com/foodbridge/server/pkg/clog"
	"github.com/foodbridge/server/pkg/panicerr"
	"github.com/foodbridge/server/pkg/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus
	bus := eventbus.New()

	// Setup repositories
	donationRepo := donationrepo.NewYAMLRepository(store)
	taskRepo := taskrepo.NewYAMLRepository(store)
	volunteerRepo := volunteerrepo.NewYAMLRepository(store)
	metricsRepo := metricsrepo.NewYAMLRepository(store)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)

	// Distribution-center catalog, hot reloaded from disk
	catalog, err := organization.NewCatalog(env.CatalogEnv.OrganizationsFile)
	if err != nil {
		slog.Error("failed to load organization catalog", "error", err)
		os.Exit(1)
	}

	ledger := metrics.NewLedger(metricsRepo)
	geocoder := geocode.FromEnv(config.GeoEnvFromEnv(env))
	resolver := identity.NewJWTResolver(config.AuthEnvFromEnv(env))

	engine := assignment.NewEngine(donationRepo, taskRepo, volunteerRepo, catalog, ledger, bus)

	// Setup servers
	donationServer := donation.NewServer(donationRepo, ledger, geocoder, bus)
	assignmentServer := assignment.NewServer(engine, taskRepo)
	volunteerServer := volunteer.NewServer(volunteerRepo, geocoder)
	dashboardServer := dashboard.NewServer(dashboard.NewService(donationRepo, taskRepo), ledger)
	geocodeServer := geocode.NewServer(geocoder)
	subscriptionServer := pushsubscription.NewServer(pushSubRepo)

	// Setup push notification
	pushSender := pushnotification.NewWebPushSender(config.VAPIDEnvFromEnv(env))
	pushDispatcher := pushnotification.NewDispatcher(pushSender, pushSubRepo, bus)

	srv := server.NewServer(
		env,
		resolver,
		donationServer,
		assignmentServer,
		volunteerServer,
		dashboardServer,
		geocodeServer,
		subscriptionServer,
	)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	watchCatalog := panicerr.SafeContext(catalog.Watch)
	go func() {
		if err := watchCatalog(ctx); err != nil && ctx.Err() == nil {
			slog.Error("organization catalog watcher stopped", "error", err)
		}
	}()
	if pushSender.Enabled() {
		runDispatcher := panicerr.SafeContext(pushDispatcher.Run)
		go func() {
			if err := runDispatcher(ctx); err != nil && ctx.Err() == nil {
				slog.Error("push dispatcher stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
