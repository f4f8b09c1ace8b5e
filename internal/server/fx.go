// Package server builds the crawlhub application from configuration and runs
// its HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawlhub/internal/api"
	"github.com/JakeFAU/crawlhub/internal/archive"
	"github.com/JakeFAU/crawlhub/internal/batch"
	"github.com/JakeFAU/crawlhub/internal/catalog"
	"github.com/JakeFAU/crawlhub/internal/clock/system"
	"github.com/JakeFAU/crawlhub/internal/config"
	"github.com/JakeFAU/crawlhub/internal/frontier"
	"github.com/JakeFAU/crawlhub/internal/gateway"
	"github.com/JakeFAU/crawlhub/internal/hash/sha3"
	"github.com/JakeFAU/crawlhub/internal/id/uuid"
	"github.com/JakeFAU/crawlhub/internal/logging"
	"github.com/JakeFAU/crawlhub/internal/policy/ratelimit"
	gcppublisher "github.com/JakeFAU/crawlhub/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/crawlhub/internal/storage/gcs"
	localstorage "github.com/JakeFAU/crawlhub/internal/storage/local"
	memoryStorage "github.com/JakeFAU/crawlhub/internal/storage/memory"
	pgstore "github.com/JakeFAU/crawlhub/internal/storage/postgres"
	"github.com/JakeFAU/crawlhub/internal/telemetry"
)

// App contains the application's dependencies.
type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	apiServer    *api.Server
	gateway      *gateway.Gateway
	pubsubClient *pubsub.Client
	publisher    *gcppublisher.Publisher
	storage      *storage.Client
	frontier     *pgstore.FrontierStore
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return BuildWithLogger(ctx, cfg, logger)
}

// BuildWithLogger is Build with a caller-supplied logger.
func BuildWithLogger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}
	telemetry.SetupPropagation()
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("postgres_frontier", cfg.Database.DSN != ""),
	)

	objects, err := app.setupStorage(ctx)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	urls, err := app.setupFrontier(ctx)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	archiver, err := archive.New(objects, uuid.New(), archive.Config{
		SchemaVersion:   cfg.Ingest.SchemaVersion,
		Shard:           cfg.Ingest.Shard,
		PublicURLPrefix: cfg.Ingest.PublicURLPrefix,
	}, logger.Named("archive"))
	if err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("archiver init failed: %w", err)
	}

	app.gateway, err = gateway.New(gateway.Config{
		MaxBatchSize:   cfg.Ingest.MaxBatchSize,
		UserIDLength:   cfg.Ingest.UserIDLength,
		Topic:          cfg.PubSub.TopicName,
		PublishTimeout: cfg.PublishTimeout(),
	}, gateway.Dependencies{
		Pseudonymizer: sha3.New(cfg.Ingest.UserIDLength),
		Archiver:      archiver,
		Frontier:      urls,
		Publisher:     publisher,
		Limiter:       ratelimit.New(ratelimit.Config{RPS: cfg.Ingest.RateLimitRPS, Burst: cfg.Ingest.RateLimitBurst}),
		Clock:         system.New(),
		Logger:        logger,
	})
	if err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("gateway init failed: %w", err)
	}

	cat, err := catalog.New(objects, cfg.Ingest.SchemaVersion, cfg.Ingest.Shard)
	if err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("catalog init failed: %w", err)
	}

	app.apiServer = api.NewServer(api.Dependencies{
		Submitter: app.gateway,
		Catalog:   cat,
		URLs:      urls,
		Ready:     app.ready,
	}, *cfg, logger)

	return app, nil
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts the HTTP server and blocks until ctx is canceled or a signal
// arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close()

	if err := <-serveErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close releases clients and pools. It is safe to call on a partially built
// App.
func (a *App) Close() {
	a.closeInfrastructure()
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
}

func (a *App) closeInfrastructure() {
	if a.gateway != nil {
		a.gateway.Wait()
	}
	if a.publisher != nil {
		a.publisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	a.frontier.Close()
}

func (a *App) ready(ctx context.Context) error {
	if a.frontier == nil {
		return nil
	}
	return a.frontier.Ping(ctx)
}

func (a *App) setupStorage(ctx context.Context) (batch.ObjectStore, error) {
	objects, client, err := OpenObjectStore(ctx, a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.storage = client
	a.logger.Info("object storage ready", zap.String("backend", a.cfg.Storage.Backend))
	return objects, nil
}

func (a *App) setupFrontier(ctx context.Context) (frontier.Store, error) {
	if a.cfg.Database.DSN == "" {
		a.logger.Warn("No DSN specified for database, using in-memory frontier")
		return memoryStorage.NewFrontierStore(), nil
	}
	store, err := OpenFrontier(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.frontier = store
	a.logger.Info("postgres frontier initialized", zap.String("table", a.cfg.Database.Table))
	return store, nil
}

func (a *App) setupPublisher(ctx context.Context) (batch.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Info("No Pub/Sub topic configured, archive events disabled")
		return nil, nil
	}
	var err error
	a.pubsubClient, err = pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.publisher = gcppublisher.New(a.pubsubClient)
	a.logger.Info(
		"Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return a.publisher, nil
}

// OpenObjectStore builds the configured object store. The returned GCS
// client is nil unless the gcs backend is selected; the caller closes it.
func OpenObjectStore(ctx context.Context, cfg config.StorageConfig) (batch.ObjectStore, *storage.Client, error) {
	switch cfg.Backend {
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		objects, err := gcsstorage.New(client, gcsstorage.Config{Bucket: cfg.Bucket})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return objects, client, nil
	case config.BackendLocal:
		objects, err := localstorage.New(localstorage.Config{BaseDir: cfg.Local.BaseDir})
		if err != nil {
			return nil, nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return objects, nil, nil
	default:
		return memoryStorage.NewBlobStore(), nil, nil
	}
}

// OpenFrontier connects the Postgres frontier described by cfg.Database.
func OpenFrontier(ctx context.Context, cfg *config.Config) (*pgstore.FrontierStore, error) {
	store, err := pgstore.NewFrontierStore(ctx, pgstore.FrontierStoreConfig{
		DSN:             cfg.Database.DSN,
		Table:           cfg.Database.Table,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime(),
	})
	if err != nil {
		return nil, fmt.Errorf("frontier store init failed: %w", err)
	}
	return store, nil
}
