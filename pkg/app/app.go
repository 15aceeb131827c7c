// Package app assembles VidFold from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Asaad942/VidFold/pkg/config"
	"github.com/Asaad942/VidFold/pkg/db"
	"github.com/Asaad942/VidFold/pkg/db/queries"
	"github.com/Asaad942/VidFold/pkg/events"
	"github.com/Asaad942/VidFold/pkg/handlers"
	"github.com/Asaad942/VidFold/pkg/ingest"
	"github.com/Asaad942/VidFold/pkg/metrics"
	"github.com/Asaad942/VidFold/pkg/processing"
	"github.com/Asaad942/VidFold/pkg/search"
	"github.com/Asaad942/VidFold/pkg/services"
	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

// App owns every long-lived dependency. Nothing is global.
type App struct {
	cfg *config.Config

	DB          *sqlx.DB
	Metrics     *metrics.Metrics
	Tokens      *services.TokenService
	Users       *queries.UserRepository
	Videos      *queries.VideoRepository
	Processing  *processing.Client
	Stores      *video.Stores
	Reconciler  *ingest.Reconciler
	Coordinator *ingest.Coordinator
	Library     *ingest.Library
	Search      *search.Client
	Handlers    *handlers.Handlers

	consumer *events.Consumer
	cancel   context.CancelFunc
	done     chan struct{}
}

// New connects to the database, applies migrations and wires the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	conn, err := db.Connect(ctx, cfg.Database.Driver, cfg.Database.URL, db.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("app: connect database: %w", err)
	}
	if err := db.Migrate(ctx, conn); err != nil {
		db.Close(conn)
		return nil, fmt.Errorf("app: migrate: %w", err)
	}

	a := &App{
		cfg:        cfg,
		DB:         conn,
		Metrics:    metrics.New(),
		Tokens:     services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL),
		Users:      queries.NewUserRepository(conn),
		Videos:     queries.NewVideoRepository(conn),
		Processing: processing.NewClient(cfg.API.BaseURL, cfg.API.Timeout),
		Stores:     video.NewStores(),
	}

	auth := services.ContextAuthenticator{}
	a.Reconciler = ingest.NewReconciler(auth, a.Videos, a.Stores, a.Metrics, cfg.Ingest.ReconcileConcurrency)
	a.Coordinator = ingest.NewCoordinator(auth, a.Videos, a.Processing, a.Stores, a.Reconciler, a.Metrics, cfg.Ingest.TriggerTimeout)
	a.Library = ingest.NewLibrary(auth, a.Videos, a.Stores)

	var backend search.Backend
	if cfg.Search.Backend == config.SearchBackendLocal {
		backend = search.NewLocalBackend(a.Videos, uint64(max(cfg.Search.Limit, 0)))
	} else {
		backend = search.NewRemoteBackend(a.Processing)
	}
	a.Search = search.NewClient(auth, backend, a.Metrics)

	a.Handlers = &handlers.Handlers{
		Users:          a.Users,
		Tokens:         a.Tokens,
		DB:             conn,
		Coordinator:    a.Coordinator,
		Reconciler:     a.Reconciler,
		Library:        a.Library,
		Search:         a.Search,
		Stores:         a.Stores,
		Metrics:        a.Metrics,
		WatchInterval:  cfg.Ingest.WatchInterval,
		WatchTimeout:   cfg.Ingest.WatchTimeout,
		CallbackSecret: cfg.Auth.CallbackSecret,
	}

	if cfg.Broker.URL != "" {
		a.consumer = events.NewConsumer(cfg.Broker.URL, cfg.Broker.Queue, cfg.Broker.Prefetch, a.Reconciler, a.Metrics)
	}

	log.Infof("NewApp: search backend %s, status consumer enabled: %t", backend.Name(), a.consumer != nil)
	return a, nil
}

// Start launches the background workers: the reconcile sweeper and, when a
// broker is configured, the status event consumer.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	if a.consumer != nil {
		if err := a.consumer.Start(ctx); err != nil {
			cancel()
			close(a.done)
			return err
		}
	}

	interval := a.cfg.Ingest.ReconcileInterval
	if interval <= 0 {
		close(a.done)
		return nil
	}
	go func() {
		defer close(a.done)
		a.Reconciler.Sweep(ctx, interval)
	}()
	return nil
}

// Close waits for in-flight processing triggers (bounded by ctx), stops the
// workers and closes the database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Coordinator.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("wait for triggers: %w", err))
	}

	if a.cancel != nil {
		a.cancel()
		select {
		case <-a.done:
		case <-ctx.Done():
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer: %w", err))
		}
	}

	db.Close(a.DB)
	return errors.Join(errs...)
}

// ShutdownTimeout bounds Close during a graceful stop.
func (a *App) ShutdownTimeout() time.Duration {
	return a.cfg.Server.ShutdownTimeout
}
