// Package server wires the ReadBack components together and runs the HTTP
// API until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/readback/readback/internal/logging"
	"github.com/readback/readback/internal/server/audiostore"
	"github.com/readback/readback/internal/server/config"
	"github.com/readback/readback/internal/server/httpapi"
	"github.com/readback/readback/internal/server/repositories/repomanager"
	"github.com/readback/readback/internal/server/services"
	"github.com/readback/readback/internal/server/speech"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	nc     *nats.Conn
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogLevel, c.LogFormat, os.Stdout)
	if logging.ParseLevel(c.LogLevel) > logging.ParseLevel("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	store, source, err := app.newAudioStore(ctx)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("audio store init error: %w", err)
	}

	gateway := speech.New(speech.Config{
		APIKey:    c.OpenAIAPIKey,
		BaseURL:   c.OpenAIBaseURL,
		Model:     c.OpenAIModel,
		Retries:   c.SynthesisRetries,
		RateLimit: c.SynthesisRateLimit,
		RateBurst: c.SynthesisRateBurst,
	})
	if !gateway.Configured() {
		logger.Warn(ctx, "OPENAI_API_KEY is not set, synthesis requests will fail")
	}

	authz := services.NewStoreAuthorizer(db, rm)
	svc := httpapi.Services{
		Users:         services.NewUserService(db, rm, c),
		Sections:      services.NewSectionService(db, rm, authz),
		Subscriptions: services.NewSubscriptionService(db, rm, authz, services.ApproveAllVerifier{}, logger),
		Synthesis: services.NewSynthesisService(db, rm, gateway, store, authz, logger, services.SynthesisOptions{
			StoreTimeout:     c.StoreTimeout,
			SynthesisTimeout: c.SynthesisTimeout,
		}),
		Admin: services.NewAdminService(db, rm, authz),
		Audio: source,
	}

	app.server = httpapi.NewServer(c.HTTPAddr, logger, c.SecretKey, svc)
	return app, nil
}

// newAudioStore builds the store selected by AudioStorage. The second result
// is non-nil when the HTTP API has to serve the stored audio itself.
func (app *App) newAudioStore(ctx context.Context) (audiostore.Store, httpapi.AudioSource, error) {
	c := app.config

	switch c.AudioStorage {
	case "", config.StorageInline:
		return audiostore.Inline{}, nil, nil

	case config.StorageS3:
		st, err := audiostore.NewS3Store(ctx, audiostore.S3Config{
			AccessKey:     c.S3RootUser,
			SecretKey:     c.S3RootPassword,
			Bucket:        c.S3Bucket,
			Region:        c.S3Region,
			BaseEndpoint:  c.S3BaseEndpoint,
			PresignExpiry: c.S3PresignExpiry,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil

	case config.StorageNATS:
		nc, err := nats.Connect(c.NATSURL, nats.Name("readback"))
		if err != nil {
			return nil, nil, fmt.Errorf("nats connect: %w", err)
		}
		app.nc = nc

		js, err := jetstream.New(nc)
		if err != nil {
			return nil, nil, fmt.Errorf("jetstream: %w", err)
		}
		st, err := audiostore.NewNATSStore(ctx, js, c.NATSBucket, c.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	}

	return nil, nil, fmt.Errorf("unknown audio storage %q", c.AudioStorage)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) close() {
	if app.nc != nil {
		app.nc.Close()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(context.Background(), "db close error", "error", err)
		}
	}
}

// Run blocks until a termination signal arrives or ctx is cancelled.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(ctx, "App stopped")
}
