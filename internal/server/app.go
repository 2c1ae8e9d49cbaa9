// Package server wires the configured stores, the access gateway, the
// notification bus and both transports into one application and runs them
// until the process is told to stop.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/sharekeeper/internal/cryptox"
	"github.com/dmitrijs2005/sharekeeper/internal/filex"
	"github.com/dmitrijs2005/sharekeeper/internal/logging"
	"github.com/dmitrijs2005/sharekeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/sharekeeper/internal/server/config"
	"github.com/dmitrijs2005/sharekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/sharekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/sharekeeper/internal/server/mq"
	"github.com/dmitrijs2005/sharekeeper/internal/server/notify"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sharekeeper/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/sharekeeper/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	bus     *notify.Bus
	gateway *services.Gateway
	grpc    *gs.GRPCServer
	http    *httpapi.Server
	audit   *mq.AuditPublisher
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	var sealer files.KeySealer
	if c.MasterKeyPassphrase != "" {
		mk, err := cryptox.NewMasterKey(c.MasterKeyPassphrase, c.MasterKeySalt)
		if err != nil {
			return nil, fmt.Errorf("master key init error: %w", err)
		}
		sealer = mk
	}

	engine, err := cryptox.NewEngine(c.CipherAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	if c.SpoolDir != "" {
		if _, err := filex.EnsureDir(c.SpoolDir); err != nil {
			return nil, fmt.Errorf("spool dir init error: %w", err)
		}
	}

	repos, err := repomanager.New(ctx, c.RecordStore, c.DatabaseDSN, sealer)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	bus := notify.NewBus(notify.NewRegistry(), notify.Options{
		QueueSize:    c.ConnectionQueueSize,
		PingInterval: c.PingInterval,
		PingTimeout:  c.PingTimeout,
	}, logger.With("module", "notify"), m)

	gw := services.NewGateway(repos, blobs, engine, bus, logger, m, services.Options{
		SpoolDir:             c.SpoolDir,
		RecentAccessLimit:    c.RecentAccessLimit,
		CompensationAttempts: c.CompensationAttempts,
	})

	app := &App{
		config:  c,
		logger:  logger,
		repos:   repos,
		bus:     bus,
		gateway: gw,
		grpc:    gs.NewGRPCServer(c.EndpointAddrGRPC, logger, bus, gw, c.SecretKey),
		http: httpapi.NewServer(c.EndpointAddrHTTP, gw, c.SecretKey, logger, m, httpapi.Options{
			MaxUploadBytes: c.MaxUploadBytes,
			Gatherer:       reg,
		}),
	}

	if c.AMQPURL != "" {
		app.audit = mq.NewAuditPublisher(c.AMQPExchange, logger)
		if err := app.audit.Connect(ctx, c.AMQPURL); err != nil {
			_ = repos.Close()
			return nil, fmt.Errorf("rabbitmq init error: %w", err)
		}
		gw.SetAuditSink(app.audit)
	}

	return app, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.BlobStore, error) {
	switch c.BlobBackend {
	case config.BlobBackendS3:
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
	default:
		return blobstore.NewFSStore(c.BlobDir)
	}
}

// Run serves both transports, the bus liveness loop and the audit mirror
// until ctx is cancelled, a termination signal arrives or one of them fails.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "record_store", app.config.RecordStore, "blob_backend", app.config.BlobBackend)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.bus.Run(ctx) })
	g.Go(func() error { return app.grpc.Run(ctx) })
	g.Go(func() error { return app.http.Run(ctx) })
	if app.audit != nil {
		g.Go(func() error { return app.audit.Run(ctx) })
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(context.Background(), "app stopped with error", "error", err)
	} else {
		app.logger.Info(context.Background(), "app stopped")
	}
	return err
}

// Close releases the record store and flushes the logger.
func (app *App) Close() error {
	err := app.repos.Close()
	if z, ok := app.logger.(*logging.ZapLogger); ok {
		_ = z.Sync()
	}
	return err
}
