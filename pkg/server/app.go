package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "YieldScope/internal/middleware"
	"YieldScope/internal/usecase"
	"YieldScope/pkg/config"
	xhttp "YieldScope/pkg/http"
	pkgkafka "YieldScope/pkg/kafka"
	xlogger "YieldScope/pkg/logger"
)

// Resource is an infrastructure client closed last during shutdown.
type Resource struct {
	Name   string
	Closer io.Closer
}

// App owns the lifecycle of the indexer: ingestion, processing, serving.
type App struct {
	cfg        *config.Config
	logger     *xlogger.Logger
	pipeline   *mid.SnapshotPipeline
	processor  *usecase.SnapshotProcessor
	collector  *usecase.BlockCollector
	consumer   *pkgkafka.Consumer
	handler    pkgkafka.MessageHandler
	httpServer *xhttp.Server
	resources  []Resource
}

// Components groups what New needs. Collector and Consumer are nil when
// the matching ingest source is disabled.
type Components struct {
	Pipeline   *mid.SnapshotPipeline
	Processor  *usecase.SnapshotProcessor
	Collector  *usecase.BlockCollector
	Consumer   *pkgkafka.Consumer
	Handler    pkgkafka.MessageHandler
	HTTPServer *xhttp.Server
	Resources  []Resource
}

// New assembles an App. Nothing starts until Run or Start.
func New(cfg *config.Config, logger *xlogger.Logger, c Components) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		pipeline:   c.Pipeline,
		processor:  c.Processor,
		collector:  c.Collector,
		consumer:   c.Consumer,
		handler:    c.Handler,
		httpServer: c.HTTPServer,
		resources:  c.Resources,
	}
}

// Run starts every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	a.Shutdown(context.Background())
	return nil
}

// Start brings up the pipeline first so that sources never feed a stopped sink.
func (a *App) Start(ctx context.Context) error {
	a.pipeline.Start(ctx)

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			return fmt.Errorf("start collector: %w", err)
		}
		a.logger.Info("block collector started", xlogger.Any("chains", a.collector.Active()))
	}

	if a.consumer != nil && a.handler != nil {
		a.consumer.RegisterHandler(a.handler)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
		a.logger.Info("kafka consumer started", xlogger.String("topic", a.handler.Topic()))
	}

	if a.collector == nil && a.consumer == nil {
		return errors.New("no snapshot source enabled")
	}

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	return nil
}

// Shutdown stops sources, drains the pipeline, then closes sinks, the HTTP
// server and infrastructure clients. Errors are logged, never returned.
func (a *App) Shutdown(ctx context.Context) {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a.logger.Info("shutting down")

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("collector stop", xlogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop", xlogger.Error(err))
		}
	}

	a.pipeline.Stop()
	a.processor.Close()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Warn("http server stop", xlogger.Error(err))
	}

	a.logger.Info("shutdown complete")
	a.logger.Close()

	for _, r := range a.resources {
		if r.Closer == nil {
			continue
		}
		if err := r.Closer.Close(); err != nil {
			a.logger.Warn("close resource", xlogger.String("resource", r.Name), xlogger.Error(err))
		}
	}
}
