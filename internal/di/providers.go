package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	drepo "YieldScope/internal/domain/repository"
	"YieldScope/internal/engine"
	"YieldScope/internal/handler/api"
	mid "YieldScope/internal/middleware"
	internalrepo "YieldScope/internal/repository"
	"YieldScope/internal/service/aave"
	"YieldScope/internal/service/metrics"
	"YieldScope/internal/service/rpc"
	"YieldScope/internal/usecase"
	pkgcache "YieldScope/pkg/cache"
	pkgch "YieldScope/pkg/clickhouse"
	"YieldScope/pkg/config"
	xhttp "YieldScope/pkg/http"
	pkgkafka "YieldScope/pkg/kafka"
	xlogger "YieldScope/pkg/logger"
	"YieldScope/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideKafkaProducer returns nil unless outputs or the log digest go to Kafka.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Producer.Enabled && !cfg.Log.Digest.Enabled {
		return nil, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(p.Compression),
		pkgkafka.WithRequiredAcks(p.RequiredAcks),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithBatchSize(p.BatchSize),
		pkgkafka.WithBatchBytes(p.BatchBytes),
		pkgkafka.WithBatchTimeout(p.BatchTimeout),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.WriteTimeout),
		pkgkafka.WithAsync(p.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the app logger and attaches the Kafka log digest when enabled.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*xlogger.Logger, error) {
	l, err := xlogger.New(&xlogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Digest.Enabled && producer != nil {
		l.AttachDigest(&xlogger.DigestConfig{
			Interval:  cfg.Log.Digest.Interval,
			MaxUnique: cfg.Log.Digest.MaxUnique,
			Topic:     cfg.Log.Digest.Topic,
			Publisher: producer,
		})
	}
	return l.With(xlogger.String("env", cfg.Environment)), nil
}

func ProvidePrometheusRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

// EngineParams maps the engine section onto estimator parameters.
func EngineParams(cfg *config.Config) engine.Params {
	e := cfg.Engine
	return engine.Params{
		LevelTimeConstant:       e.LevelTimeConstant,
		TrendTimeConstant:       e.TrendTimeConstant,
		NoiseTimeConstant:       e.NoiseTimeConstant,
		InstabilityTimeConstant: e.InstabilityTimeConstant,
		LiquidityTimeConstant:   e.LiquidityTimeConstant,
		LiquidityReference:      e.LiquidityReference,
		Weights: engine.RiskWeights{
			Noise:       e.Weights.Noise,
			Instability: e.Weights.Instability,
			Liquidity:   e.Weights.Liquidity,
		},
	}
}

func AssessmentParams(cfg *config.Config) engine.AssessmentParams {
	a := cfg.Engine.Assessment
	return engine.AssessmentParams{
		RecoveryTimeConstant: a.RecoveryTimeConstant,
		InstabilityDecay:     a.InstabilityDecay,
		LiquidityDecay:       a.LiquidityDecay,
		TimeDecay:            a.TimeDecay,
		GapThreshold:         a.GapThreshold,
		MinWarmupSamples:     a.MinWarmupSamples,
		Recovery:             engine.RecoveryPolicy(a.Recovery),
		StableConfidence:     a.StableConfidence,
		RiskyConfidence:      a.RiskyConfidence,
		MaxLiquidityStress:   a.MaxLiquidityStress,
		InstabilityThreshold: a.InstabilityThreshold,
	}
}

// ProvideEngineRegistry validates the tuning once so engines never see bad parameters.
func ProvideEngineRegistry(cfg *config.Config) (*usecase.EngineRegistry, error) {
	params := EngineParams(cfg)
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("engine params: %w", err)
	}
	var opts []usecase.RegistryOption
	if cfg.Engine.Assessment.Enabled {
		ap := AssessmentParams(cfg)
		if err := ap.Validate(); err != nil {
			return nil, fmt.Errorf("assessment params: %w", err)
		}
		opts = append(opts, usecase.WithAssessment(ap))
	}
	return usecase.NewEngineRegistry(params, opts...), nil
}

// ProvideRedisCache returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	c, err := pkgcache.NewRedisCache(ctx,
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return c, nil
}

// ProvideOutputStore keeps latest outputs in Redis when available, in memory otherwise.
func ProvideOutputStore(rc *pkgcache.RedisCache, logger *xlogger.Logger) drepo.OutputStore {
	if rc == nil {
		return internalrepo.NewMemoryOutputStore()
	}
	return internalrepo.NewRedisOutputStore(rc, logger)
}

// ProvideClickHouseClient returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ch := cfg.ClickHouse
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(ch.Host, ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, []string{"CREATE DATABASE IF NOT EXISTS " + ch.Database}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse database: %w", err)
	}
	return client, nil
}

// ProvideHistory returns nil when ClickHouse is disabled.
func ProvideHistory(cfg *config.Config, client *pkgch.Client) (*internalrepo.ClickHouseHistory, error) {
	if client == nil {
		return nil, nil
	}
	h := internalrepo.NewClickHouseHistory(client.DB(), cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := h.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return h, nil
}

// ProvideOutputSinks lists the enabled best-effort output destinations.
func ProvideOutputSinks(cfg *config.Config, history *internalrepo.ClickHouseHistory, producer *pkgkafka.Producer) []drepo.OutputSink {
	var sinks []drepo.OutputSink
	if history != nil {
		sinks = append(sinks, history)
	}
	if cfg.Kafka.Producer.Enabled && producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaOutputPublisher(producer, cfg.Kafka.Producer.Topic))
	}
	return sinks
}

func ProvideSnapshotProcessor(
	registry *usecase.EngineRegistry,
	store drepo.OutputStore,
	sinks []drepo.OutputSink,
	rec *metrics.Recorder,
	logger *xlogger.Logger,
) *usecase.SnapshotProcessor {
	return usecase.NewSnapshotProcessor(registry, store, sinks, rec, logger)
}

func ProvideSnapshotPipeline(cfg *config.Config, proc *usecase.SnapshotProcessor, rec *metrics.Recorder) *mid.SnapshotPipeline {
	in := cfg.Ingest
	return mid.NewSnapshotPipeline(proc, rec,
		mid.WithMarketRate(in.MarketRate),
		mid.WithBufferSize(in.BufferSize),
		mid.WithMaxAbsYield(in.MaxAbsYield),
		mid.WithRetryBackoff(in.RetryMin, in.RetryMax),
		mid.WithMaxAttempts(in.MaxAttempts),
	)
}

// ChainIndexers builds one RPC client, head source and Aave reader per
// active chain, in the fixed chain order.
func ChainIndexers(cfg *config.Config, logger *xlogger.Logger) []usecase.ChainIndexer {
	in := cfg.Ingest
	var out []usecase.ChainIndexer
	for _, name := range aave.ChainNames {
		cc, ok := cfg.Chains[name]
		if !ok || cc.RPCURL == "" {
			continue
		}
		chain, _ := aave.DefaultChain(name, cc.PoolAddress)
		chainLog := logger.With(xlogger.String("chain", name))

		client := rpc.New(cc.RPCURL,
			rpc.WithTimeout(in.RPCTimeout),
			rpc.WithBreaker("rpc-"+strings.ToLower(name), in.BreakerFailures, in.BreakerOpenTimeout),
			rpc.WithStateChange(func(n string, from, to gobreaker.State) {
				chainLog.Warn("rpc breaker state changed",
					xlogger.String("breaker", n),
					xlogger.String("from", from.String()),
					xlogger.String("to", to.String()))
			}),
		)
		headOpts := []rpc.HeadOption{rpc.WithPollInterval(in.PollInterval)}
		if cc.WSURL != "" {
			headOpts = append(headOpts, rpc.WithWebsocket(cc.WSURL))
		}

		out = append(out, usecase.ChainIndexer{
			Chain:     name,
			Blocks:    rpc.NewHeadSource(name, client, headOpts...),
			Snapshots: aave.NewReader(chain, client, chainLog, aave.WithMetadataTTL(in.MetadataTTL)),
		})
	}
	for name, cc := range cfg.Chains {
		if _, known := aave.DefaultChain(name, ""); !known && cc.RPCURL != "" {
			logger.Warn("unsupported chain ignored", xlogger.String("chain", name))
		}
	}
	return out
}

// ProvideBlockCollector returns nil when snapshots only come from Kafka.
func ProvideBlockCollector(cfg *config.Config, pipeline *mid.SnapshotPipeline, rec *metrics.Recorder, logger *xlogger.Logger) *usecase.BlockCollector {
	if cfg.Ingest.Source == "kafka" {
		return nil
	}
	return usecase.NewBlockCollector(ChainIndexers(cfg, logger), pipeline, rec, logger,
		usecase.WithBlockThrottle(cfg.Ingest.BlockThrottle),
		usecase.WithStartupDelay(cfg.Ingest.StartupRPCDelay),
		usecase.WithFetchTimeout(cfg.Ingest.RPCTimeout),
	)
}

// ProvideKafkaConsumer returns nil when snapshots only come from chain RPC.
func ProvideKafkaConsumer(cfg *config.Config, logger *xlogger.Logger, reg *prometheus.Registry) (*pkgkafka.Consumer, error) {
	if cfg.Ingest.Source == "rpc" {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerLogger(logger),
		pkgkafka.WithConsumerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideKafkaSnapshotHandler(cfg *config.Config, pipeline *mid.SnapshotPipeline, rec *metrics.Recorder) *usecase.KafkaSnapshotHandler {
	return usecase.NewKafkaSnapshotHandler(cfg.Kafka.Consumer.Topic, pipeline, rec)
}

// ProvideMarketQuery keeps a nil history pointer from becoming a non-nil interface.
func ProvideMarketQuery(store drepo.OutputStore, history *internalrepo.ClickHouseHistory) *usecase.MarketQuery {
	if history == nil {
		return usecase.NewMarketQuery(store, nil)
	}
	return usecase.NewMarketQuery(store, history)
}

func ProvideHTTPServer(cfg *config.Config, logger *xlogger.Logger, reg *prometheus.Registry, query *usecase.MarketQuery) *xhttp.Server {
	s := cfg.Server
	return xhttp.NewServer(api.NewMarketsEchoHandler(logger, query), logger,
		xhttp.WithHost(s.Host),
		xhttp.WithPort(s.Port),
		xhttp.WithTimeouts(s.ReadTimeout, s.WriteTimeout, s.ShutdownTimeout),
		xhttp.WithCORS(s.CORS),
		xhttp.WithRegistry(reg),
	)
}

// ProvideApp assembles the lifecycle. Infrastructure clients are closed
// in the listed order after everything else stopped.
func ProvideApp(
	cfg *config.Config,
	logger *xlogger.Logger,
	pipeline *mid.SnapshotPipeline,
	processor *usecase.SnapshotProcessor,
	collector *usecase.BlockCollector,
	consumer *pkgkafka.Consumer,
	handler *usecase.KafkaSnapshotHandler,
	httpServer *xhttp.Server,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	rc *pkgcache.RedisCache,
) *server.App {
	var resources []server.Resource
	if producer != nil {
		resources = append(resources, server.Resource{Name: "kafka_producer", Closer: producer})
	}
	if chClient != nil {
		resources = append(resources, server.Resource{Name: "clickhouse", Closer: chClient})
	}
	if rc != nil {
		resources = append(resources, server.Resource{Name: "redis", Closer: rc})
	}
	return server.New(cfg, logger, server.Components{
		Pipeline:   pipeline,
		Processor:  processor,
		Collector:  collector,
		Consumer:   consumer,
		Handler:    handler,
		HTTPServer: httpServer,
		Resources:  resources,
	})
}
