package di

import (
	"context"
	"fmt"
	"time"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domrepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	domsvc "github.com/sourav-625/market-regime-radar/internal/domain/service"
	"github.com/sourav-625/market-regime-radar/internal/handler/api"
	"github.com/sourav-625/market-regime-radar/internal/handler/web"
	"github.com/sourav-625/market-regime-radar/internal/handler/ws"
	internalrepo "github.com/sourav-625/market-regime-radar/internal/repository"
	"github.com/sourav-625/market-regime-radar/internal/service/marketdata"
	"github.com/sourav-625/market-regime-radar/internal/service/ratelimit"
	"github.com/sourav-625/market-regime-radar/internal/services/analytics"
	"github.com/sourav-625/market-regime-radar/internal/usecase"
	"github.com/sourav-625/market-regime-radar/pkg/cache"
	pkgch "github.com/sourav-625/market-regime-radar/pkg/clickhouse"
	"github.com/sourav-625/market-regime-radar/pkg/config"
	xhttp "github.com/sourav-625/market-regime-radar/pkg/http"
	pkgkafka "github.com/sourav-625/market-regime-radar/pkg/kafka"
	applogger "github.com/sourav-625/market-regime-radar/pkg/logger"
	"github.com/sourav-625/market-regime-radar/pkg/metrics"
	"github.com/sourav-625/market-regime-radar/pkg/server"
)

// Optional infrastructure providers return nil when their feature is
// disabled. Interface-typed results must be untyped nil so that consumers'
// nil checks hold.

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New(nil)
}

// ProvideCache creates the price cache backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	c := cfg.Cache
	if !c.Enabled {
		return nil, nil
	}
	memOpts := []cache.MemoryOption{
		cache.WithMemoryMaxSize(c.MemoryMaxSize),
		cache.WithMemoryCleanup(c.MemoryCleanup),
	}
	if c.Backend == config.CacheMemory {
		return cache.NewMemoryCache(memOpts...), nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(c.Redis.Addr),
		cache.WithRedisPassword(c.Redis.Password),
		cache.WithRedisDB(c.Redis.DB),
		cache.WithRedisPrefix(c.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if c.Backend == config.CacheLayered {
		return cache.NewLayeredCache(rc, memOpts...), nil
	}
	return rc, nil
}

// ProvidePriceSource creates the market data source, cached when a cache is configured.
func ProvidePriceSource(cfg *config.Config, l *applogger.Logger, c cache.Service) (domrepo.PriceSource, error) {
	src, err := marketdata.NewSource(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("price source: %w", err)
	}
	if c == nil {
		return src, nil
	}
	return internalrepo.NewCachedPriceSource(src, c, cfg.Cache.TTL, l), nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the run schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	ch := cfg.ClickHouse
	if !ch.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.RunSchema(ch.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRunStore creates the analysis history store.
func ProvideRunStore(ch *pkgch.Client, l *applogger.Logger) domrepo.RunStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHRunStore(ch, l)
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	k := cfg.Kafka
	if !k.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithBatch(k.Producer.BatchSize, k.Producer.BatchBytes, k.Producer.Linger),
		pkgkafka.WithTimeouts(k.Producer.WriteTimeout, k.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(k.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideReportPublisher creates the Kafka report publisher.
func ProvideReportPublisher(p *pkgkafka.Producer, cfg *config.Config) domrepo.ReportPublisher {
	if p == nil || cfg.Kafka.ReportTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaReportPublisher(p, cfg.Kafka.ReportTopic)
}

// ProvideEstimator selects the local or remote model estimator.
func ProvideEstimator(cfg *config.Config) domsvc.RegimeEstimator {
	return analytics.NewEstimator(cfg)
}

// ProvideRegimeAnalysis creates the analysis use case.
func ProvideRegimeAnalysis(
	cfg *config.Config,
	source domrepo.PriceSource,
	estimator domsvc.RegimeEstimator,
	store domrepo.RunStore,
	publisher domrepo.ReportPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.RegimeAnalysis {
	return usecase.NewRegimeAnalysis(cfg, source, estimator, store, publisher, m, l)
}

// ProvideHistory creates the history use case.
func ProvideHistory(store domrepo.RunStore) *usecase.History {
	return usecase.NewHistory(store)
}

// ProvideRateLimiter creates the per-client limiter for analysis endpoints.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	rl := cfg.Analysis.RateLimit
	if !rl.Enabled {
		return nil
	}
	return ratelimit.New(rl.RPS, rl.Burst)
}

// ProvideHTTPHandler assembles the JSON API, dashboard and websocket routes.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	ra *usecase.RegimeAnalysis,
	history *usecase.History,
	limiter *ratelimit.Limiter,
	chClient *pkgch.Client,
) xhttp.Handler {
	defaults := models.AnalysisRequest{
		Symbol:  cfg.Analysis.DefaultSymbol,
		Period:  cfg.Analysis.DefaultPeriod,
		Regimes: models.IntPtr(cfg.Analysis.DefaultRegimes),
	}
	readiness := api.NewReadinessHandler(l, cfg.ClickHouse.DialTimeout)
	if chClient != nil {
		readiness.Add("clickhouse", chClient)
	}
	return xhttp.Handlers{
		readiness,
		api.NewRegimesEchoHandler(l, ra, history, limiter, cfg.Analysis.IncludePath),
		web.NewDashboardHandler(l, ra, limiter, defaults),
		ws.NewAnalysisHandler(l, ra, limiter, cfg.Server.WSAllowedOrigins),
	}
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h xhttp.Handler) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
	)
}

// ProvideKafkaConsumer creates the analysis request consumer when a request topic is set.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	k := cfg.Kafka
	if !k.Enabled || k.RequestTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(k.Brokers),
		pkgkafka.WithConsumerGroupID(k.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(k.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(k.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(k.Consumer.RetryMax, k.Consumer.BackoffMin, k.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(k.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(k.Consumer.MinBytes, k.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaRequestsHandler handles analysis requests from the request topic.
func ProvideKafkaRequestsHandler(cfg *config.Config, ra *usecase.RegimeAnalysis, l *applogger.Logger) pkgkafka.MessageHandler {
	if !cfg.Kafka.Enabled || cfg.Kafka.RequestTopic == "" {
		return nil
	}
	return usecase.NewKafkaRequestsHandler(cfg.Kafka.RequestTopic, ra, l)
}

// ProvideApp creates the application server and attaches the error log
// collector when a collect topic is configured.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	c cache.Service,
) *server.App {
	if cfg.Logging.CollectTopic != "" && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.CollectInterval,
			CountThreshold: cfg.Logging.CollectThreshold,
			Topic:          cfg.Logging.CollectTopic,
			Publisher:      producer,
		})
	}
	return server.New(cfg, l, srv, consumer, kh, producer, chClient, c)
}
