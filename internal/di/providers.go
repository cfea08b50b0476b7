package di

import (
	"context"
	"fmt"
	"time"

	drepo "RegimePulse/internal/domain/repository"
	"RegimePulse/internal/handler/api"
	internalrepo "RegimePulse/internal/repository"
	"RegimePulse/internal/service/volfeed"
	svcregime "RegimePulse/internal/services/regime"
	"RegimePulse/internal/usecase"
	pkgcache "RegimePulse/pkg/cache"
	pkgch "RegimePulse/pkg/clickhouse"
	"RegimePulse/pkg/config"
	pkgkafka "RegimePulse/pkg/kafka"
	applogger "RegimePulse/pkg/logger"
	"RegimePulse/pkg/metrics"
	"RegimePulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	l, err := applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideRedisCache creates the Redis client, or nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	c, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideStateStore creates the Redis-backed state store, or nil when
// Redis is disabled (the crisis store then runs memory-only).
func ProvideStateStore(cache *pkgcache.RedisCache) drepo.StateStore {
	if cache == nil {
		return nil
	}
	return internalrepo.NewRedisStateStore(cache)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAlertPublisher creates the Kafka alert publisher, or nil.
func ProvideAlertPublisher(producer *pkgkafka.Producer, cfg *config.Config) drepo.AlertPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertsTopic)
}

// ProvideClickHouseClient creates a ClickHouse client with the archive
// schema initialized, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements()); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideTransitionArchive creates the ClickHouse archive, or nil.
func ProvideTransitionArchive(chClient *pkgch.Client, l *applogger.Logger) drepo.TransitionArchive {
	if chClient == nil {
		return nil
	}
	a := internalrepo.NewCHTransitionArchive(chClient)
	a.SetLogger(l)
	return a
}

// ProvideVolatilityStream creates the WebSocket feed, or nil when the
// feed is disabled and readings come in via HTTP only.
func ProvideVolatilityStream(cfg *config.Config) drepo.VolatilityStream {
	if !cfg.Feed.Enabled {
		return nil
	}
	return volfeed.New(
		cfg.Feed.Token,
		cfg.Feed.WebSocketURL,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideClassifier creates the regime classifier from configured thresholds.
func ProvideClassifier(cfg *config.Config) *svcregime.Classifier {
	return svcregime.NewClassifier(svcregime.Thresholds{
		Crisis:   cfg.Crisis.Thresholds.Crisis,
		Elevated: cfg.Crisis.Thresholds.Elevated,
		Recovery: cfg.Crisis.Thresholds.Recovery,
	})
}

// ProvideCrisisStore creates the crisis aggregate.
func ProvideCrisisStore(
	classifier *svcregime.Classifier,
	store drepo.StateStore,
	archive drepo.TransitionArchive,
	publisher drepo.AlertPublisher,
	m drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.CrisisStore {
	return usecase.NewCrisisStore(
		classifier, store, archive, publisher, m, l,
		usecase.WithHistoryCap(cfg.Crisis.HistoryCap),
		usecase.WithPersistedSlices(cfg.Crisis.PersistedHistory, cfg.Crisis.PersistedAlerts),
		usecase.WithDefaultConfidence(cfg.Crisis.DefaultConfidence),
	)
}

// ProvideVolCollector creates the volatility collector.
func ProvideVolCollector(
	stream drepo.VolatilityStream,
	store *usecase.CrisisStore,
	m drepo.Metrics,
	cfg *config.Config,
) *usecase.VolCollector {
	return usecase.NewVolCollector(stream, store, m, cfg.Crisis.TickInterval)
}

// ProvideCrisisHandler creates the HTTP handler.
func ProvideCrisisHandler(l *applogger.Logger, store *usecase.CrisisStore, archive drepo.TransitionArchive) *api.CrisisEchoHandler {
	return api.NewCrisisEchoHandler(l, store, archive)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	store *usecase.CrisisStore,
	collector *usecase.VolCollector,
	handler *api.CrisisEchoHandler,
	cache *pkgcache.RedisCache,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, store, collector, handler, cache, producer, chClient)
}
