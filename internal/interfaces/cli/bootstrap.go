package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/application/sinks"
	"github.com/turtacn/ligandscreen/internal/config"
	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/internal/domain/corpus"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/internal/infrastructure/database/postgres"
	"github.com/turtacn/ligandscreen/internal/infrastructure/database/redis"
	"github.com/turtacn/ligandscreen/internal/infrastructure/ingest"
	"github.com/turtacn/ligandscreen/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ligandscreen/internal/infrastructure/rcsb"
	"github.com/turtacn/ligandscreen/internal/infrastructure/storage/minio"
)

// rcsbHTTPTimeout is a backstop; each call carries its own deadline.
const rcsbHTTPTimeout = 60 * time.Second

// app is the wired screening stack shared by the screen and serve commands.
type app struct {
	cfg    *config.Config
	logger logging.Logger

	// collector and metrics are nil when metrics are disabled.
	collector prometheus.MetricsCollector
	metrics   *prometheus.ScreeningMetrics

	codec    *molecule.Codec
	index    *corpus.Index
	resolver *annotation.Resolver
	engine   *screening.Engine
	// redis is nil unless the shared annotation store is enabled and reachable.
	redis *redis.Client

	closers []func() error
}

// newApp builds metrics, the codec, the corpus index, the resolver and the
// engine.  Failing to create the codec or to load the corpus is fatal.
func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(cfg.Metrics.CollectorConfig, logger)
		if err != nil {
			return nil, err
		}
		a.collector = collector
		a.metrics = prometheus.NewScreeningMetrics(collector)
	}

	codec, err := molecule.NewCodec(cfg.Fingerprint)
	if err != nil {
		return nil, err
	}
	a.codec = codec

	if a.index, err = a.loadCorpus(ctx); err != nil {
		return nil, err
	}
	a.resolver = a.newResolver()

	engineOpts := []screening.EngineOption{screening.WithLogger(logger)}
	if a.metrics != nil {
		engineOpts = append(engineOpts, screening.WithRecorder(a.metrics))
	}
	if a.engine, err = screening.NewEngine(a.index, codec, a.resolver, cfg.Screening.EngineOptions(), engineOpts...); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) loadCorpus(ctx context.Context) (*corpus.Index, error) {
	in := a.cfg.Ingest
	src, err := ingest.OpenCorpus(in.CorpusPath, in.CorpusColumns)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	a.logger.Info("loading corpus", logging.String("path", in.CorpusPath))
	ix, err := corpus.Build(ctx, src, a.codec, corpus.BuildOptions{
		MaxRecords:    in.MaxCorpus,
		Workers:       in.CorpusWorkers,
		ProgressEvery: in.ProgressEvery,
		Logger:        a.logger,
	})
	if err != nil {
		return nil, err
	}
	if a.metrics != nil {
		a.metrics.SetCorpus(ix.Stats().Valid, ix.Stats().Invalid)
	}
	return ix, nil
}

// newResolver wires the RCSB clients and the optional redis store.  An
// unreachable store is logged and skipped.
func (a *app) newResolver() *annotation.Resolver {
	cfg := a.cfg.Annotation
	opts := []annotation.ResolverOption{annotation.WithLogger(a.logger)}
	if a.metrics != nil {
		opts = append(opts, annotation.WithObserver(a.metrics))
	}

	if cfg.Offline {
		a.logger.Info("annotation lookups disabled; every identifier resolves to Unknown")
	} else {
		hc := &http.Client{Timeout: rcsbHTTPTimeout}
		opts = append(opts,
			annotation.WithPrimary(rcsb.NewGraphQLClient(cfg.Config, hc)),
			annotation.WithSecondary(rcsb.NewRESTClient(cfg.Config, hc)))
	}

	if a.cfg.Redis.Enabled {
		rcfg := a.cfg.Redis
		client, err := redis.NewClient(&rcfg, a.logger)
		if err != nil {
			a.logger.Warn("annotation store unavailable, continuing without it", logging.Err(err))
		} else {
			a.redis = client
			a.closers = append(a.closers, client.Close)
			opts = append(opts, annotation.WithStore(redis.NewAnnotationStore(client, a.logger)))
		}
	}

	return annotation.NewResolver(annotation.NewCache(), annotation.NewClassifier(cfg.TargetKeywords), cfg.ResolverConfig(), opts...)
}

// sinkSelection turns optional sinks on in addition to the configuration.
type sinkSelection struct {
	persist, upload, publish bool
}

// newDispatcher connects every selected sink.  A sink that cannot be set up
// is logged and left out; sinks never fail a run.
func (a *app) newDispatcher(ctx context.Context, sel sinkSelection) *sinks.Dispatcher {
	var list []sinks.Sink

	if sel.persist || a.cfg.Postgres.Enabled {
		if s, err := a.postgresSink(ctx); err != nil {
			a.logger.Warn("postgres sink disabled", logging.Err(err))
		} else {
			list = append(list, s)
		}
	}
	if sel.upload || a.cfg.MinIO.Enabled {
		if s, err := a.minioSink(ctx); err != nil {
			a.logger.Warn("minio sink disabled", logging.Err(err))
		} else {
			list = append(list, s)
		}
	}
	if sel.publish || a.cfg.Kafka.Enabled {
		if s, err := a.kafkaSink(ctx); err != nil {
			a.logger.Warn("kafka sink disabled", logging.Err(err))
		} else {
			list = append(list, s)
		}
	}

	opts := []sinks.Option{sinks.WithRetryPolicy(a.cfg.Sinks), sinks.WithLogger(a.logger)}
	if a.metrics != nil {
		opts = append(opts, sinks.WithRecorder(a.metrics))
	}
	return sinks.NewDispatcher(list, opts...)
}

func (a *app) postgresSink(ctx context.Context) (sinks.Sink, error) {
	conn, err := postgres.NewConnection(ctx, a.cfg.Postgres, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { conn.Close(); return nil })
	if a.cfg.Postgres.AutoMigrate {
		if err := postgres.RunMigrations(conn.URL()); err != nil {
			return nil, err
		}
	}
	return sinks.Database(postgres.NewRunRepository(conn.Pool(), a.logger)), nil
}

func (a *app) minioSink(ctx context.Context) (sinks.Sink, error) {
	mcfg := a.cfg.MinIO
	client, err := minio.NewMinIOClient(ctx, &mcfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	store := minio.NewArtifactStore(client, a.logger)
	return sinks.Artifacts(sinks.UploaderFunc(func(ctx context.Context, runID string, files ...string) error {
		_, err := store.Upload(ctx, runID, files...)
		return err
	})), nil
}

func (a *app) kafkaSink(ctx context.Context) (sinks.Sink, error) {
	if err := kafka.PrepareTopics(ctx, a.cfg.Kafka, a.logger); err != nil {
		a.logger.Warn("kafka topic creation failed", logging.Err(err))
	}
	producer, err := kafka.NewProducer(a.cfg.Kafka, a.logger)
	if err != nil {
		return nil, err
	}
	pub := kafka.NewResultPublisher(producer, a.logger)
	a.closers = append(a.closers, pub.Close)
	return sinks.Events(pub), nil
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", logging.Err(err))
		}
	}
	a.closers = nil
}

//Personal.AI order the ending
