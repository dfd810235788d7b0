package config

import (
	"time"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/application/sinks"
	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/internal/infrastructure/ingest"
	"github.com/turtacn/ligandscreen/internal/infrastructure/rcsb"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultCorpusPath    = "pdb_ligands.csv"
	DefaultQueryPath     = "input/input_chemicals.csv"
	DefaultReportOutput  = "output/results.csv"
	DefaultProgressEvery = 25000
	DefaultQueryProgress = 10

	DefaultServerAddr       = ":8080"
	DefaultServerMode       = "release"
	DefaultReadTimeout      = 30 * time.Second
	DefaultWriteTimeout     = 5 * time.Minute
	DefaultShutdownTimeout  = 15 * time.Second
	DefaultMaxBodySize      = 1 << 20
	DefaultServerMaxQueries = 100
	DefaultResultCacheSize  = 1024
	DefaultRateLimitBurst   = 10

	DefaultGRPCAddr            = ":9090"
	DefaultGRPCGracefulTimeout = 10 * time.Second

	DefaultMetricsNamespace = "ligandscreen"
	DefaultMetricsPath      = "/metrics"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "ligandscreen:ann:"
	DefaultAnnotationTTL  = 7 * 24 * time.Hour

	DefaultPostgresHost = "localhost"
	DefaultPostgresPort = 5432
	DefaultPostgresDB   = "ligandscreen"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "ligandscreen-reports"

	DefaultKafkaBroker = "localhost:9092"
)

// boolDefaults are the switches whose default is true.  A zero bool cannot be
// told apart from an explicit false, so these are seeded into viper instead
// of being patched by ApplyDefaults.
var boolDefaults = map[string]bool{
	"grpc.enabled":                   true,
	"metrics.enabled":                true,
	"metrics.enable_go_metrics":      true,
	"metrics.enable_process_metrics": true,
	"postgres.auto_migrate":          true,
}

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// It must be called after unmarshalling raw config data and before Validate()
// so that optional-but-defaulted fields are never seen as missing.
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg with its default.
// Explicitly configured values are left unchanged.  A relevance floor of 0 is
// indistinguishable from "unset" and becomes the reference floor.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Fingerprint ───────────────────────────────────────────────────────────
	if cfg.Fingerprint.NumBits == 0 {
		cfg.Fingerprint.NumBits = molecule.DefaultFingerprintBits
	}
	if cfg.Fingerprint.Radius == 0 {
		cfg.Fingerprint.Radius = molecule.DefaultMorganRadius
	}

	// ── Screening ─────────────────────────────────────────────────────────────
	s := &cfg.Screening
	if s.RelevanceFloor == 0 {
		s.RelevanceFloor = screening.DefaultRelevanceFloor
	}
	if s.Tier1Size == 0 {
		s.Tier1Size = screening.DefaultTier1Size
	}
	if s.Tier2Size == 0 {
		s.Tier2Size = screening.DefaultTier2Size
	}
	if s.MinAnnotatedHits == 0 {
		s.MinAnnotatedHits = screening.DefaultMinAnnotatedHits
	}
	if s.TopN == 0 {
		s.TopN = screening.DefaultTopN
	}
	if s.ScoreDecimals == 0 {
		s.ScoreDecimals = screening.DefaultScoreDecimals
	}
	if s.ScanWorkers == 0 {
		s.ScanWorkers = 1
	}
	if s.QueryWorkers == 0 {
		s.QueryWorkers = 1
	}
	if s.ProgressEvery == 0 {
		s.ProgressEvery = DefaultQueryProgress
	}

	// ── Annotation ────────────────────────────────────────────────────────────
	a := &cfg.Annotation
	if a.GraphQLURL == "" {
		a.GraphQLURL = rcsb.DefaultGraphQLURL
	}
	if a.RESTURL == "" {
		a.RESTURL = rcsb.DefaultRESTURL
	}
	if a.BatchSize == 0 {
		a.BatchSize = annotation.DefaultBatchSize
	}
	if a.PrimaryTimeout == 0 {
		a.PrimaryTimeout = annotation.DefaultPrimaryTimeout
	}
	if a.SecondaryTimeout == 0 {
		a.SecondaryTimeout = annotation.DefaultSecondaryTimeout
	}
	if a.PrimaryInterval == 0 {
		a.PrimaryInterval = annotation.DefaultPrimaryInterval
	}
	if a.SecondaryInterval == 0 {
		a.SecondaryInterval = annotation.DefaultSecondaryInterval
	}
	if len(a.TargetKeywords) == 0 {
		a.TargetKeywords = append([]string(nil), annotation.DefaultTargetKeywords...)
	}

	// ── Ingest ────────────────────────────────────────────────────────────────
	in := &cfg.Ingest
	if in.CorpusPath == "" {
		in.CorpusPath = DefaultCorpusPath
	}
	if in.QueryPath == "" {
		in.QueryPath = DefaultQueryPath
	}
	if in.ProgressEvery == 0 {
		in.ProgressEvery = DefaultProgressEvery
	}
	in.CorpusColumns = mergeCorpusColumns(in.CorpusColumns)
	in.QueryColumns = mergeQueryColumns(in.QueryColumns)

	// ── Report ────────────────────────────────────────────────────────────────
	if cfg.Report.Output == "" {
		cfg.Report.Output = DefaultReportOutput
	}

	// ── Server ────────────────────────────────────────────────────────────────
	srv := &cfg.Server
	if srv.Addr == "" {
		srv.Addr = DefaultServerAddr
	}
	if srv.Mode == "" {
		srv.Mode = DefaultServerMode
	}
	if srv.ReadTimeout == 0 {
		srv.ReadTimeout = DefaultReadTimeout
	}
	if srv.WriteTimeout == 0 {
		srv.WriteTimeout = DefaultWriteTimeout
	}
	if srv.ShutdownTimeout == 0 {
		srv.ShutdownTimeout = DefaultShutdownTimeout
	}
	if srv.MaxBodySize == 0 {
		srv.MaxBodySize = DefaultMaxBodySize
	}
	if srv.MaxQueries == 0 {
		srv.MaxQueries = DefaultServerMaxQueries
	}
	if srv.ResultCacheSize == 0 {
		srv.ResultCacheSize = DefaultResultCacheSize
	}
	if srv.RateLimitRPS > 0 && srv.RateLimitBurst == 0 {
		srv.RateLimitBurst = DefaultRateLimitBurst
	}

	// ── gRPC ──────────────────────────────────────────────────────────────────
	if cfg.GRPC.Addr == "" {
		cfg.GRPC.Addr = DefaultGRPCAddr
	}
	if cfg.GRPC.GracefulTimeout == 0 {
		cfg.GRPC.GracefulTimeout = DefaultGRPCGracefulTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Sinks ─────────────────────────────────────────────────────────────────
	def := sinks.DefaultRetryPolicy()
	if cfg.Sinks.MaxRetries == 0 {
		cfg.Sinks.MaxRetries = def.MaxRetries
	}
	if cfg.Sinks.InitialInterval == 0 {
		cfg.Sinks.InitialInterval = def.InitialInterval
	}
	if cfg.Sinks.MaxInterval == 0 {
		cfg.Sinks.MaxInterval = def.MaxInterval
	}
	if cfg.Sinks.MaxElapsedTime == 0 {
		cfg.Sinks.MaxElapsedTime = def.MaxElapsedTime
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.AnnotationTTL == 0 {
		cfg.Redis.AnnotationTTL = DefaultAnnotationTTL
	}

	// ── Postgres ──────────────────────────────────────────────────────────────
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultPostgresHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = DefaultPostgresDB
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
}

func mergeCorpusColumns(c ingest.CorpusColumns) ingest.CorpusColumns {
	def := ingest.DefaultCorpusColumns()
	return ingest.CorpusColumns{
		Identifier: orDefault(c.Identifier, def.Identifier),
		Encoding:   orDefault(c.Encoding, def.Encoding),
		Name:       orDefault(c.Name, def.Name),
		Weight:     orDefault(c.Weight, def.Weight),
		Status:     orDefault(c.Status, def.Status),
	}
}

func mergeQueryColumns(c ingest.QueryColumns) ingest.QueryColumns {
	def := ingest.DefaultQueryColumns()
	return ingest.QueryColumns{
		Source:   orDefault(c.Source, def.Source),
		Name:     orDefault(c.Name, def.Name),
		Encoding: orDefault(c.Encoding, def.Encoding),
		Category: orDefault(c.Category, def.Category),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

//Personal.AI order the ending
