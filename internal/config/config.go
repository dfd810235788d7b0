// Package config defines the configuration of the ligandscreen CLI and API
// server.  The structs here are plain data plus validation; reading files and
// the environment lives in loader.go.
package config

import (
	"time"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/application/sinks"
	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/internal/infrastructure/database/postgres"
	"github.com/turtacn/ligandscreen/internal/infrastructure/database/redis"
	"github.com/turtacn/ligandscreen/internal/infrastructure/ingest"
	"github.com/turtacn/ligandscreen/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ligandscreen/internal/infrastructure/rcsb"
	"github.com/turtacn/ligandscreen/internal/infrastructure/storage/minio"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ScreeningConfig holds the ranking policy and the degree of parallelism.
type ScreeningConfig struct {
	RelevanceFloor   float64 `mapstructure:"relevance_floor"`
	Tier1Size        int     `mapstructure:"tier1_size"`
	Tier2Size        int     `mapstructure:"tier2_size"`
	MinAnnotatedHits int     `mapstructure:"min_annotated_hits"`
	TopN             int     `mapstructure:"top_n"`
	ScoreDecimals    int     `mapstructure:"score_decimals"`
	ScanWorkers      int     `mapstructure:"scan_workers"`
	QueryWorkers     int     `mapstructure:"query_workers"`
	ProgressEvery    int     `mapstructure:"progress_every"`
}

// EngineOptions converts the section into engine options.
func (c ScreeningConfig) EngineOptions() screening.Options {
	return screening.Options{
		RelevanceFloor:   c.RelevanceFloor,
		Tier1Size:        c.Tier1Size,
		Tier2Size:        c.Tier2Size,
		MinAnnotatedHits: c.MinAnnotatedHits,
		TopN:             c.TopN,
		ScoreDecimals:    c.ScoreDecimals,
		ScanWorkers:      c.ScanWorkers,
	}
}

// AnnotationConfig holds the RCSB endpoints and the resolver pacing.
type AnnotationConfig struct {
	rcsb.Config `mapstructure:",squash"`

	BatchSize         int           `mapstructure:"batch_size"`
	PrimaryTimeout    time.Duration `mapstructure:"primary_timeout"`
	SecondaryTimeout  time.Duration `mapstructure:"secondary_timeout"`
	PrimaryInterval   time.Duration `mapstructure:"primary_interval"`
	SecondaryInterval time.Duration `mapstructure:"secondary_interval"`
	// Offline skips every network lookup; all identifiers resolve to Unknown.
	Offline        bool     `mapstructure:"offline"`
	TargetKeywords []string `mapstructure:"target_keywords"`
}

// ResolverConfig converts the section into resolver settings.
func (c AnnotationConfig) ResolverConfig() annotation.ResolverConfig {
	return annotation.ResolverConfig{
		BatchSize:         c.BatchSize,
		PrimaryTimeout:    c.PrimaryTimeout,
		SecondaryTimeout:  c.SecondaryTimeout,
		PrimaryInterval:   c.PrimaryInterval,
		SecondaryInterval: c.SecondaryInterval,
	}
}

// IngestConfig locates the input tables.
type IngestConfig struct {
	CorpusPath    string               `mapstructure:"corpus_path"`
	QueryPath     string               `mapstructure:"query_path"`
	MaxCorpus     int                  `mapstructure:"max_corpus"`
	MaxQueries    int                  `mapstructure:"max_queries"`
	ProgressEvery int                  `mapstructure:"progress_every"`
	CorpusWorkers int                  `mapstructure:"corpus_workers"`
	CorpusColumns ingest.CorpusColumns `mapstructure:"corpus_columns"`
	QueryColumns  ingest.QueryColumns  `mapstructure:"query_columns"`
}

// ReportConfig controls where the run artifacts go.
type ReportConfig struct {
	// Output is the base path; the three artifact names derive from it.
	Output string `mapstructure:"output"`
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	MaxQueries      int           `mapstructure:"max_queries"`
	ResultCacheSize int           `mapstructure:"result_cache_size"`
	// RateLimitRPS is the per-client request rate; 0 disables limiting.
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
}

// GRPCConfig holds the gRPC listener.  It carries the standard health
// service so orchestrators can check readiness without HTTP.
type GRPCConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	Reflection      bool          `mapstructure:"reflection"`
	MaxRecvMsgSize  int           `mapstructure:"max_recv_msg_size"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

// MetricsConfig enables the prometheus registry.
type MetricsConfig struct {
	prometheus.CollectorConfig `mapstructure:",squash"`

	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration.  Infrastructure sections reuse the
// config types of their packages so there is a single source of field names.
type Config struct {
	Log         logging.LogConfig       `mapstructure:"log"`
	Fingerprint molecule.CodecOptions   `mapstructure:"fingerprint"`
	Screening   ScreeningConfig         `mapstructure:"screening"`
	Annotation  AnnotationConfig        `mapstructure:"annotation"`
	Ingest      IngestConfig            `mapstructure:"ingest"`
	Report      ReportConfig            `mapstructure:"report"`
	Server      ServerConfig            `mapstructure:"server"`
	GRPC        GRPCConfig              `mapstructure:"grpc"`
	Metrics     MetricsConfig           `mapstructure:"metrics"`
	Sinks       sinks.RetryPolicy       `mapstructure:"sinks"`
	Redis       redis.RedisConfig       `mapstructure:"redis"`
	Postgres    postgres.PostgresConfig `mapstructure:"postgres"`
	MinIO       minio.MinIOConfig       `mapstructure:"minio"`
	Kafka       kafka.ProducerConfig    `mapstructure:"kafka"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeConfigInvalid, "config: "+format, args...)
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first problem as a ConfigInvalid error.
func (c *Config) Validate() error {
	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Fingerprint
	if c.Fingerprint.NumBits <= 0 {
		return invalid("fingerprint.bits must be positive, got %d", c.Fingerprint.NumBits)
	}
	if c.Fingerprint.Radius < 0 {
		return invalid("fingerprint.radius must not be negative, got %d", c.Fingerprint.Radius)
	}

	// Screening
	s := c.Screening
	if s.RelevanceFloor < 0 || s.RelevanceFloor >= 1 {
		return invalid("screening.relevance_floor %v is outside [0, 1)", s.RelevanceFloor)
	}
	if s.Tier1Size < 1 {
		return invalid("screening.tier1_size must be ≥ 1, got %d", s.Tier1Size)
	}
	if s.Tier2Size < 0 {
		return invalid("screening.tier2_size must be ≥ 0, got %d", s.Tier2Size)
	}
	if s.TopN < 1 {
		return invalid("screening.top_n must be ≥ 1, got %d", s.TopN)
	}
	if s.ScoreDecimals < 0 || s.ScoreDecimals > 12 {
		return invalid("screening.score_decimals %d is outside [0, 12]", s.ScoreDecimals)
	}
	if s.ScanWorkers < 1 || s.QueryWorkers < 1 {
		return invalid("screening workers must be ≥ 1")
	}

	// Annotation
	if c.Annotation.BatchSize < 1 {
		return invalid("annotation.batch_size must be ≥ 1, got %d", c.Annotation.BatchSize)
	}
	if c.Annotation.PrimaryTimeout <= 0 || c.Annotation.SecondaryTimeout <= 0 {
		return invalid("annotation timeouts must be positive")
	}
	if c.Annotation.PrimaryInterval < 0 || c.Annotation.SecondaryInterval < 0 {
		return invalid("annotation intervals must not be negative")
	}

	// Ingest
	if c.Ingest.MaxCorpus < 0 || c.Ingest.MaxQueries < 0 {
		return invalid("ingest limits must not be negative")
	}

	// Server
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return invalid("server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	if c.Server.MaxQueries < 1 {
		return invalid("server.max_queries must be ≥ 1, got %d", c.Server.MaxQueries)
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return invalid("server rate limit must not be negative")
	}

	// gRPC
	if c.GRPC.Enabled {
		if c.GRPC.Addr == "" {
			return invalid("grpc is enabled but grpc.addr is empty")
		}
		if c.GRPC.Addr == c.Server.Addr {
			return invalid("grpc.addr %q collides with server.addr", c.GRPC.Addr)
		}
	}
	if c.GRPC.MaxRecvMsgSize < 0 || c.GRPC.GracefulTimeout < 0 {
		return invalid("grpc limits must not be negative")
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace is required when metrics are enabled")
	}

	// Optional infrastructure
	if c.Redis.Enabled && c.Redis.Addr == "" && len(c.Redis.ClusterAddrs) == 0 && len(c.Redis.SentinelAddrs) == 0 {
		return invalid("redis is enabled but no address is configured")
	}
	if c.Postgres.Enabled && (c.Postgres.Host == "" || c.Postgres.Database == "") {
		return invalid("postgres is enabled but host or database is missing")
	}
	if c.MinIO.Enabled && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		return invalid("minio is enabled but endpoint or bucket is missing")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return invalid("kafka is enabled but kafka.brokers is empty")
	}

	return nil
}

//Personal.AI order the ending
