package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.ErrCodeInternal, "producer closed")

// ProducerConfig holds configuration for the Producer.
type ProducerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Brokers          []string      `mapstructure:"brokers"`
	Acks             string        `mapstructure:"acks"`
	MaxRetries       int           `mapstructure:"max_retries"`
	BatchSize        int           `mapstructure:"batch_size"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout"`
	MaxMessageBytes  int           `mapstructure:"max_message_bytes"`
	CompressionCodec string        `mapstructure:"compression"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	SASLEnabled      bool          `mapstructure:"sasl_enabled"`
	SASLMechanism    string        `mapstructure:"sasl_mechanism"`
	SASLUsername     string        `mapstructure:"sasl_username"`
	SASLPassword     string        `mapstructure:"sasl_password"`
	TLSEnabled       bool          `mapstructure:"tls_enabled"`
	TLSCertPath      string        `mapstructure:"tls_cert_path"`
	ResultTopic      string        `mapstructure:"result_topic"`
	RunTopic         string        `mapstructure:"run_topic"`
	AutoCreateTopics bool          `mapstructure:"auto_create_topics"`
}

// Message is one record to publish.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMetrics holds producer counters.
type ProducerMetrics struct {
	MessagesSent   int64
	MessagesFailed int64
	BytesSent      int64
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer manages message production.
type Producer struct {
	writer WriterInterface
	config ProducerConfig
	logger logging.Logger
	closed atomic.Bool

	sent, failed, bytes atomic.Int64
}

func applyProducerDefaults(cfg *ProducerConfig) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 100 * time.Millisecond
	}
	if cfg.MaxMessageBytes == 0 {
		cfg.MaxMessageBytes = 1024 * 1024
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ResultTopic == "" {
		cfg.ResultTopic = TopicScreeningResult
	}
	if cfg.RunTopic == "" {
		cfg.RunTopic = TopicScreeningRun
	}
}

// NewProducer creates a Producer writing to cfg.Brokers.
func NewProducer(cfg ProducerConfig, logger logging.Logger) (*Producer, error) {
	if err := ValidateProducerConfig(cfg); err != nil {
		return nil, err
	}
	applyProducerDefaults(&cfg)

	transport := &kafka.Transport{DialTimeout: 10 * time.Second}
	if cfg.TLSEnabled {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.TLSCertPath != "" {
			caCert, err := os.ReadFile(cfg.TLSCertPath)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "read kafka CA certificate")
			}
			pool := x509.NewCertPool()
			pool.AppendCertsFromPEM(caCert)
			tlsConfig.RootCAs = pool
		}
		transport.TLS = tlsConfig
	}
	if cfg.SASLEnabled {
		var mech sasl.Mechanism
		var err error
		switch cfg.SASLMechanism {
		case "SCRAM-SHA-256":
			mech, err = scram.Mechanism(scram.SHA256, cfg.SASLUsername, cfg.SASLPassword)
		case "SCRAM-SHA-512":
			mech, err = scram.Mechanism(scram.SHA512, cfg.SASLUsername, cfg.SASLPassword)
		default:
			mech = plain.Mechanism{Username: cfg.SASLUsername, Password: cfg.SASLPassword}
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create SASL mechanism")
		}
		transport.SASL = mech
	}

	var requiredAcks kafka.RequiredAcks
	switch cfg.Acks {
	case "none":
		requiredAcks = kafka.RequireNone
	case "all":
		requiredAcks = kafka.RequireAll
	default:
		requiredAcks = kafka.RequireOne
	}

	var compression kafka.Compression
	switch cfg.CompressionCodec {
	case "gzip":
		compression = kafka.Gzip
	case "snappy":
		compression = kafka.Snappy
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxRetries + 1,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: requiredAcks,
		Compression:  compression,
		Transport:    transport,
	}
	return newProducer(writer, cfg, logger), nil
}

func newProducer(w WriterInterface, cfg ProducerConfig, logger logging.Logger) *Producer {
	applyProducerDefaults(&cfg)
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Producer{writer: w, config: cfg, logger: logger}
}

// Config returns the effective configuration.
func (p *Producer) Config() ProducerConfig { return p.config }

// PublishBatch writes msgs in one call.  Messages are validated up front; a
// single invalid message rejects the whole batch.
func (p *Producer) PublishBatch(ctx context.Context, msgs []Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if len(msgs) == 0 {
		return nil
	}
	kMsgs := make([]kafka.Message, len(msgs))
	var size int64
	for i, msg := range msgs {
		if msg.Topic == "" {
			return errors.New(errors.ErrCodeValidation, "topic required")
		}
		if len(msg.Value) > p.config.MaxMessageBytes {
			return errors.New(errors.ErrCodeValidation, "message too large").WithDetail(string(msg.Key))
		}
		kMsgs[i] = toKafkaMessage(msg)
		size += int64(len(msg.Value))
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, kMsgs...); err != nil {
		failed := len(msgs)
		if writeErrs, ok := err.(kafka.WriteErrors); ok {
			failed = writeErrs.Count()
		}
		p.failed.Add(int64(failed))
		p.sent.Add(int64(len(msgs) - failed))
		return errors.Wrap(err, errors.ErrCodeSinkFailed, "publish failed")
	}
	p.sent.Add(int64(len(msgs)))
	p.bytes.Add(size)

	p.logger.Debug("Batch published",
		logging.Int("messages", len(msgs)),
		logging.Duration("latency", time.Since(start)))
	return nil
}

// Publish writes a single message.
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	return p.PublishBatch(ctx, []Message{msg})
}

// GetMetrics returns a counter snapshot.
func (p *Producer) GetMetrics() ProducerMetrics {
	return ProducerMetrics{
		MessagesSent:   p.sent.Load(),
		MessagesFailed: p.failed.Load(),
		BytesSent:      p.bytes.Load(),
	}
}

// Close flushes and closes the writer.  Later calls are no-ops.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.sent.Load()))
	return err
}

func toKafkaMessage(msg Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    ts,
	}
}

func ValidateProducerConfig(cfg ProducerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max_retries must be >= 0")
	}
	return nil
}

//Personal.AI order the ending
