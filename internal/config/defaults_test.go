package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/internal/infrastructure/rcsb"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, 2048, cfg.Fingerprint.NumBits)
	assert.Equal(t, 2, cfg.Fingerprint.Radius)
	assert.Equal(t, 1, cfg.Screening.ScanWorkers)
	assert.Equal(t, rcsb.DefaultGraphQLURL, cfg.Annotation.GraphQLURL)
	assert.Equal(t, annotation.DefaultTargetKeywords, cfg.Annotation.TargetKeywords)
	assert.Equal(t, "PDB_ID", cfg.Ingest.CorpusColumns.Identifier)
	assert.Equal(t, "Molecular Structure", cfg.Ingest.QueryColumns.Encoding)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultGRPCAddr, cfg.GRPC.Addr)
	assert.Equal(t, DefaultGRPCGracefulTimeout, cfg.GRPC.GracefulTimeout)
	assert.Equal(t, uint64(3), cfg.Sinks.MaxRetries)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Screening.TopN = 25
	cfg.Ingest.CorpusColumns.Identifier = "id"
	ApplyDefaults(cfg)

	assert.Equal(t, 25, cfg.Screening.TopN)
	assert.Equal(t, "id", cfg.Ingest.CorpusColumns.Identifier)
	assert.Equal(t, "SMILES", cfg.Ingest.CorpusColumns.Encoding)
}

func TestApplyDefaults_KeywordsAreCopied(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Annotation.TargetKeywords[0] = "changed"
	assert.NotEqual(t, "changed", annotation.DefaultTargetKeywords[0])
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

//Personal.AI order the ending
