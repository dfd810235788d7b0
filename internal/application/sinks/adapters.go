package sinks

import (
	"context"

	"github.com/turtacn/ligandscreen/internal/application/reporting"
	"github.com/turtacn/ligandscreen/internal/application/screening"
)

// RunStore persists runs; satisfied by the postgres run repository.
type RunStore interface {
	SaveRun(ctx context.Context, run *screening.Run) error
}

// ArtifactUploader stores the report files of a run.
type ArtifactUploader interface {
	UploadFiles(ctx context.Context, runID string, files ...string) error
}

// UploaderFunc adapts a function to ArtifactUploader.
type UploaderFunc func(ctx context.Context, runID string, files ...string) error

func (f UploaderFunc) UploadFiles(ctx context.Context, runID string, files ...string) error {
	return f(ctx, runID, files...)
}

// RunPublisher emits run events; satisfied by the kafka result publisher.
type RunPublisher interface {
	PublishRun(ctx context.Context, run *screening.Run) error
}

type storeSink struct{ store RunStore }

// Database wraps a RunStore as a Sink.
func Database(store RunStore) Sink { return storeSink{store} }

func (storeSink) Name() string { return "postgres" }

func (s storeSink) Deliver(ctx context.Context, run *screening.Run, _ reporting.Artifacts) error {
	return s.store.SaveRun(ctx, run)
}

type uploadSink struct{ up ArtifactUploader }

// Artifacts wraps an uploader as a Sink that uploads the run's report files.
func Artifacts(up ArtifactUploader) Sink { return uploadSink{up} }

func (uploadSink) Name() string { return "minio" }

func (s uploadSink) Deliver(ctx context.Context, run *screening.Run, a reporting.Artifacts) error {
	return s.up.UploadFiles(ctx, run.Summary.RunID, a.Paths()...)
}

type publishSink struct{ pub RunPublisher }

// Events wraps a RunPublisher as a Sink.
func Events(pub RunPublisher) Sink { return publishSink{pub} }

func (publishSink) Name() string { return "kafka" }

func (s publishSink) Deliver(ctx context.Context, run *screening.Run, _ reporting.Artifacts) error {
	return s.pub.PublishRun(ctx, run)
}

//Personal.AI order the ending
