// Package minio uploads screening report artifacts to an S3-compatible
// object store under <prefix>/<run-id>/<file>.
package minio

import (
	"context"
	"mime"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// UploadResult describes one stored artifact.
type UploadResult struct {
	Bucket    string `json:"bucket"`
	ObjectKey string `json:"object_key"`
	ETag      string `json:"etag"`
	Size      int64  `json:"size"`
	URL       string `json:"url,omitempty"`
}

// ArtifactStore uploads report files.
type ArtifactStore struct {
	client *MinIOClient
	logger logging.Logger
}

// NewArtifactStore returns a store writing through client.
func NewArtifactStore(client *MinIOClient, logger logging.Logger) *ArtifactStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ArtifactStore{client: client, logger: logger}
}

// ObjectKey is the key a file of a run is stored under.
func (s *ArtifactStore) ObjectKey(runID, file string) string {
	return path.Join(s.client.config.Prefix, runID, filepath.Base(file))
}

// Upload stores each file of a run.  It stops at the first failure and
// returns the results gathered so far.
func (s *ArtifactStore) Upload(ctx context.Context, runID string, files ...string) ([]UploadResult, error) {
	if s.client.isClosed() {
		return nil, ErrMinIOClientClosed
	}
	if runID == "" {
		return nil, errors.InvalidParam("run id is required")
	}
	cfg := s.client.config
	out := make([]UploadResult, 0, len(files))
	for _, f := range files {
		key := s.ObjectKey(runID, f)
		ct := mime.TypeByExtension(filepath.Ext(f))
		if ct == "" {
			ct = "application/octet-stream"
		}
		info, err := s.client.client.FPutObject(ctx, cfg.Bucket, key, f, minio.PutObjectOptions{
			ContentType:  ct,
			UserMetadata: map[string]string{"run-id": runID},
		})
		if err != nil {
			return out, errors.Wrap(err, errors.ErrCodeSinkFailed, "upload artifact").WithDetail(key)
		}
		res := UploadResult{Bucket: cfg.Bucket, ObjectKey: key, ETag: info.ETag, Size: info.Size}
		if u, err := s.client.client.PresignedGetObject(ctx, cfg.Bucket, key, cfg.PresignExpiry, nil); err == nil {
			res.URL = u.String()
		} else {
			s.logger.Warn("presign failed", logging.String("key", key), logging.Err(err))
		}
		out = append(out, res)
	}
	s.logger.Info("artifacts uploaded",
		logging.String("run_id", runID),
		logging.String("bucket", cfg.Bucket),
		logging.Int("count", len(out)))
	return out, nil
}

//Personal.AI order the ending
