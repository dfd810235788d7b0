package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// AnnotationStore is the shared annotation tier behind the in-process cache.
// Entries are JSON-encoded annotations keyed by prefix + identifier,
// written with a jittered TTL.
type AnnotationStore struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
	jitter func() float64
}

// StoreOption customises an AnnotationStore.
type StoreOption func(*AnnotationStore)

func WithPrefix(prefix string) StoreOption {
	return func(s *AnnotationStore) { s.prefix = prefix }
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *AnnotationStore) { s.ttl = ttl }
}

func NewAnnotationStore(client *Client, log logging.Logger, opts ...StoreOption) *AnnotationStore {
	cfg := client.Config()
	s := &AnnotationStore{
		client: client,
		logger: log,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.AnnotationTTL,
		jitter: rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ annotation.Store = (*AnnotationStore)(nil)

func (s *AnnotationStore) key(id string) string {
	return s.prefix + id
}

// jitterTTL spreads expiry by +/- 10%.
func (s *AnnotationStore) jitterTTL() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	j := float64(s.ttl) * 0.1 * (s.jitter()*2 - 1)
	return s.ttl + time.Duration(j)
}

// GetMany returns the stored annotations among ids.  Undecodable entries are
// treated as misses.
func (s *AnnotationStore) GetMany(ctx context.Context, ids []string) (map[string]annotation.Annotation, error) {
	if len(ids) == 0 {
		return map[string]annotation.Annotation{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "annotation store read failed")
	}
	out := make(map[string]annotation.Annotation, len(ids))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var a annotation.Annotation
		if err := json.Unmarshal([]byte(str), &a); err != nil || len(a.Organisms) == 0 {
			s.logger.Debug("dropping undecodable annotation", logging.String("key", keys[i]))
			continue
		}
		out[ids[i]] = a
	}
	return out, nil
}

// PutMany writes anns in one pipeline.
func (s *AnnotationStore) PutMany(ctx context.Context, anns map[string]annotation.Annotation) error {
	if len(anns) == 0 {
		return nil
	}
	if s.client.isClosed() {
		return ErrClientClosed
	}
	pipe := s.client.Pipeline()
	for id, a := range anns {
		data, err := json.Marshal(a)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "encode annotation")
		}
		pipe.Set(ctx, s.key(id), data, s.jitterTTL())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "annotation store write failed")
	}
	return nil
}

// Purge removes ids from the store.
func (s *AnnotationStore) Purge(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	return s.client.Del(ctx, keys...).Result()
}

//Personal.AI order the ending
