package minio

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/ligandscreen/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
	mu   sync.Mutex
	puts map[string]string
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucket, opts).Error(0)
}

func (m *MockMinIOAPI) FPutObject(ctx context.Context, bucket, object, file string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucket, object, file, opts)
	if args.Error(1) == nil {
		m.mu.Lock()
		if m.puts == nil {
			m.puts = map[string]string{}
		}
		m.puts[object] = file
		m.mu.Unlock()
	}
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucket, object, expiry, params)
	u, _ := args.Get(0).(*url.URL)
	return u, args.Error(1)
}

type ArtifactStoreTestSuite struct {
	suite.Suite
	api   *MockMinIOAPI
	store *ArtifactStore
	files []string
}

func (s *ArtifactStoreTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	client := NewMinIOClientWithAPI(s.api, &MinIOConfig{Bucket: "reports"}, nil)
	s.store = NewArtifactStore(client, nil)

	dir := s.T().TempDir()
	s.files = nil
	for _, name := range []string{"out_top5_targets.csv", "out_detailed_results.csv", "out_analysis_report.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(s.T(), os.WriteFile(p, []byte("x"), 0o644))
		s.files = append(s.files, p)
	}
}

func (s *ArtifactStoreTestSuite) TestDefaults() {
	cfg := s.store.client.Config()
	s.Equal("runs", cfg.Prefix)
	s.Equal("us-east-1", cfg.Region)
	s.Equal(time.Hour, cfg.PresignExpiry)
}

func (s *ArtifactStoreTestSuite) TestObjectKey() {
	s.Equal("runs/run-1/out_top5_targets.csv", s.store.ObjectKey("run-1", "/tmp/x/out_top5_targets.csv"))
}

func (s *ArtifactStoreTestSuite) TestUpload() {
	s.api.On("FPutObject", mock.Anything, "reports", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{ETag: "etag", Size: 1}, nil)
	s.api.On("PresignedGetObject", mock.Anything, "reports", mock.Anything, time.Hour, url.Values(nil)).
		Return(&url.URL{Scheme: "https", Host: "minio", Path: "/signed"}, nil)

	res, err := s.store.Upload(context.Background(), "run-1", s.files...)
	s.Require().NoError(err)
	s.Require().Len(res, 3)
	s.Equal("runs/run-1/out_top5_targets.csv", res[0].ObjectKey)
	s.Equal("https://minio/signed", res[0].URL)
	s.Equal(s.files[2], s.api.puts["runs/run-1/out_analysis_report.txt"])
	s.api.AssertNumberOfCalls(s.T(), "FPutObject", 3)
}

func (s *ArtifactStoreTestSuite) TestUpload_StopsAtFirstFailure() {
	s.api.On("FPutObject", mock.Anything, "reports", "runs/run-1/out_top5_targets.csv", mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, fmt.Errorf("denied"))

	res, err := s.store.Upload(context.Background(), "run-1", s.files...)
	s.Error(err)
	s.True(errors.IsCode(err, errors.ErrCodeSinkFailed))
	s.Empty(res)
	s.api.AssertNumberOfCalls(s.T(), "FPutObject", 1)
}

func (s *ArtifactStoreTestSuite) TestUpload_PresignFailureIsNotFatal() {
	s.api.On("FPutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)
	s.api.On("PresignedGetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("nope"))

	res, err := s.store.Upload(context.Background(), "run-1", s.files[0])
	s.NoError(err)
	s.Require().Len(res, 1)
	s.Empty(res[0].URL)
}

func (s *ArtifactStoreTestSuite) TestUpload_Validation() {
	_, err := s.store.Upload(context.Background(), "", s.files...)
	s.Error(err)

	s.Require().NoError(s.store.client.Close())
	_, err = s.store.Upload(context.Background(), "run-1", s.files...)
	s.ErrorIs(err, ErrMinIOClientClosed)
}

func TestArtifactStoreSuite(t *testing.T) {
	suite.Run(t, new(ArtifactStoreTestSuite))
}

func TestEnsureBucket(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("BucketExists", mock.Anything, "reports").Return(false, nil)
	api.On("MakeBucket", mock.Anything, "reports", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	c := NewMinIOClientWithAPI(api, &MinIOConfig{Bucket: "reports"}, nil)
	require.NoError(t, c.EnsureBucket(context.Background()))
	api.AssertExpectations(t)
}

func TestHealthCheck(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("ListBuckets", mock.Anything).Return([]minio.BucketInfo{}, nil)
	api.On("BucketExists", mock.Anything, "reports").Return(false, nil)

	c := NewMinIOClientWithAPI(api, &MinIOConfig{Bucket: "reports"}, nil)
	err := c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

//Personal.AI order the ending
