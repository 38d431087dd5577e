package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/fluency/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

var ErrObjectNotFound = errors.New("object not found")

// BlobStore keeps recording audio. Handles are opaque object keys.
type BlobStore interface {
	Put(ctx context.Context, data []byte, contentType, extension string) (string, error)
	Get(ctx context.Context, handle string) ([]byte, error)
}

type MinioStore struct {
	client     *minio.Client
	bucketName string
}

func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	mc := cfg.Minio
	if mc.Endpoint == "" {
		log.Warn().Msg("MINIO_ENDPOINT is not set. Audio retrieval will be non-functional.")
		return &MinioStore{bucketName: mc.BucketName}, nil
	}
	client, err := minio.New(mc.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(mc.AccessKeyID, mc.SecretAccessKey, ""),
		Secure: mc.UseSSL,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}
	return &MinioStore{client: client, bucketName: mc.BucketName}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if MinIO bucket '%s' exists: %w", s.bucketName, err)
	}
	if exists {
		return nil
	}
	log.Info().Str("bucket", s.bucketName).Msg("MinIO bucket does not exist, creating it")
	if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create MinIO bucket '%s': %w", s.bucketName, err)
	}
	return nil
}

// Put uploads the audio under a fresh "audio/<yyyy>/<mm>/<uuid><ext>" key and
// returns that key as the handle.
func (s *MinioStore) Put(ctx context.Context, data []byte, contentType, extension string) (string, error) {
	if s.client == nil {
		return "", errors.New("minio client not initialized")
	}
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	now := time.Now().UTC()
	handle := path.Join("audio", now.Format("2006"), now.Format("01"), uuid.NewString()+strings.ToLower(extension))

	_, err := s.client.PutObject(ctx, s.bucketName, handle, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object '%s' to bucket '%s': %w", handle, s.bucketName, err)
	}
	log.Debug().Str("handle", handle).Int("bytes", len(data)).Msg("Audio uploaded")
	return handle, nil
}

func (s *MinioStore) Get(ctx context.Context, handle string) ([]byte, error) {
	if s.client == nil {
		return nil, errors.New("minio client not initialized")
	}
	object, err := s.client.GetObject(ctx, s.bucketName, handle, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", handle, s.bucketName, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, handle)
		}
		return nil, fmt.Errorf("failed to read object '%s' data: %w", handle, err)
	}
	return data, nil
}
