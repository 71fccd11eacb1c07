package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/MrEthical07/goTrust/metadata"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// maxBlobSize caps a single statement download.
const maxBlobSize = 4 << 20

// ObjectStoreConfig locates statement blobs in an S3-compatible bucket.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// Validate checks the fields required to reach the bucket.
func (c ObjectStoreConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}

// objectName maps a catalog key to an object name. Keys containing
// attestation identifiers like "4e4e#4005" are kept verbatim.
func (c ObjectStoreConfig) objectName(key string) string {
	if c.Prefix == "" {
		return key
	}
	return path.Join(c.Prefix, key)
}

// ObjectBlobStore reads statement blobs from object storage.
type ObjectBlobStore struct {
	client *minio.Client
	cfg    ObjectStoreConfig
}

// NewObjectBlobStore connects a minio client for cfg.
func NewObjectBlobStore(cfg ObjectStoreConfig) (*ObjectBlobStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, err
	}
	return &ObjectBlobStore{client: client, cfg: cfg}, nil
}

// NewObjectBlobStoreWithClient wraps an existing client.
func NewObjectBlobStoreWithClient(client *minio.Client, cfg ObjectStoreConfig) (*ObjectBlobStore, error) {
	if client == nil {
		return nil, errors.New("minio client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("bucket is required")
	}
	return &ObjectBlobStore{client: client, cfg: cfg}, nil
}

// Blob implements metadata.BlobSource.
func (s *ObjectBlobStore) Blob(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("object blob store not initialized")
	}

	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, s.cfg.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapObjectError(key, err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(io.LimitReader(obj, maxBlobSize+1))
	if err != nil {
		return nil, mapObjectError(key, err)
	}
	if len(raw) > maxBlobSize {
		return nil, fmt.Errorf("statement blob %s exceeds %d bytes", key, maxBlobSize)
	}
	return raw, nil
}

// Put uploads raw for key.
func (s *ObjectBlobStore) Put(ctx context.Context, key string, raw []byte) error {
	if s == nil || s.client == nil {
		return errors.New("object blob store not initialized")
	}
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, s.cfg.objectName(key), bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{ContentType: "text/plain"})
	return err
}

// CheckBucket reports whether the configured bucket is reachable.
func (s *ObjectBlobStore) CheckBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket missing: %s", s.cfg.Bucket)
	}
	return nil
}

func mapObjectError(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", metadata.ErrBlobNotFound, key)
	}
	return err
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

var _ metadata.BlobSource = (*ObjectBlobStore)(nil)
