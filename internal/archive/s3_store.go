// Package archive publishes job summaries to S3-compatible object storage.
package archive

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vk/simbatch/internal/ctxlog"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// objectClient is the part of *minio.Client the store uses.
type objectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, key, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type S3Store struct {
	client     objectClient
	bucketName string
	region     string
	logger     *slog.Logger
	initOnce   sync.Once
	initErr    error
}

func (c S3Config) normalized() (S3Config, error) {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.AccessKey = strings.TrimSpace(c.AccessKey)
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.Region = strings.TrimSpace(c.Region)
	if c.Endpoint == "" {
		return c, fmt.Errorf("s3 endpoint is required")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return c, fmt.Errorf("s3 access key and secret key are required")
	}
	if c.Bucket == "" {
		return c, fmt.Errorf("s3 bucket is required")
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	return c, nil
}

func NewS3Store(cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	cfg, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return newStore(client, cfg, logger), nil
}

func newStore(client objectClient, cfg S3Config, logger *slog.Logger) *S3Store {
	return &S3Store{
		client:     client,
		bucketName: cfg.Bucket,
		region:     cfg.Region,
		logger:     ctxlog.OrDiscard(logger),
	}
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// UploadFile stores the local file under prefix/name.
func (s *S3Store) UploadFile(ctx context.Context, prefix, name, localPath string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	key := objectKey(prefix, name)
	info, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Debug("Uploaded object.", "bucket", s.bucketName, "key", key, "size", humanize.Bytes(uint64(info.Size)))
	return nil
}

// UploadDir stores every regular file below dir under prefix, keeping
// relative paths. It returns the number of files uploaded.
func (s *S3Store) UploadDir(ctx context.Context, prefix, dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if err := s.UploadFile(ctx, prefix, filepath.ToSlash(rel), p); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	s.logger.Info("Uploaded directory.", "dir", dir, "bucket", s.bucketName, "prefix", prefix, "files", n)
	return n, nil
}

func objectKey(prefix, name string) string {
	normalized := strings.TrimLeft(strings.TrimSpace(name), "/")
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return normalized
	}
	return path.Join(prefix, normalized)
}

func contentType(p string) string {
	if t := mime.TypeByExtension(filepath.Ext(p)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// ConfigFromEnv reads ARCHIVE_S3_* variables. Archiving is enabled when an
// endpoint is set.
func ConfigFromEnv() (S3Config, bool) {
	cfg := S3Config{
		Endpoint:  strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT")),
		Region:    strings.TrimSpace(os.Getenv("ARCHIVE_S3_REGION")),
		AccessKey: strings.TrimSpace(os.Getenv("ARCHIVE_S3_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("ARCHIVE_S3_SECRET_KEY")),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_BUCKET")), "simbatch-summaries"),
		UseSSL:    parseBool(os.Getenv("ARCHIVE_S3_USE_SSL")),
	}
	return cfg, cfg.Endpoint != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

var _ objectClient = (*minio.Client)(nil)
