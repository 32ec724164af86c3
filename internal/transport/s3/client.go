package s3

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

// Config holds object storage settings for the monthly letter bucket.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
	Logger    *zap.Logger
}

// Client reads monthly allocation letters from S3-compatible storage.
type Client struct {
	mc     *minio.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// New creates an object storage client.
func New(cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &Client{mc: mc, bucket: cfg.Bucket, prefix: cfg.Prefix, logger: cfg.Logger}, nil
}

// LatestMonthlyLetter finds the most recently modified PDF under the
// configured prefix and downloads it to dir. Returns the local path and
// the object key. Returns domain.ErrNotFound when the prefix holds no PDF.
func (c *Client) LatestMonthlyLetter(ctx context.Context, dir string) (path, key string, err error) {
	var latest minio.ObjectInfo
	var found bool

	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    c.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return "", "", fmt.Errorf("list %s/%s: %w: %w", c.bucket, c.prefix, domain.ErrExternalCall, obj.Err)
		}
		if !strings.HasSuffix(strings.ToLower(obj.Key), ".pdf") {
			continue
		}
		if !found || obj.LastModified.After(latest.LastModified) {
			latest = obj
			found = true
		}
	}
	if !found {
		return "", "", fmt.Errorf("no pdf under %s/%s: %w", c.bucket, c.prefix, domain.ErrNotFound)
	}

	local := filepath.Join(dir, filepath.Base(latest.Key))
	if err := c.mc.FGetObject(ctx, c.bucket, latest.Key, local, minio.GetObjectOptions{}); err != nil {
		return "", "", fmt.Errorf("download %s: %w: %w", latest.Key, domain.ErrExternalCall, err)
	}

	c.logger.Info("monthly letter downloaded",
		zap.String("key", latest.Key),
		zap.Time("last_modified", latest.LastModified),
		zap.String("path", local))

	return local, latest.Key, nil
}

// Cleanup removes a downloaded letter, tolerating an already-removed file.
func (c *Client) Cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("remove downloaded letter", zap.String("path", path), zap.Error(err))
	}
}

// LetterStem strips the extension from an object key's base name.
// Used as the collection base for the monthly letter.
func LetterStem(key string) string {
	base := filepath.Base(key)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
