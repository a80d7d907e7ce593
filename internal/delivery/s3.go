package delivery

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/raoulx24/camrelay/internal/artifact"
	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/errs"
)

// S3Uploader stores artifacts in an S3-compatible bucket under
// <camera>/<date>/<file>.
type S3Uploader struct {
	client *minio.Client
	bucket string
}

// NewS3Uploader connects to the object store and creates the bucket when it
// does not exist yet.
func NewS3Uploader(ctx context.Context, cfg config.S3Config) (*S3Uploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errs.Configf("delivery.s3.endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfig, "delivery", "s3 client", cfg.Endpoint, err)
	}

	if err := ensureBucket(ctx, client, cfg.Bucket, cfg.Region); err != nil {
		return nil, errs.Wrap(errs.ErrDelivery, "delivery", "ensure bucket", cfg.Bucket, err)
	}
	return &S3Uploader{client: client, bucket: cfg.Bucket}, nil
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, d artifact.Descriptor) error {
	key := ObjectKey(d)
	_, err := u.client.FPutObject(ctx, u.bucket, key, d.FilePath, minio.PutObjectOptions{
		ContentType: contentType(d.FilePath),
		UserMetadata: map[string]string{
			"camera": d.CameraAlias,
			"date":   d.CaptureDate,
			"time":   d.CaptureTime,
		},
	})
	if err != nil {
		return errs.Wrap(errs.ErrDelivery, "delivery", "put object", fmt.Sprintf("%s/%s", u.bucket, key), err)
	}
	return nil
}

// ObjectKey is the bucket key for d.
func ObjectKey(d artifact.Descriptor) string {
	camera := d.CameraID
	if camera == "" {
		camera = d.CameraAlias
	}
	return path.Join(camera, d.CaptureDate, d.Name())
}

func contentType(file string) string {
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
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
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
