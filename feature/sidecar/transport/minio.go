package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectClient is the subset of the MinIO client the s3 transport needs.
// Narrowing the surface keeps the transport mockable in tests.
type ObjectClient interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Minio is a Transport over an S3/MinIO bucket holding a mirrored device tree.
type Minio struct {
	client ObjectClient
	bucket string
	prefix string
}

// NewMinio creates an s3 transport from the configuration.
func NewMinio(cfg Config) (*Minio, error) {
	// Minio expects endpoint without scheme
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Minio{
		client: &minioClientWrapper{Client: client},
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// NewMinioWithClient creates an s3 transport with an injected client.
func NewMinioWithClient(client ObjectClient, bucket, prefix string) *Minio {
	return &Minio{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

type minioClientWrapper struct {
	*minio.Client
}

func (c *minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.Client.GetObject(ctx, bucketName, objectName, opts)
}

// Name implements Transport.
func (m *Minio) Name() string { return "s3" }

func (m *Minio) key(path string) string {
	path = strings.TrimPrefix(path, "/")
	if m.prefix == "" {
		return path
	}
	return m.prefix + "/" + path
}

// isNotFound reports whether err is the MinIO missing-key error.
func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

// Get implements Transport. The returned time is the object's LastModified.
func (m *Minio) Get(ctx context.Context, path string) ([]byte, time.Time, error) {
	key := m.key(path)
	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, time.Time{}, ErrNotExist
		}
		return nil, time.Time{}, fmt.Errorf("transport: stat object %s: %w", key, err)
	}

	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("transport: get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("transport: read object %s: %w", key, err)
	}
	return data, info.LastModified, nil
}

// Put implements Transport. Buckets have no directories to create, so Put
// never returns a DirectoryError here.
func (m *Minio) Put(ctx context.Context, path string, data []byte) error {
	key := m.key(path)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/x-lua",
	})
	if err != nil {
		return fmt.Errorf("transport: put object %s: %w", key, err)
	}
	return nil
}

// Exists implements Transport.
func (m *Minio) Exists(ctx context.Context, path string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, m.key(path), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("transport: stat object %s: %w", m.key(path), err)
	}
	return true, nil
}

// Open implements Transport. The raw MinIO object supports range seeks; a
// non-seekable client (as in tests) is buffered in memory instead.
func (m *Minio) Open(ctx context.Context, path string) (io.ReadSeekCloser, error) {
	key := m.key(path)
	// GetObject is lazy and would only surface a missing key on first read.
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("transport: stat object %s: %w", key, err)
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("transport: get object %s: %w", key, err)
	}
	if rs, ok := obj.(io.ReadSeekCloser); ok {
		return rs, nil
	}

	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("transport: read object %s: %w", key, err)
	}
	return &memFile{Reader: bytes.NewReader(data)}, nil
}

type memFile struct {
	*bytes.Reader
}

func (f *memFile) Close() error { return nil }
