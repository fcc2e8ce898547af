package transport

import "fmt"

// Config holds configuration for the sidecar transport.
type Config struct {
	// Kind selects the transport implementation (local, s3).
	Kind string `mapstructure:"kind" default:"local"`
	// Root is the device mount point for the local transport.
	Root string `mapstructure:"root" default:""`
	// Endpoint is the URL of the storage service for the s3 transport.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the bucket holding the mirrored device tree.
	Bucket string `mapstructure:"bucket" default:"device"`
	// Prefix is an optional object key prefix inside the bucket.
	Prefix string `mapstructure:"prefix" default:""`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// New creates the transport selected by the configuration.
func New(cfg Config) (Transport, error) {
	switch cfg.Kind {
	case "", "local":
		return NewLocal(cfg.Root), nil
	case "s3":
		return NewMinio(cfg)
	default:
		return nil, fmt.Errorf("unsupported transport kind %q", cfg.Kind)
	}
}
