// Package config handles configuration for the server component: defaults,
// then the environment (with an optional .env file), then a JSON file and
// finally command-line flags. Each layer overrides only what it sets.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/cryptox"
	"github.com/dmitrijs2005/sharekeeper/internal/logging"
)

// Record store and blob backend names.
const (
	RecordStoreMemory   = "memory"
	RecordStorePostgres = "postgres"

	BlobBackendFS = "fs"
	BlobBackendS3 = "s3"
)

// Config holds runtime settings for the ShareKeeper server.
//
// SecretKey signs and verifies access tokens (HS256). MasterKeyPassphrase and
// MasterKeySalt derive the key that seals per-file keys at rest; they are
// required with the postgres record store.
type Config struct {
	EndpointAddrGRPC string
	EndpointAddrHTTP string

	DatabaseDSN string
	RecordStore string

	BlobBackend string
	BlobDir     string
	SpoolDir    string

	SecretKey           string
	MasterKeyPassphrase string
	MasterKeySalt       string
	CipherAlgorithm     string

	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	AMQPURL      string
	AMQPExchange string

	LogBackend string
	LogLevel   string

	PingInterval         time.Duration
	PingTimeout          time.Duration
	ConnectionQueueSize  int
	RecentAccessLimit    int
	CompensationAttempts int
	MaxUploadBytes       int64
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey is insecure for production and must be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.EndpointAddrHTTP = ":8080"
	c.RecordStore = RecordStoreMemory
	c.BlobBackend = BlobBackendFS
	c.BlobDir = "./data/blobs"
	c.SecretKey = "secretKey"
	c.CipherAlgorithm = cryptox.AlgAES256GCM
	c.S3Bucket = "sharekeeper"
	c.S3Region = "us-east-1"
	c.AMQPExchange = "sharekeeper.audit"
	c.LogBackend = logging.BackendSlog
	c.LogLevel = "info"
	c.PingInterval = 30 * time.Second
	c.PingTimeout = 90 * time.Second
	c.ConnectionQueueSize = 64
	c.RecentAccessLimit = 10
	c.CompensationAttempts = 3
	c.MaxUploadBytes = 100 << 20
}

// LoadConfig builds a Config from defaults, the environment, an optional JSON
// file and the flags in args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, args); err != nil {
		return nil, err
	}
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.RecordStore {
	case RecordStoreMemory:
	case RecordStorePostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("database DSN is required for the postgres record store"))
		}
		if c.MasterKeyPassphrase == "" || c.MasterKeySalt == "" {
			errs = append(errs, errors.New("master key passphrase and salt are required for the postgres record store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown record store %q", c.RecordStore))
	}

	switch c.BlobBackend {
	case BlobBackendFS:
		if c.BlobDir == "" {
			errs = append(errs, errors.New("blob dir is required for the fs backend"))
		}
	case BlobBackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3 bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob backend %q", c.BlobBackend))
	}

	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if !cryptox.Supported(c.CipherAlgorithm) {
		errs = append(errs, fmt.Errorf("unsupported cipher algorithm %q", c.CipherAlgorithm))
	}
	if c.PingInterval <= 0 || c.PingTimeout < c.PingInterval {
		errs = append(errs, errors.New("ping timeout must be at least the ping interval"))
	}

	return errors.Join(errs...)
}
