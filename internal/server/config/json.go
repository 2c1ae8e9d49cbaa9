package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/sharekeeper/internal/flagx"
	"github.com/dmitrijs2005/sharekeeper/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept both Go duration
// strings ("30s") and integer nanoseconds. Absent or zero fields leave the
// current value untouched.
type JsonConfig struct {
	EndpointAddrGRPC     string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP     string         `json:"endpoint_addr_http"`
	DatabaseDSN          string         `json:"database_dsn"`
	RecordStore          string         `json:"record_store"`
	BlobBackend          string         `json:"blob_backend"`
	BlobDir              string         `json:"blob_dir"`
	SpoolDir             string         `json:"spool_dir"`
	SecretKey            string         `json:"secret_key"`
	MasterKeyPassphrase  string         `json:"master_key_passphrase"`
	MasterKeySalt        string         `json:"master_key_salt"`
	CipherAlgorithm      string         `json:"cipher_algorithm"`
	S3AccessKey          string         `json:"s3_access_key"`
	S3SecretKey          string         `json:"s3_secret_key"`
	S3Bucket             string         `json:"s3_bucket"`
	S3Region             string         `json:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint"`
	AMQPURL              string         `json:"amqp_url"`
	AMQPExchange         string         `json:"amqp_exchange"`
	LogBackend           string         `json:"log_backend"`
	LogLevel             string         `json:"log_level"`
	PingInterval         timex.Duration `json:"ping_interval"`
	PingTimeout          timex.Duration `json:"ping_timeout"`
	ConnectionQueueSize  int            `json:"connection_queue_size"`
	RecentAccessLimit    int            `json:"recent_access_limit"`
	CompensationAttempts int            `json:"compensation_attempts"`
	MaxUploadBytes       int64          `json:"max_upload_bytes"`
}

// parseJSON overlays the file given with -c or -config, if any.
func parseJSON(config *Config, args []string) error {
	jsonConfigFile := flagx.ConfigFile(args)

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", jsonConfigFile, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RecordStore, c.RecordStore)
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.BlobDir, c.BlobDir)
	setString(&config.SpoolDir, c.SpoolDir)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.MasterKeyPassphrase, c.MasterKeyPassphrase)
	setString(&config.MasterKeySalt, c.MasterKeySalt)
	setString(&config.CipherAlgorithm, c.CipherAlgorithm)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.AMQPExchange, c.AMQPExchange)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogLevel, c.LogLevel)

	if c.PingInterval.Duration > 0 {
		config.PingInterval = c.PingInterval.Duration
	}
	if c.PingTimeout.Duration > 0 {
		config.PingTimeout = c.PingTimeout.Duration
	}
	if c.ConnectionQueueSize > 0 {
		config.ConnectionQueueSize = c.ConnectionQueueSize
	}
	if c.RecentAccessLimit > 0 {
		config.RecentAccessLimit = c.RecentAccessLimit
	}
	if c.CompensationAttempts > 0 {
		config.CompensationAttempts = c.CompensationAttempts
	}
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
