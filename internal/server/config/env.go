package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "SHAREKEEPER_"

// parseEnv loads the dotenv file named by -env (".env" by default) into the
// process environment and then reads SHAREKEEPER_* variables. A missing
// dotenv file is not an error; variables already set win over the file.
func parseEnv(config *Config, args []string) error {
	envFile := flagx.EnvFile(args, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return applyEnv(config, os.LookupEnv)
}

func applyEnv(config *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"GRPC_ADDR":             &config.EndpointAddrGRPC,
		"HTTP_ADDR":             &config.EndpointAddrHTTP,
		"DATABASE_DSN":          &config.DatabaseDSN,
		"RECORD_STORE":          &config.RecordStore,
		"BLOB_BACKEND":          &config.BlobBackend,
		"BLOB_DIR":              &config.BlobDir,
		"SPOOL_DIR":             &config.SpoolDir,
		"SECRET_KEY":            &config.SecretKey,
		"MASTER_KEY_PASSPHRASE": &config.MasterKeyPassphrase,
		"MASTER_KEY_SALT":       &config.MasterKeySalt,
		"CIPHER_ALGORITHM":      &config.CipherAlgorithm,
		"S3_ACCESS_KEY":         &config.S3AccessKey,
		"S3_SECRET_KEY":         &config.S3SecretKey,
		"S3_BUCKET":             &config.S3Bucket,
		"S3_REGION":             &config.S3Region,
		"S3_ENDPOINT":           &config.S3BaseEndpoint,
		"AMQP_URL":              &config.AMQPURL,
		"AMQP_EXCHANGE":         &config.AMQPExchange,
		"LOG_BACKEND":           &config.LogBackend,
		"LOG_LEVEL":             &config.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"PING_INTERVAL": &config.PingInterval,
		"PING_TIMEOUT":  &config.PingTimeout,
	}
	for name, dst := range durations {
		v, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"CONNECTION_QUEUE_SIZE": &config.ConnectionQueueSize,
		"RECENT_ACCESS_LIMIT":   &config.RecentAccessLimit,
		"COMPENSATION_ATTEMPTS": &config.CompensationAttempts,
	}
	for name, dst := range ints {
		v, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}

	if v, ok := lookup(envPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_UPLOAD_BYTES: %w", envPrefix, err)
		}
		config.MaxUploadBytes = n
	}

	return nil
}
