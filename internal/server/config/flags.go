package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/sharekeeper/internal/flagx"
)

var flagNames = []string{"-a", "-l", "-d", "-m", "-b", "-f", "-s", "-k", "-q", "-v", "-w"}

// parseFlags overlays command-line flags.
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-l string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-m string   record store: memory | postgres
//	-b string   blob backend: fs | s3
//	-f string   blob directory for the fs backend
//	-s string   JWT HMAC secret key
//	-k string   master key passphrase
//	-q string   AMQP URL for the audit mirror
//	-v string   log level
//	-w duration ping interval
//
// Only the flags above are parsed; others (such as -c) belong to other
// parsers and are filtered out with flagx.FilterArgs.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RecordStore, "m", config.RecordStore, "record store (memory, postgres)")
	fs.StringVar(&config.BlobBackend, "b", config.BlobBackend, "blob backend (fs, s3)")
	fs.StringVar(&config.BlobDir, "f", config.BlobDir, "blob directory")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.MasterKeyPassphrase, "k", config.MasterKeyPassphrase, "master key passphrase")
	fs.StringVar(&config.AMQPURL, "q", config.AMQPURL, "AMQP URL")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.DurationVar(&config.PingInterval, "w", config.PingInterval, "ping interval")

	return fs.Parse(flagx.FilterArgs(args, flagNames))
}
