// Package config loads runtime configuration for the ShareKeeper watch
// client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJSON) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the server gRPC endpoint
//	-t string   access token; prompted for on the terminal when empty
//	-i int      keepalive (pong) interval in seconds
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "pong_interval": "10s"
//	}
package config
