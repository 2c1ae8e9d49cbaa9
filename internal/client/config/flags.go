package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/flagx"
)

func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	pongInterval := fs.Int("i", int(cfg.PongInterval.Seconds()), "keepalive interval (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-t", "-i"})); err != nil {
		return err
	}

	cfg.PongInterval = time.Duration(*pongInterval) * time.Second
	return nil
}
