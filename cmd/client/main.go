package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/sharekeeper/internal/client/config"
	"github.com/dmitrijs2005/sharekeeper/internal/client/watch"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	token := cfg.AccessToken
	if token == "" {
		if token, err = watch.PromptToken(os.Stderr); err != nil {
			return err
		}
	}

	c := watch.NewClient(cfg.ServerEndpointAddr, token, cfg.PongInterval)
	if err := c.Connect(); err != nil {
		return err
	}
	defer c.Close()

	return c.Watch(ctx, os.Stdout)
}
