package config

import "time"

// Config holds runtime settings for the watch client.
type Config struct {
	ServerEndpointAddr string
	AccessToken        string
	PongInterval       time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.PongInterval = 10 * time.Second
}

// LoadConfig applies defaults, then JSON (if given with -c), then flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
