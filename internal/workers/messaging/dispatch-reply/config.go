// internal/workers/messaging/dispatch-reply/config.go
package dispatchreply

import "time"

type Config struct {
	// Timeout covers the typing delay as well as the send.
	Timeout  time.Duration
	MaxDelay time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  60 * time.Second,
		MaxDelay: 15 * time.Second,
	}
}
