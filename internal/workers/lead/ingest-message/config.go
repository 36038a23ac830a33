// internal/workers/lead/ingest-message/config.go
package ingestmessage

import "time"

type Config struct {
	Timeout     time.Duration
	Source      string
	DefaultName string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		Source:      "WhatsApp",
		DefaultName: "Unknown WhatsApp User",
	}
}
