// internal/workers/marketplace/sync-marketplace-leads/config.go
package syncmarketplaceleads

import (
	"time"

	"sales-crm-workers/internal/common/config"
)

type Config struct {
	Timeout    time.Duration
	Window     time.Duration
	MaxWindow  time.Duration
	CursorName string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    2 * time.Minute,
		Window:     72 * time.Hour,
		MaxWindow:  7 * 24 * time.Hour,
		CursorName: "indiamart",
	}
}

// FromMarketplace applies the marketplace section to the defaults.
func FromMarketplace(mc config.MarketplaceConfig) *Config {
	cfg := LoadConfig()
	if mc.WindowHours > 0 {
		cfg.Window = time.Duration(mc.WindowHours) * time.Hour
	}
	return cfg
}
