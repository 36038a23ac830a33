// internal/workers/messaging/alert-boss/config.go
package alertboss

import (
	"time"

	"sales-crm-workers/internal/common/config"
)

type Config struct {
	BossName     string
	BossPhone    string
	BossEmail    string
	FromEmail    string
	EmailEnabled bool
	SMSEnabled   bool
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		BossName: "Boss",
		Timeout:  30 * time.Second,
	}
}

// FromAlerts overlays the alerts section on the defaults.
func FromAlerts(alerts config.AlertConfig) *Config {
	cfg := LoadConfig()
	if alerts.BossName != "" {
		cfg.BossName = alerts.BossName
	}
	cfg.BossPhone = alerts.BossPhone
	cfg.BossEmail = alerts.BossEmail
	cfg.FromEmail = alerts.FromEmail
	cfg.EmailEnabled = alerts.EmailEnabled
	cfg.SMSEnabled = alerts.SMSEnabled
	return cfg
}
