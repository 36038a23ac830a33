// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Judge         JudgeConfig             `mapstructure:"judge"`
	Intelligence  IntelligenceConfig      `mapstructure:"intelligence"`
	Agent         AgentConfig             `mapstructure:"agent"`
	Alerts        AlertConfig             `mapstructure:"alerts"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Registry      RegistryConfig          `mapstructure:"registry"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddr    string `mapstructure:"http_addr"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ElasticsearchConfig is optional. Without addresses the product catalog is
// served from Postgres.
type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	ProductIndex string   `mapstructure:"product_index"`
}

// Enabled reports whether a cluster address is configured.
func (e ElasticsearchConfig) Enabled() bool {
	return len(e.Addresses) > 0
}

type RedisConfig struct {
	Address    string `mapstructure:"address"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	LeadTTL    int    `mapstructure:"lead_ttl"`    // milliseconds
	CatalogTTL int    `mapstructure:"catalog_ttl"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Specific Configuration Sections ---

// IntegrationConfig holds settings for AWS, the messaging channel and the
// lead marketplace.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`

	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`

	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
}

type WhatsAppConfig struct {
	BridgeURL     string  `mapstructure:"bridge_url"`
	CloudAPIURL   string  `mapstructure:"cloud_api_url"`
	APIVersion    string  `mapstructure:"api_version"`
	PhoneNumberID string  `mapstructure:"phone_number_id"`
	AccessToken   string  `mapstructure:"access_token"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
	Timeout       int     `mapstructure:"timeout"` // milliseconds
}

type MarketplaceConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	CRMKey      string `mapstructure:"crm_key"`
	WindowHours int    `mapstructure:"window_hours"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds
}

// JudgeConfig selects the optional external judgment service.
// Provider is one of "none", "http" or "gemini".
type JudgeConfig struct {
	Provider    string  `mapstructure:"provider"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
	Temperature float64 `mapstructure:"temperature"`
}

// IntelligenceConfig carries the tunable constants of the guidance engine.
type IntelligenceConfig struct {
	PerAreaRate        float64            `mapstructure:"per_area_rate"`
	HighValueThreshold float64            `mapstructure:"high_value_threshold"`
	OrderValues        OrderValueDefaults `mapstructure:"order_values"`
	CoastalMarkets     []string           `mapstructure:"coastal_markets"`
}

type OrderValueDefaults struct {
	Builder   float64 `mapstructure:"builder"`
	Architect float64 `mapstructure:"architect"`
	Homeowner float64 `mapstructure:"homeowner"`
	Fallback  float64 `mapstructure:"fallback"`
	Villa     float64 `mapstructure:"villa"`
	Tower     float64 `mapstructure:"tower"`
}

// AgentConfig carries the constants of the conversational agent.
type AgentConfig struct {
	Name                 string       `mapstructure:"name"`
	EscalationDealValue  float64      `mapstructure:"escalation_deal_value"`
	EscalationCategories []string     `mapstructure:"escalation_categories"`
	SampleCharge         float64      `mapstructure:"sample_charge"`
	DefaultCoverage      float64      `mapstructure:"default_coverage"`
	StoreAddress         string       `mapstructure:"store_address"`
	Margins              MarginConfig `mapstructure:"margins"`
	Typing               TypingConfig `mapstructure:"typing"`
}

type MarginConfig struct {
	SmallOrderBelow float64 `mapstructure:"small_order_below"` // sqft
	BulkOrderAbove  float64 `mapstructure:"bulk_order_above"`  // sqft
	Small           float64 `mapstructure:"small"`
	Standard        float64 `mapstructure:"standard"`
	Bulk            float64 `mapstructure:"bulk"`
}

type TypingConfig struct {
	PerChar   int `mapstructure:"per_char"`   // milliseconds
	Thinking  int `mapstructure:"thinking"`   // milliseconds
	MaxJitter int `mapstructure:"max_jitter"` // milliseconds
	Max       int `mapstructure:"max"`        // milliseconds
	Casual    int `mapstructure:"casual"`     // milliseconds
}

// AlertConfig holds settings for the alert-boss worker.
type AlertConfig struct {
	BossName     string `mapstructure:"boss_name"`
	BossPhone    string `mapstructure:"boss_phone"`
	BossEmail    string `mapstructure:"boss_email"`
	FromEmail    string `mapstructure:"from_email"`
	EmailEnabled bool   `mapstructure:"email_enabled"`
	SMSEnabled   bool   `mapstructure:"sms_enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}
