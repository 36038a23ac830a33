// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// judge.api_key -> JUDGE_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			// unset variables expand to "" so overrideEmptyConfig and
			// validateConfig see them as missing
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from their conventional variable names
// when the yaml left them blank.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Judge.APIKey, "GEMINI_API_KEY")
	setIfEmpty(&cfg.Integrations.WhatsApp.AccessToken, "WHATSAPP_ACCESS_TOKEN")
	setIfEmpty(&cfg.Integrations.WhatsApp.PhoneNumberID, "WHATSAPP_PHONE_NUMBER_ID")
	setIfEmpty(&cfg.Integrations.WhatsApp.BridgeURL, "WHATSAPP_SERVER_URL")
	setIfEmpty(&cfg.Integrations.Marketplace.CRMKey, "INDIAMART_CRM_KEY")
	setIfEmpty(&cfg.Alerts.BossPhone, "BOSS_PHONE")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
}

func setIfEmpty(field *string, envKey string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sales-crm-workers"
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = ":8080"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.ProductIndex == "" {
		cfg.Database.Elasticsearch.ProductIndex = "products"
	}
	if cfg.Database.Redis.LeadTTL == 0 {
		cfg.Database.Redis.LeadTTL = 60000
	}
	if cfg.Database.Redis.CatalogTTL == 0 {
		cfg.Database.Redis.CatalogTTL = 600000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	if cfg.Judge.Provider == "" {
		cfg.Judge.Provider = "none"
	}
	if cfg.Judge.Timeout == 0 {
		cfg.Judge.Timeout = 5000
	}
	if cfg.Judge.Model == "" && cfg.Judge.Provider == "gemini" {
		cfg.Judge.Model = "gemini-1.5-flash"
	}
	if cfg.Judge.Temperature == 0 {
		cfg.Judge.Temperature = 0.4
	}

	wa := &cfg.Integrations.WhatsApp
	if wa.CloudAPIURL == "" {
		wa.CloudAPIURL = "https://graph.facebook.com"
	}
	if wa.APIVersion == "" {
		wa.APIVersion = "v21.0"
	}
	if wa.RatePerSecond == 0 {
		wa.RatePerSecond = 1
	}
	if wa.Burst == 0 {
		wa.Burst = 3
	}
	if wa.Timeout == 0 {
		wa.Timeout = 10000
	}

	mp := &cfg.Integrations.Marketplace
	if mp.BaseURL == "" {
		mp.BaseURL = "https://mapi.indiamart.com/wservce/crm/crmListing/v2/"
	}
	if mp.WindowHours == 0 {
		mp.WindowHours = 72
	}
	if mp.Timeout == 0 {
		mp.Timeout = 15000
	}

	applyIntelligenceDefaults(&cfg.Intelligence)
	applyAgentDefaults(&cfg.Agent)

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
	if cfg.Observability.SampleRatio == 0 {
		cfg.Observability.SampleRatio = 1
	}

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/activity-registry.json"
	}
}

func applyIntelligenceDefaults(ic *IntelligenceConfig) {
	if ic.PerAreaRate == 0 {
		ic.PerAreaRate = 55
	}
	if ic.HighValueThreshold == 0 {
		ic.HighValueThreshold = 200000
	}
	ov := &ic.OrderValues
	if ov.Builder == 0 {
		ov.Builder = 1000000
	}
	if ov.Architect == 0 {
		ov.Architect = 300000
	}
	if ov.Homeowner == 0 {
		ov.Homeowner = 150000
	}
	if ov.Fallback == 0 {
		ov.Fallback = 50000
	}
	if ov.Villa == 0 {
		ov.Villa = 500000
	}
	if ov.Tower == 0 {
		ov.Tower = 2000000
	}
	if len(ic.CoastalMarkets) == 0 {
		ic.CoastalMarkets = []string{
			"mumbai", "navi mumbai", "thane", "konkan", "ratnagiri", "alibag",
			"goa", "mangalore", "udupi", "kochi", "kerala", "chennai",
		}
	}
}

func applyAgentDefaults(ac *AgentConfig) {
	if ac.Name == "" {
		ac.Name = "SalesHero"
	}
	if ac.EscalationDealValue == 0 {
		ac.EscalationDealValue = 1000000
	}
	if len(ac.EscalationCategories) == 0 {
		ac.EscalationCategories = []string{"flexible cladding"}
	}
	if ac.SampleCharge == 0 {
		ac.SampleCharge = 500
	}
	if ac.DefaultCoverage == 0 {
		ac.DefaultCoverage = 5.33
	}
	if ac.StoreAddress == "" {
		ac.StoreAddress = "our Experience Centre in Kharghar, Navi Mumbai"
	}

	m := &ac.Margins
	if m.SmallOrderBelow == 0 {
		m.SmallOrderBelow = 600
	}
	if m.BulkOrderAbove == 0 {
		m.BulkOrderAbove = 5000
	}
	if m.Small == 0 {
		m.Small = 0.39
	}
	if m.Standard == 0 {
		m.Standard = 0.29
	}
	if m.Bulk == 0 {
		m.Bulk = 0.19
	}

	t := &ac.Typing
	if t.PerChar == 0 {
		t.PerChar = 250
	}
	if t.Thinking == 0 {
		t.Thinking = 1500
	}
	if t.MaxJitter == 0 {
		t.MaxJitter = 2000
	}
	if t.Max == 0 {
		t.Max = 15000
	}
	if t.Casual == 0 {
		t.Casual = 3000
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	switch cfg.Judge.Provider {
	case "none":
	case "http":
		if cfg.Judge.BaseURL == "" {
			return fmt.Errorf("judge.base_url is required for the http provider")
		}
	case "gemini":
		if cfg.Judge.APIKey == "" {
			return fmt.Errorf("judge.api_key is required for the gemini provider")
		}
	default:
		return fmt.Errorf("judge.provider %q is not supported", cfg.Judge.Provider)
	}

	m := cfg.Agent.Margins
	if m.SmallOrderBelow > m.BulkOrderAbove {
		return fmt.Errorf("agent.margins.small_order_below must not exceed bulk_order_above")
	}
	for name, margin := range map[string]float64{"small": m.Small, "standard": m.Standard, "bulk": m.Bulk} {
		if margin < 0 || margin > 1 {
			return fmt.Errorf("agent.margins.%s must be between 0 and 1", name)
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
