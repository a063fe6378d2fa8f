package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"card-alerts/internal/logging"
	"card-alerts/internal/mail"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	GCP       GCPConfig       `mapstructure:"gcp"`
	Overrides OverridesConfig `mapstructure:"overrides"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Server    ServerConfig    `mapstructure:"server"`
	Sources   []mail.Source   `mapstructure:"sources"`
}

// AppConfig general metadata.
type AppConfig struct {
	Environment string `mapstructure:"environment"`
	TimeZone    string `mapstructure:"time_zone"`
	// NackOnFailure makes the push endpoint return an error status on
	// pipeline failure, asking the delivery layer to retry. The default
	// acks everything so malformed alerts drain instead of looping.
	NackOnFailure bool `mapstructure:"nack_on_failure"`
}

// Location resolves the configured time zone.
func (a AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("app.time_zone %q: %w", a.TimeZone, err)
	}
	return loc, nil
}

// GCPConfig covers project-level cloud access.
type GCPConfig struct {
	Project         string `mapstructure:"project"`
	MailBucket      string `mapstructure:"mail_bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// OverridesConfig names the BigQuery table holding override rules.
type OverridesConfig struct {
	Dataset string `mapstructure:"dataset"`
	Table   string `mapstructure:"table"`
}

// SecretsConfig names the Secret Manager resource holding tokens.
type SecretsConfig struct {
	Name string `mapstructure:"name"`
}

// LedgerConfig covers the budget ledger API.
type LedgerConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	BudgetID       string        `mapstructure:"budget_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ExtractConfig selects and tunes the fact extraction strategy.
type ExtractConfig struct {
	Strategy string        `mapstructure:"strategy"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ServerConfig governs the HTTP trigger listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CARDALERTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.time_zone", "America/Halifax")
	v.SetDefault("app.nack_on_failure", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("overrides.dataset", "card_alerts")
	v.SetDefault("overrides.table", "overrides")

	v.SetDefault("ledger.base_url", "https://api.ynab.com/v1")
	v.SetDefault("ledger.request_timeout", "30s")

	v.SetDefault("extract.strategy", "model")
	v.SetDefault("extract.model", "gemini-2.0-flash")
	v.SetDefault("extract.timeout", "60s")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.GCP.Project == "" {
		return fmt.Errorf("gcp.project must be set")
	}
	if c.GCP.MailBucket == "" {
		return fmt.Errorf("gcp.mail_bucket must be set")
	}
	if c.Secrets.Name == "" {
		return fmt.Errorf("secrets.name must be set")
	}
	if c.Ledger.BudgetID == "" {
		return fmt.Errorf("ledger.budget_id must be set")
	}
	if _, err := c.App.Location(); err != nil {
		return err
	}

	switch c.Extract.Strategy {
	case "model":
		if c.Extract.Model == "" {
			return fmt.Errorf("extract.model must be set for the model strategy")
		}
	case "regex":
	default:
		return fmt.Errorf("extract.strategy must be \"model\" or \"regex\", got %q", c.Extract.Strategy)
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}
	seen := make(map[string]string, len(c.Sources))
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d].id must be set", i)
		}
		if src.SenderAddress == "" || src.SubjectLine == "" {
			return fmt.Errorf("source %q must set sender_address and subject_line", src.ID)
		}
		if src.LedgerAccountID == "" {
			return fmt.Errorf("source %q must set ledger_account_id", src.ID)
		}
		key := src.SenderAddress + "\x00" + src.SubjectLine
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("sources %q and %q share a sender and subject", prev, src.ID)
		}
		seen[key] = src.ID

		if c.Extract.Strategy == "regex" {
			if src.PayeePattern == "" {
				return fmt.Errorf("source %q needs payee_pattern for the regex strategy", src.ID)
			}
			re, err := regexp.Compile(src.PayeePattern)
			if err != nil {
				return fmt.Errorf("source %q payee_pattern: %w", src.ID, err)
			}
			if !hasGroup(re, "payee") {
				return fmt.Errorf("source %q payee_pattern must capture a (?P<payee>...) group", src.ID)
			}
		}
	}
	return nil
}

func hasGroup(re *regexp.Regexp, name string) bool {
	for _, n := range re.SubexpNames() {
		if n == name {
			return true
		}
	}
	return false
}
