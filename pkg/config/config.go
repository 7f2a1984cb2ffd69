package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Pricing    map[string]PricingConfig   `mapstructure:"pricing"`
	Inventory  map[string]InventoryConfig `mapstructure:"inventory"`
	Budget     BudgetConfig
	Admission  AdmissionConfig
	Projection ProjectionConfig
	Registry   RegistryConfig
	Redis      RedisConfig
	ModelCosts map[string]ModelCostConfig `mapstructure:"model_costs"`
	Logging    LoggingConfig
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PricingConfig holds hourly rates in dollars for one resource type.
type PricingConfig struct {
	OnDemand float64 `mapstructure:"on_demand"`
	Spot     float64 `mapstructure:"spot"`
}

type InventoryConfig struct {
	Total int `mapstructure:"total"`
	// Available defaults to Total when unset.
	Available *int `mapstructure:"available"`
}

type BudgetConfig struct {
	Monthly      float64 `mapstructure:"monthly"`
	InitialSpend float64 `mapstructure:"initial_spend"`
}

type AdmissionConfig struct {
	ReservationFraction float64 `mapstructure:"reservation_fraction"`
	DefaultResourceType string  `mapstructure:"default_resource_type"`
}

type ProjectionConfig struct {
	Factor float64 `mapstructure:"factor"`
}

type RegistryConfig struct {
	RecentLimit int `mapstructure:"recent_limit"`
}

type RedisConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Addresses     []string `mapstructure:"addresses"`
	Password      string   `mapstructure:"password"`
	DB            int      `mapstructure:"db"`
	PoolSize      int      `mapstructure:"pool_size"`
	ClusterMode   bool     `mapstructure:"cluster_mode"`
	ChannelPrefix string   `mapstructure:"channel_prefix"`
}

type ModelCostConfig struct {
	DailyCost   float64 `mapstructure:"daily_cost"`
	MonthlyCost float64 `mapstructure:"monthly_cost"`
	GPUHours    float64 `mapstructure:"gpu_hours"`
	APICalls    int64   `mapstructure:"api_calls"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Load reads configuration from path, or from the default search locations
// when path is empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/gpucost/")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GPUCOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("budget.initial_spend", 0)
	v.SetDefault("admission.reservation_fraction", 0.10)
	v.SetDefault("projection.factor", 1.3)
	v.SetDefault("registry.recent_limit", 10)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.channel_prefix", "gpucost:events:")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// normalize lower-cases resource type identifiers so that values supplied
// through env vars or code match the keys viper produced from the file.
func (c *Config) normalize() {
	c.Admission.DefaultResourceType = strings.ToLower(strings.TrimSpace(c.Admission.DefaultResourceType))

	pricing := make(map[string]PricingConfig, len(c.Pricing))
	for name, p := range c.Pricing {
		pricing[strings.ToLower(name)] = p
	}
	c.Pricing = pricing

	inventory := make(map[string]InventoryConfig, len(c.Inventory))
	for name, inv := range c.Inventory {
		inventory[strings.ToLower(name)] = inv
	}
	c.Inventory = inventory
}

// Validate checks the config for required fields and consistency.
func (c *Config) Validate() error {
	if len(c.Pricing) == 0 {
		return fmt.Errorf("config: at least one pricing entry is required")
	}
	for name, p := range c.Pricing {
		if p.OnDemand <= 0 {
			return fmt.Errorf("config: pricing %q: on_demand must be positive", name)
		}
		if p.Spot <= 0 {
			return fmt.Errorf("config: pricing %q: spot must be positive", name)
		}
	}

	for name, inv := range c.Inventory {
		if _, ok := c.Pricing[name]; !ok {
			return fmt.Errorf("config: inventory %q has no pricing entry", name)
		}
		if inv.Total < 0 {
			return fmt.Errorf("config: inventory %q: total must not be negative", name)
		}
		if inv.Available != nil && (*inv.Available < 0 || *inv.Available > inv.Total) {
			return fmt.Errorf("config: inventory %q: available %d outside [0, %d]", name, *inv.Available, inv.Total)
		}
	}

	if c.Budget.Monthly <= 0 {
		return fmt.Errorf("config: budget.monthly must be positive")
	}
	if c.Budget.InitialSpend < 0 {
		return fmt.Errorf("config: budget.initial_spend must not be negative")
	}
	if c.Admission.ReservationFraction <= 0 || c.Admission.ReservationFraction > 1 {
		return fmt.Errorf("config: admission.reservation_fraction %v outside (0, 1]", c.Admission.ReservationFraction)
	}
	if c.Admission.DefaultResourceType != "" {
		if _, ok := c.Inventory[c.Admission.DefaultResourceType]; !ok {
			return fmt.Errorf("config: admission.default_resource_type %q is not in inventory", c.Admission.DefaultResourceType)
		}
	}
	if c.Projection.Factor <= 0 {
		return fmt.Errorf("config: projection.factor must be positive")
	}
	if c.Redis.Enabled && len(c.Redis.Addresses) == 0 {
		return fmt.Errorf("config: redis.addresses is required when redis is enabled")
	}
	return nil
}

// AvailableUnits returns the configured starting availability.
func (i InventoryConfig) AvailableUnits() int {
	if i.Available == nil {
		return i.Total
	}
	return *i.Available
}
