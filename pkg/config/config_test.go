package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  http_port: 8181
pricing:
  NVIDIA-T4:
    on_demand: 0.526
    spot: 0.158
  nvidia-a100:
    on_demand: 3.06
    spot: 0.92
inventory:
  nvidia-t4:
    total: 8
    available: 5
  nvidia-a100:
    total: 2
budget:
  monthly: 10000
  initial_spend: 2453.67
admission:
  default_resource_type: NVIDIA-T4
model_costs:
  llama:
    daily_cost: 12.5
    api_calls: 42
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	require.Contains(t, cfg.Pricing, "nvidia-t4")
	assert.Equal(t, 0.526, cfg.Pricing["nvidia-t4"].OnDemand)
	assert.Equal(t, 5, cfg.Inventory["nvidia-t4"].AvailableUnits())
	assert.Equal(t, 2, cfg.Inventory["nvidia-a100"].AvailableUnits(), "available defaults to total")

	assert.Equal(t, 2453.67, cfg.Budget.InitialSpend)
	assert.Equal(t, 0.10, cfg.Admission.ReservationFraction)
	assert.Equal(t, "nvidia-t4", cfg.Admission.DefaultResourceType)
	assert.Equal(t, 1.3, cfg.Projection.Factor)
	assert.Equal(t, 10, cfg.Registry.RecentLimit)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "gpucost:events:", cfg.Redis.ChannelPrefix)
	assert.Equal(t, int64(42), cfg.ModelCosts["llama"].APICalls)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GPUCOST_BUDGET_MONTHLY", "20000")
	t.Setenv("GPUCOST_SERVER_HTTP_PORT", "9000")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 20000.0, cfg.Budget.Monthly)
	assert.Equal(t, 9000, cfg.Server.HTTPPort)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "budget:\n  monthly: 100\n"))
	assert.ErrorContains(t, err, "pricing")
}

func validConfig() Config {
	return Config{
		Pricing:    map[string]PricingConfig{"nvidia-t4": {OnDemand: 0.526, Spot: 0.158}},
		Inventory:  map[string]InventoryConfig{"nvidia-t4": {Total: 8}},
		Budget:     BudgetConfig{Monthly: 10000},
		Admission:  AdmissionConfig{ReservationFraction: 0.1},
		Projection: ProjectionConfig{Factor: 1.3},
	}
}

func TestValidate(t *testing.T) {
	nine := 9
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero rate", func(c *Config) { c.Pricing["nvidia-t4"] = PricingConfig{OnDemand: 0, Spot: 1} }, "on_demand"},
		{"unpriced inventory", func(c *Config) { c.Inventory["nvidia-h100"] = InventoryConfig{Total: 1} }, "no pricing"},
		{"available above total", func(c *Config) { c.Inventory["nvidia-t4"] = InventoryConfig{Total: 8, Available: &nine} }, "available"},
		{"no budget", func(c *Config) { c.Budget.Monthly = 0 }, "budget.monthly"},
		{"negative spend", func(c *Config) { c.Budget.InitialSpend = -1 }, "initial_spend"},
		{"fraction too large", func(c *Config) { c.Admission.ReservationFraction = 1.5 }, "reservation_fraction"},
		{"unknown default type", func(c *Config) { c.Admission.DefaultResourceType = "nvidia-h100" }, "default_resource_type"},
		{"zero projection", func(c *Config) { c.Projection.Factor = 0 }, "projection.factor"},
		{"redis without addresses", func(c *Config) { c.Redis.Enabled = true }, "redis.addresses"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := LoggingConfig{Level: "debug", Format: "console"}.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = LoggingConfig{Level: "loud"}.NewLogger()
	assert.Error(t, err)

	_, err = LoggingConfig{Format: "xml"}.NewLogger()
	assert.Error(t, err)
}
