package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete assistant configuration.
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Risk    RiskConfig    `json:"risk" yaml:"risk"`
	Orders  OrdersConfig  `json:"orders" yaml:"orders"`
	API     APIConfig     `json:"api" yaml:"api"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// AccountConfig seeds the demo account snapshot.
type AccountConfig struct {
	ID             string  `json:"id" yaml:"id"`
	NetLiquidation float64 `json:"net_liquidation" yaml:"net_liquidation"`
	BuyingPower    float64 `json:"buying_power" yaml:"buying_power"`
	DayTrader      bool    `json:"day_trader" yaml:"day_trader"`
	MarginBuffer   float64 `json:"margin_buffer" yaml:"margin_buffer"`
}

// RiskConfig contains sizing and validation parameters. Percentages are in
// percent units (2.0 means 2%).
type RiskConfig struct {
	DefaultRiskPercent float64 `json:"default_risk_percent" yaml:"default_risk_percent"`
	MaxRiskPercent     float64 `json:"max_risk_percent" yaml:"max_risk_percent"`
	MinStopDistance    float64 `json:"min_stop_distance" yaml:"min_stop_distance"`
	MaxPositionPercent float64 `json:"max_position_percent" yaml:"max_position_percent"`

	// DefaultTargets is the default scale-out plan applied when the caller
	// submits a multi-target order without explicit percentages.
	DefaultTargets []TargetConfig `json:"default_targets,omitempty" yaml:"default_targets,omitempty"`
}

// TargetConfig pairs a share percentage with the R-multiple at which it is
// taken off.
type TargetConfig struct {
	Percent   float64 `json:"percent" yaml:"percent"`
	RMultiple float64 `json:"r_multiple" yaml:"r_multiple"`
}

// OrdersConfig contains bracket submission pacing. The gateway acknowledges
// asynchronously, so status reads wait out a settle delay first.
type OrdersConfig struct {
	SettleDelay       string `json:"settle_delay" yaml:"settle_delay"`
	ScaledSettleDelay string `json:"scaled_settle_delay" yaml:"scaled_settle_delay"`
	InterBracketDelay string `json:"inter_bracket_delay" yaml:"inter_bracket_delay"`
}

func parseDelay(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func (o OrdersConfig) Settle() time.Duration       { d, _ := parseDelay(o.SettleDelay); return d }
func (o OrdersConfig) ScaledSettle() time.Duration { d, _ := parseDelay(o.ScaledSettleDelay); return d }
func (o OrdersConfig) InterBracket() time.Duration { d, _ := parseDelay(o.InterBracketDelay); return d }

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level   string `json:"level" yaml:"level"`
	Console bool   `json:"console" yaml:"console"`
}

// LoadFromFile loads configuration from a file (YAML or JSON based on
// content; YAML is tried first).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Account.NetLiquidation < 0 || c.Account.BuyingPower < 0 {
		return fmt.Errorf("account values must not be negative")
	}
	if c.Account.MarginBuffer < 0 || c.Account.MarginBuffer >= 1 {
		return fmt.Errorf("account.margin_buffer must be in [0, 1)")
	}
	if c.Risk.DefaultRiskPercent <= 0 {
		return fmt.Errorf("risk.default_risk_percent must be positive")
	}
	if c.Risk.MaxRiskPercent < c.Risk.DefaultRiskPercent {
		return fmt.Errorf("risk.max_risk_percent must be >= default_risk_percent")
	}
	if c.Risk.MinStopDistance < 0 {
		return fmt.Errorf("risk.min_stop_distance must not be negative")
	}
	if c.Risk.MaxPositionPercent <= 0 {
		return fmt.Errorf("risk.max_position_percent must be positive")
	}
	if len(c.Risk.DefaultTargets) > 0 {
		total := 0.0
		for _, t := range c.Risk.DefaultTargets {
			if t.Percent <= 0 || t.RMultiple <= 0 {
				return fmt.Errorf("risk.default_targets entries must be positive")
			}
			total += t.Percent
		}
		if total != 100 {
			return fmt.Errorf("risk.default_targets percentages must total 100 (got %g)", total)
		}
	}
	for _, d := range []string{c.Orders.SettleDelay, c.Orders.ScaledSettleDelay, c.Orders.InterBracketDelay} {
		if _, err := parseDelay(d); err != nil {
			return fmt.Errorf("invalid orders delay %q: %w", d, err)
		}
	}
	if c.API.Addr == "" {
		return fmt.Errorf("api.addr is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:             "DU000001",
			NetLiquidation: 100_000,
			BuyingPower:    200_000,
			MarginBuffer:   0.25,
		},
		Risk: RiskConfig{
			DefaultRiskPercent: 0.3,
			MaxRiskPercent:     2.0,
			MinStopDistance:    0.5,
			MaxPositionPercent: 100,
			DefaultTargets: []TargetConfig{
				{Percent: 25, RMultiple: 2},
				{Percent: 25, RMultiple: 4},
				{Percent: 25, RMultiple: 6},
				{Percent: 25, RMultiple: 20},
			},
		},
		Orders: OrdersConfig{
			SettleDelay:       "1s",
			ScaledSettleDelay: "2s",
			InterBracketDelay: "500ms",
		},
		API: APIConfig{
			Addr: ":8089",
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}
