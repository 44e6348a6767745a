package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config models laborline.yml: the platform's business constants.
// Pricing amounts are kept as strings in YAML and parsed once in Validate
// so money never round-trips through floats.
type Config struct {
	Pricing struct {
		VisitingCharge string `yaml:"visiting_charge" json:"visiting_charge"`
		PlatformFee    string `yaml:"platform_fee" json:"platform_fee"`
		LaborerPayout  string `yaml:"laborer_payout" json:"laborer_payout"`
	} `yaml:"pricing" json:"pricing"`
	Geofence struct {
		CheckinRadiusMeters float64 `yaml:"checkin_radius_meters" json:"checkin_radius_meters"`
	} `yaml:"geofence" json:"geofence"`
	Search struct {
		NearbyRadiusMeters float64 `yaml:"nearby_radius_meters" json:"nearby_radius_meters"`
		NearbyLimit        int     `yaml:"nearby_limit" json:"nearby_limit"`
	} `yaml:"search" json:"search"`
	Auth struct {
		TokenTTLHours int    `yaml:"token_ttl_hours" json:"token_ttl_hours"`
		Secret        string `yaml:"secret" json:"-"`
	} `yaml:"auth" json:"auth"`

	visitingCharge decimal.Decimal
	platformFee    decimal.Decimal
	laborerPayout  decimal.Decimal
}

// Validate parses the pricing amounts and checks the breakdown identity
// platform_fee + laborer_payout == visiting_charge.
func (c *Config) Validate() error {
	var err error
	if c.visitingCharge, err = decimal.NewFromString(c.Pricing.VisitingCharge); err != nil {
		return fmt.Errorf("config.pricing.visiting_charge: %w", err)
	}
	if c.platformFee, err = decimal.NewFromString(c.Pricing.PlatformFee); err != nil {
		return fmt.Errorf("config.pricing.platform_fee: %w", err)
	}
	if c.laborerPayout, err = decimal.NewFromString(c.Pricing.LaborerPayout); err != nil {
		return fmt.Errorf("config.pricing.laborer_payout: %w", err)
	}
	if c.visitingCharge.IsNegative() || c.platformFee.IsNegative() || c.laborerPayout.IsNegative() {
		return fmt.Errorf("config.pricing amounts must not be negative")
	}
	if !c.platformFee.Add(c.laborerPayout).Equal(c.visitingCharge) {
		return fmt.Errorf("config.pricing: platform_fee + laborer_payout must equal visiting_charge")
	}
	if c.Geofence.CheckinRadiusMeters <= 0 {
		return fmt.Errorf("config.geofence.checkin_radius_meters must be positive")
	}
	if c.Search.NearbyRadiusMeters <= 0 {
		return fmt.Errorf("config.search.nearby_radius_meters must be positive")
	}
	if c.Search.NearbyLimit <= 0 {
		return fmt.Errorf("config.search.nearby_limit must be positive")
	}
	if c.Auth.TokenTTLHours <= 0 {
		return fmt.Errorf("config.auth.token_ttl_hours must be positive")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("config.auth.secret must not be empty")
	}
	return nil
}

func (c *Config) VisitingCharge() decimal.Decimal { return c.visitingCharge }
func (c *Config) PlatformFee() decimal.Decimal    { return c.platformFee }
func (c *Config) LaborerPayout() decimal.Decimal  { return c.laborerPayout }

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "laborline.yml")
}

// Load reads and validates config from workspace, falling back to defaults
// when no file exists.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the platform's stock configuration.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// GenerateDefault returns default config YAML for `ll config init`.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `pricing:
  visiting_charge: "110.00"
  platform_fee: "10.00"
  laborer_payout: "100.00"

geofence:
  checkin_radius_meters: 200

search:
  nearby_radius_meters: 5000
  nearby_limit: 10

auth:
  token_ttl_hours: 72
  # override for anything beyond local development
  secret: "laborline-dev-secret"
`
