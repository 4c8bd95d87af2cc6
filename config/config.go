package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/BurntSushi/toml"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Duration wraps time.Duration so human readable strings decode from TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses strings such as "30s" or "24h".
func (d *Duration) UnmarshalText(text []byte) error {
	raw := string(text)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for hubfxd.
type Config struct {
	ListenAddress string         `toml:"listen"`
	DatabasePath  string         `toml:"database"`
	Environment   string         `toml:"environment"`
	HubToken      string         `toml:"hub_token"`
	Custody       string         `toml:"custody"`
	Treasury      string         `toml:"treasury"`
	Timelock      TimelockConfig `toml:"timelock"`
	Oracle        OracleConfig   `toml:"oracle"`
	Tokens        []TokenConfig  `toml:"tokens"`
	Pairs         []PairConfig   `toml:"pairs"`
}

// TimelockConfig tunes the delayed-admin executor.
type TimelockConfig struct {
	Admin string   `toml:"admin"`
	Delay Duration `toml:"delay"`
}

// OracleConfig tunes price submission acceptance.
type OracleConfig struct {
	MaxSkew Duration `toml:"max_skew"`
	Feeders []string `toml:"feeders"`
}

// TokenConfig declares a currency known to the registry at startup. Prices
// and amounts are decimal strings to keep full integer precision.
type TokenConfig struct {
	Address  string `toml:"address"`
	Symbol   string `toml:"symbol"`
	Decimals uint8  `toml:"decimals"`
	Kind     string `toml:"kind"`
	MinPrice string `toml:"min_price"`
	MaxPrice string `toml:"max_price"`
}

// PairConfig declares a tradable pair and its economics.
type PairConfig struct {
	Anchor        string `toml:"anchor"`
	Quote         string `toml:"quote"`
	BuyFee        string `toml:"buy_fee"`
	BuyThreshold  string `toml:"buy_reserve_ratio_threshold"`
	SellFee       string `toml:"sell_fee"`
	SellThreshold string `toml:"sell_reserve_ratio_threshold"`
}

// Load reads configuration from the supplied path.
func Load(path string) (Config, error) {
	cfg := Config{}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7085"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "/var/data/hubfx.db"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Oracle.MaxSkew.Duration == 0 {
		cfg.Oracle.MaxSkew.Duration = 5 * time.Minute
	}
	if cfg.Timelock.Delay.Duration == 0 {
		cfg.Timelock.Delay.Duration = 24 * time.Hour
	}
}

func validate(cfg Config) error {
	if !ethcommon.IsHexAddress(cfg.HubToken) {
		return fmt.Errorf("hub_token must be a hex address, got %q", cfg.HubToken)
	}
	if !ethcommon.IsHexAddress(cfg.Custody) {
		return fmt.Errorf("custody must be a hex address, got %q", cfg.Custody)
	}
	if cfg.Treasury != "" && !ethcommon.IsHexAddress(cfg.Treasury) {
		return fmt.Errorf("treasury must be a hex address, got %q", cfg.Treasury)
	}
	if cfg.Timelock.Admin != "" && !ethcommon.IsHexAddress(cfg.Timelock.Admin) {
		return fmt.Errorf("timelock admin must be a hex address, got %q", cfg.Timelock.Admin)
	}
	for _, feeder := range cfg.Oracle.Feeders {
		if !ethcommon.IsHexAddress(feeder) {
			return fmt.Errorf("oracle feeder must be a hex address, got %q", feeder)
		}
	}
	if len(cfg.Tokens) == 0 {
		return fmt.Errorf("at least one token must be configured")
	}
	hubListed := false
	for i, tok := range cfg.Tokens {
		if !ethcommon.IsHexAddress(tok.Address) {
			return fmt.Errorf("tokens[%d]: address must be hex, got %q", i, tok.Address)
		}
		switch tok.Kind {
		case "asset", "stable":
		default:
			return fmt.Errorf("tokens[%d]: kind must be asset or stable, got %q", i, tok.Kind)
		}
		if _, err := parseAmount(tok.MinPrice); err != nil {
			return fmt.Errorf("tokens[%d]: min_price: %w", i, err)
		}
		if _, err := parseAmount(tok.MaxPrice); err != nil {
			return fmt.Errorf("tokens[%d]: max_price: %w", i, err)
		}
		if ethcommon.HexToAddress(tok.Address) == ethcommon.HexToAddress(cfg.HubToken) {
			hubListed = true
		}
	}
	if !hubListed {
		return fmt.Errorf("hub_token %s must appear in the token list", cfg.HubToken)
	}
	for i, pair := range cfg.Pairs {
		if !ethcommon.IsHexAddress(pair.Anchor) || !ethcommon.IsHexAddress(pair.Quote) {
			return fmt.Errorf("pairs[%d]: anchor and quote must be hex addresses", i)
		}
		for name, raw := range map[string]string{
			"buy_fee":                      pair.BuyFee,
			"buy_reserve_ratio_threshold":  pair.BuyThreshold,
			"sell_fee":                     pair.SellFee,
			"sell_reserve_ratio_threshold": pair.SellThreshold,
		} {
			if _, err := parseAmount(raw); err != nil {
				return fmt.Errorf("pairs[%d]: %s: %w", i, name, err)
			}
		}
	}
	return nil
}

func parseAmount(raw string) (*big.Int, error) {
	if raw == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal integer %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", raw)
	}
	return value, nil
}

// Amount parses a configured decimal string, returning zero for empty input.
// Call only after Load has validated the configuration.
func Amount(raw string) *big.Int {
	value, err := parseAmount(raw)
	if err != nil {
		return big.NewInt(0)
	}
	return value
}

// Address parses a configured hex address into the native representation.
func Address(raw string) [20]byte {
	return ethcommon.HexToAddress(raw)
}
