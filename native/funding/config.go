package funding

import (
	"errors"
	"math/big"

	"github.com/BurntSushi/toml"
)

// Config captures the runtime configuration for the emission schedule.
type Config struct {
	// RewardRate is the global emission in reward-token units per second,
	// as a decimal string.
	RewardRate string `toml:"RewardRate"`
	// StartTime and PeriodFinish bound the emission window (unix seconds).
	StartTime    uint64 `toml:"StartTime"`
	PeriodFinish uint64 `toml:"PeriodFinish"`
	// PoolZeroWeight seeds pool zero's emission weight so the total weight
	// is never zero.
	PoolZeroWeight uint64 `toml:"PoolZeroWeight"`
}

// DefaultConfig returns a disabled schedule with pool zero pre-weighted.
func DefaultConfig() Config {
	return Config{
		RewardRate:     "0",
		PoolZeroWeight: 1000,
	}
}

// Validate ensures the configuration values fall within acceptable bounds.
func (c Config) Validate() error {
	rate, ok := new(big.Int).SetString(c.RewardRate, 10)
	if !ok {
		return errors.New("funding: reward rate must be a decimal integer")
	}
	if rate.Sign() < 0 {
		return errors.New("funding: reward rate cannot be negative")
	}
	if c.PoolZeroWeight == 0 {
		return errors.New("funding: pool zero weight must be positive")
	}
	if c.PeriodFinish < c.StartTime {
		return errors.New("funding: period finish precedes start time")
	}
	return nil
}

// LoadConfig reads a schedule configuration from a TOML file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
