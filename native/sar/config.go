package sar

import (
	"encoding/hex"
	"errors"
	"strings"
)

// Config captures the runtime configuration for the staking module.
type Config struct {
	// RewardToken is the distributed reward token, hex encoded.
	RewardToken string `toml:"RewardToken"`
	// ModuleAddress holds staked tokens and claimed rewards in custody.
	ModuleAddress string `toml:"ModuleAddress"`
	// Operator may initialise pools and set rewarders.
	Operator string `toml:"Operator"`
}

// Validate ensures every configured address parses and is non-zero.
func (c Config) Validate() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"RewardToken", c.RewardToken},
		{"ModuleAddress", c.ModuleAddress},
		{"Operator", c.Operator},
	} {
		addr, err := ParseAddress(field.value)
		if err != nil {
			return errors.New("sar: invalid " + field.name + " address")
		}
		if zeroAddress(addr) {
			return errors.New("sar: " + field.name + " cannot be the zero address")
		}
	}
	return nil
}

// NewEngineFromConfig constructs an engine from a validated configuration:
// the reward token and module custody address seed the engine and the
// operator is assigned. Collaborators are wired afterwards through the Set*
// methods as usual.
func NewEngineFromConfig(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rewardToken, err := ParseAddress(cfg.RewardToken)
	if err != nil {
		return nil, err
	}
	moduleAddr, err := ParseAddress(cfg.ModuleAddress)
	if err != nil {
		return nil, err
	}
	operator, err := ParseAddress(cfg.Operator)
	if err != nil {
		return nil, err
	}
	engine := NewEngine(rewardToken, moduleAddr)
	engine.SetOperator(operator)
	return engine, nil
}

// ParseAddress decodes a 20-byte hex address, with or without a 0x prefix.
func ParseAddress(s string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, err
	}
	if len(raw) != len(addr) {
		return addr, errors.New("sar: address must be 20 bytes")
	}
	copy(addr[:], raw)
	return addr, nil
}
