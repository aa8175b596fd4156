package farming

import (
	"fmt"
	"strings"

	"cafichain/crypto"
)

// Config captures the runtime configuration for the native farming module.
type Config struct {
	MaxAPYBps   uint64 `toml:"MaxAPYBps" yaml:"maxApyBps"`
	FeeBps      uint64 `toml:"FeeBps" yaml:"feeBps"`
	FeeReceiver string `toml:"FeeReceiver" yaml:"feeReceiver"`
	RewardToken string `toml:"RewardToken" yaml:"rewardToken"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{MaxAPYBps: 5000, RewardToken: "CAFI"}
}

// Params converts the configuration into module parameters.
func (c Config) Params() (Params, error) {
	params := Params{
		MaxAPYBps:   c.MaxAPYBps,
		FeeBps:      c.FeeBps,
		RewardToken: strings.ToUpper(strings.TrimSpace(c.RewardToken)),
	}
	if receiver := strings.TrimSpace(c.FeeReceiver); receiver != "" {
		addr, err := crypto.DecodeAddress(receiver)
		if err != nil {
			return Params{}, fmt.Errorf("farming: fee receiver: %w", err)
		}
		params.FeeReceiver = addr
	}
	if err := params.Validate(); err != nil {
		return Params{}, err
	}
	return params, nil
}

// Validate checks the parameter bounds.
func (p Params) Validate() error {
	if p.MaxAPYBps > BasisPoints {
		return ErrInvalidAPYCap
	}
	if p.FeeBps > BasisPoints {
		return ErrInvalidFee
	}
	if p.FeeBps > 0 && p.FeeReceiver.IsZero() {
		return ErrZeroAddress
	}
	if strings.TrimSpace(p.RewardToken) == "" {
		return ErrInvalidToken
	}
	return nil
}
