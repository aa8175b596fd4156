package common

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// ErrInvalidAmount is returned for malformed, negative or oversized amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount decodes a base-10 integer string into a non-negative big.Int
// that fits in 256 bits.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a base-10 integer", ErrInvalidAmount, trimmed)
	}
	if err := CheckAmount(value); err != nil {
		return nil, err
	}
	return value, nil
}

// CheckAmount validates that value is non-negative and representable as a
// uint256.
func CheckAmount(value *big.Int) error {
	if value == nil {
		return fmt.Errorf("%w: nil", ErrInvalidAmount)
	}
	if value.Sign() < 0 {
		return fmt.Errorf("%w: negative", ErrInvalidAmount)
	}
	if _, overflow := uint256.FromBig(value); overflow {
		return fmt.Errorf("%w: exceeds 256 bits", ErrInvalidAmount)
	}
	return nil
}
