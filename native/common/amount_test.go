package common

import (
	"errors"
	"math/big"
	"testing"
)

type stubPauseView map[string]bool

func (s stubPauseView) IsPaused(module string) bool { return s[module] }

func TestParseAmount(t *testing.T) {
	value, err := ParseAmount(" 1000000000000000000 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if value.Cmp(big.NewInt(1_000_000_000_000_000_000)) != 0 {
		t.Fatalf("unexpected value %s", value)
	}

	for _, raw := range []string{"", "-1", "1.5", "abc"} {
		if _, err := ParseAmount(raw); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for %q, got %v", raw, err)
		}
	}

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := ParseAmount(tooBig.String()); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected overflow rejection, got %v", err)
	}
	maxUint256 := new(big.Int).Sub(tooBig, big.NewInt(1))
	if _, err := ParseAmount(maxUint256.String()); err != nil {
		t.Fatalf("max uint256 should parse: %v", err)
	}
}

func TestGuard(t *testing.T) {
	if err := Guard(nil, "farming"); err != nil {
		t.Fatalf("nil view must not block: %v", err)
	}
	view := stubPauseView{"farming": true}
	if err := Guard(view, "farming"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(view, "bank"); err != nil {
		t.Fatalf("unpaused module blocked: %v", err)
	}
	if err := Guard(PauseFunc(func(string) bool { return true }), ""); err != nil {
		t.Fatalf("empty module must not block: %v", err)
	}
}
