package genesis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"cafichain/core/state"
	"cafichain/crypto"
	"cafichain/native/bank"
	nativecommon "cafichain/native/common"
	"cafichain/native/farming"
)

// ErrAlreadyApplied is returned when the farming module already has
// parameters.
var ErrAlreadyApplied = errors.New("genesis: state already initialised")

// Initialised reports whether genesis has been applied to manager.
func Initialised(manager *state.Manager) (bool, error) {
	params, err := manager.FarmParams()
	if err != nil {
		return false, err
	}
	return params != nil, nil
}

// Apply writes spec into state through the ledger and farming engine. The
// caller owns atomicity: every write lands in manager's journal.
func Apply(manager *state.Manager, ledger *bank.Ledger, engine *farming.Engine, spec *GenesisSpec) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if manager == nil || ledger == nil || engine == nil {
		return fmt.Errorf("genesis: state, ledger and engine are required")
	}
	done, err := Initialised(manager)
	if err != nil {
		return err
	}
	if done {
		return ErrAlreadyApplied
	}

	// 1) Tokens (sorted)
	tokens := append([]TokenSpec(nil), spec.Tokens...)
	sort.Slice(tokens, func(i, j int) bool {
		return strings.ToUpper(tokens[i].Symbol) < strings.ToUpper(tokens[j].Symbol)
	})
	for _, token := range tokens {
		name := strings.TrimSpace(token.Name)
		if name == "" {
			name = strings.ToUpper(strings.TrimSpace(token.Symbol))
		}
		if err := manager.RegisterToken(token.Symbol, name, token.Decimals); err != nil {
			return fmt.Errorf("tokens[%q]: %w", token.Symbol, err)
		}
	}

	// 2) Balances (address sorted, then symbol sorted)
	addresses := make([]string, 0, len(spec.Alloc))
	for addr := range spec.Alloc {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)
	for _, addrStr := range addresses {
		account, err := crypto.DecodeAddress(addrStr)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", addrStr, err)
		}
		balances := spec.Alloc[addrStr]
		symbols := make([]string, 0, len(balances))
		for symbol := range balances {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			amount, err := nativecommon.ParseAmount(balances[symbol])
			if err != nil {
				return fmt.Errorf("alloc[%q][%q]: %w", addrStr, symbol, err)
			}
			if amount.Sign() == 0 {
				continue
			}
			if err := ledger.Mint(symbol, account, amount); err != nil {
				return fmt.Errorf("alloc[%q][%q]: %w", addrStr, symbol, err)
			}
		}
	}

	// 3) Farming parameters and owner
	if err := engine.InitGenesis(spec.owner, spec.params); err != nil {
		return fmt.Errorf("farming genesis: %w", err)
	}

	// 4) Packages in declaration order; ids follow the slice index.
	for i, pkg := range spec.Packages {
		if _, err := engine.CreatePackage(spec.owner, pkg.farmingSpec()); err != nil {
			return fmt.Errorf("packages[%d]: %w", i, err)
		}
	}

	// 5) Reward pool, funded from the owner's allocation.
	if spec.rewardPool != nil && spec.rewardPool.Sign() > 0 {
		module := engine.ModuleAddress()
		if err := ledger.Approve(spec.params.RewardToken, spec.owner, module, spec.rewardPool); err != nil {
			return fmt.Errorf("rewardPool approve: %w", err)
		}
		if _, err := engine.AddRewardPoolFunds(spec.owner, spec.rewardPool); err != nil {
			return fmt.Errorf("rewardPool: %w", err)
		}
	}
	return nil
}
