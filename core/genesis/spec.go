package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cafichain/crypto"
	nativecommon "cafichain/native/common"
	"cafichain/native/farming"
)

type GenesisSpec struct {
	Owner      string                       `yaml:"owner"`
	Tokens     []TokenSpec                  `yaml:"tokens"`
	Alloc      map[string]map[string]string `yaml:"alloc"` // addr -> token -> amount
	Farming    farming.Config               `yaml:"farming"`
	Packages   []PackageSpec                `yaml:"packages"`
	RewardPool string                       `yaml:"rewardPool,omitempty"`

	owner      crypto.Address
	params     farming.Params
	rewardPool *big.Int
}

type TokenSpec struct {
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Decimals uint8  `yaml:"decimals"`
}

type PackageSpec struct {
	Name         string `yaml:"name"`
	StakeToken   string `yaml:"stakeToken"`
	LockDuration uint64 `yaml:"lockDuration"` // seconds
	APYBps       uint64 `yaml:"apyBps"`
	MinStake     string `yaml:"minStake"`
	Active       *bool  `yaml:"active,omitempty"`

	minStake *big.Int
}

// LoadGenesisSpec reads and validates a YAML genesis file. Unknown keys are
// rejected.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	return LoadGenesisSpecWithDefaults(path, farming.Config{})
}

// LoadGenesisSpecWithDefaults behaves like LoadGenesisSpec but substitutes
// defaults when the file carries no farming section.
func LoadGenesisSpecWithDefaults(path string, defaults farming.Config) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := parseGenesisSpec(raw, defaults)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a YAML genesis document.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	return parseGenesisSpec(raw, farming.Config{})
}

func parseGenesisSpec(raw []byte, defaults farming.Config) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if spec.Farming == (farming.Config{}) {
		spec.Farming = defaults
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) validate() error {
	owner, err := crypto.DecodeAddress(strings.TrimSpace(s.Owner))
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	if owner.IsZero() {
		return fmt.Errorf("owner must not be the zero address")
	}
	s.owner = owner

	if s.Farming.RewardToken == "" {
		s.Farming.RewardToken = farming.DefaultConfig().RewardToken
	}
	params, err := s.Farming.Params()
	if err != nil {
		return fmt.Errorf("farming: %w", err)
	}
	s.params = params

	symbols := make(map[string]struct{}, len(s.Tokens))
	for i, token := range s.Tokens {
		symbol := strings.ToUpper(strings.TrimSpace(token.Symbol))
		if symbol == "" {
			return fmt.Errorf("tokens[%d]: symbol required", i)
		}
		if _, dup := symbols[symbol]; dup {
			return fmt.Errorf("tokens[%d]: duplicate symbol %q", i, symbol)
		}
		symbols[symbol] = struct{}{}
	}
	if _, ok := symbols[params.RewardToken]; !ok {
		return fmt.Errorf("farming: reward token %q is not declared", params.RewardToken)
	}

	for addr, balances := range s.Alloc {
		if _, err := crypto.DecodeAddress(addr); err != nil {
			return fmt.Errorf("alloc[%q]: %w", addr, err)
		}
		for symbol, amount := range balances {
			if _, ok := symbols[strings.ToUpper(strings.TrimSpace(symbol))]; !ok {
				return fmt.Errorf("alloc[%q][%q]: unknown token", addr, symbol)
			}
			if _, err := nativecommon.ParseAmount(amount); err != nil {
				return fmt.Errorf("alloc[%q][%q]: %w", addr, symbol, err)
			}
		}
	}

	for i := range s.Packages {
		pkg := &s.Packages[i]
		if _, ok := symbols[strings.ToUpper(strings.TrimSpace(pkg.StakeToken))]; !ok {
			return fmt.Errorf("packages[%d]: unknown stake token %q", i, pkg.StakeToken)
		}
		minStake := big.NewInt(0)
		if strings.TrimSpace(pkg.MinStake) != "" {
			parsed, err := nativecommon.ParseAmount(pkg.MinStake)
			if err != nil {
				return fmt.Errorf("packages[%d].minStake: %w", i, err)
			}
			minStake = parsed
		}
		pkg.minStake = minStake
	}

	s.rewardPool = big.NewInt(0)
	if strings.TrimSpace(s.RewardPool) != "" {
		amount, err := nativecommon.ParseAmount(s.RewardPool)
		if err != nil {
			return fmt.Errorf("rewardPool: %w", err)
		}
		s.rewardPool = amount
	}
	return nil
}

// OwnerAddress returns the decoded module owner.
func (s *GenesisSpec) OwnerAddress() crypto.Address { return s.owner }

// Params returns the validated farming parameters.
func (s *GenesisSpec) Params() farming.Params { return s.params }

func (p PackageSpec) farmingSpec() farming.PackageSpec {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return farming.PackageSpec{
		Name:         strings.TrimSpace(p.Name),
		StakeToken:   strings.ToUpper(strings.TrimSpace(p.StakeToken)),
		LockDuration: p.LockDuration,
		APYBps:       p.APYBps,
		MinStake:     new(big.Int).Set(p.minStake),
		Active:       active,
	}
}
