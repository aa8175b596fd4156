package genesis

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cafichain/core"
	"cafichain/crypto"
	"cafichain/native/farming"
	"cafichain/storage"
)

func testAddress(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[0] = b
	return crypto.MustNewAddress(crypto.CafiPrefix, raw)
}

func sampleSpec(owner, user, feeTo crypto.Address) string {
	return fmt.Sprintf(`owner: %s
tokens:
  - symbol: cafi
    name: Cafi
    decimals: 18
  - symbol: LP
    decimals: 18
alloc:
  %s:
    CAFI: "5000000"
  %s:
    LP: "250000"
farming:
  maxApyBps: 3000
  feeBps: 100
  feeReceiver: %s
  rewardToken: CAFI
packages:
  - name: monthly
    stakeToken: LP
    lockDuration: 2592000
    apyBps: 1500
    minStake: "100"
  - name: retired
    stakeToken: LP
    lockDuration: 86400
    apyBps: 500
    active: false
rewardPool: "1000000"
`, owner, owner, user, feeTo)
}

func TestParseGenesisSpecRejectsUnknownFields(t *testing.T) {
	_, err := ParseGenesisSpec([]byte("owner: x\nvalidators: []\n"))
	require.Error(t, err)
}

func TestParseGenesisSpecValidation(t *testing.T) {
	owner := testAddress(1)
	cases := map[string]string{
		"undeclared reward token": fmt.Sprintf("owner: %s\ntokens:\n  - symbol: LP\n", owner),
		"bad owner":               "owner: nope\ntokens:\n  - symbol: CAFI\n",
		"unknown alloc token":     fmt.Sprintf("owner: %s\ntokens:\n  - symbol: CAFI\nalloc:\n  %s:\n    LP: \"1\"\n", owner, owner),
		"negative min stake": fmt.Sprintf("owner: %s\ntokens:\n  - symbol: CAFI\npackages:\n  - name: x\n    stakeToken: CAFI\n    minStake: \"-1\"\n",
			owner),
		"fee without receiver": fmt.Sprintf("owner: %s\ntokens:\n  - symbol: CAFI\nfarming:\n  feeBps: 10\n", owner),
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGenesisSpec([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestApplyBuildsFarmingState(t *testing.T) {
	owner, user, feeTo := testAddress(1), testAddress(2), testAddress(3)
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSpec(owner, user, feeTo)), 0o600))

	spec, err := LoadGenesisSpec(path)
	require.NoError(t, err)
	require.True(t, spec.OwnerAddress().Equal(owner))

	proc, err := core.NewProcessor(storage.NewMemDB(), core.NewFixedClock(time.Unix(1_700_000_000, 0)), core.WithMetrics(nil))
	require.NoError(t, err)
	apply := func(tx *core.Tx) error { return Apply(tx.State, tx.Bank, tx.Farming, spec) }

	_, err = proc.Execute(context.Background(), "genesis", owner, apply)
	require.NoError(t, err)

	require.NoError(t, proc.View(context.Background(), func(tx *core.Tx) error {
		done, err := Initialised(tx.State)
		require.NoError(t, err)
		require.True(t, done)

		params, err := tx.Farming.Params()
		require.NoError(t, err)
		require.Equal(t, uint64(3000), params.MaxAPYBps)
		require.Equal(t, uint64(100), params.FeeBps)
		require.True(t, params.FeeReceiver.Equal(feeTo))

		pkgs, err := tx.Farming.Packages()
		require.NoError(t, err)
		require.Len(t, pkgs, 2)
		require.Equal(t, "monthly", pkgs[0].Name)
		require.True(t, pkgs[0].Active)
		require.Equal(t, big.NewInt(100), pkgs[0].MinStake)
		require.False(t, pkgs[1].Active)

		pool, err := tx.Farming.Pool()
		require.NoError(t, err)
		require.Equal(t, big.NewInt(1_000_000), pool.RewardBalance)

		ownerBal, err := tx.Bank.BalanceOf("CAFI", owner)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(4_000_000), ownerBal)
		userBal, err := tx.Bank.BalanceOf("LP", user)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(250_000), userBal)
		require.True(t, tx.State.IsOwner(owner))
		return nil
	}))

	_, err = proc.Execute(context.Background(), "genesis", owner, apply)
	require.ErrorIs(t, err, ErrAlreadyApplied)
}

func TestApplyFailureLeavesStateEmpty(t *testing.T) {
	owner, user, feeTo := testAddress(1), testAddress(2), testAddress(3)
	spec, err := ParseGenesisSpec([]byte(sampleSpec(owner, user, feeTo)))
	require.NoError(t, err)
	spec.Packages[0].APYBps = 9000 // above the 3000 cap

	db := storage.NewMemDB()
	proc, err := core.NewProcessor(db, core.NewFixedClock(time.Unix(1_700_000_000, 0)), core.WithMetrics(nil))
	require.NoError(t, err)
	_, err = proc.Execute(context.Background(), "genesis", owner, func(tx *core.Tx) error {
		return Apply(tx.State, tx.Bank, tx.Farming, spec)
	})
	require.Error(t, err)
	require.Zero(t, db.Len())
}

func TestLoadGenesisSpecWithDefaultsFillsMissingFarming(t *testing.T) {
	owner := testAddress(1)
	doc := fmt.Sprintf("owner: %s\ntokens:\n  - symbol: CAFI\n  - symbol: LP\npackages:\n  - name: weekly\n    stakeToken: LP\n    lockDuration: 604800\n    apyBps: 1200\n", owner)
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	spec, err := LoadGenesisSpecWithDefaults(path, farming.Config{MaxAPYBps: 2000, RewardToken: "cafi"})
	require.NoError(t, err)
	require.Equal(t, uint64(2000), spec.Params().MaxAPYBps)
	require.Equal(t, "CAFI", spec.Params().RewardToken)

	explicit := doc + "farming:\n  maxApyBps: 1500\n"
	spec, err = ParseGenesisSpec([]byte(explicit))
	require.NoError(t, err)
	require.Equal(t, uint64(1500), spec.Params().MaxAPYBps)
}
