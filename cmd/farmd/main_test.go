package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cafichain/config"
	"cafichain/core"
	"cafichain/crypto"
)

func TestResolveGenesisPathPrecedence(t *testing.T) {
	lookup := func(key string) (string, bool) {
		require.Equal(t, genesisPathEnv, key)
		return " env-path ", true
	}
	empty := func(string) (string, bool) { return "", false }

	require.Equal(t, "cli-path", resolveGenesisPath(" cli-path ", "cfg-path", lookup))
	require.Equal(t, "env-path", resolveGenesisPath("", "cfg-path", lookup))
	require.Equal(t, "cfg-path", resolveGenesisPath("", " cfg-path ", empty))
	require.Empty(t, resolveGenesisPath("", "", empty))
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.EventLogDSN = filepath.Join(dir, "events.db")
	require.NoError(t, cfg.Validate())
	return cfg
}

func writeGenesis(t *testing.T, dir string, owner crypto.Address) string {
	t.Helper()
	doc := fmt.Sprintf(`owner: %s
tokens:
  - symbol: CAFI
    decimals: 18
  - symbol: LP
    decimals: 18
alloc:
  %s:
    CAFI: "1000000"
packages:
  - name: monthly
    stakeToken: LP
    lockDuration: 2592000
    apyBps: 1500
rewardPool: "400000"
`, owner, owner)
	path := filepath.Join(dir, "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestOpenNodeAppliesGenesisOnce(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	raw := make([]byte, crypto.AddressLength)
	raw[0] = 7
	owner := crypto.MustNewAddress(crypto.CafiPrefix, raw)
	genesisPath := writeGenesis(t, dir, owner)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	n, err := openNode(ctx, cfg, genesisPath, logger)
	require.NoError(t, err)

	require.NoError(t, n.processor.View(ctx, func(tx *core.Tx) error {
		pool, err := tx.Farming.Pool()
		require.NoError(t, err)
		require.Equal(t, big.NewInt(400_000), pool.RewardBalance)
		params, err := tx.Farming.Params()
		require.NoError(t, err)
		require.Equal(t, cfg.Farming.MaxAPYBps, params.MaxAPYBps)
		return nil
	}))
	seq, err := n.store.LastSequence(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)
	n.Close()

	reopened, err := openNode(ctx, cfg, "", logger)
	require.NoError(t, err)
	defer reopened.Close()
	seq, err = reopened.store.LastSequence(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)
}

func TestOpenNodeRequiresGenesisOnFreshState(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.StorageBackend = "memory"

	_, err := openNode(context.Background(), cfg, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.ErrorContains(t, err, "no genesis file provided")
}

func TestExportEventsWritesParquet(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	raw := make([]byte, crypto.AddressLength)
	raw[0] = 9
	owner := crypto.MustNewAddress(crypto.CafiPrefix, raw)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	n, err := openNode(ctx, cfg, writeGenesis(t, dir, owner), logger)
	require.NoError(t, err)
	n.Close()

	out := filepath.Join(dir, "events.parquet")
	rows, err := exportEvents(ctx, cfg.EventLogDSN, out, logger)
	require.NoError(t, err)
	require.Positive(t, rows)
	info, err := os.Stat(out)
	require.NoError(t, err)
	require.NotZero(t, info.Size())
}
