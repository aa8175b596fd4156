package passphrase

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

const testEnv = "CAFI_TEST_KEYSTORE_PASS"

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv(testEnv, "  hunter2  ")
	src := NewSource(testEnv)
	src.isTerminal = func() bool { t.Fatal("terminal should not be consulted"); return false }

	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "  hunter2  ", value)
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv(testEnv, "   ")
	_, err := NewSource(testEnv).Get()
	require.ErrorContains(t, err, "set but empty")
}

func TestSourceWithoutTerminal(t *testing.T) {
	src := NewSource("")
	src.isTerminal = func() bool { return false }
	_, err := src.Get()
	require.ErrorContains(t, err, "no terminal")
}

func TestSourcePromptsAndCaches(t *testing.T) {
	calls := 0
	src := NewSource("").WithConfirmation()
	src.isTerminal = func() bool { return true }
	src.prompt = io.Discard
	src.readSecret = func() ([]byte, error) {
		calls++
		return []byte("correct horse"), nil
	}

	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "correct horse", value)
	value, err = src.Get()
	require.NoError(t, err)
	require.Equal(t, "correct horse", value)
	require.Equal(t, 2, calls)
}

func TestSourceConfirmationMismatch(t *testing.T) {
	answers := []string{"first", "second"}
	src := NewSource("").WithConfirmation()
	src.isTerminal = func() bool { return true }
	src.prompt = io.Discard
	src.readSecret = func() ([]byte, error) {
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
	_, err := src.Get()
	require.ErrorContains(t, err, "do not match")
}
