package bank

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"cafichain/core/events"
	corestate "cafichain/core/state"
	"cafichain/crypto"
	nativecommon "cafichain/native/common"
)

// Error is a ledger rejection. Callers propagate it unchanged; Rejection
// distinguishes user-caused failures from storage faults.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the sentinel for errors.Is.
func (e *Error) Unwrap() error { return e.kind }

// Rejection reports that the call was refused rather than failed.
func (e *Error) Rejection() bool { return true }

var (
	ErrInsufficientBalance   = errors.New("bank: insufficient balance")
	ErrInsufficientAllowance = errors.New("bank: insufficient allowance")
	ErrUnknownToken          = errors.New("bank: unknown token")
	ErrZeroAddress           = errors.New("bank: zero address")
)

func reject(kind error, format string, args ...interface{}) error {
	return &Error{kind: kind, msg: fmt.Sprintf("%s: %s", kind, fmt.Sprintf(format, args...))}
}

// Hook runs after a transfer has been applied and before Transfer returns.
// A non-nil error fails the transfer.
type Hook func(evt events.Transfer) error

// Ledger implements token balances and allowances on top of the state
// manager. Every operation checks all preconditions before writing.
type Ledger struct {
	state   *corestate.Manager
	emitter events.Emitter
	hook    Hook
}

// NewLedger constructs a ledger over the provided state manager.
func NewLedger(state *corestate.Manager) *Ledger {
	return &Ledger{state: state, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the sink for transfer and approval events.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	l.emitter = emitter
}

// SetHook installs a post-transfer hook. Passing nil removes it.
func (l *Ledger) SetHook(hook Hook) { l.hook = hook }

func (l *Ledger) token(symbol string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" || !l.state.TokenExists(normalized) {
		return "", reject(ErrUnknownToken, "%q", symbol)
	}
	return normalized, nil
}

func checkTransferAmount(amount *big.Int) error {
	if err := nativecommon.CheckAmount(amount); err != nil {
		return &Error{kind: nativecommon.ErrInvalidAmount, msg: err.Error()}
	}
	if amount.Sign() == 0 {
		return &Error{kind: nativecommon.ErrInvalidAmount, msg: "invalid amount: zero"}
	}
	return nil
}

// BalanceOf returns the balance of account in token.
func (l *Ledger) BalanceOf(token string, account crypto.Address) (*big.Int, error) {
	symbol, err := l.token(token)
	if err != nil {
		return nil, err
	}
	return l.state.Balance(account.Bytes(), symbol)
}

// Allowance returns what spender may still move out of owner's balance.
func (l *Ledger) Allowance(token string, owner, spender crypto.Address) (*big.Int, error) {
	symbol, err := l.token(token)
	if err != nil {
		return nil, err
	}
	return l.state.Allowance(owner.Bytes(), spender.Bytes(), symbol)
}

// Approve sets the allowance of spender over owner's balance, replacing any
// previous value.
func (l *Ledger) Approve(token string, owner, spender crypto.Address, amount *big.Int) error {
	symbol, err := l.token(token)
	if err != nil {
		return err
	}
	if owner.IsZero() || spender.IsZero() {
		return reject(ErrZeroAddress, "approve")
	}
	if err := nativecommon.CheckAmount(amount); err != nil {
		return &Error{kind: nativecommon.ErrInvalidAmount, msg: err.Error()}
	}
	if err := l.state.SetAllowance(owner.Bytes(), spender.Bytes(), symbol, amount); err != nil {
		return err
	}
	l.emitter.Emit(events.Approval{Token: symbol, Owner: owner, Spender: spender, Amount: new(big.Int).Set(amount)})
	return nil
}

// Transfer moves amount of token from one account to another.
func (l *Ledger) Transfer(token string, from, to crypto.Address, amount *big.Int) error {
	return l.move(token, crypto.Address{}, from, to, amount)
}

// TransferFrom moves amount on behalf of from, consuming spender's allowance.
func (l *Ledger) TransferFrom(token string, spender, from, to crypto.Address, amount *big.Int) error {
	if spender.IsZero() {
		return reject(ErrZeroAddress, "spender")
	}
	return l.move(token, spender, from, to, amount)
}

func (l *Ledger) move(token string, spender, from, to crypto.Address, amount *big.Int) error {
	symbol, err := l.token(token)
	if err != nil {
		return err
	}
	if from.IsZero() || to.IsZero() {
		return reject(ErrZeroAddress, "transfer")
	}
	if err := checkTransferAmount(amount); err != nil {
		return err
	}
	fromBal, err := l.state.Balance(from.Bytes(), symbol)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return reject(ErrInsufficientBalance, "%s has %s %s, needs %s", from, fromBal, symbol, amount)
	}
	var remaining *big.Int
	if !spender.IsZero() {
		allowance, err := l.state.Allowance(from.Bytes(), spender.Bytes(), symbol)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return reject(ErrInsufficientAllowance, "%s may move %s %s, needs %s", spender, allowance, symbol, amount)
		}
		remaining = new(big.Int).Sub(allowance, amount)
	}

	if remaining != nil {
		if err := l.state.SetAllowance(from.Bytes(), spender.Bytes(), symbol, remaining); err != nil {
			return err
		}
	}
	if err := l.state.SetBalance(from.Bytes(), symbol, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	toBal, err := l.state.Balance(to.Bytes(), symbol)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(to.Bytes(), symbol, new(big.Int).Add(toBal, amount)); err != nil {
		return err
	}

	evt := events.Transfer{Token: symbol, From: from, To: to, Amount: new(big.Int).Set(amount), Spender: spender}
	l.emitter.Emit(evt)
	if l.hook != nil {
		if err := l.hook(evt); err != nil {
			return fmt.Errorf("bank: transfer hook: %w", err)
		}
	}
	return nil
}

// Mint credits new supply to an account. It is used by genesis.
func (l *Ledger) Mint(token string, to crypto.Address, amount *big.Int) error {
	symbol, err := l.token(token)
	if err != nil {
		return err
	}
	if to.IsZero() {
		return reject(ErrZeroAddress, "mint")
	}
	if err := checkTransferAmount(amount); err != nil {
		return err
	}
	bal, err := l.state.Balance(to.Bytes(), symbol)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(to.Bytes(), symbol, new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.Mint{Token: symbol, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}
