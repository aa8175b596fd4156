package farming

import (
	"errors"

	nativecommon "cafichain/native/common"
)

// Validation errors.
var (
	ErrInvalidAmount     = errors.New("farming: amount must be positive")
	ErrBelowMinimumStake = errors.New("farming: amount below package minimum stake")
	ErrPackageNotFound   = errors.New("farming: package not found")
	ErrPackageInactive   = errors.New("farming: package inactive")
	ErrStakeNotFound     = errors.New("farming: stake index out of range")
	ErrAPYAboveCap       = errors.New("farming: apy exceeds configured cap")
	ErrInvalidAPYCap     = errors.New("farming: apy cap must not exceed 10000 bps")
	ErrInvalidLock       = errors.New("farming: lock duration must be positive")
	ErrLockTooLong       = errors.New("farming: lock duration exceeds maximum")
	ErrInvalidFee        = errors.New("farming: fee must not exceed 10000 bps")
	ErrZeroAddress       = errors.New("farming: zero address")
	ErrInvalidToken      = errors.New("farming: token symbol required")
)

// Precondition errors.
var (
	ErrStillLocked         = errors.New("farming: stake still locked")
	ErrAlreadyClaimed      = errors.New("farming: stake already claimed")
	ErrAutoCompoundOff     = errors.New("farming: auto-compounding disabled")
	ErrNothingToWithdraw   = errors.New("farming: no pending rewards")
	ErrReentrantCall       = errors.New("farming: reentrant call")
	ErrAlreadyInPauseState = errors.New("farming: pause state unchanged")
	ErrAlreadyInitialised  = errors.New("farming: module already initialised")
)

// Solvency errors.
var (
	ErrInsufficientRewardPool = errors.New("farming: insufficient reward pool")
)

// Authorization errors.
var (
	ErrUnauthorized = errors.New("farming: caller is not the owner")
)

// Internal errors.
var (
	errNilState     = errors.New("farming engine: state not configured")
	errNilLedger    = errors.New("farming engine: token ledger not configured")
	errNilAuthority = errors.New("farming engine: authority not configured")
	errNoParams     = errors.New("farming engine: params not initialised")
)

// Kind classifies an error into the rejection taxonomy used by callers to map
// failures onto transport status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindPrecondition
	KindSolvency
	KindAuthorization
	KindPaused
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindSolvency:
		return "solvency"
	case KindAuthorization:
		return "authorization"
	case KindPaused:
		return "paused"
	default:
		return "internal"
	}
}

var kindTable = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidAmount, KindValidation},
	{ErrBelowMinimumStake, KindValidation},
	{ErrPackageNotFound, KindValidation},
	{ErrPackageInactive, KindValidation},
	{ErrStakeNotFound, KindValidation},
	{ErrAPYAboveCap, KindValidation},
	{ErrInvalidAPYCap, KindValidation},
	{ErrInvalidLock, KindValidation},
	{ErrLockTooLong, KindValidation},
	{ErrInvalidFee, KindValidation},
	{ErrZeroAddress, KindValidation},
	{ErrInvalidToken, KindValidation},
	{ErrStillLocked, KindPrecondition},
	{ErrAlreadyClaimed, KindPrecondition},
	{ErrAutoCompoundOff, KindPrecondition},
	{ErrNothingToWithdraw, KindPrecondition},
	{ErrReentrantCall, KindPrecondition},
	{ErrAlreadyInPauseState, KindPrecondition},
	{ErrAlreadyInitialised, KindPrecondition},
	{ErrInsufficientRewardPool, KindSolvency},
	{ErrUnauthorized, KindAuthorization},
	{nativecommon.ErrModulePaused, KindPaused},
	{nativecommon.ErrInvalidAmount, KindValidation},
}

// Classify returns the taxonomy bucket of err. Errors raised by the token
// ledger that satisfy Rejection are reported as precondition failures.
func Classify(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	var rejection interface{ Rejection() bool }
	if errors.As(err, &rejection) && rejection.Rejection() {
		return KindPrecondition
	}
	return KindInternal
}
