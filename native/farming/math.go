package farming

import "math/big"

const (
	// BasisPoints is the denominator for APY and fee ratios.
	BasisPoints = 10_000
	// SecondsPerYear fixes the accrual year at 365 days.
	SecondsPerYear = 365 * 24 * 60 * 60
)

var (
	basisPointsInt = big.NewInt(BasisPoints)
	// yearDenominator = BasisPoints * SecondsPerYear.
	yearDenominator = new(big.Int).Mul(basisPointsInt, big.NewInt(SecondsPerYear))
)

// EffectiveEndTime returns the timestamp up to which a stake accrues.
//
// Stakes without auto-compounding stop at UnlockTime. Auto-compounding stakes
// keep accruing once the lock has passed. The result never exceeds now.
func EffectiveEndTime(record *StakeRecord, now uint64) uint64 {
	end := record.UnlockTime
	if record.AutoCompound && now > record.UnlockTime {
		end = now
	}
	if end > now {
		end = now
	}
	return end
}

// CalculateReward computes
//
//	floor(principal * apyBps * elapsed / (10000 * SecondsPerYear))
//
// where principal = Amount + Compounded and elapsed runs from StakeTime to
// EffectiveEndTime. Truncation loss is not compensated.
func CalculateReward(record *StakeRecord, pkg *Package, now uint64) *big.Int {
	if record == nil || pkg == nil {
		return big.NewInt(0)
	}
	principal := record.Principal()
	if principal.Sign() == 0 || pkg.APYBps == 0 {
		return big.NewInt(0)
	}
	end := EffectiveEndTime(record, now)
	if end <= record.StakeTime {
		return big.NewInt(0)
	}
	elapsed := end - record.StakeTime
	return accrue(principal, pkg.APYBps, elapsed)
}

func accrue(principal *big.Int, apyBps, elapsed uint64) *big.Int {
	reward := new(big.Int).Mul(principal, new(big.Int).SetUint64(apyBps))
	reward.Mul(reward, new(big.Int).SetUint64(elapsed))
	return reward.Quo(reward, yearDenominator)
}

// SplitFee deducts feeBps from total, truncating the fee toward zero. It
// returns the fee and the net remainder.
func SplitFee(total *big.Int, feeBps uint64) (*big.Int, *big.Int) {
	if total == nil || total.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	fee := new(big.Int).Mul(total, new(big.Int).SetUint64(feeBps))
	fee.Quo(fee, basisPointsInt)
	net := new(big.Int).Sub(total, fee)
	return fee, net
}
