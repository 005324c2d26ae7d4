package sar

import "math/big"

// value returns the time-integrated stake now*balance - sumOfEntryTimes. The
// result is never negative while the entry-time bookkeeping below is followed.
func (v *ValueVariables) value(now uint64) *big.Int {
	total := new(big.Int).SetUint64(now)
	total.Mul(total, bigOrZero(v.Balance))
	return total.Sub(total, bigOrZero(v.SumOfEntryTimes))
}

// addStake applies the top-up rule: the added amount enters at the current
// timestamp while every previously staked unit keeps its original entry time,
// so existing stake keeps its age.
func (v *ValueVariables) addStake(now uint64, amount *big.Int) {
	entry := new(big.Int).SetUint64(now)
	entry.Mul(entry, amount)
	v.SumOfEntryTimes = new(big.Int).Add(bigOrZero(v.SumOfEntryTimes), entry)
	v.Balance = new(big.Int).Add(bigOrZero(v.Balance), amount)
}

// resetEntryTimes restarts the staking clock for the remaining balance after a
// withdrawal: every remaining unit is treated as having entered now. The
// returned delta (new minus old sum) lets the caller keep the pool aggregate
// consistent with the sum over its users.
func (v *ValueVariables) resetEntryTimes(now uint64, remaining *big.Int) *big.Int {
	fresh := new(big.Int).SetUint64(now)
	fresh.Mul(fresh, remaining)
	delta := new(big.Int).Sub(fresh, bigOrZero(v.SumOfEntryTimes))
	v.SumOfEntryTimes = fresh
	v.Balance = new(big.Int).Set(remaining)
	return delta
}
