package sar

import "math/big"

// summationIncrements converts a claimed reward into increments of the two
// running summations. The multiply-fully-then-divide order is load-bearing:
// reordering changes truncation and therefore payouts.
func summationIncrements(reward *big.Int, now uint64, totalValue *big.Int) (idealPosition, rewardPerValue *big.Int) {
	idealPosition = new(big.Int).Mul(reward, new(big.Int).SetUint64(now))
	idealPosition.Mul(idealPosition, Precision)
	idealPosition.Quo(idealPosition, totalValue)

	rewardPerValue = new(big.Int).Mul(reward, Precision)
	rewardPerValue.Quo(rewardPerValue, totalValue)
	return idealPosition, rewardPerValue
}

// accrueSummations folds a claimed reward into the pool's stored summations.
// When the pool's total value is zero there is no staker to attribute the
// reward to and the increment is zero: emission during a zero-value interval
// is permanently skipped, never rolled forward.
func (p *Pool) accrueSummations(now uint64, reward *big.Int) {
	if reward == nil || reward.Sign() == 0 {
		return
	}
	totalValue := p.ValueVariables.value(now)
	if totalValue.Sign() <= 0 {
		return
	}
	ideal, rpv := summationIncrements(reward, now, totalValue)
	p.RewardSummationsStored.IdealPosition = new(big.Int).Add(bigOrZero(p.RewardSummationsStored.IdealPosition), ideal)
	p.RewardSummationsStored.RewardPerValue = new(big.Int).Add(bigOrZero(p.RewardSummationsStored.RewardPerValue), rpv)
}

// pendingAgainst recovers the user's pending reward from the delta between
// the supplied stored summations and the user's paid snapshot:
//
//	stashed + ((Δideal - Δrpv*lastUpdate)*balance + Δrpv*previousValues) / Precision
//
// The formula attributes to the user exactly the share of each interval's
// reward proportional to the value the user accrued during that interval,
// with previousValues carrying the contribution of stake that entered before
// the last top-up.
func (u *User) pendingAgainst(stored RewardSummations) *big.Int {
	if u == nil || u.LastUpdate == 0 {
		return big.NewInt(0)
	}
	deltaIdeal := new(big.Int).Sub(bigOrZero(stored.IdealPosition), bigOrZero(u.RewardSummationsPaid.IdealPosition))
	deltaRPV := new(big.Int).Sub(bigOrZero(stored.RewardPerValue), bigOrZero(u.RewardSummationsPaid.RewardPerValue))

	aged := new(big.Int).Mul(deltaRPV, new(big.Int).SetUint64(u.LastUpdate))
	aged.Sub(deltaIdeal, aged)
	aged.Mul(aged, bigOrZero(u.ValueVariables.Balance))

	previous := new(big.Int).Mul(deltaRPV, bigOrZero(u.PreviousValues))
	aged.Add(aged, previous)
	aged.Quo(aged, Precision)
	return aged.Add(aged, bigOrZero(u.StashedRewards))
}

// pendingRewards recovers the user's pending reward against the pool's stored
// summations as they are, i.e. after an updatePoolSummations in the same
// transaction.
func (u *User) pendingRewards(pool *Pool) *big.Int {
	return u.pendingAgainst(pool.RewardSummationsStored)
}

// projectedSummations simulates the increment a claim of pendingClaim would
// apply right now, without mutating the pool. Read-only queries use it to
// report rewards as if the pool had just been updated.
func (p *Pool) projectedSummations(now uint64, pendingClaim *big.Int) RewardSummations {
	projected := p.RewardSummationsStored.Clone()
	projected.normalize()
	if pendingClaim == nil || pendingClaim.Sign() == 0 {
		return projected
	}
	totalValue := p.ValueVariables.value(now)
	if totalValue.Sign() <= 0 {
		return projected
	}
	ideal, rpv := summationIncrements(pendingClaim, now, totalValue)
	projected.IdealPosition.Add(projected.IdealPosition, ideal)
	projected.RewardPerValue.Add(projected.RewardPerValue, rpv)
	return projected
}
