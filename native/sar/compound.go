package sar

import (
	"math/big"

	nativecommon "sarchef/native/common"
)

// resolveRewardPair loads the pool's staking token as an AMM pair and caches
// which of its two tokens sits opposite the reward token. A staking token that
// is not a pair contract cannot compound (ErrInvalidType); a pair that does
// not include the reward token never will (ErrInvalidToken).
func (e *Engine) resolveRewardPair(pool *Pool) (Pair, error) {
	if e.factory == nil {
		return nil, errNilFactory
	}
	pair, err := e.factory.Pair(pool.TokenOrRecipient)
	if err != nil || pair == nil {
		return nil, ErrInvalidType
	}
	if zeroAddress(pool.RewardPair) {
		token0, token1 := pair.Token0(), pair.Token1()
		switch e.rewardToken {
		case token0:
			pool.RewardPair = token1
		case token1:
			pool.RewardPair = token0
		default:
			return nil, ErrInvalidToken
		}
	}
	return pair, nil
}

// quotePairAmount returns how much of the paired token matches the reward at
// the pair's current reserves: reward*reserveOther/reserveReward, truncated.
func (e *Engine) quotePairAmount(pair Pair, reward *big.Int) (*big.Int, error) {
	reserve0, reserve1, err := pair.Reserves()
	if err != nil {
		return nil, err
	}
	rewardReserve, otherReserve := reserve0, reserve1
	if pair.Token1() == e.rewardToken {
		rewardReserve, otherReserve = reserve1, reserve0
	}
	if bigOrZero(rewardReserve).Sign() == 0 || bigOrZero(otherReserve).Sign() == 0 {
		return nil, ErrInvalidToken
	}
	amount := new(big.Int).Mul(reward, otherReserve)
	return amount.Quo(amount, rewardReserve), nil
}

// checkPairFunding validates the caller's side of the compound without moving
// anything: the quoted amount must fit under the caller's ceiling, and a
// supplied native value must match the ceiling exactly so the two cannot
// disagree about the spend bound. It runs before the funding claim so a
// rejection leaves the schedule untouched.
func (e *Engine) checkPairFunding(pairToken [20]byte, pairAmount, maxPairAmount, nativeValue *big.Int) error {
	if pairAmount.Cmp(maxPairAmount) > 0 {
		return ErrHighSlippage
	}
	if nativeValue != nil && nativeValue.Sign() > 0 {
		if e.wnative == nil {
			return errNilWrappedNative
		}
		if pairToken != e.wnative.Token() {
			return ErrInvalidAmount
		}
		if nativeValue.Cmp(maxPairAmount) != 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}

// executePairFunding moves pairAmount of the paired token into the pair,
// either by wrapping caller-supplied native value or by pulling the caller's
// wrapped tokens. checkPairFunding must have accepted the same arguments.
func (e *Engine) executePairFunding(pairToken, pairAddr, caller [20]byte, pairAmount, nativeValue *big.Int) error {
	if nativeValue != nil && nativeValue.Sign() > 0 {
		return e.wnative.Deposit(pairAddr, pairAmount)
	}
	return e.tokens.TransferFrom(pairToken, caller, pairAddr, pairAmount)
}

// Compound converts the caller's pending reward in a pair pool into more
// stake: the reward plus caller-supplied paired tokens (bounded by
// maxPairAmount) become liquidity, and the minted liquidity tokens are staked
// under the top-up rule. The stash is cleared since no reward remains
// un-compounded. All rejections that depend only on current state fire before
// the funding claim and before any token moves.
func (e *Engine) Compound(poolID uint64, caller [20]byte, maxPairAmount, nativeValue *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if maxPairAmount == nil || maxPairAmount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	pool, err := e.getERC20Pool(poolID)
	if err != nil {
		return nil, err
	}
	position, err := e.getUser(poolID, caller)
	if err != nil {
		return nil, err
	}
	reward, err := e.pendingBeforeClaim(poolID, pool, position)
	if err != nil {
		return nil, err
	}
	if reward.Sign() == 0 {
		return nil, ErrNoEffect
	}
	pair, err := e.resolveRewardPair(pool)
	if err != nil {
		return nil, err
	}
	pairAmount, err := e.quotePairAmount(pair, reward)
	if err != nil {
		return nil, err
	}
	if err := e.checkPairFunding(pool.RewardPair, pairAmount, maxPairAmount, nativeValue); err != nil {
		return nil, err
	}

	if err := e.updatePoolSummations(poolID, pool); err != nil {
		return nil, err
	}
	position.snapshotNoReset(e.now, pool.RewardSummationsStored)
	position.StashedRewards = big.NewInt(0)

	pairAddr := pool.TokenOrRecipient
	if err := e.executePairFunding(pool.RewardPair, pairAddr, caller, pairAmount, nativeValue); err != nil {
		return nil, err
	}
	if err := e.tokens.Transfer(e.rewardToken, pairAddr, reward); err != nil {
		return nil, err
	}
	liquidity, err := pair.Mint(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if bigOrZero(liquidity).Sign() == 0 {
		return nil, ErrNoEffect
	}
	newTotal := new(big.Int).Add(pool.ValueVariables.Balance, liquidity)
	if newTotal.Cmp(MaxStakedAmount) > 0 {
		return nil, ErrOverflow
	}

	position.ValueVariables.addStake(e.now, liquidity)
	pool.ValueVariables.addStake(e.now, liquidity)

	if err := e.notifyRewarder(poolID, pool, caller, caller, reward, position.ValueVariables.Balance); err != nil {
		return nil, err
	}

	if err := e.state.PutUser(poolID, caller, position); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(poolID, pool); err != nil {
		return nil, err
	}

	e.emit(stakedEvent(poolID, caller, liquidity, reward))
	return liquidity, nil
}

// CompoundToPoolZero harvests a source pool's pending reward without
// resetting its duration, pairs it with caller-supplied native or
// wrapped-native value, and stakes the minted pool-zero liquidity under the
// caller. Because the duration reset is skipped, the caller's pool-zero
// position stays locked until the source pool's clock does restart; pool zero
// itself must use ordinary compounding.
//
// The two pools move together or not at all: every rejection is checked
// before either funding claim, and nothing is persisted until the liquidity
// has been minted.
func (e *Engine) CompoundToPoolZero(poolID uint64, caller [20]byte, maxPairAmount, nativeValue *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if maxPairAmount == nil || maxPairAmount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if poolID == PoolZeroID {
		return nil, ErrInvalidType
	}
	srcPool, err := e.getERC20Pool(poolID)
	if err != nil {
		return nil, err
	}
	srcPosition, err := e.getUser(poolID, caller)
	if err != nil {
		return nil, err
	}
	reward, err := e.pendingBeforeClaim(poolID, srcPool, srcPosition)
	if err != nil {
		return nil, err
	}
	if reward.Sign() == 0 {
		return nil, ErrNoEffect
	}
	poolZero, err := e.getERC20Pool(PoolZeroID)
	if err != nil {
		return nil, err
	}
	zeroPosition, err := e.getUser(PoolZeroID, caller)
	if err != nil {
		return nil, err
	}
	pair, err := e.resolveRewardPair(poolZero)
	if err != nil {
		return nil, err
	}
	pairAmount, err := e.quotePairAmount(pair, reward)
	if err != nil {
		return nil, err
	}
	if err := e.checkPairFunding(poolZero.RewardPair, pairAmount, maxPairAmount, nativeValue); err != nil {
		return nil, err
	}

	if err := e.updatePoolSummations(poolID, srcPool); err != nil {
		return nil, err
	}
	srcPosition.snapshotNoReset(e.now, srcPool.RewardSummationsStored)
	srcPosition.StashedRewards = big.NewInt(0)
	locks, err := e.takeLock(caller, srcPosition)
	if err != nil {
		return nil, err
	}

	if err := e.updatePoolSummations(PoolZeroID, poolZero); err != nil {
		return nil, err
	}
	stashed := zeroPosition.pendingRewards(poolZero)
	zeroPosition.snapshotNoReset(e.now, poolZero.RewardSummationsStored)
	zeroPosition.StashedRewards = stashed

	pairAddr := poolZero.TokenOrRecipient
	if err := e.executePairFunding(poolZero.RewardPair, pairAddr, caller, pairAmount, nativeValue); err != nil {
		return nil, err
	}
	if err := e.tokens.Transfer(e.rewardToken, pairAddr, reward); err != nil {
		return nil, err
	}
	liquidity, err := pair.Mint(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if bigOrZero(liquidity).Sign() == 0 {
		return nil, ErrNoEffect
	}
	newTotal := new(big.Int).Add(poolZero.ValueVariables.Balance, liquidity)
	if newTotal.Cmp(MaxStakedAmount) > 0 {
		return nil, ErrOverflow
	}

	zeroPosition.ValueVariables.addStake(e.now, liquidity)
	poolZero.ValueVariables.addStake(e.now, liquidity)

	if err := e.notifyRewarder(PoolZeroID, poolZero, caller, caller, reward, zeroPosition.ValueVariables.Balance); err != nil {
		return nil, err
	}

	if err := e.state.PutUser(poolID, caller, srcPosition); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(poolID, srcPool); err != nil {
		return nil, err
	}
	if err := e.state.PutUser(PoolZeroID, caller, zeroPosition); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(PoolZeroID, poolZero); err != nil {
		return nil, err
	}
	if locks != nil {
		if err := e.state.SetPoolZeroLocks(caller, *locks); err != nil {
			return nil, err
		}
	}

	e.emit(withdrawnEvent(poolID, caller, big.NewInt(0), reward))
	e.emit(stakedEvent(PoolZeroID, caller, liquidity, reward))
	return liquidity, nil
}
