package sar

import (
	"math/big"

	nativecommon "sarchef/native/common"
)

// InitializePoolZero appends the designated compounding destination as pool
// zero. The pool's staking token must be the liquidity pair of the reward
// token and the wrapped native token; without that pair the pool-zero flows
// cannot work and initialisation fails with ErrNullInput. It can only run on
// an empty registry.
func (e *Engine) InitializePoolZero() error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.factory == nil {
		return errNilFactory
	}
	if e.wnative == nil {
		return errNilWrappedNative
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	length, err := e.state.PoolsLength()
	if err != nil {
		return err
	}
	if length != 0 {
		return errAlreadyInitialized
	}
	pairAddr, err := e.factory.GetPair(e.rewardToken, e.wnative.Token())
	if err != nil {
		return err
	}
	if zeroAddress(pairAddr) {
		return ErrNullInput
	}
	pool := &Pool{
		TokenOrRecipient: pairAddr,
		PoolType:         PoolTypeERC20,
		// The pair of pool zero is reward/wrapped-native by construction,
		// so the reward pair needs no lazy resolution.
		RewardPair: e.wnative.Token(),
	}
	pool.normalize()
	if err := e.state.PutPool(PoolZeroID, pool); err != nil {
		return err
	}
	if err := e.state.SetPoolsLength(1); err != nil {
		return err
	}
	e.emit(poolInitializedEvent(PoolZeroID, pairAddr))
	return nil
}

// InitializePool appends a new pool slot and assigns it the next sequential
// id. ERC20 pools stake the given token; relayer pools pay their whole
// emission to the given recipient. Privileged.
func (e *Engine) InitializePool(caller, tokenOrRecipient [20]byte, poolType PoolType) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.operator {
		return 0, ErrUnprivilegedCaller
	}
	if zeroAddress(tokenOrRecipient) || poolType == PoolTypeUnset {
		return 0, ErrNullInput
	}
	if poolType != PoolTypeERC20 && poolType != PoolTypeRelayer {
		return 0, ErrInvalidType
	}
	if poolType == PoolTypeERC20 && !e.tokens.HasCode(tokenOrRecipient) {
		return 0, ErrInvalidToken
	}

	poolID, err := e.state.PoolsLength()
	if err != nil {
		return 0, err
	}
	pool := &Pool{
		TokenOrRecipient: tokenOrRecipient,
		PoolType:         poolType,
	}
	pool.normalize()
	if err := e.state.PutPool(poolID, pool); err != nil {
		return 0, err
	}
	if err := e.state.SetPoolsLength(poolID + 1); err != nil {
		return 0, err
	}
	e.emit(poolInitializedEvent(poolID, tokenOrRecipient))
	return poolID, nil
}

// SetRewarder installs or clears the external notification hook of a pool.
// Privileged.
func (e *Engine) SetRewarder(caller [20]byte, poolID uint64, rewarder [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.operator {
		return ErrUnprivilegedCaller
	}
	pool, err := e.getPool(poolID)
	if err != nil {
		return err
	}
	pool.Rewarder = rewarder
	if err := e.state.PutPool(poolID, pool); err != nil {
		return err
	}
	e.emit(rewarderSetEvent(poolID, rewarder))
	return nil
}

// ClaimRelayerReward pays a relayer pool's whole accrued emission to its
// designated recipient. Relayer pools carry no stakers, value variables or
// summations; the funding claim passes straight through.
func (e *Engine) ClaimRelayerReward(poolID uint64, caller [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.getPool(poolID)
	if err != nil {
		return nil, err
	}
	if pool.PoolType != PoolTypeRelayer {
		return nil, ErrInvalidType
	}
	if caller != pool.TokenOrRecipient {
		return nil, ErrUnprivilegedCaller
	}
	reward, err := e.funding.PendingRewards(poolID)
	if err != nil {
		return nil, err
	}
	if reward == nil || reward.Sign() == 0 {
		return nil, ErrNoEffect
	}
	if err := e.tokens.Transfer(e.rewardToken, caller, reward); err != nil {
		return nil, err
	}
	if _, err := e.funding.Claim(poolID); err != nil {
		return nil, err
	}
	e.emit(withdrawnEvent(poolID, caller, big.NewInt(0), reward))
	return reward, nil
}
