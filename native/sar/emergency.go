package sar

import "math/big"

// EmergencyExitLevel1 withdraws the caller's whole stake immediately while
// forgoing every pending reward. It is the escape hatch for a pool whose
// rewarder hook or reward bookkeeping has become unusable: no reward is
// computed, claimed or transferred on this path.
func (e *Engine) EmergencyExitLevel1(poolID uint64, caller [20]byte) error {
	return e.emergencyExit(poolID, caller, true)
}

// EmergencyExitLevel2 forgoes both stake and rewards: it is a pure state
// wipe used when even the staking token itself no longer transfers. Nothing
// leaves custody; the user's record is erased and the pool aggregate shrinks
// accordingly.
func (e *Engine) EmergencyExitLevel2(poolID uint64, caller [20]byte) error {
	return e.emergencyExit(poolID, caller, false)
}

// emergencyExit must not fail except on a zero balance (or a pool-zero exit
// attempted while locked): it deliberately skips the pause gate, the funding
// claim and all reward computation, and tolerates rewarder failures by
// recording them instead of aborting.
func (e *Engine) emergencyExit(poolID uint64, caller [20]byte, withdrawStake bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.tokens == nil {
		return errNilTokens
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.getERC20Pool(poolID)
	if err != nil {
		return err
	}
	if err := e.checkPoolZeroUnlocked(poolID, caller); err != nil {
		return err
	}
	position, err := e.getUser(poolID, caller)
	if err != nil {
		return err
	}
	balance := position.ValueVariables.Balance
	if balance.Sign() == 0 {
		return ErrNoEffect
	}

	pool.ValueVariables.Balance = new(big.Int).Sub(pool.ValueVariables.Balance, balance)
	pool.ValueVariables.SumOfEntryTimes = new(big.Int).Sub(pool.ValueVariables.SumOfEntryTimes, position.ValueVariables.SumOfEntryTimes)

	locks, err := e.releaseLock(poolID, caller, position)
	if err != nil {
		return err
	}

	// The stake leaves custody before the record is erased so a failed
	// transfer cannot strand a deleted position.
	if withdrawStake {
		if err := e.tokens.Transfer(pool.TokenOrRecipient, caller, balance); err != nil {
			return err
		}
	}

	if err := e.state.DeleteUser(poolID, caller); err != nil {
		return err
	}
	if err := e.state.PutPool(poolID, pool); err != nil {
		return err
	}
	if locks != nil {
		if err := e.state.SetPoolZeroLocks(caller, *locks); err != nil {
			return err
		}
	}

	e.emit(withdrawnEvent(poolID, caller, balance, big.NewInt(0)))

	// Tolerant rewarder call: record the failure timestamp for later
	// diagnosis and carry on, since this path exists to recover from
	// exactly such external failures.
	if !zeroAddress(pool.Rewarder) && e.rewarders != nil {
		if hook := e.rewarders.Resolve(pool.Rewarder); hook != nil {
			if hookErr := hook.OnReward(poolID, caller, caller, big.NewInt(0), big.NewInt(0)); hookErr != nil {
				if recErr := e.state.SetRewarderFailure(poolID, caller, e.now); recErr != nil {
					return recErr
				}
				e.emit(rewarderFailedEvent(poolID, caller, e.now, hookErr.Error()))
			}
		}
	}
	return nil
}
