package sar

// Pool-zero lock protocol. Compounding another pool's rewards into pool zero
// harvests without restarting that pool's staking clock; while such a harvest
// is outstanding the user must not be able to withdraw from pool zero, or the
// duration reset the harvest skipped could be laundered through pool zero.
// The lock is a per-user global counter plus a per-(pool,user) flag, and is
// retired by any duration reset of the source pool.

// checkPoolZeroUnlocked rejects pool-zero withdrawals while the caller holds
// any outstanding lock.
func (e *Engine) checkPoolZeroUnlocked(poolID uint64, addr [20]byte) error {
	if poolID != PoolZeroID {
		return nil
	}
	locks, err := e.state.PoolZeroLocks(addr)
	if err != nil {
		return err
	}
	if locks > 0 {
		return ErrLocked
	}
	return nil
}

// takeLock marks the position as locking pool zero and bumps the caller's
// global counter. Repeated harvests without an intervening reset do not
// double-count. The returned pointer is the counter value to persist, nil
// when nothing changed.
func (e *Engine) takeLock(addr [20]byte, position *User) (*uint64, error) {
	if position.IsLockingPoolZero {
		return nil, nil
	}
	position.IsLockingPoolZero = true
	locks, err := e.state.PoolZeroLocks(addr)
	if err != nil {
		return nil, err
	}
	locks++
	return &locks, nil
}

// releaseLock clears the lock held through this pool, if any. It runs on
// every duration reset (ordinary withdraw, harvest, emergency exit); pool
// zero itself never holds a lock. The returned pointer is the counter value
// to persist, nil when nothing changed.
func (e *Engine) releaseLock(poolID uint64, addr [20]byte, position *User) (*uint64, error) {
	if poolID == PoolZeroID || !position.IsLockingPoolZero {
		return nil, nil
	}
	position.IsLockingPoolZero = false
	locks, err := e.state.PoolZeroLocks(addr)
	if err != nil {
		return nil, err
	}
	if locks > 0 {
		locks--
	}
	return &locks, nil
}
