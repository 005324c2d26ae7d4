package sar

import (
	"math/big"
	"sync"

	"sarchef/core/types"
	nativecommon "sarchef/native/common"
)

// engineState is the persistence surface the engine mutates. Pools and users
// form an explicit two-level store; absence of a user record means the
// address never staked in the pool.
type engineState interface {
	PoolsLength() (uint64, error)
	SetPoolsLength(count uint64) error
	GetPool(poolID uint64) (*Pool, error)
	PutPool(poolID uint64, pool *Pool) error
	GetUser(poolID uint64, addr [20]byte) (*User, error)
	PutUser(poolID uint64, addr [20]byte, user *User) error
	DeleteUser(poolID uint64, addr [20]byte) error
	PoolZeroLocks(addr [20]byte) (uint64, error)
	SetPoolZeroLocks(addr [20]byte, count uint64) error
	SetRewarderFailure(poolID uint64, addr [20]byte, timestamp uint64) error
	AppendEvent(evt *types.Event)
}

// Engine is the staking-reward accounting engine. It divides rewards flowing
// into each pool among stakers in proportion to the time-integrated amount
// each staker has had at stake, recovering any user's pending reward in O(1)
// from two running summations and the user's last snapshot of them.
//
// The engine is a single-writer ledger: a mutex serialises every mutating
// entry point so external calls made mid-update (token transfers, AMM mints,
// rewarder hooks) can never observe or re-enter a half-applied transition.
type Engine struct {
	mu sync.Mutex

	state     engineState
	funding   Funding
	tokens    TokenBackend
	factory   PairFactory
	wnative   WrappedNative
	rewarders RewarderRegistry
	pauses    nativecommon.PauseView

	operator      [20]byte
	rewardToken   [20]byte
	moduleAddress [20]byte
	now           uint64
}

// NewEngine constructs an engine distributing the given reward token, with
// staked tokens and claimed rewards held in custody at moduleAddr.
func NewEngine(rewardToken, moduleAddr [20]byte) *Engine {
	return &Engine{
		rewardToken:   rewardToken,
		moduleAddress: moduleAddr,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetFunding wires the emission-schedule collaborator.
func (e *Engine) SetFunding(f Funding) { e.funding = f }

// SetTokens wires the fungible token backend.
func (e *Engine) SetTokens(t TokenBackend) { e.tokens = t }

// SetPairFactory wires the AMM factory used to resolve liquidity pairs.
func (e *Engine) SetPairFactory(f PairFactory) { e.factory = f }

// SetWrappedNative wires the native-token wrapper used by compounding flows.
func (e *Engine) SetWrappedNative(w WrappedNative) { e.wnative = w }

// SetRewarders wires the resolver for per-pool rewarder hooks.
func (e *Engine) SetRewarders(r RewarderRegistry) { e.rewarders = r }

// SetPauses wires the operator pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetOperator assigns the privileged address allowed to initialise pools and
// set rewarders.
func (e *Engine) SetOperator(operator [20]byte) {
	if e == nil {
		return
	}
	e.operator = operator
}

// SetTimestamp records the transaction timestamp subsequent operations run
// at. The embedding node sets it once per transaction; it must never move
// backwards.
func (e *Engine) SetTimestamp(now uint64) {
	if e == nil {
		return
	}
	e.now = now
}

// RewardToken returns the distributed reward token address.
func (e *Engine) RewardToken() [20]byte { return e.rewardToken }

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.funding == nil {
		return errNilFunding
	}
	if e.tokens == nil {
		return errNilTokens
	}
	return nil
}

func (e *Engine) getPool(poolID uint64) (*Pool, error) {
	pool, err := e.state.GetPool(poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil || pool.PoolType == PoolTypeUnset {
		return nil, errPoolNotFound
	}
	pool.normalize()
	return pool, nil
}

// getERC20Pool fetches a pool and rejects non-staking kinds.
func (e *Engine) getERC20Pool(poolID uint64) (*Pool, error) {
	pool, err := e.getPool(poolID)
	if err != nil {
		return nil, err
	}
	if pool.PoolType != PoolTypeERC20 {
		return nil, ErrInvalidType
	}
	return pool, nil
}

func (e *Engine) getUser(poolID uint64, addr [20]byte) (*User, error) {
	user, err := e.state.GetUser(poolID, addr)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &User{}
	}
	user.normalize()
	return user, nil
}

// updatePoolSummations claims the pool's pending reward from the funding
// collaborator and folds it into the stored summations. It must run before
// any reward read for the pool within the same transaction. The claim is
// irreversible: once taken, the emission it covers can only reach stakers
// through this pool object, so every condition that can still abort the
// transition must be checked first, against pendingBeforeClaim.
func (e *Engine) updatePoolSummations(poolID uint64, pool *Pool) error {
	reward, err := e.funding.Claim(poolID)
	if err != nil {
		return err
	}
	pool.accrueSummations(e.now, reward)
	return nil
}

// pendingBeforeClaim previews the reward the position would hold once the
// pool's summations are brought current, without advancing the funding
// clock. Funding guarantees Claim returns exactly what PendingRewards
// reported at the same timestamp, so the preview matches the post-claim
// value and is safe to base abort decisions on.
func (e *Engine) pendingBeforeClaim(poolID uint64, pool *Pool, position *User) (*big.Int, error) {
	pendingClaim, err := e.funding.PendingRewards(poolID)
	if err != nil {
		return nil, err
	}
	projected := pool.projectedSummations(e.now, pendingClaim)
	return position.pendingAgainst(projected), nil
}

// snapshotNoReset re-anchors the user against the given summations while
// preserving stake age: the value accrued since the previous snapshot is
// folded into PreviousValues.
func (u *User) snapshotNoReset(now uint64, stored RewardSummations) {
	if now > u.LastUpdate {
		accrued := new(big.Int).SetUint64(now - u.LastUpdate)
		accrued.Mul(accrued, bigOrZero(u.ValueVariables.Balance))
		u.PreviousValues = new(big.Int).Add(bigOrZero(u.PreviousValues), accrued)
	}
	u.LastUpdate = now
	u.RewardSummationsPaid = stored.Clone()
	u.RewardSummationsPaid.normalize()
}

// snapshotReset re-anchors the user with the staking clock restarted: all
// previously accrued value is dropped together with the stash.
func (u *User) snapshotReset(now uint64, stored RewardSummations) {
	u.PreviousValues = big.NewInt(0)
	u.StashedRewards = big.NewInt(0)
	u.LastUpdate = now
	u.RewardSummationsPaid = stored.Clone()
	u.RewardSummationsPaid.normalize()
}

// notifyRewarder invokes the pool's configured hook, if any. Failures
// propagate: every ordinary path treats an unreachable rewarder as a hard
// failure.
func (e *Engine) notifyRewarder(poolID uint64, pool *Pool, user, recipient [20]byte, reward, newBalance *big.Int) error {
	if zeroAddress(pool.Rewarder) || e.rewarders == nil {
		return nil
	}
	hook := e.rewarders.Resolve(pool.Rewarder)
	if hook == nil {
		return nil
	}
	return hook.OnReward(poolID, user, recipient, reward, newBalance)
}

func (e *Engine) emit(evt *types.Event) {
	if e.state != nil {
		e.state.AppendEvent(evt)
	}
}

// Stake adds caller-supplied staking tokens to the caller's own position.
func (e *Engine) Stake(poolID uint64, caller [20]byte, amount *big.Int) error {
	return e.StakeTo(poolID, caller, caller, amount)
}

// StakeTo adds caller-supplied staking tokens to another user's position.
// The pending reward of the target position is stashed, not paid out, so a
// third-party top-up can never redirect accrued rewards.
func (e *Engine) StakeTo(poolID uint64, caller, user [20]byte, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrNoEffect
	}
	pool, err := e.getERC20Pool(poolID)
	if err != nil {
		return err
	}
	newTotal := new(big.Int).Add(pool.ValueVariables.Balance, amount)
	if newTotal.Cmp(MaxStakedAmount) > 0 {
		return ErrOverflow
	}
	if err := e.updatePoolSummations(poolID, pool); err != nil {
		return err
	}
	position, err := e.getUser(poolID, user)
	if err != nil {
		return err
	}
	reward := position.pendingRewards(pool)

	position.snapshotNoReset(e.now, pool.RewardSummationsStored)
	position.StashedRewards = reward
	position.ValueVariables.addStake(e.now, amount)
	pool.ValueVariables.addStake(e.now, amount)

	// External calls run before any Put: a failed pull or rewarder hook
	// must leave no record behind.
	if err := e.tokens.TransferFrom(pool.TokenOrRecipient, caller, e.moduleAddress, amount); err != nil {
		return err
	}
	if err := e.notifyRewarder(poolID, pool, user, user, reward, position.ValueVariables.Balance); err != nil {
		return err
	}

	if err := e.state.PutUser(poolID, user, position); err != nil {
		return err
	}
	if err := e.state.PutPool(poolID, pool); err != nil {
		return err
	}

	e.emit(stakedEvent(poolID, user, amount, reward))
	return nil
}

// Withdraw removes amount from the caller's position and pays out the whole
// pending reward. The staking clock of the entire remaining balance restarts:
// withdrawing any nonzero amount zeroes the position's age.
func (e *Engine) Withdraw(poolID uint64, caller [20]byte, amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.withdrawLocked(poolID, caller, amount)
}

// Harvest pays out the caller's pending reward without removing stake. Like
// any withdrawal it restarts the staking clock and releases a pool-zero lock
// held by this position.
func (e *Engine) Harvest(poolID uint64, caller [20]byte) (*big.Int, error) {
	return e.Withdraw(poolID, caller, big.NewInt(0))
}

func (e *Engine) withdrawLocked(poolID uint64, caller [20]byte, amount *big.Int) (*big.Int, error) {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	pool, err := e.getERC20Pool(poolID)
	if err != nil {
		return nil, err
	}
	if err := e.checkPoolZeroUnlocked(poolID, caller); err != nil {
		return nil, err
	}
	position, err := e.getUser(poolID, caller)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(position.ValueVariables.Balance) > 0 {
		return nil, ErrInsufficientBalance
	}
	reward, err := e.pendingBeforeClaim(poolID, pool, position)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 && reward.Sign() == 0 {
		return nil, ErrNoEffect
	}
	if err := e.updatePoolSummations(poolID, pool); err != nil {
		return nil, err
	}
	reward = position.pendingRewards(pool)

	remaining := new(big.Int).Sub(position.ValueVariables.Balance, amount)
	entryDelta := position.ValueVariables.resetEntryTimes(e.now, remaining)
	pool.ValueVariables.Balance = new(big.Int).Sub(pool.ValueVariables.Balance, amount)
	pool.ValueVariables.SumOfEntryTimes = new(big.Int).Add(pool.ValueVariables.SumOfEntryTimes, entryDelta)
	position.snapshotReset(e.now, pool.RewardSummationsStored)

	locks, err := e.releaseLock(poolID, caller, position)
	if err != nil {
		return nil, err
	}

	if reward.Sign() > 0 {
		if err := e.tokens.Transfer(e.rewardToken, caller, reward); err != nil {
			return nil, err
		}
	}
	if amount.Sign() > 0 {
		if err := e.tokens.Transfer(pool.TokenOrRecipient, caller, amount); err != nil {
			return nil, err
		}
	}
	if err := e.notifyRewarder(poolID, pool, caller, caller, reward, remaining); err != nil {
		return nil, err
	}

	if err := e.state.PutUser(poolID, caller, position); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(poolID, pool); err != nil {
		return nil, err
	}
	if locks != nil {
		if err := e.state.SetPoolZeroLocks(caller, *locks); err != nil {
			return nil, err
		}
	}

	e.emit(withdrawnEvent(poolID, caller, amount, reward))
	return reward, nil
}

// PoolsLength returns the number of initialised pools.
func (e *Engine) PoolsLength() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.PoolsLength()
}

// UserPendingRewards reports the reward the user could harvest right now,
// simulating the funding claim the next update would perform. It never
// mutates state; calling it twice without an intervening transition returns
// the same value.
func (e *Engine) UserPendingRewards(poolID uint64, addr [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pool, err := e.getERC20Pool(poolID)
	if err != nil {
		return nil, err
	}
	position, err := e.getUser(poolID, addr)
	if err != nil {
		return nil, err
	}
	if position.LastUpdate == 0 {
		return big.NewInt(0), nil
	}
	return e.pendingBeforeClaim(poolID, pool, position)
}

// UserRewardRate reports the per-second reward currently flowing to the
// user: the pool's emission rate weighted by the user's share of the pool's
// total value.
func (e *Engine) UserRewardRate(poolID uint64, addr [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pool, err := e.getERC20Pool(poolID)
	if err != nil {
		return nil, err
	}
	position, err := e.getUser(poolID, addr)
	if err != nil {
		return nil, err
	}
	if position.LastUpdate == 0 {
		return big.NewInt(0), nil
	}
	totalValue := pool.ValueVariables.value(e.now)
	if totalValue.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	poolRate, err := e.funding.PoolRewardRate(poolID)
	if err != nil {
		return nil, err
	}
	userValue := position.ValueVariables.value(e.now)
	rate := new(big.Int).Mul(bigOrZero(poolRate), userValue)
	return rate.Quo(rate, totalValue), nil
}

// PoolRewardRate reports the pool's current emission rate per second.
func (e *Engine) PoolRewardRate(poolID uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := e.getPool(poolID); err != nil {
		return nil, err
	}
	return e.funding.PoolRewardRate(poolID)
}
