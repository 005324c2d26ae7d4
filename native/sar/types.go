package sar

import "math/big"

// PoolType discriminates the pool kinds held in the registry. The zero value
// marks a slot that was never initialised.
type PoolType uint8

const (
	PoolTypeUnset PoolType = iota
	PoolTypeERC20
	PoolTypeRelayer
)

// ValueVariables is the pair of counters from which a participant's
// time-integrated stake ("value") is derived. It exists both per pool and per
// user within a pool.
type ValueVariables struct {
	// Balance is the currently staked amount.
	Balance *big.Int
	// SumOfEntryTimes is the sum, over every staked unit, of the timestamp
	// at which that unit entered. now*Balance - SumOfEntryTimes is never
	// negative.
	SumOfEntryTimes *big.Int
}

// RewardSummations carries the two running summations that make per-user
// reward recovery O(1). The pool stores the canonical copy; each user stores
// the snapshot taken at their last update.
type RewardSummations struct {
	// IdealPosition accumulates reward*now*Precision/totalValue at each
	// pool update: the reward an ideal unit-balance, zero-age position
	// would have accrued.
	IdealPosition *big.Int
	// RewardPerValue accumulates reward*Precision/totalValue.
	RewardPerValue *big.Int
}

// User is the per-(pool,address) position record. A nil record or a
// LastUpdate of zero means the address never staked in the pool.
type User struct {
	ValueVariables       ValueVariables
	RewardSummationsPaid RewardSummations
	// PreviousValues accumulates the value contributed by balance held
	// before the most recent top-up, so that adding stake does not reset
	// the age of existing stake.
	PreviousValues *big.Int
	// LastUpdate is the timestamp of the last snapshot. Zero is the
	// never-staked sentinel and short-circuits reward computation.
	LastUpdate uint64
	// IsLockingPoolZero marks that this position holds a lock on pool
	// zero through an outstanding harvest-without-reset.
	IsLockingPoolZero bool
	// StashedRewards carries reward computed but not yet harvested or
	// compounded across updates.
	StashedRewards *big.Int
}

// Pool is one slot of the append-only registry.
type Pool struct {
	// TokenOrRecipient is the staking token for ERC20 pools and the sole
	// payout recipient for relayer pools.
	TokenOrRecipient [20]byte
	PoolType         PoolType
	// Rewarder is the optional external notification hook; zero disables
	// it.
	Rewarder [20]byte
	// RewardPair is the token paired with the reward token inside the
	// staking token's liquidity pair. Zero until lazily resolved on the
	// first compound.
	RewardPair [20]byte

	ValueVariables         ValueVariables
	RewardSummationsStored RewardSummations
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func (v *ValueVariables) normalize() {
	v.Balance = bigOrZero(v.Balance)
	v.SumOfEntryTimes = bigOrZero(v.SumOfEntryTimes)
}

// Clone returns a deep copy of the value variables.
func (v ValueVariables) Clone() ValueVariables {
	return ValueVariables{
		Balance:         copyBigInt(v.Balance),
		SumOfEntryTimes: copyBigInt(v.SumOfEntryTimes),
	}
}

func (s *RewardSummations) normalize() {
	s.IdealPosition = bigOrZero(s.IdealPosition)
	s.RewardPerValue = bigOrZero(s.RewardPerValue)
}

// Clone returns a deep copy of the summation pair.
func (s RewardSummations) Clone() RewardSummations {
	return RewardSummations{
		IdealPosition:  copyBigInt(s.IdealPosition),
		RewardPerValue: copyBigInt(s.RewardPerValue),
	}
}

// Clone returns a deep copy of the user record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	return &User{
		ValueVariables:       u.ValueVariables.Clone(),
		RewardSummationsPaid: u.RewardSummationsPaid.Clone(),
		PreviousValues:       copyBigInt(u.PreviousValues),
		LastUpdate:           u.LastUpdate,
		IsLockingPoolZero:    u.IsLockingPoolZero,
		StashedRewards:       copyBigInt(u.StashedRewards),
	}
}

func (u *User) normalize() {
	u.ValueVariables.normalize()
	u.RewardSummationsPaid.normalize()
	u.PreviousValues = bigOrZero(u.PreviousValues)
	u.StashedRewards = bigOrZero(u.StashedRewards)
}

// Clone returns a deep copy of the pool record.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	return &Pool{
		TokenOrRecipient:       p.TokenOrRecipient,
		PoolType:               p.PoolType,
		Rewarder:               p.Rewarder,
		RewardPair:             p.RewardPair,
		ValueVariables:         p.ValueVariables.Clone(),
		RewardSummationsStored: p.RewardSummationsStored.Clone(),
	}
}

func (p *Pool) normalize() {
	p.ValueVariables.normalize()
	p.RewardSummationsStored.normalize()
}

func zeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}
