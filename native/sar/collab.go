package sar

import "math/big"

// Funding is the emission-schedule collaborator deciding how many reward
// tokens each pool receives per unit time. Claim advances the collaborator's
// internal clock for the pool as a side effect; the view methods must not.
// At any fixed timestamp Claim must return exactly what PendingRewards
// reports: the engine checks abort conditions against the view and only
// claims once the transition is certain to commit.
type Funding interface {
	// Claim returns the reward accrued to the pool since its last claim and
	// advances the pool's claim clock.
	Claim(poolID uint64) (*big.Int, error)
	// PendingRewards reports what Claim would currently return, without
	// advancing the clock.
	PendingRewards(poolID uint64) (*big.Int, error)
	// PoolRewardRate reports the pool's current emission rate per second.
	PoolRewardRate(poolID uint64) (*big.Int, error)
}

// TokenBackend moves fungible tokens on behalf of the engine and answers
// contract-existence queries. Transfers out of module custody use Transfer;
// caller-funded amounts use TransferFrom. Non-success is a hard failure.
type TokenBackend interface {
	Transfer(token, to [20]byte, amount *big.Int) error
	TransferFrom(token, from, to [20]byte, amount *big.Int) error
	HasCode(addr [20]byte) bool
}

// Pair is a constant-product AMM pair consumed while compounding rewards into
// liquidity.
type Pair interface {
	Token0() [20]byte
	Token1() [20]byte
	Reserves() (reserve0, reserve1 *big.Int, err error)
	// Mint converts the tokens previously transferred into the pair into
	// liquidity tokens credited to recipient, returning the minted amount.
	Mint(recipient [20]byte) (*big.Int, error)
}

// PairFactory resolves liquidity pairs.
type PairFactory interface {
	// GetPair returns the pair address for the token pair, or zero when no
	// pair exists.
	GetPair(tokenA, tokenB [20]byte) ([20]byte, error)
	// Pair dereferences a pair address into a callable pair.
	Pair(addr [20]byte) (Pair, error)
}

// WrappedNative wraps caller-supplied native value into its fungible form,
// crediting the wrapped tokens to recipient.
type WrappedNative interface {
	Deposit(recipient [20]byte, amount *big.Int) error
	// Token is the wrapped token's address.
	Token() [20]byte
}

// Rewarder is the external notification hook configured per pool. Failures
// propagate on ordinary paths and are only tolerated during emergency exits.
type Rewarder interface {
	OnReward(poolID uint64, user, recipient [20]byte, reward, newBalance *big.Int) error
}

// RewarderRegistry resolves a pool's configured rewarder address to a callable
// hook. Resolve returns nil when the address is unknown.
type RewarderRegistry interface {
	Resolve(addr [20]byte) Rewarder
}
