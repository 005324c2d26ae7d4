package events

import (
	"math/big"
	"strconv"

	"sarchef/core/types"
)

const (
	// TypeStaked captures any balance increase in a staking pool, including
	// compounding flows where the staked amount is freshly minted liquidity.
	TypeStaked = "sar.staked"
	// TypeWithdrawn captures balance decreases and harvest-only withdrawals.
	TypeWithdrawn = "sar.withdrawn"
	// TypePoolInitialized is emitted when a new pool slot is appended.
	TypePoolInitialized = "sar.poolInitialized"
	// TypeRewarderSet is emitted when a pool's rewarder hook is replaced.
	TypeRewarderSet = "sar.rewarderSet"
	// TypeRewarderFailed records a tolerated rewarder failure during an
	// emergency exit. Ordinary paths propagate the failure instead.
	TypeRewarderFailed = "sar.rewarderFailed"
)

// Staked captures the amount added to a position together with the reward that
// was stashed or compounded as part of the same transition.
type Staked struct {
	PoolID uint64
	User   [20]byte
	Amount *big.Int
	Reward *big.Int
}

// EventType satisfies the Event interface.
func (Staked) EventType() string { return TypeStaked }

// Event converts the structured payload into a broadcastable event.
func (e Staked) Event() *types.Event {
	return &types.Event{Type: TypeStaked, Attributes: map[string]string{
		"poolId": strconv.FormatUint(e.PoolID, 10),
		"user":   formatAddress(e.User),
		"amount": formatAmount(e.Amount),
		"reward": formatAmount(e.Reward),
	}}
}

// Withdrawn captures the amount removed from a position and the reward paid
// out alongside it. Amount is zero for harvest-only withdrawals.
type Withdrawn struct {
	PoolID uint64
	User   [20]byte
	Amount *big.Int
	Reward *big.Int
}

// EventType satisfies the Event interface.
func (Withdrawn) EventType() string { return TypeWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e Withdrawn) Event() *types.Event {
	return &types.Event{Type: TypeWithdrawn, Attributes: map[string]string{
		"poolId": strconv.FormatUint(e.PoolID, 10),
		"user":   formatAddress(e.User),
		"amount": formatAmount(e.Amount),
		"reward": formatAmount(e.Reward),
	}}
}

// PoolInitialized records the creation of a pool slot.
type PoolInitialized struct {
	PoolID           uint64
	TokenOrRecipient [20]byte
}

// EventType satisfies the Event interface.
func (PoolInitialized) EventType() string { return TypePoolInitialized }

// Event converts the structured payload into a broadcastable event.
func (e PoolInitialized) Event() *types.Event {
	return &types.Event{Type: TypePoolInitialized, Attributes: map[string]string{
		"poolId":           strconv.FormatUint(e.PoolID, 10),
		"tokenOrRecipient": formatAddress(e.TokenOrRecipient),
	}}
}

// RewarderSet records a rewarder hook change for a pool.
type RewarderSet struct {
	PoolID   uint64
	Rewarder [20]byte
}

// EventType satisfies the Event interface.
func (RewarderSet) EventType() string { return TypeRewarderSet }

// Event converts the structured payload into a broadcastable event.
func (e RewarderSet) Event() *types.Event {
	attrs := map[string]string{
		"poolId": strconv.FormatUint(e.PoolID, 10),
	}
	if !zeroAddress(e.Rewarder) {
		attrs["rewarder"] = formatAddress(e.Rewarder)
	}
	return &types.Event{Type: TypeRewarderSet, Attributes: attrs}
}

// RewarderFailed records a swallowed rewarder failure on the emergency path.
type RewarderFailed struct {
	PoolID    uint64
	User      [20]byte
	Timestamp uint64
	Reason    string
}

// EventType satisfies the Event interface.
func (RewarderFailed) EventType() string { return TypeRewarderFailed }

// Event converts the structured payload into a broadcastable event.
func (e RewarderFailed) Event() *types.Event {
	attrs := map[string]string{
		"poolId":    strconv.FormatUint(e.PoolID, 10),
		"user":      formatAddress(e.User),
		"timestamp": strconv.FormatUint(e.Timestamp, 10),
	}
	if e.Reason != "" {
		attrs["reason"] = e.Reason
	}
	return &types.Event{Type: TypeRewarderFailed, Attributes: attrs}
}
