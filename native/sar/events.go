package sar

import (
	"math/big"

	"sarchef/core/events"
	"sarchef/core/types"
)

func stakedEvent(poolID uint64, user [20]byte, amount, reward *big.Int) *types.Event {
	return events.Staked{PoolID: poolID, User: user, Amount: amount, Reward: reward}.Event()
}

func withdrawnEvent(poolID uint64, user [20]byte, amount, reward *big.Int) *types.Event {
	return events.Withdrawn{PoolID: poolID, User: user, Amount: amount, Reward: reward}.Event()
}

func poolInitializedEvent(poolID uint64, tokenOrRecipient [20]byte) *types.Event {
	return events.PoolInitialized{PoolID: poolID, TokenOrRecipient: tokenOrRecipient}.Event()
}

func rewarderSetEvent(poolID uint64, rewarder [20]byte) *types.Event {
	return events.RewarderSet{PoolID: poolID, Rewarder: rewarder}.Event()
}

func rewarderFailedEvent(poolID uint64, user [20]byte, timestamp uint64, reason string) *types.Event {
	return events.RewarderFailed{PoolID: poolID, User: user, Timestamp: timestamp, Reason: reason}.Event()
}
