package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"sarchef/core/types"
	"sarchef/native/funding"
	"sarchef/native/sar"
	"sarchef/storage"
)

func testAddr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func TestPoolsLength(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	length, err := m.PoolsLength()
	require.NoError(t, err)
	require.Zero(t, length)

	require.NoError(t, m.SetPoolsLength(7))
	length, err = m.PoolsLength()
	require.NoError(t, err)
	require.Equal(t, uint64(7), length)
}

func TestPoolRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	missing, err := m.GetPool(3)
	require.NoError(t, err)
	require.Nil(t, missing)

	pool := &sar.Pool{
		TokenOrRecipient: testAddr(0x10),
		PoolType:         sar.PoolTypeERC20,
		Rewarder:         testAddr(0x20),
		RewardPair:       testAddr(0x30),
		ValueVariables: sar.ValueVariables{
			Balance:         big.NewInt(12345),
			SumOfEntryTimes: big.NewInt(99),
		},
		RewardSummationsStored: sar.RewardSummations{
			IdealPosition:  new(big.Int).Lsh(big.NewInt(1), 130),
			RewardPerValue: new(big.Int).Lsh(big.NewInt(3), 120),
		},
	}
	require.NoError(t, m.PutPool(3, pool))

	loaded, err := m.GetPool(3)
	require.NoError(t, err)
	require.Equal(t, pool.TokenOrRecipient, loaded.TokenOrRecipient)
	require.Equal(t, pool.PoolType, loaded.PoolType)
	require.Equal(t, pool.Rewarder, loaded.Rewarder)
	require.Equal(t, pool.RewardPair, loaded.RewardPair)
	require.Zero(t, pool.ValueVariables.Balance.Cmp(loaded.ValueVariables.Balance))
	require.Zero(t, pool.ValueVariables.SumOfEntryTimes.Cmp(loaded.ValueVariables.SumOfEntryTimes))
	require.Zero(t, pool.RewardSummationsStored.IdealPosition.Cmp(loaded.RewardSummationsStored.IdealPosition))
	require.Zero(t, pool.RewardSummationsStored.RewardPerValue.Cmp(loaded.RewardSummationsStored.RewardPerValue))
}

func TestUserRoundTripAndDelete(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := testAddr(0x42)

	missing, err := m.GetUser(0, addr)
	require.NoError(t, err)
	require.Nil(t, missing)

	user := &sar.User{
		ValueVariables: sar.ValueVariables{
			Balance:         big.NewInt(500),
			SumOfEntryTimes: big.NewInt(5000),
		},
		RewardSummationsPaid: sar.RewardSummations{
			IdealPosition:  big.NewInt(1),
			RewardPerValue: big.NewInt(2),
		},
		PreviousValues:    big.NewInt(777),
		LastUpdate:        42,
		IsLockingPoolZero: true,
		StashedRewards:    big.NewInt(9),
	}
	require.NoError(t, m.PutUser(0, addr, user))

	loaded, err := m.GetUser(0, addr)
	require.NoError(t, err)
	require.Zero(t, user.ValueVariables.Balance.Cmp(loaded.ValueVariables.Balance))
	require.Zero(t, user.ValueVariables.SumOfEntryTimes.Cmp(loaded.ValueVariables.SumOfEntryTimes))
	require.Zero(t, user.PreviousValues.Cmp(loaded.PreviousValues))
	require.Equal(t, user.LastUpdate, loaded.LastUpdate)
	require.True(t, loaded.IsLockingPoolZero)
	require.Zero(t, user.StashedRewards.Cmp(loaded.StashedRewards))

	require.NoError(t, m.DeleteUser(0, addr))
	erased, err := m.GetUser(0, addr)
	require.NoError(t, err)
	require.Nil(t, erased)
}

func TestPutRejectsOverflowingBalance(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	over := new(big.Int).Lsh(big.NewInt(1), 256)

	pool := &sar.Pool{PoolType: sar.PoolTypeERC20, ValueVariables: sar.ValueVariables{Balance: over}}
	require.ErrorIs(t, m.PutPool(1, pool), ErrBalanceOverflow)

	user := &sar.User{ValueVariables: sar.ValueVariables{Balance: over}}
	require.ErrorIs(t, m.PutUser(1, testAddr(1), user), ErrBalanceOverflow)

	negative := &sar.User{ValueVariables: sar.ValueVariables{Balance: big.NewInt(-1)}}
	require.ErrorIs(t, m.PutUser(1, testAddr(1), negative), ErrBalanceOverflow)
}

func TestPoolZeroLocks(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := testAddr(0x42)

	count, err := m.PoolZeroLocks(addr)
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, m.SetPoolZeroLocks(addr, 2))
	count, err = m.PoolZeroLocks(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)

	// Zero erases the key rather than storing an empty counter.
	require.NoError(t, m.SetPoolZeroLocks(addr, 0))
	count, err = m.PoolZeroLocks(addr)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestRewarderFailureTimestamps(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := testAddr(0x42)

	ts, err := m.RewarderFailure(1, addr)
	require.NoError(t, err)
	require.Zero(t, ts)

	require.NoError(t, m.SetRewarderFailure(1, addr, 12345))
	ts, err = m.RewarderFailure(1, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(12345), ts)
}

func TestEventBuffer(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	m.AppendEvent(nil)
	m.AppendEvent(&types.Event{Type: "sar.staked"})
	m.AppendEvent(&types.Event{Type: "sar.withdrawn"})

	buffered := m.Events()
	require.Len(t, buffered, 2)
	require.Equal(t, "sar.staked", buffered[0].Type)

	drained := m.DrainEvents()
	require.Len(t, drained, 2)
	require.Empty(t, m.DrainEvents())
}

func TestManagerCommitAndDiscard(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	addr := testAddr(0x42)

	user := &sar.User{ValueVariables: sar.ValueVariables{Balance: big.NewInt(100)}}
	require.NoError(t, m.PutUser(0, addr, user))
	m.AppendEvent(&types.Event{Type: "sar.staked"})

	// The staged write reads through the overlay but is not durable yet.
	loaded, err := m.GetUser(0, addr)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	fresh := NewManager(db)
	durable, err := fresh.GetUser(0, addr)
	require.NoError(t, err)
	require.Nil(t, durable)

	// Discard drops the write and the event with it.
	m.Discard()
	loaded, err = m.GetUser(0, addr)
	require.NoError(t, err)
	require.Nil(t, loaded)
	require.Empty(t, m.Events())

	// Commit makes the next round durable and seals its events.
	require.NoError(t, m.PutUser(0, addr, user))
	m.AppendEvent(&types.Event{Type: "sar.staked"})
	require.NoError(t, m.Commit())
	durable, err = NewManager(db).GetUser(0, addr)
	require.NoError(t, err)
	require.NotNil(t, durable)

	// A later Discard keeps the committed event but drops the new one.
	m.AppendEvent(&types.Event{Type: "sar.withdrawn"})
	m.Discard()
	require.Len(t, m.Events(), 1)
	require.Equal(t, "sar.staked", m.Events()[0].Type)

	// A staged delete hides the committed key until Commit applies it.
	require.NoError(t, m.DeleteUser(0, addr))
	hidden, err := m.GetUser(0, addr)
	require.NoError(t, err)
	require.Nil(t, hidden)
	require.NoError(t, m.Commit())
	erased, err := NewManager(db).GetUser(0, addr)
	require.NoError(t, err)
	require.Nil(t, erased)
}

type flakyTokens struct {
	failPull bool
}

func (f *flakyTokens) Transfer(token, to [20]byte, amount *big.Int) error { return nil }

func (f *flakyTokens) TransferFrom(token, from, to [20]byte, amount *big.Int) error {
	if f.failPull {
		return errors.New("insufficient allowance")
	}
	return nil
}

func (f *flakyTokens) HasCode(addr [20]byte) bool { return true }

func TestFailedStakeCommitsNothing(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	schedule, err := funding.NewSchedule(funding.Config{
		RewardRate:     "5",
		StartTime:      1,
		PeriodFinish:   1 << 30,
		PoolZeroWeight: 1000,
	})
	require.NoError(t, err)

	operator := testAddr(0x01)
	staker := testAddr(0x11)
	tokens := &flakyTokens{}
	engine := sar.NewEngine(testAddr(0xAA), testAddr(0xFE))
	engine.SetState(m)
	engine.SetFunding(schedule)
	engine.SetTokens(tokens)
	engine.SetOperator(operator)
	engine.SetTimestamp(1)
	schedule.SetTimestamp(1)

	poolID, err := engine.InitializePool(operator, testAddr(0x50), sar.PoolTypeERC20)
	require.NoError(t, err)
	require.NoError(t, m.Commit())

	// The staking token pull fails mid-transition: no position may survive,
	// staged or durable.
	tokens.failPull = true
	require.Error(t, engine.Stake(poolID, staker, big.NewInt(100)))
	user, err := m.GetUser(poolID, staker)
	require.NoError(t, err)
	require.Nil(t, user)
	m.Discard()

	tokens.failPull = false
	require.NoError(t, engine.Stake(poolID, staker, big.NewInt(100)))
	// Visible through the overlay, durable only after Commit.
	durable, err := NewManager(db).GetUser(poolID, staker)
	require.NoError(t, err)
	require.Nil(t, durable)
	require.NoError(t, m.Commit())
	durable, err = NewManager(db).GetUser(poolID, staker)
	require.NoError(t, err)
	require.NotNil(t, durable)
	require.Zero(t, durable.ValueVariables.Balance.Cmp(big.NewInt(100)))
}

func TestKeysAreDisjointPerPool(t *testing.T) {
	addr := testAddr(0x01)
	require.NotEqual(t, userKey(1, addr), userKey(2, addr))
	require.NotEqual(t, poolKey(1), poolKey(2))
	require.NotEqual(t, lockCountKey(addr), lockCountKey(testAddr(0x02)))
}
