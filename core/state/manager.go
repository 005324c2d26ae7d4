package state

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"sarchef/core/types"
	"sarchef/native/sar"
	"sarchef/storage"
)

// ErrBalanceOverflow is returned when a record's staked balance does not fit
// the bounded width the accounting formulas assume. The engine enforces the
// cap on its own; the codec rejects it again so a corrupted record can never
// round-trip.
var ErrBalanceOverflow = errors.New("state: staked balance overflows bounded width")

// Manager persists pools, users and lock counters for the staking engine in
// a key-value store, and buffers the events emitted during a transition for
// the embedding node to collect.
//
// Writes are staged, not applied: every Put or Delete lands in an overlay the
// reads see through, and nothing touches the database until Commit. The
// embedding node brackets each transaction with Commit on success or Discard
// on failure, so a transition that errors out mid-way leaves no trace in
// durable state. Discard also drops the events emitted since the last Commit.
type Manager struct {
	db     storage.Database
	writes map[string]stagedWrite

	events []types.Event
	// committed marks how many buffered events precede the staged writes.
	committed int
}

type stagedWrite struct {
	value   []byte
	deleted bool
}

// NewManager wraps the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:     db,
		writes: make(map[string]stagedWrite),
	}
}

// Commit flushes the staged writes to the database and seals the events
// buffered so far against a later Discard.
func (m *Manager) Commit() error {
	for key, w := range m.writes {
		if w.deleted {
			if err := m.db.Delete([]byte(key)); err != nil {
				return err
			}
			continue
		}
		if err := m.db.Put([]byte(key), w.value); err != nil {
			return err
		}
	}
	m.writes = make(map[string]stagedWrite)
	m.committed = len(m.events)
	return nil
}

// Discard drops the staged writes and the events emitted since the last
// Commit.
func (m *Manager) Discard() {
	m.writes = make(map[string]stagedWrite)
	m.events = m.events[:m.committed]
}

func (m *Manager) get(key []byte) ([]byte, error) {
	if w, ok := m.writes[string(key)]; ok {
		if w.deleted {
			return nil, storage.ErrKeyNotFound
		}
		out := make([]byte, len(w.value))
		copy(out, w.value)
		return out, nil
	}
	return m.db.Get(key)
}

func (m *Manager) put(key, value []byte) error {
	staged := make([]byte, len(value))
	copy(staged, value)
	m.writes[string(key)] = stagedWrite{value: staged}
	return nil
}

func (m *Manager) delete(key []byte) error {
	m.writes[string(key)] = stagedWrite{deleted: true}
	return nil
}

type poolRecord struct {
	TokenOrRecipient [20]byte
	PoolType         uint8
	Rewarder         [20]byte
	RewardPair       [20]byte
	Balance          *uint256.Int
	SumOfEntryTimes  *big.Int
	IdealPosition    *big.Int
	RewardPerValue   *big.Int
}

type userRecord struct {
	Balance            *uint256.Int
	SumOfEntryTimes    *big.Int
	IdealPositionPaid  *big.Int
	RewardPerValuePaid *big.Int
	PreviousValues     *big.Int
	LastUpdate         uint64
	IsLockingPoolZero  bool
	StashedRewards     *big.Int
}

func boundedBalance(balance *big.Int) (*uint256.Int, error) {
	if balance == nil {
		return uint256.NewInt(0), nil
	}
	bounded, overflow := uint256.FromBig(balance)
	if overflow || balance.Sign() < 0 {
		return nil, ErrBalanceOverflow
	}
	return bounded, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// PoolsLength returns the number of initialised pools.
func (m *Manager) PoolsLength() (uint64, error) {
	raw, err := m.get(poolsLengthKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, errors.New("state: malformed pools length")
	}
	return binary.BigEndian.Uint64(raw), nil
}

// SetPoolsLength records the number of initialised pools.
func (m *Manager) SetPoolsLength(count uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], count)
	return m.put(poolsLengthKey, buf[:])
}

// GetPool loads a pool record, nil when the slot was never written.
func (m *Manager) GetPool(poolID uint64) (*sar.Pool, error) {
	raw, err := m.get(poolKey(poolID))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec poolRecord
	if err := rlp.DecodeBytes(raw, &rec); err != nil {
		return nil, err
	}
	return &sar.Pool{
		TokenOrRecipient: rec.TokenOrRecipient,
		PoolType:         sar.PoolType(rec.PoolType),
		Rewarder:         rec.Rewarder,
		RewardPair:       rec.RewardPair,
		ValueVariables: sar.ValueVariables{
			Balance:         rec.Balance.ToBig(),
			SumOfEntryTimes: orZero(rec.SumOfEntryTimes),
		},
		RewardSummationsStored: sar.RewardSummations{
			IdealPosition:  orZero(rec.IdealPosition),
			RewardPerValue: orZero(rec.RewardPerValue),
		},
	}, nil
}

// PutPool stages a pool record.
func (m *Manager) PutPool(poolID uint64, pool *sar.Pool) error {
	if pool == nil {
		return errors.New("state: nil pool")
	}
	balance, err := boundedBalance(pool.ValueVariables.Balance)
	if err != nil {
		return err
	}
	rec := poolRecord{
		TokenOrRecipient: pool.TokenOrRecipient,
		PoolType:         uint8(pool.PoolType),
		Rewarder:         pool.Rewarder,
		RewardPair:       pool.RewardPair,
		Balance:          balance,
		SumOfEntryTimes:  orZero(pool.ValueVariables.SumOfEntryTimes),
		IdealPosition:    orZero(pool.RewardSummationsStored.IdealPosition),
		RewardPerValue:   orZero(pool.RewardSummationsStored.RewardPerValue),
	}
	raw, err := rlp.EncodeToBytes(&rec)
	if err != nil {
		return err
	}
	return m.put(poolKey(poolID), raw)
}

// GetUser loads a user position, nil when the address never staked in the
// pool (or its record was erased by an emergency exit).
func (m *Manager) GetUser(poolID uint64, addr [20]byte) (*sar.User, error) {
	raw, err := m.get(userKey(poolID, addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec userRecord
	if err := rlp.DecodeBytes(raw, &rec); err != nil {
		return nil, err
	}
	return &sar.User{
		ValueVariables: sar.ValueVariables{
			Balance:         rec.Balance.ToBig(),
			SumOfEntryTimes: orZero(rec.SumOfEntryTimes),
		},
		RewardSummationsPaid: sar.RewardSummations{
			IdealPosition:  orZero(rec.IdealPositionPaid),
			RewardPerValue: orZero(rec.RewardPerValuePaid),
		},
		PreviousValues:    orZero(rec.PreviousValues),
		LastUpdate:        rec.LastUpdate,
		IsLockingPoolZero: rec.IsLockingPoolZero,
		StashedRewards:    orZero(rec.StashedRewards),
	}, nil
}

// PutUser stages a user position.
func (m *Manager) PutUser(poolID uint64, addr [20]byte, user *sar.User) error {
	if user == nil {
		return errors.New("state: nil user")
	}
	balance, err := boundedBalance(user.ValueVariables.Balance)
	if err != nil {
		return err
	}
	rec := userRecord{
		Balance:            balance,
		SumOfEntryTimes:    orZero(user.ValueVariables.SumOfEntryTimes),
		IdealPositionPaid:  orZero(user.RewardSummationsPaid.IdealPosition),
		RewardPerValuePaid: orZero(user.RewardSummationsPaid.RewardPerValue),
		PreviousValues:     orZero(user.PreviousValues),
		LastUpdate:         user.LastUpdate,
		IsLockingPoolZero:  user.IsLockingPoolZero,
		StashedRewards:     orZero(user.StashedRewards),
	}
	raw, err := rlp.EncodeToBytes(&rec)
	if err != nil {
		return err
	}
	return m.put(userKey(poolID, addr), raw)
}

// DeleteUser erases a user position entirely.
func (m *Manager) DeleteUser(poolID uint64, addr [20]byte) error {
	return m.delete(userKey(poolID, addr))
}

// PoolZeroLocks returns the address's outstanding pool-zero lock count.
func (m *Manager) PoolZeroLocks(addr [20]byte) (uint64, error) {
	raw, err := m.get(lockCountKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, errors.New("state: malformed lock count")
	}
	return binary.BigEndian.Uint64(raw), nil
}

// SetPoolZeroLocks records the address's pool-zero lock count; zero erases
// the key.
func (m *Manager) SetPoolZeroLocks(addr [20]byte, count uint64) error {
	if count == 0 {
		return m.delete(lockCountKey(addr))
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], count)
	return m.put(lockCountKey(addr), buf[:])
}

// SetRewarderFailure records the timestamp of a tolerated rewarder failure
// for the (pool,address) pair. Diagnostic only.
func (m *Manager) SetRewarderFailure(poolID uint64, addr [20]byte, timestamp uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], timestamp)
	return m.put(rewarderFailKey(poolID, addr), buf[:])
}

// RewarderFailure returns the last tolerated rewarder failure timestamp for
// the (pool,address) pair, zero when none was recorded.
func (m *Manager) RewarderFailure(poolID uint64, addr [20]byte) (uint64, error) {
	raw, err := m.get(rewarderFailKey(poolID, addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, errors.New("state: malformed failure timestamp")
	}
	return binary.BigEndian.Uint64(raw), nil
}

// AppendEvent buffers an emitted event.
func (m *Manager) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	m.events = append(m.events, *evt)
}

// Events returns the events buffered since the last drain.
func (m *Manager) Events() []types.Event {
	out := make([]types.Event, len(m.events))
	copy(out, m.events)
	return out
}

// DrainEvents returns the buffered events and resets the buffer.
func (m *Manager) DrainEvents() []types.Event {
	out := m.events
	m.events = nil
	m.committed = 0
	return out
}
