package funding

import (
	"errors"
	"math/big"
)

var errBadRate = errors.New("funding: reward rate must be a decimal integer")

// Schedule is the reference emission collaborator: a global reward rate
// dripped until PeriodFinish and split across pools by weight. It satisfies
// the engine's Funding interface: Claim returns exactly what PendingRewards
// reported at the same timestamp, so callers can check abort conditions
// against the view before committing to a claim. The schedule shares the
// engine's single-writer model; the engine's transaction lock is the only
// serialisation it needs.
type Schedule struct {
	rewardRate   *big.Int
	periodFinish uint64
	now          uint64

	weights     map[uint64]uint64
	totalWeight uint64
	lastClaim   map[uint64]uint64
	// settled holds reward accrued under earlier weight ratios, banked by
	// reweights so a weight change never reprices past accrual.
	settled map[uint64]*big.Int
}

// NewSchedule builds a schedule from the validated config. Pool zero is
// seeded with its configured weight immediately so the total weight is never
// zero once emission starts.
func NewSchedule(cfg Config) (*Schedule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rate, ok := new(big.Int).SetString(cfg.RewardRate, 10)
	if !ok {
		return nil, errBadRate
	}
	s := &Schedule{
		rewardRate:   rate,
		periodFinish: cfg.PeriodFinish,
		now:          cfg.StartTime,
		weights:      make(map[uint64]uint64),
		lastClaim:    make(map[uint64]uint64),
		settled:      make(map[uint64]*big.Int),
	}
	s.weights[0] = cfg.PoolZeroWeight
	s.totalWeight = cfg.PoolZeroWeight
	s.lastClaim[0] = cfg.StartTime
	return s, nil
}

// SetTimestamp advances the schedule clock. It must track the engine's
// transaction timestamp and never move backwards.
func (s *Schedule) SetTimestamp(now uint64) {
	if now > s.now {
		s.now = now
	}
}

// SetPoolWeight registers or adjusts a pool's emission weight. Accrual for
// every weighted pool is settled at the old ratios first, so the sum of all
// claims always equals the emission actually dripped; without the settlement
// a reweight would retroactively reprice every pool's open interval. A newly
// registered pool starts accruing from the current timestamp, not from the
// epoch.
func (s *Schedule) SetPoolWeight(poolID uint64, weight uint64) {
	s.settleAll()
	old := s.weights[poolID]
	s.totalWeight = s.totalWeight - old + weight
	s.weights[poolID] = weight
	if _, known := s.lastClaim[poolID]; !known {
		s.lastClaim[poolID] = s.now
	}
}

// settleAll banks every pool's live accrual at the current ratios and
// restarts the open intervals at now.
func (s *Schedule) settleAll() {
	for poolID := range s.weights {
		live := s.liveAccrual(poolID)
		if live.Sign() > 0 {
			banked := s.settled[poolID]
			if banked == nil {
				banked = new(big.Int)
			}
			s.settled[poolID] = banked.Add(banked, live)
		}
		s.lastClaim[poolID] = s.now
	}
}

// RewardRate returns the global emission rate per second, zero once the
// period has finished.
func (s *Schedule) RewardRate() *big.Int {
	if s.now >= s.periodFinish {
		return big.NewInt(0)
	}
	return new(big.Int).Set(s.rewardRate)
}

// PoolsLength reports how many pools the schedule tracks weights for.
func (s *Schedule) PoolsLength() uint64 {
	return uint64(len(s.weights))
}

// PoolRewardRate returns the pool's share of the global emission rate.
func (s *Schedule) PoolRewardRate(poolID uint64) (*big.Int, error) {
	weight := s.weights[poolID]
	if weight == 0 || s.totalWeight == 0 || s.now >= s.periodFinish {
		return big.NewInt(0), nil
	}
	rate := new(big.Int).Mul(s.rewardRate, new(big.Int).SetUint64(weight))
	return rate.Quo(rate, new(big.Int).SetUint64(s.totalWeight)), nil
}

// PendingRewards reports what Claim would return without advancing the
// pool's claim clock.
func (s *Schedule) PendingRewards(poolID uint64) (*big.Int, error) {
	return s.accrued(poolID), nil
}

// Claim pays out the reward the pool accrued since its last claim and
// advances the pool's claim clock as a side effect. Pools without a weight
// yield whatever a reweight banked for them.
func (s *Schedule) Claim(poolID uint64) (*big.Int, error) {
	amount := s.accrued(poolID)
	delete(s.settled, poolID)
	s.lastClaim[poolID] = s.now
	return amount, nil
}

// accrued is the banked settlement plus the live accrual of the open
// interval.
func (s *Schedule) accrued(poolID uint64) *big.Int {
	total := new(big.Int)
	if banked := s.settled[poolID]; banked != nil {
		total.Set(banked)
	}
	return total.Add(total, s.liveAccrual(poolID))
}

func (s *Schedule) liveAccrual(poolID uint64) *big.Int {
	weight := s.weights[poolID]
	if weight == 0 || s.totalWeight == 0 {
		return big.NewInt(0)
	}
	since := s.lastClaim[poolID]
	until := s.now
	if until > s.periodFinish {
		until = s.periodFinish
	}
	if until <= since {
		return big.NewInt(0)
	}
	amount := new(big.Int).SetUint64(until - since)
	amount.Mul(amount, s.rewardRate)
	amount.Mul(amount, new(big.Int).SetUint64(weight))
	return amount.Quo(amount, new(big.Int).SetUint64(s.totalWeight))
}
