package funding

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func newTestSchedule(t *testing.T, rate string) *Schedule {
	t.Helper()
	s, err := NewSchedule(Config{
		RewardRate:     rate,
		StartTime:      100,
		PeriodFinish:   1000,
		PoolZeroWeight: 1000,
	})
	if err != nil {
		t.Fatalf("new schedule: %v", err)
	}
	return s
}

func TestScheduleSinglePoolDrip(t *testing.T) {
	s := newTestSchedule(t, "5")
	s.SetTimestamp(200)
	pending, err := s.PendingRewards(0)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("pending = %s, want 500", pending)
	}

	claimed, err := s.Claim(0)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("claimed = %s, want 500", claimed)
	}
	// Claiming advanced the clock; nothing accrues at the same timestamp.
	claimed, err = s.Claim(0)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed.Sign() != 0 {
		t.Fatalf("second claim = %s, want 0", claimed)
	}
}

func TestScheduleSplitsByWeight(t *testing.T) {
	s := newTestSchedule(t, "9")
	s.SetPoolWeight(1, 2000)
	s.SetTimestamp(200)

	zero, _ := s.Claim(0)
	one, _ := s.Claim(1)
	if zero.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("pool zero claim = %s, want 300", zero)
	}
	if one.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("pool one claim = %s, want 600", one)
	}

	rate, err := s.PoolRewardRate(1)
	if err != nil {
		t.Fatalf("pool reward rate: %v", err)
	}
	if rate.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("pool one rate = %s, want 6", rate)
	}
}

func TestScheduleNewPoolAccruesFromRegistration(t *testing.T) {
	s := newTestSchedule(t, "10")
	s.SetTimestamp(500)
	s.SetPoolWeight(1, 1000)
	s.SetTimestamp(600)
	got, _ := s.Claim(1)
	// Weight split is even, so the pool earns half the rate for the 100
	// seconds since registration, not since the epoch.
	if got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("claim = %s, want 500", got)
	}
}

func TestScheduleReweightDoesNotRepriceAccrual(t *testing.T) {
	s := newTestSchedule(t, "12")
	s.SetPoolWeight(1, 1000)

	// 100 seconds at an even split: 600 accrued to each pool. The reweight
	// banks those before the new ratio takes effect; it must not rewrite
	// history for either pool.
	s.SetTimestamp(200)
	s.SetPoolWeight(1, 3000)

	s.SetTimestamp(300)
	zero, _ := s.Claim(0)
	one, _ := s.Claim(1)
	if zero.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("pool zero claim = %s, want 600+300", zero)
	}
	if one.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("pool one claim = %s, want 600+900", one)
	}
	// Conservation: the two claims together equal the emission dripped over
	// the 200 seconds.
	total := new(big.Int).Add(zero, one)
	if total.Cmp(big.NewInt(2400)) != 0 {
		t.Fatalf("total = %s, want 2400", total)
	}

	// A banked settlement survives even a weight drop to zero.
	s.SetTimestamp(400)
	s.SetPoolWeight(1, 0)
	s.SetTimestamp(500)
	one, _ = s.Claim(1)
	if one.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("zero-weight claim = %s, want the 900 banked before the drop", one)
	}
}

func TestScheduleStopsAtPeriodFinish(t *testing.T) {
	s := newTestSchedule(t, "5")
	s.SetTimestamp(5000)
	got, _ := s.Claim(0)
	// Accrual is capped at PeriodFinish=1000.
	if got.Cmp(big.NewInt(4500)) != 0 {
		t.Fatalf("claim = %s, want 4500", got)
	}
	if s.RewardRate().Sign() != 0 {
		t.Fatalf("rate after finish = %s, want 0", s.RewardRate())
	}
	rate, _ := s.PoolRewardRate(0)
	if rate.Sign() != 0 {
		t.Fatalf("pool rate after finish = %s, want 0", rate)
	}
}

func TestScheduleClockNeverMovesBackwards(t *testing.T) {
	s := newTestSchedule(t, "5")
	s.SetTimestamp(300)
	s.SetTimestamp(200)
	got, _ := s.PendingRewards(0)
	if got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("pending = %s, want 1000", got)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", DefaultConfig(), true},
		{"garbage rate", Config{RewardRate: "ten", PoolZeroWeight: 1}, false},
		{"negative rate", Config{RewardRate: "-1", PoolZeroWeight: 1}, false},
		{"zero pool weight", Config{RewardRate: "1"}, false},
		{"finish before start", Config{RewardRate: "1", PoolZeroWeight: 1, StartTime: 10, PeriodFinish: 5}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funding.toml")
	body := "RewardRate = \"25\"\nStartTime = 100\nPeriodFinish = 200\nPoolZeroWeight = 500\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RewardRate != "25" || cfg.StartTime != 100 || cfg.PeriodFinish != 200 || cfg.PoolZeroWeight != 500 {
		t.Fatalf("cfg = %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("missing file must error")
	}
}
