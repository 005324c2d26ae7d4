package sar

import (
	"errors"
	"math/big"
	"testing"

	nativecommon "sarchef/native/common"
)

type mockPauses struct{ paused bool }

func (m *mockPauses) IsPaused(module string) bool { return m.paused && module == moduleName }

func TestPauseGatesMutationsButNotEmergencyExit(t *testing.T) {
	h := newHarness(t, 5)
	pauses := &mockPauses{}
	h.engine.SetPauses(pauses)

	if err := h.engine.Stake(PoolZeroID, alice, big.NewInt(100)); err != nil {
		t.Fatalf("stake while unpaused: %v", err)
	}
	h.setTime(100)

	pauses.paused = true
	if err := h.engine.Stake(PoolZeroID, alice, big.NewInt(1)); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("stake err = %v, want ErrModulePaused", err)
	}
	if _, err := h.engine.Withdraw(PoolZeroID, alice, big.NewInt(1)); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("withdraw err = %v, want ErrModulePaused", err)
	}
	if _, err := h.engine.Compound(PoolZeroID, alice, big.NewInt(1000), nil); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("compound err = %v, want ErrModulePaused", err)
	}

	// The escape hatch stays open while paused.
	if err := h.engine.EmergencyExitLevel1(PoolZeroID, alice); err != nil {
		t.Fatalf("emergency exit while paused: %v", err)
	}
}
