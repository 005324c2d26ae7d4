package events

import (
	"math/big"
	"testing"
)

func TestStakedEvent(t *testing.T) {
	var user [20]byte
	user[19] = 0x42
	evt := Staked{PoolID: 3, User: user, Amount: big.NewInt(100), Reward: big.NewInt(7)}.Event()
	if evt.Type != TypeStaked {
		t.Fatalf("type = %s, want %s", evt.Type, TypeStaked)
	}
	if evt.Attributes["poolId"] != "3" {
		t.Fatalf("poolId = %s", evt.Attributes["poolId"])
	}
	if evt.Attributes["user"] != "0x0000000000000000000000000000000000000042" {
		t.Fatalf("user = %s", evt.Attributes["user"])
	}
	if evt.Attributes["amount"] != "100" || evt.Attributes["reward"] != "7" {
		t.Fatalf("amount/reward = %s/%s", evt.Attributes["amount"], evt.Attributes["reward"])
	}
}

func TestWithdrawnEventNilAmounts(t *testing.T) {
	evt := Withdrawn{PoolID: 1}.Event()
	if evt.Attributes["amount"] != "0" || evt.Attributes["reward"] != "0" {
		t.Fatalf("nil amounts must format as 0, got %v", evt.Attributes)
	}
}

func TestRewarderSetOmitsZeroAddress(t *testing.T) {
	evt := RewarderSet{PoolID: 2}.Event()
	if _, ok := evt.Attributes["rewarder"]; ok {
		t.Fatalf("cleared rewarder must not appear in attributes")
	}
	var hook [20]byte
	hook[19] = 1
	evt = RewarderSet{PoolID: 2, Rewarder: hook}.Event()
	if evt.Attributes["rewarder"] == "" {
		t.Fatalf("set rewarder must appear in attributes")
	}
}
