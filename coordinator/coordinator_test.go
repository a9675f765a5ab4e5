package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"pkt.systems/parley/broadcast"
	"pkt.systems/parley/schema"
)

func fastElection() schema.ElectionConfig {
	return schema.ElectionConfig{
		SettleWindow:      30 * time.Millisecond,
		HeartbeatInterval: 25 * time.Millisecond,
		LivenessThreshold: 75 * time.Millisecond,
	}
}

func countLeaders(coords ...*Coordinator) int {
	leaders := 0
	for _, c := range coords {
		if c.IsLeader() {
			leaders++
		}
	}
	return leaders
}

func TestTwoTabsElectExactlyOneLeader(t *testing.T) {
	hub := broadcast.NewHub(nil)
	defer hub.Close()

	a, err := New(hub.Open(), Config{TabID: "tab-a", Election: fastElection()})
	if err != nil {
		t.Fatalf("New a: %v", err)
	}
	defer a.Destroy()
	b, err := New(hub.Open(), Config{TabID: "tab-b", Election: fastElection()})
	if err != nil {
		t.Fatalf("New b: %v", err)
	}
	defer b.Destroy()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if countLeaders(a, b) == 1 {
			// Hold the check briefly to ensure it is settled, not transient.
			time.Sleep(100 * time.Millisecond)
			if got := countLeaders(a, b); got == 1 {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected exactly one settled leader, a=%t b=%t", a.IsLeader(), b.IsLeader())
}

func TestFollowerTakesOverWhenLeaderDies(t *testing.T) {
	hub := broadcast.NewHub(nil)
	defer hub.Close()

	a, err := New(hub.Open(), Config{TabID: "tab-a", Election: fastElection()})
	if err != nil {
		t.Fatalf("New a: %v", err)
	}
	b, err := New(hub.Open(), Config{TabID: "tab-b", Election: fastElection()})
	if err != nil {
		t.Fatalf("New b: %v", err)
	}
	defer a.Destroy()
	defer b.Destroy()

	waitFor := func(cond func() bool, msg string) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if cond() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Fatalf("%s", msg)
	}

	waitFor(func() bool { return countLeaders(a, b) == 1 }, "no leader elected")

	leader, follower := a, b
	if b.IsLeader() {
		leader, follower = b, a
	}
	leader.Destroy()

	waitFor(follower.IsLeader, "follower did not take over after leader silence")
}

func TestNilChannelMeansSingleTabLeader(t *testing.T) {
	var mu sync.Mutex
	var changes []bool
	c, err := New(nil, Config{
		TabID: "tab-a",
		OnChange: func(leader bool) {
			mu.Lock()
			changes = append(changes, leader)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Destroy()
	if !c.IsLeader() {
		t.Fatalf("single-tab mode must be unconditionally leader")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 || !changes[0] {
		t.Fatalf("expected one leadership callback, got %v", changes)
	}
}

func TestNoCallbackAfterDestroy(t *testing.T) {
	hub := broadcast.NewHub(nil)
	defer hub.Close()

	var mu sync.Mutex
	calls := 0
	c, err := New(hub.Open(), Config{
		TabID:    "tab-a",
		Election: fastElection(),
		OnChange: func(bool) {
			mu.Lock()
			calls++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !c.IsLeader() {
		time.Sleep(10 * time.Millisecond)
	}
	c.Destroy()
	c.Destroy() // idempotent

	mu.Lock()
	before := calls
	mu.Unlock()

	// Traffic after Destroy must not reach the callback.
	other := hub.Open()
	_ = other.Publish(context.Background(), schema.Envelope{Type: schema.EnvelopeLeaderClaim, TabID: "tab-b", Timestamp: time.Now().UnixMilli() + 1000})
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	after := calls
	mu.Unlock()
	if after != before {
		t.Fatalf("leadership callback fired after Destroy (%d -> %d)", before, after)
	}
}
