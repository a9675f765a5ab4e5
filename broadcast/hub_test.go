package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/parley/schema"
)

func TestHubFanoutExcludesSender(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	a := hub.Open()
	b := hub.Open()
	c := hub.Open()

	env := schema.Envelope{Type: schema.EnvelopeLeaderClaim, TabID: "tab-a", Timestamp: 42}
	if err := a.Publish(context.Background(), env); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for name, ch := range map[string]Channel{"b": b, "c": c} {
		select {
		case got := <-ch.Messages():
			if got != env {
				t.Fatalf("subscriber %s got %+v, want %+v", name, got, env)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("subscriber %s timed out", name)
		}
	}

	select {
	case got := <-a.Messages():
		t.Fatalf("sender received own envelope: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubCloseClosesMessages(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Open()
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-a.Messages(); ok {
		t.Fatalf("expected messages channel to be closed")
	}
	if err := a.Publish(context.Background(), schema.Envelope{}); !errors.Is(err, schema.ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}

func TestHubPublishAfterHubClose(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Open()
	hub.Close()
	if err := a.Publish(context.Background(), schema.Envelope{}); !errors.Is(err, schema.ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
	if _, ok := <-a.Messages(); ok {
		t.Fatalf("expected messages channel to be closed")
	}
}

func TestHubPublishDoesNotBlockWhenFull(t *testing.T) {
	hub := NewHub(nil)
	hub.depth = 1
	defer hub.Close()
	a := hub.Open()
	_ = hub.Open() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = a.Publish(context.Background(), schema.Envelope{Type: schema.EnvelopeHeartbeat, TabID: "tab-a"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a full subscriber")
	}
}
