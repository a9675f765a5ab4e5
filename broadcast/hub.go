package broadcast

import (
	"context"
	"sync"

	"pkt.systems/parley/schema"
	"pkt.systems/pslog"
)

// Hub fans envelopes out to in-process subscribers.
type Hub struct {
	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool
	log    pslog.Logger
	depth  int
}

// NewHub constructs an in-process broadcast hub.
func NewHub(logger pslog.Logger) *Hub {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Hub{
		conns: make(map[*conn]struct{}),
		log:   logger,
		depth: 64,
	}
}

// Open attaches a new subscriber and returns its channel handle.
func (h *Hub) Open() Channel {
	c := &conn{
		hub:  h,
		msgs: make(chan schema.Envelope, h.depth),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(c.msgs)
		c.closed = true
		return c
	}
	h.conns[c] = struct{}{}
	count := len(h.conns)
	h.mu.Unlock()
	h.log.Debug("broadcast open", "conns", count)
	return c
}

// Close detaches every subscriber and rejects further opens.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*conn]struct{})
	h.mu.Unlock()
	for _, c := range conns {
		c.detach()
	}
}

func (h *Hub) publish(from *conn, env schema.Envelope) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return schema.ErrChannelClosed
	}
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		if c == from {
			continue
		}
		conns = append(conns, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range conns {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			continue
		}
		select {
		case c.msgs <- env:
		default:
			dropped++
		}
		c.mu.Unlock()
	}
	if dropped > 0 {
		h.log.Warn("broadcast envelope dropped", "type", env.Type, "dropped", dropped)
	}
	return nil
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// conn is one subscriber's handle on the hub.
type conn struct {
	hub    *Hub
	mu     sync.Mutex
	msgs   chan schema.Envelope
	closed bool
}

func (c *conn) Publish(ctx context.Context, env schema.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return schema.ErrChannelClosed
	}
	return c.hub.publish(c, env)
}

func (c *conn) Messages() <-chan schema.Envelope {
	return c.msgs
}

func (c *conn) Close() error {
	c.hub.remove(c)
	c.detach()
	return nil
}

func (c *conn) detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.msgs)
}
