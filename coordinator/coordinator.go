// Package coordinator elects a single leader among the open tabs of
// one application so that exactly one of them surfaces desktop
// notifications. Election is best-effort message passing over a shared
// broadcast channel: short windows with zero or two leaders are
// tolerated and self-heal within the liveness threshold.
package coordinator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"pkt.systems/parley/broadcast"
	"pkt.systems/parley/schema"
	"pkt.systems/pslog"
)

// Config configures a Coordinator.
type Config struct {
	// TabID identifies this tab. Generated when empty.
	TabID schema.TabID
	// Election carries the protocol timings.
	Election schema.ElectionConfig
	// Clock defaults to SystemClock.
	Clock Clock
	// OnChange is invoked whenever this tab's leadership flips. Never
	// called after Destroy returns.
	OnChange func(leader bool)
	// Logger defaults to the background context logger.
	Logger pslog.Logger
}

// Coordinator runs the election protocol for one tab.
type Coordinator struct {
	id     schema.TabID
	ch     broadcast.Channel
	clock  Clock
	cfg    schema.ElectionConfig
	onChg  func(bool)
	log    pslog.Logger
	m      *machine
	leader atomic.Bool

	destroyOnce sync.Once
	done        chan struct{}
	wg          sync.WaitGroup
}

// New starts a coordinator on the given channel. A nil channel means
// the broadcast primitive is unavailable; the tab then runs in
// single-tab mode and is unconditionally leader with no traffic.
func New(ch broadcast.Channel, cfg Config) (*Coordinator, error) {
	election, err := schema.NormalizeElectionConfig(cfg.Election)
	if err != nil {
		return nil, err
	}
	if cfg.TabID == "" {
		cfg.TabID = schema.TabID(uuid.NewString())
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = pslog.Ctx(context.Background())
	}
	c := &Coordinator{
		id:    cfg.TabID,
		ch:    ch,
		clock: cfg.Clock,
		cfg:   election,
		onChg: cfg.OnChange,
		log:   cfg.Logger.With("tab", cfg.TabID),
		m:     newMachine(cfg.TabID, election.LivenessThreshold),
		done:  make(chan struct{}),
	}
	if ch == nil {
		c.m.state = StateLeader
		c.leader.Store(true)
		c.log.Debug("election degraded to single-tab mode")
		if c.onChg != nil {
			c.onChg(true)
		}
		return c, nil
	}
	c.publish(c.m.start())
	c.wg.Add(1)
	go c.run()
	return c, nil
}

// TabID returns this tab's identifier.
func (c *Coordinator) TabID() schema.TabID {
	return c.id
}

// IsLeader reports whether this tab currently holds leadership.
func (c *Coordinator) IsLeader() bool {
	return c.leader.Load()
}

// Destroy stops timers and closes the channel. Idempotent; no
// leadership callback fires after it returns.
func (c *Coordinator) Destroy() {
	c.destroyOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		if c.ch != nil {
			_ = c.ch.Close()
		}
		c.log.Debug("coordinator destroyed")
	})
}

func (c *Coordinator) run() {
	defer c.wg.Done()
	settle := c.clock.After(c.cfg.SettleWindow)
	ticker := c.clock.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case env, ok := <-c.ch.Messages():
			if !ok {
				return
			}
			out, changed := c.m.handle(env, c.clock.Now())
			c.apply(out, changed)
		case <-settle:
			settle = nil
			out, changed := c.m.settleExpired(c.clock.Now())
			c.apply(out, changed)
		case <-ticker.Chan():
			out, changed := c.m.tick(c.clock.Now())
			c.apply(out, changed)
		}
	}
}

func (c *Coordinator) apply(out []schema.Envelope, changed bool) {
	for _, env := range out {
		c.publish(env)
	}
	leader := c.m.isLeader()
	c.leader.Store(leader)
	if changed {
		c.log.Info("leadership changed", "leader", leader, "state", c.m.state)
		if c.onChg != nil {
			c.onChg(leader)
		}
	}
}

func (c *Coordinator) publish(env schema.Envelope) {
	if err := c.ch.Publish(context.Background(), env); err != nil {
		c.log.Warn("election publish failed", "type", env.Type, "err", err)
	}
}
