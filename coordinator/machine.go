package coordinator

import (
	"time"

	"pkt.systems/parley/schema"
)

// State is the election role of one tab.
type State string

const (
	// StateElecting means the tab is waiting out the settle window.
	StateElecting State = "electing"
	// StateLeader means this tab surfaces notifications.
	StateLeader State = "leader"
	// StateFollower means another tab is believed to lead.
	StateFollower State = "follower"
)

// machine is the election state machine for one tab. It is purely
// synchronous: the coordinator feeds it envelopes and timer expiries
// and publishes whatever it returns. Claims are adopted only when they
// carry a strictly newer timestamp than the newest one seen; timestamp
// ties break by lexicographic tab id so every tab resolves the same
// way regardless of arrival order.
type machine struct {
	id       schema.TabID
	liveness time.Duration

	state          State
	claimedAt      int64 // own claim timestamp while leader, Unix ms
	leaderID       schema.TabID
	leaderClaimTS  int64
	lastLeaderSeen time.Time
}

func newMachine(id schema.TabID, liveness time.Duration) *machine {
	return &machine{
		id:       id,
		liveness: liveness,
		state:    StateElecting,
	}
}

// start returns the opening leader-check broadcast.
func (m *machine) start() schema.Envelope {
	return schema.Envelope{Type: schema.EnvelopeLeaderCheck, TabID: m.id}
}

// handle applies one received envelope. It returns envelopes to
// publish and whether this tab's leadership flipped.
func (m *machine) handle(env schema.Envelope, now time.Time) ([]schema.Envelope, bool) {
	if env.TabID == m.id || env.TabID == "" {
		return nil, false
	}
	switch env.Type {
	case schema.EnvelopeLeaderCheck:
		if m.state == StateLeader {
			return []schema.Envelope{m.claim()}, false
		}
	case schema.EnvelopeLeaderClaim:
		return nil, m.adopt(env, now)
	case schema.EnvelopeHeartbeat:
		if env.TabID == m.leaderID {
			m.lastLeaderSeen = now
		}
	}
	return nil, false
}

// settleExpired fires once when the opening settle window elapses. If
// no claim was adopted in the window the tab promotes itself.
func (m *machine) settleExpired(now time.Time) ([]schema.Envelope, bool) {
	if m.state != StateElecting {
		return nil, false
	}
	if m.leaderID != "" {
		m.state = StateFollower
		return nil, false
	}
	return m.promote(now)
}

// tick fires on every heartbeat interval. Leaders publish a heartbeat;
// followers check leader liveness and claim directly on silence.
func (m *machine) tick(now time.Time) ([]schema.Envelope, bool) {
	switch m.state {
	case StateLeader:
		return []schema.Envelope{{
			Type:      schema.EnvelopeHeartbeat,
			TabID:     m.id,
			Timestamp: now.UnixMilli(),
		}}, false
	case StateFollower:
		if now.Sub(m.lastLeaderSeen) >= m.liveness {
			return m.promote(now)
		}
	}
	return nil, false
}

func (m *machine) adopt(env schema.Envelope, now time.Time) bool {
	newer := env.Timestamp > m.leaderClaimTS
	tie := env.Timestamp == m.leaderClaimTS && m.leaderID != "" && env.TabID < m.leaderID
	if !newer && !tie {
		// A stale claim from the known leader still proves liveness.
		if env.TabID == m.leaderID {
			m.lastLeaderSeen = now
		}
		return false
	}
	m.leaderID = env.TabID
	m.leaderClaimTS = env.Timestamp
	m.lastLeaderSeen = now
	switch m.state {
	case StateLeader:
		m.state = StateFollower
		return true
	case StateElecting:
		m.state = StateFollower
	}
	return false
}

func (m *machine) promote(now time.Time) ([]schema.Envelope, bool) {
	ts := now.UnixMilli()
	// Own claims must outbid every claim seen so far, including our own
	// earlier ones, so adoption stays monotonic at every tab.
	if ts <= m.leaderClaimTS {
		ts = m.leaderClaimTS + 1
	}
	m.state = StateLeader
	m.claimedAt = ts
	m.leaderID = m.id
	m.leaderClaimTS = ts
	m.lastLeaderSeen = now
	return []schema.Envelope{m.claim()}, true
}

func (m *machine) claim() schema.Envelope {
	return schema.Envelope{
		Type:      schema.EnvelopeLeaderClaim,
		TabID:     m.id,
		Timestamp: m.claimedAt,
	}
}

func (m *machine) isLeader() bool {
	return m.state == StateLeader
}
