package schema

// EnvelopeType identifies a coordination message on the shared channel.
type EnvelopeType string

const (
	// EnvelopeLeaderCheck asks any current leader to re-assert its claim.
	EnvelopeLeaderCheck EnvelopeType = "leader-check"
	// EnvelopeLeaderClaim asserts leadership with a logical timestamp.
	EnvelopeLeaderClaim EnvelopeType = "leader-claim"
	// EnvelopeHeartbeat proves the leader is still alive.
	EnvelopeHeartbeat EnvelopeType = "heartbeat"
)

// Envelope is the wire shape shared by every coordination message. All
// kinds travel on one named broadcast channel; Timestamp is Unix
// milliseconds and only meaningful on claims and heartbeats.
type Envelope struct {
	Type      EnvelopeType `json:"type"`
	TabID     TabID        `json:"tabId"`
	Timestamp int64        `json:"timestamp,omitempty"`
}
