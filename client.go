// Package parley is the real-time delivery core of a chat client: a
// streaming-response consumer, a cross-tab leader election
// coordinator, and the notification gating glue between them. Client
// composes the three per tab.
package parley

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"pkt.systems/parley/broadcast"
	"pkt.systems/parley/coordinator"
	"pkt.systems/parley/internal/logx"
	"pkt.systems/parley/notify"
	"pkt.systems/parley/schema"
	"pkt.systems/parley/stream"
	"pkt.systems/pslog"
)

// ClientConfig configures one tab's delivery core.
type ClientConfig struct {
	// BackendURL is the chat backend base URL.
	BackendURL string
	// StreamPath and LoginPath default per the stream package.
	StreamPath string
	LoginPath  string
	// ReturnTo is the current path carried to the login redirect.
	ReturnTo string
	// TabID identifies this tab. Generated when empty.
	TabID schema.TabID
	// Election carries the protocol timings.
	Election schema.ElectionConfig
	// Notifications carries the enabled default and dedup bound.
	Notifications schema.NotifyConfig
}

// ClientDeps captures the platform capabilities injected into the core.
type ClientDeps struct {
	// Channel is this tab's handle on the shared broadcast medium. Nil
	// degrades the coordinator to single-tab mode.
	Channel broadcast.Channel
	// Platform, Visibility, and Preferences back the notification gate.
	Platform    notify.Platform
	Visibility  notify.Visibility
	Preferences notify.Preferences
	// Focus and OpenConversation serve notification clicks.
	Focus            func()
	OpenConversation func(schema.ConversationID)
	// OnLeadershipChange observes settled leadership flips.
	OnLeadershipChange func(leader bool)
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Clock defaults to the system clock.
	Clock coordinator.Clock
	// Logger defaults to the background context logger.
	Logger pslog.Logger
}

// Client is one tab's delivery core.
type Client struct {
	tabID    schema.TabID
	consumer *stream.Consumer
	coord    *coordinator.Coordinator
	notify   *notify.Manager
	log      pslog.Logger

	closeOnce sync.Once
}

// NewClient composes a consumer, a coordinator, and a notification
// manager for one tab. Streaming callbacks are the caller's; the
// leadership gate is wired internally.
func NewClient(cfg ClientConfig, deps ClientDeps, callbacks stream.Callbacks) (*Client, error) {
	if cfg.TabID == "" {
		cfg.TabID = schema.TabID(uuid.NewString())
	}
	if deps.Logger == nil {
		deps.Logger = pslog.Ctx(context.Background())
	}
	log := logx.WithTab(deps.Logger, cfg.TabID)

	consumer := stream.New(stream.Config{
		BackendURL: cfg.BackendURL,
		StreamPath: cfg.StreamPath,
		LoginPath:  cfg.LoginPath,
		ReturnTo:   cfg.ReturnTo,
		HTTPClient: deps.HTTPClient,
		Logger:     log,
	}, callbacks)

	fanout := leadershipFanout{}
	if deps.OnLeadershipChange != nil {
		fanout = append(fanout, deps.OnLeadershipChange)
	}
	coord, err := coordinator.New(deps.Channel, coordinator.Config{
		TabID:    cfg.TabID,
		Election: cfg.Election,
		Clock:    deps.Clock,
		OnChange: fanout.onChange,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	manager, err := notify.NewManager(notify.Config{
		Notifications:    cfg.Notifications,
		Platform:         deps.Platform,
		Visibility:       deps.Visibility,
		Preferences:      deps.Preferences,
		IsLeader:         coord.IsLeader,
		Focus:            deps.Focus,
		OpenConversation: deps.OpenConversation,
		Logger:           log,
	})
	if err != nil {
		coord.Destroy()
		return nil, err
	}

	return &Client{
		tabID:    cfg.TabID,
		consumer: consumer,
		coord:    coord,
		notify:   manager,
		log:      log,
	}, nil
}

// TabID returns this tab's identifier.
func (c *Client) TabID() schema.TabID {
	return c.tabID
}

// Send starts one streaming turn.
func (c *Client) Send(ctx context.Context, req schema.ChatRequest) error {
	return c.consumer.Send(ctx, req)
}

// Cancel aborts the in-flight turn, if any.
func (c *Client) Cancel() {
	c.consumer.Cancel()
}

// IsLeader reports whether this tab holds notification leadership.
func (c *Client) IsLeader() bool {
	return c.coord.IsLeader()
}

// Notify surfaces a desktop notification if every gate passes.
func (c *Client) Notify(ctx context.Context, n schema.Notification) bool {
	return c.notify.Show(ctx, n)
}

// RequestPermission prompts for notification permission.
func (c *Client) RequestPermission(ctx context.Context) (bool, error) {
	return c.notify.RequestPermission(ctx)
}

// PermissionGranted reports the cached notification permission state.
func (c *Client) PermissionGranted() bool {
	return c.notify.PermissionGranted()
}

// SetActiveConversation records the conversation the tab is viewing.
func (c *Client) SetActiveConversation(id schema.ConversationID) {
	c.notify.SetActiveConversation(id)
}

// Close cancels any in-flight turn and tears down the coordinator.
// Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.consumer.Cancel()
		c.coord.Destroy()
		c.log.Debug("client closed")
	})
}
