// Package stream consumes the chat backend's streaming response,
// turning one HTTP request per user turn into an ordered sequence of
// typed callbacks with cancellation support.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"pkt.systems/parley/internal/logx"
	"pkt.systems/parley/schema"
	"pkt.systems/pslog"
)

// DefaultStreamPath is the backend route for streaming turns.
const DefaultStreamPath = "/api/chat/stream"

// DefaultLoginPath is the route unauthorized sessions are sent to.
const DefaultLoginPath = "/login"

// Callbacks receives the events of one streaming turn. All callbacks
// are invoked sequentially in wire order from a single goroutine; nil
// members are skipped. After a terminal event (complete, transport
// error, or cancellation) no further callback fires for that turn.
type Callbacks struct {
	// OnContentDelta receives the full running text after each delta.
	OnContentDelta func(full string)
	// OnToolCall receives each tool invocation that names a function.
	OnToolCall func(call schema.ToolCall, callID string)
	// OnError receives server error records and transport failures.
	OnError func(message string, metadata map[string]any)
	// OnComplete fires exactly once per completed turn.
	OnComplete func(result schema.TurnResult)
	// OnUnauthorized fires instead of OnError when the backend answers
	// 401; it carries the login route with the return target attached.
	OnUnauthorized func(loginURL string)
}

// Config configures a Consumer.
type Config struct {
	// BackendURL is the chat backend base URL.
	BackendURL string
	// StreamPath defaults to DefaultStreamPath.
	StreamPath string
	// LoginPath defaults to DefaultLoginPath.
	LoginPath string
	// ReturnTo is the current path carried to the login redirect.
	ReturnTo string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Logger defaults to the background context logger.
	Logger pslog.Logger
}

// Consumer issues one streaming request per turn. A consumer holds at
// most one turn in flight; the caller must cancel a running turn
// before sending the next one.
type Consumer struct {
	cfg Config
	cb  Callbacks
	log pslog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	inflight bool
}

// New constructs a Consumer.
func New(cfg Config, cb Callbacks) *Consumer {
	if cfg.StreamPath == "" {
		cfg.StreamPath = DefaultStreamPath
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = pslog.Ctx(context.Background())
	}
	return &Consumer{cfg: cfg, cb: cb, log: cfg.Logger}
}

// Send starts one streaming turn. It returns schema.ErrTurnInFlight if
// a previous turn has not finished or been cancelled, and validation
// errors from the request itself. The turn runs until its terminal
// callback; Send does not block on it.
func (c *Consumer) Send(ctx context.Context, req schema.ChatRequest) error {
	normalized, err := req.Normalize()
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.inflight {
		c.mu.Unlock()
		return schema.ErrTurnInFlight
	}
	turnCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.inflight = true
	c.mu.Unlock()

	go c.stream(turnCtx, normalized)
	return nil
}

// Cancel aborts the in-flight turn, if any. Cancellation is not a
// failure: neither OnError nor OnComplete fires for a cancelled turn.
// Safe to call at any time; a no-op after the turn ended.
func (c *Consumer) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Consumer) stream(ctx context.Context, req schema.ChatRequest) {
	defer func() {
		c.mu.Lock()
		c.inflight = false
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.mu.Unlock()
	}()

	log := logx.WithConversation(c.log, req.ConversationID)

	body, err := json.Marshal(req)
	if err != nil {
		c.emitError(log, err.Error(), nil)
		return
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BackendURL+c.cfg.StreamPath, bytes.NewReader(body))
	if err != nil {
		c.emitError(log, err.Error(), nil)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		if cancelled(ctx, err) {
			log.Debug("turn cancelled before response")
			return
		}
		c.emitError(log, err.Error(), nil)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		log.Info("backend session unauthorized")
		if c.cb.OnUnauthorized != nil {
			c.cb.OnUnauthorized(c.loginURL())
		}
		return
	}
	if resp.StatusCode != http.StatusOK {
		c.emitError(log, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
		return
	}

	var content strings.Builder
	var toolCalls []schema.ToolCall
	records := newRecordStream(resp.Body)
	for {
		event, err := records.Next(ctx)
		if err != nil {
			var decodeErr *recordDecodeError
			if errors.As(err, &decodeErr) {
				log.Warn("malformed stream record skipped", "preview", preview(string(decodeErr.Line()), 200), "err", err)
				continue
			}
			if cancelled(ctx, err) {
				log.Debug("turn cancelled", "received", content.Len())
				return
			}
			if errors.Is(err, io.EOF) {
				// The server is expected to close the turn with a done
				// record; a bare EOF is a transport failure.
				c.emitError(log, "stream ended before completion", nil)
				return
			}
			c.emitError(log, err.Error(), nil)
			return
		}
		if ctx.Err() != nil {
			log.Debug("turn cancelled", "received", content.Len())
			return
		}
		switch event.Type {
		case schema.EventContent:
			content.WriteString(event.Content)
			if c.cb.OnContentDelta != nil {
				c.cb.OnContentDelta(content.String())
			}
		case schema.EventToolCall:
			if event.ToolCall == nil || event.ToolCall.Function.Name == "" {
				log.Debug("tool call without function name dropped")
				continue
			}
			call := schema.ToolCall{
				ID:        event.ToolCallID,
				Name:      event.ToolCall.Function.Name,
				Arguments: event.ToolCall.Function.Arguments,
			}
			toolCalls = append(toolCalls, call)
			if c.cb.OnToolCall != nil {
				c.cb.OnToolCall(call, event.ToolCallID)
			}
		case schema.EventError:
			// Server errors are forwarded but do not end the read loop;
			// the server still owes a done record.
			if c.cb.OnError != nil {
				c.cb.OnError(event.Error, event.Metadata)
			}
		case schema.EventDone:
			log.Debug("turn completed", "content_len", content.Len(), "tool_calls", len(toolCalls))
			if c.cb.OnComplete != nil {
				c.cb.OnComplete(schema.TurnResult{
					Content:   content.String(),
					ToolCalls: toolCalls,
					Metadata:  event.Metadata,
				})
			}
			return
		default:
			log.Debug("unknown stream record skipped", "type", event.Type)
		}
	}
}

func (c *Consumer) emitError(log pslog.Logger, message string, metadata map[string]any) {
	log.Warn("turn failed", "err", message)
	if c.cb.OnError != nil {
		c.cb.OnError(message, metadata)
	}
}

func (c *Consumer) loginURL() string {
	if c.cfg.ReturnTo == "" {
		return c.cfg.LoginPath
	}
	return c.cfg.LoginPath + "?redirect=" + url.QueryEscape(c.cfg.ReturnTo)
}

func cancelled(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func preview(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max]
}
