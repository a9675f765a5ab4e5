// Package logx carries pslog loggers on contexts and annotates them
// with the identifiers threaded through the delivery core.
package logx

import (
	"context"

	"pkt.systems/parley/schema"
	"pkt.systems/pslog"
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// ContextWithLogger attaches the logger to the context.
func ContextWithLogger(ctx context.Context, log pslog.Logger) context.Context {
	return pslog.ContextWithLogger(ctx, log)
}

// WithTab annotates the logger with a tab id when available.
func WithTab(log pslog.Logger, tabID schema.TabID) pslog.Logger {
	if tabID != "" {
		log = log.With("tab", tabID)
	}
	return log
}

// WithConversation annotates the logger with a conversation id when available.
func WithConversation(log pslog.Logger, conversationID schema.ConversationID) pslog.Logger {
	if conversationID != "" {
		log = log.With("conversation", conversationID)
	}
	return log
}
