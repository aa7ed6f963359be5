// Package helpers carries per-update logging context and the send helpers
// handlers use to reply.
package helpers

import (
	"context"

	"festbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	contextKey = "logger_ctx"
	ridKey     = "rid"
)

// StoreContext attaches ctx to c so later handlers and helpers log with it.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(contextKey, ctx)
	}
}

// ContextFrom returns the context stored on c, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// NewUpdateContext builds a fresh logging context for the update carried by
// c. The request id is minted once per update and reused afterwards.
func NewUpdateContext(c tele.Context) context.Context {
	updateID, chatID, userID := identify(c)
	rid, _ := c.Get(ridKey).(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
		c.Set(ridKey, rid)
	}

	ctx := logger.WithUpdateMeta(logger.WithRID(context.Background(), rid), updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

func identify(c tele.Context) (updateID int, chatID, userID int64) {
	updateID = c.Update().ID
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	return updateID, chatID, userID
}

// BuildContext returns the stored update context, creating it on first use.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}
	return NewUpdateContext(c)
}

// WithHandler tags the update context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	return amend(c, handler, logger.WithHandler)
}

// WithConversation tags the update context with the conversation id so the
// handler summary and queued sends carry it.
func WithConversation(c tele.Context, conversationID string) context.Context {
	return amend(c, conversationID, logger.WithConversation)
}

func amend(c tele.Context, v string, with func(context.Context, string) context.Context) context.Context {
	ctx := BuildContext(c)
	if v == "" {
		return ctx
	}
	ctx = with(ctx, v)
	StoreContext(c, ctx)
	return ctx
}
