package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	metaKey ctxKey = iota
	loggerKey
)

// Meta is the correlation data attached to every log line of one update.
type Meta struct {
	RID            string
	ConversationID string
	Handler        string
	UpdateID       int
	UserID         int64
	ChatID         int64
}

// MetaFrom returns the correlation data stored in ctx.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey).(Meta)
	return m
}

func updateMeta(ctx context.Context, fn func(*Meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := MetaFrom(ctx)
	fn(&m)
	return context.WithValue(ctx, metaKey, m)
}

// WithLogger stores log in ctx; FromContext falls back to L without it.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger stored by WithLogger or the global one.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return updateMeta(ctx, func(m *Meta) { m.RID = rid })
}

// WithUpdateMeta attaches the Telegram update, user and chat ids.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return updateMeta(ctx, func(m *Meta) {
		m.UpdateID = updateID
		m.UserID = userID
		m.ChatID = chatID
	})
}

// WithHandler names the handler serving the update. Empty names are ignored.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return orBackground(ctx)
	}
	return updateMeta(ctx, func(m *Meta) { m.Handler = handler })
}

// WithConversation attaches the id of the user's menu conversation.
// Empty ids are ignored.
func WithConversation(ctx context.Context, convID string) context.Context {
	if convID == "" {
		return orBackground(ctx)
	}
	return updateMeta(ctx, func(m *Meta) { m.ConversationID = convID })
}

func RIDFrom(ctx context.Context) string            { return MetaFrom(ctx).RID }
func HandlerFrom(ctx context.Context) string        { return MetaFrom(ctx).Handler }
func ConversationIDFrom(ctx context.Context) string { return MetaFrom(ctx).ConversationID }
func UserIDFrom(ctx context.Context) int64          { return MetaFrom(ctx).UserID }
func ChatIDFrom(ctx context.Context) int64          { return MetaFrom(ctx).ChatID }
func UpdateIDFrom(ctx context.Context) int          { return MetaFrom(ctx).UpdateID }

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// attrs lists the non-zero correlation fields in log key form.
func (m Meta) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, 6)
	if m.RID != "" {
		out = append(out, slog.String("rid", m.RID))
	}
	if m.ConversationID != "" {
		out = append(out, slog.String("conv_id", m.ConversationID))
	}
	if m.UserID != 0 {
		out = append(out, slog.Int64("user_id", m.UserID))
	}
	if m.UpdateID != 0 {
		out = append(out, slog.Int("update_id", m.UpdateID))
	}
	if m.ChatID != 0 {
		out = append(out, slog.Int64("chat_id", m.ChatID))
	}
	if m.Handler != "" {
		out = append(out, slog.String("handler", m.Handler))
	}
	return out
}
