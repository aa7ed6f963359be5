package middleware

import (
	"log/slog"
	"sync"
	"time"

	"festbot/core/logger"
	tghelpers "festbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ReceivedAtKey holds the time LoggerMiddleware first saw the update.
const ReceivedAtKey = "update_start"

const receiptTTL = 10 * time.Second

// receipts remembers update ids already logged so nested route
// middlewares emit one update.received line per update.
type receipts struct {
	mu   sync.Mutex
	seen map[int]time.Time
}

var logged = &receipts{seen: make(map[int]time.Time)}

func (r *receipts) first(updateID int, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, at := range r.seen {
		if now.Sub(at) > receiptTTL {
			delete(r.seen, id)
		}
	}
	if _, dup := r.seen[updateID]; dup {
		return false
	}
	r.seen[updateID] = now
	return true
}

// LoggerMiddleware binds the update's rid and metadata to the context and
// logs a sampled debug receipt once per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		now := time.Now()
		if c.Get(ReceivedAtKey) == nil {
			c.Set(ReceivedAtKey, now)
		}
		ctx := tghelpers.NewUpdateContext(c)
		upd := c.Update()
		if logger.ShouldSampleDebug() && logged.first(upd.ID, now) {
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}
	if msg := c.Message(); msg != nil {
		attrs = append(attrs, slog.String("msg_kind", MessageKind(msg)))
		if text := c.Text(); text != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(text, 256)))
		}
	}
	return attrs
}

// MessageKind names the content carried by msg for logs and routing.
func MessageKind(msg *tele.Message) string {
	switch {
	case msg == nil:
		return "none"
	case msg.Document != nil:
		return "document"
	case msg.Photo != nil:
		return "photo"
	case msg.Sticker != nil:
		return "sticker"
	case msg.Voice != nil:
		return "voice"
	case msg.Video != nil:
		return "video"
	case msg.Audio != nil:
		return "audio"
	case msg.Animation != nil:
		return "animation"
	case msg.VideoNote != nil:
		return "video_note"
	case msg.Location != nil:
		return "location"
	case msg.Contact != nil:
		return "contact"
	case len(msg.Entities) > 0 && msg.Entities[0].Type == tele.EntityCommand && msg.Entities[0].Offset == 0:
		return "command"
	case msg.Text != "":
		return "text"
	default:
		return "other"
	}
}
