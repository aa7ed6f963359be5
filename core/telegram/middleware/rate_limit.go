package middleware

import (
	"log/slog"
	"sync"
	"time"

	"festbot/core/logger"
	tghelpers "festbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// sweepThreshold is the number of tracked users that triggers eviction of
// entries older than the interval.
const sweepThreshold = 1024

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude holds update kinds ("command", "message") that bypass limiting.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now defaults to time.Now.
	Now func() time.Time
}

// RateLimitMiddleware drops updates that arrive from the same user faster
// than opts.Interval.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limiter := &userLimiter{interval: opts.Interval, seen: make(map[int64]time.Time)}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if limiter.allow(user.ID, now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("kind", kind),
				slog.Duration("interval", opts.Interval),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

// updateKind maps an update onto the kinds accepted by rate_limit.exclude_updates.
func updateKind(upd tele.Update) string {
	if upd.Message == nil {
		return "other"
	}
	if MessageKind(upd.Message) == "command" {
		return "command"
	}
	return "message"
}

type userLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	seen     map[int64]time.Time
}

func (l *userLimiter) allow(userID int64, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.seen[userID]; ok && at.Sub(last) < l.interval {
		return false
	}
	l.seen[userID] = at
	if len(l.seen) > sweepThreshold {
		for id, ts := range l.seen {
			if at.Sub(ts) >= l.interval {
				delete(l.seen, id)
			}
		}
	}
	return true
}
