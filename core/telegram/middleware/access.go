package middleware

import (
	"log/slog"

	"festbot/core/logger"
	tghelpers "festbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions configures AdminOnlyMiddleware.
type AdminOptions struct {
	AdminID int64
	// OnReject handles updates from anyone else; nil drops them silently.
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware lets only AdminID through. With AdminID unset every
// caller is rejected.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if isAdmin(c.Sender(), opts.AdminID) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "access.denied",
				slog.String("status", "rejected"),
				slog.Bool("admin_configured", opts.AdminID != 0),
			)
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}

func isAdmin(u *tele.User, adminID int64) bool {
	return adminID != 0 && u != nil && u.ID == adminID
}
