package middleware

import (
	tghelpers "festbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// MessageMetricsMiddleware resets the reply counters that handler summaries
// report as messages and kb.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		tghelpers.ResetCounters(c)
		return next(c)
	}
}

// GetCounters returns the reply count and keyboard flag of the update.
func GetCounters(c tele.Context) (int, bool) {
	return tghelpers.Counters(c)
}
