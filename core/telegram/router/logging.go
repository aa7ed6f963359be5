package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"festbot/core/logger"
	tghelpers "festbot/core/telegram/helpers"
	"festbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// withSummary tags the update context with name and logs one
// handler.handled line once next returns.
func withSummary(name string, next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		tghelpers.WithHandler(c, name)
		err := next(c)
		logSummary(c, name, time.Since(start), err)
		return err
	}
}

func logSummary(c tele.Context, name string, took time.Duration, err error) {
	ctx := tghelpers.WithHandler(c, name)
	msgs, kb := middleware.GetCounters(c)

	result := "ok"
	if err != nil {
		result = "fail"
	}
	attrs := []slog.Attr{
		slog.String("status", result),
		slog.String("outcome", result),
		slog.String("handler", name),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", took),
	}
	if at, ok := c.Get(middleware.ReceivedAtKey).(time.Time); ok {
		attrs = append(attrs, slog.Duration("total", time.Since(at)))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
			slog.String("cause", name),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

// deriveErrorCode prefers a Code() string anywhere in the chain and falls
// back to the concrete error type name, upper-cased.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return upperSnake(code)
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return upperSnake(t.Name())
}

func upperSnake(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", "_"))
}

// endpointName turns "/Start" or telebot's "\atext" into log-friendly names.
func endpointName(endpoint string) string {
	name := strings.TrimSpace(strings.TrimPrefix(endpoint, "\a"))
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
