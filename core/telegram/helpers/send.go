package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"festbot/core/logger"
	"festbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// queueWait bounds how long a reply waits for room on its chat's shard.
var queueWait = 5 * time.Second

// SetDispatcher routes helper sends through d. With nil, sends run inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// SendText sends text to the current recipient, with opts when given.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var o *tele.SendOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return deliver(c, "send.text", "sendMessage", o, func() error {
		if o == nil {
			return c.Send(text)
		}
		return c.Send(text, o)
	})
}

// Reply answers the inbound message with text, quoting it. Nil opts sends
// plain text.
func Reply(c tele.Context, text string, opts *tele.SendOptions) error {
	if opts == nil {
		opts = &tele.SendOptions{}
	}
	if msg := c.Message(); msg != nil {
		opts.ReplyTo = msg
	}
	return SendText(c, text, opts)
}

// deliver queues run on the dispatcher and counts the reply once accepted.
// A full shard is waited on for up to queueWait so the reply stays behind
// earlier replies to the same chat. If the shard stays full, or the
// dispatcher is closing, the reply is sent inline and may overtake replies
// still queued for that chat.
func deliver(c tele.Context, action, endpoint string, opts *tele.SendOptions, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return sendNow(c, opts, run)
	}
	ctx := BuildContext(c)
	err := d.EnqueueWait(ctx, queueWait, action, endpoint, run)
	switch {
	case err == nil:
		recordSend(c, opts)
		return nil
	case errors.Is(err, sender.ErrQueueFull), errors.Is(err, sender.ErrQueueClosed):
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return sendNow(c, opts, run)
	default:
		return err
	}
}

func sendNow(c tele.Context, opts *tele.SendOptions, run func() error) error {
	if err := run(); err != nil {
		return err
	}
	recordSend(c, opts)
	return nil
}
