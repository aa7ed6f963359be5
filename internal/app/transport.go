package app

import (
	"strings"

	tghelpers "festbot/core/telegram/helpers"
	"festbot/core/telegram/keyboard"
	"festbot/core/telegram/middleware"
	"festbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// handleMessage runs one update through the machine and sends its replies.
func (a *App) handleMessage(c tele.Context) error {
	in, ok := inboundFrom(c)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	res, err := a.machine.Handle(ctx, in)
	tghelpers.WithConversation(c, res.ConversationID)
	if err != nil {
		return err
	}
	return deliver(c, res.Replies)
}

func inboundFrom(c tele.Context) (conversation.Inbound, bool) {
	sender := c.Sender()
	msg := c.Message()
	if sender == nil || msg == nil {
		return conversation.Inbound{}, false
	}
	return conversation.Inbound{
		UserID:      sender.ID,
		Kind:        kindOf(msg),
		Text:        c.Text(),
		DisplayName: displayName(sender),
	}, true
}

func kindOf(msg *tele.Message) conversation.Kind {
	switch middleware.MessageKind(msg) {
	case "command":
		return conversation.KindCommand
	case "text":
		if strings.HasPrefix(strings.TrimSpace(msg.Text), "/") {
			return conversation.KindCommand
		}
		return conversation.KindText
	case "document":
		return conversation.KindDocument
	case "photo":
		return conversation.KindPhoto
	case "sticker":
		return conversation.KindSticker
	default:
		return conversation.KindOther
	}
}

func displayName(u *tele.User) string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = strings.TrimSpace(u.Username)
	}
	return name
}

func deliver(c tele.Context, replies []conversation.Reply) error {
	for _, r := range replies {
		opts := sendOptions(r)
		var err error
		if r.Quote {
			err = tghelpers.Reply(c, r.Text, opts)
		} else {
			err = tghelpers.SendText(c, r.Text, opts)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func sendOptions(r conversation.Reply) *tele.SendOptions {
	opts := &tele.SendOptions{}
	if r.Markdown {
		opts.ParseMode = tele.ModeMarkdown
	}
	switch r.Keyboard {
	case conversation.KeyboardShow:
		opts.ReplyMarkup = keyboard.Column(r.Options)
	case conversation.KeyboardRemove:
		opts.ReplyMarkup = keyboard.Remove()
	}
	return opts
}
