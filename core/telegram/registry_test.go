package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "festbot/core/config"
	"festbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryRegisterCommand(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Open the menu"})
	reg.RegisterCommand("/cancel", commands.Command{Handler: noop, Description: "Close the menu", Aliases: []string{"stop"}})
	reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Stats", AdminOnly: true, Hidden: true})

	assert.ErrorIs(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "duplicate"}), ErrDuplicateCommand)
	assert.ErrorIs(t, reg.RegisterCommand("help", commands.Command{Handler: noop, Description: "no slash"}), ErrInvalidCommand)
	assert.ErrorIs(t, reg.RegisterCommand("/empty", commands.Command{Handler: noop}), ErrInvalidCommand)
	assert.ErrorIs(t, reg.RegisterCommand("/nil", commands.Command{Description: "no handler"}), ErrInvalidCommand)

	require.Len(t, reg.Commands(), 3)
	assert.Equal(t, "Open the menu", reg.Commands()["/start"].Description)

	assert.Equal(t, []tele.Command{
		{Text: "cancel", Description: "Close the menu"},
		{Text: "start", Description: "Open the menu"},
	}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)
}

func TestRegistryLookupCommand(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/cancel", commands.Command{Handler: noop, Description: "Close the menu", Aliases: []string{"stop"}})

	key, cmd, ok := reg.LookupCommand("cancel")
	require.True(t, ok)
	assert.Equal(t, "/cancel", key)
	assert.Equal(t, "Close the menu", cmd.Description)

	key, _, ok = reg.LookupCommand("/stop")
	require.True(t, ok)
	assert.Equal(t, "/cancel", key)

	_, _, ok = reg.LookupCommand("/start")
	assert.False(t, ok)
}

func TestBuildPoller(t *testing.T) {
	lp, ok := BuildPoller(PollerOptions{}).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, "10s", lp.Timeout.String())
	assert.Equal(t, DefaultAllowedUpdates, lp.AllowedUpdates)

	wh, ok := BuildPoller(PollerOptions{
		RunMode: "Webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook"},
	}).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "https://example.org/hook", wh.Endpoint.PublicURL)
	assert.Equal(t, []string{"message"}, wh.AllowedUpdates)
	assert.False(t, wh.DropUpdates)

	wh = BuildPoller(PollerOptions{RunMode: "webhook", DropPending: true}).(*tele.Webhook)
	assert.True(t, wh.DropUpdates)
}

func TestPollerOptionsFrom(t *testing.T) {
	cfg := &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{RunMode: coreconfig.RunModeLongpoll, LongPollTimeoutSeconds: 25},
		Webhook:  coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook"},
	}
	opts := PollerOptionsFrom(cfg)
	assert.Equal(t, 25, opts.LongPollTimeoutSeconds)
	assert.Equal(t, 8443, opts.Webhook.Port)
	assert.True(t, opts.DropPending)

	lp, ok := BuildPoller(opts).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 25*time.Second, lp.Timeout)

	assert.Equal(t, PollerOptions{}, PollerOptionsFrom(nil))
}
