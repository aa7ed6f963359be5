package app

import (
	"errors"
	"fmt"

	"festbot/core/buildinfo"
	"festbot/core/telegram/commands"
	tghelpers "festbot/core/telegram/helpers"
	"festbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

func (a *App) registerCommands() error {
	return errors.Join(
		a.registry.RegisterCommand("/"+conversation.CommandStart, commands.Command{
			Handler:     a.handleMessage,
			Description: "Open the festival menu",
		}),
		a.registry.RegisterCommand("/"+conversation.CommandCancel, commands.Command{
			Handler:     a.handleMessage,
			Description: "Close the menu",
		}),
		a.registry.RegisterCommand("/stats", commands.Command{
			Handler:     a.handleStats,
			Description: "Bot statistics",
			AdminOnly:   true,
			Hidden:      true,
		}),
	)
}

func (a *App) handleStats(c tele.Context) error {
	return tghelpers.SendText(c, a.statsText())
}

func (a *App) statsText() string {
	return fmt.Sprintf(
		"festbot %s\nsource: %s\nsections: %d\nevents: %d\nactive sessions: %d",
		buildinfo.Current(),
		a.cfg.Content.Source,
		len(a.content.Labels()),
		len(a.content.Events()),
		a.sessions.Len(),
	)
}
