package router

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"festbot/core/logger"
	tg "festbot/core/telegram"
	"festbot/core/telegram/commands"
	"festbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures admin gating for AdminOnly commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes turns every registered command into a route, plus one route
// per alias sharing the same wrapped handler.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	gate := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	all := reg.Commands()
	var routes []tg.Route
	for _, name := range slices.Sorted(maps.Keys(all)) {
		def := all[name]
		h := commandHandler(name, def, gate)
		for _, endpoint := range commandEndpoints(name, def.Aliases) {
			routes = append(routes, tg.Route{Endpoint: endpoint, Handler: h})
		}
	}

	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(all)),
		slog.Int("routes", len(routes)),
	)
	return routes
}

func commandHandler(name string, def commands.Command, gate tele.MiddlewareFunc) tele.HandlerFunc {
	h := def.Handler
	if def.AdminOnly {
		h = gate(h)
	}
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(withSummary(endpointName(name), h)))
}

func commandEndpoints(name string, aliases []string) []string {
	out := []string{name}
	for _, alias := range aliases {
		if alias = strings.TrimSpace(alias); alias == "" {
			continue
		}
		out = append(out, "/"+strings.TrimPrefix(alias, "/"))
	}
	return out
}
