package router

import (
	tg "festbot/core/telegram"
	"festbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MessageRoutes binds handler to every endpoint. Each update is wrapped with
// recovery, receipt logging and a handler.handled summary named after the
// endpoint ("text", "photo" and so on).
func MessageRoutes(handler tele.HandlerFunc, endpoints ...string) []tg.Route {
	if handler == nil {
		return nil
	}
	routes := make([]tg.Route, 0, len(endpoints))
	for _, endpoint := range endpoints {
		h := withSummary(endpointName(endpoint), handler)
		routes = append(routes, tg.Route{
			Endpoint: endpoint,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h)),
		})
	}
	return routes
}
