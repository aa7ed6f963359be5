package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	coreconfig "festbot/core/config"
)

func middlewareNames(mws []Middleware) []string {
	names := make([]string, 0, len(mws))
	for _, mw := range mws {
		names = append(names, mw.Name)
	}
	return names
}

func TestDefaultMiddlewares(t *testing.T) {
	assert.Equal(t, []string{"recover", "logger", "metrics"}, middlewareNames(DefaultMiddlewares(nil, nil)))

	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 300, ExcludeUpdates: []string{" Command ", ""}}}
	assert.Equal(t, []string{"recover", "rate_limit", "logger", "metrics"}, middlewareNames(DefaultMiddlewares(cfg, nil)))

	opts, ok := rateLimitOptions(cfg)
	assert.True(t, ok)
	assert.Equal(t, 300*time.Millisecond, opts.Interval)
	assert.Equal(t, map[string]struct{}{"command": {}}, opts.Exclude)
}
