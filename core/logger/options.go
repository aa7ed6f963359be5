package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	coreconfig "festbot/core/config"
)

const (
	defaultSampleNum = 1
	defaultSampleDen = 50
)

// options is the resolved form of coreconfig.LoggingConfig.
type options struct {
	format    logFormat
	keyOrder  []string
	level     slog.Level
	profile   string
	sampleNum int
	sampleDen int
	dir       string
	file      string
}

var levelNames = map[string]slog.Level{
	"":        slog.LevelInfo,
	"info":    slog.LevelInfo,
	"debug":   slog.LevelDebug,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

var formatNames = map[string]logFormat{
	"kv":     formatKV,
	"text":   formatKV,
	"pretty": formatKV,
	"json":   formatJSON,
}

func resolveOptions(cfg *coreconfig.Config) options {
	opts := options{
		format:    formatJSON,
		keyOrder:  append([]string(nil), defaultKeyOrder...),
		level:     slog.LevelInfo,
		profile:   "prod",
		sampleNum: defaultSampleNum,
		sampleDen: defaultSampleDen,
	}
	if cfg == nil {
		return opts
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		opts.profile = p
	}
	if f, ok := formatNames[strings.ToLower(strings.TrimSpace(lc.Format))]; ok {
		opts.format = f
	} else if opts.profile == "debug" || opts.profile == "dev" {
		opts.format = formatKV
	}
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(lc.Level))]; ok {
		opts.level = lvl
	}
	if order := parseKeyOrder(lc.KeysOrder); len(order) > 0 {
		opts.keyOrder = order
	}
	opts.sampleNum, opts.sampleDen = parseDebugSample(lc.DebugSample)
	opts.dir = strings.TrimSpace(lc.Dir)
	opts.file = strings.TrimSpace(lc.BotFile)
	return opts
}

func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var order []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			order = append(order, trimmed)
		}
	}
	return order
}

// parseDebugSample returns 0/0 (log everything) for "0" and the default
// ratio for empty or malformed specs.
func parseDebugSample(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return defaultSampleNum, defaultSampleDen
	}
	num, den := parseRatioSpec(spec)
	if num == 0 && den == 0 {
		return 0, 0
	}
	if num <= 0 || den <= 0 {
		return defaultSampleNum, defaultSampleDen
	}
	return num, den
}

// buildOutputs always writes to stdout and adds dir/file when both are set.
// A log file that cannot be opened is reported and skipped.
func buildOutputs(opts options) ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	var closers []io.Closer
	if opts.dir == "" || opts.file == "" {
		return writers, closers, nil
	}
	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", opts.dir, err)
		return writers, closers, nil
	}
	path := filepath.Join(opts.dir, opts.file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: failed to open log file %s: %v", path, err)
		return writers, closers, nil
	}
	return append(writers, f), append(closers, f), nil
}
