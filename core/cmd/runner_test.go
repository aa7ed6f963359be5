package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "festbot/core/config"
	coretelegram "festbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	opts coretelegram.RunOptions
	err  error
}

func (a fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, a.err }

func TestRunWiresLifecycle(t *testing.T) {
	t.Setenv("FESTBOT_TEST_CONFIG", "custom.yaml")

	var (
		loadedPath string
		calls      []string
	)
	err := Run(Options{
		ConfigEnvVar:      "FESTBOT_TEST_CONFIG",
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedPath = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return fakeApp{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error {
					calls = append(calls, "app.start")
					return nil
				},
				OnStop: func(context.Context, coretelegram.Runtime) error {
					calls = append(calls, "app.stop")
					return nil
				},
			}}, nil
		},
		ShutdownLogger: func() error {
			calls = append(calls, "logger.shutdown")
			return nil
		},
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			rt := coretelegram.Runtime{Registry: coretelegram.NewRegistry()}
			require.NoError(t, opts.OnStart(ctx, rt))
			calls = append(calls, "run")
			return opts.OnStop(ctx, rt)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "custom.yaml", loadedPath)
	assert.Equal(t, []string{"app.start", "run", "app.stop", "logger.shutdown"}, calls)
}

func TestRunValidation(t *testing.T) {
	boom := errors.New("boom")
	okLoad := func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil }

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{name: "no loader", opts: Options{}, want: "LoadConfig is required"},
		{name: "no bootstrap", opts: Options{LoadConfig: okLoad}, want: "Bootstrap is required"},
		{
			name: "load fails",
			opts: Options{
				DefaultConfigPath: "x.yaml",
				LoadConfig:        func(string) (ConfigCarrier, error) { return nil, boom },
				Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return fakeApp{}, nil },
			},
			want: "failed to load config",
		},
		{
			name: "missing core config",
			opts: Options{
				DefaultConfigPath: "x.yaml",
				LoadConfig:        func(string) (ConfigCarrier, error) { return carrier{}, nil },
				Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return fakeApp{}, nil },
			},
			want: "missing core configuration",
		},
		{
			name: "bootstrap fails",
			opts: Options{
				DefaultConfigPath: "x.yaml",
				LoadConfig:        okLoad,
				Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return nil, boom },
			},
			want: "bootstrap failed",
		},
		{
			name: "run options fail",
			opts: Options{
				DefaultConfigPath: "x.yaml",
				LoadConfig:        okLoad,
				Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return fakeApp{err: boom}, nil },
				ShutdownLogger:    func() error { return nil },
			},
			want: "telegram options build failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_PATH", "")
			err := Run(tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
