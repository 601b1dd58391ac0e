package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/internal/config"
)

func parse(t *testing.T, args []string, opts ...kong.Option) (*config.CLI, *kong.Context) {
	t.Helper()
	var cli config.CLI
	parser, err := kong.New(&cli, append([]kong.Option{kong.Name("keyflow"), kong.Exit(func(int) { t.Fatal("exit") })}, opts...)...)
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, ctx
}

func TestRunDefaults(t *testing.T) {
	cli, ctx := parse(t, []string{"run"})
	assert.Equal(t, "run", ctx.Command())
	assert.Equal(t, "info", cli.Log.Level)
	assert.Equal(t, "evdev", cli.Run.Source)
	assert.Equal(t, []string{"log"}, cli.Run.Sinks)
	assert.True(t, cli.Run.Evdev.Grab)
	assert.Equal(t, "/dev/hidg0", cli.Run.Gadget.Device)
	assert.Equal(t, 20*time.Millisecond, cli.Run.Gadget.WriteTimeout)
	assert.Equal(t, uint32(1), cli.Run.Viiper.Bus)
}

func TestRunFlags(t *testing.T) {
	cli, _ := parse(t, []string{
		"--log.level=debug", "run",
		"--keymap=km.yaml", "--sinks=gadget,viiper", "--no-evdev.grab", "--viiper.addr=10.0.0.2:3242", "--watch",
	})
	assert.Equal(t, "debug", cli.Log.Level)
	assert.Equal(t, []string{"gadget", "viiper"}, cli.Run.Sinks)
	assert.False(t, cli.Run.Evdev.Grab)
	assert.Equal(t, "10.0.0.2:3242", cli.Run.Viiper.Addr)
	assert.True(t, cli.Run.Watch)
	assert.Equal(t, "km.yaml", filepath.Base(cli.Run.Keymap))
}

func TestEnvironment(t *testing.T) {
	t.Setenv("KEYFLOW_SOURCE", "terminal")
	t.Setenv("KEYFLOW_LOG_LEVEL", "warn")
	cli, _ := parse(t, []string{"run"})
	assert.Equal(t, "terminal", cli.Run.Source)
	assert.Equal(t, "warn", cli.Log.Level)
}

func TestSubcommands(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"replay", "cli_test.go"}, "replay <script>"},
		{[]string{"simulate"}, "simulate"},
		{[]string{"check"}, "check"},
		{[]string{"keys", "shift"}, "keys <filter>"},
		{[]string{"config", "init", "run", "--format=toml"}, "config init <command>"},
		{[]string{"uninstall"}, "uninstall"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, ctx := parse(t, tt.args)
			assert.Equal(t, tt.want, ctx.Command())
		})
	}
}

func TestInvalidSource(t *testing.T) {
	var cli config.CLI
	parser, err := kong.New(&cli, kong.Name("keyflow"), kong.Exit(func(int) {}))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"run", "--source=mouse"})
	assert.Error(t, err)
}
