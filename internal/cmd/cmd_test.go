package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/internal/log"
	_ "github.com/Alia5/keyflow/internal/registry"
	"github.com/Alia5/keyflow/layout"
)

const testKeymap = `
positions: 4
layers:
  - name: base
    bindings: "&kp A &kp B &mo 1 &kp LSHIFT"
  - name: nav
    bindings: "&kp LEFT &kp RIGHT &trans &trans"
combos:
  - key-positions: [0, 1]
    bindings: "&kp ESCAPE"
inputs:
  evdev:
    KEY_A: 0
    KEY_S: 1
    KEY_SPACE: 2
  keys: "asdf"
`

func writeKeymap(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "keymap.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestCheck(t *testing.T) {
	c := &Check{KeymapFile{Keymap: writeKeymap(t, testKeymap)}}
	var out bytes.Buffer
	require.NoError(t, c.check(&out, log.Discard()))

	got := out.String()
	assert.Contains(t, got, "positions")
	assert.Contains(t, got, "base, nav")
	assert.Contains(t, got, "kp")
	assert.Regexp(t, `evdev keys\s+3\n`, got)
	assert.True(t, strings.HasSuffix(got, "OK\n"))
}

func TestCheckReportsErrors(t *testing.T) {
	tests := []struct {
		name    string
		keymap  string
		wantErr string
	}{
		{name: "unknown behavior", keymap: "layers:\n  - bindings: \"&bogus\"\n", wantErr: "build keymap"},
		{name: "bad evdev key", keymap: "layers:\n  - bindings: \"&kp A\"\ninputs:\n  evdev:\n    KEY_NOPE: 0\n", wantErr: "unknown evdev key"},
		{name: "duplicate simulator key", keymap: "layers:\n  - bindings: \"&kp A &kp B\"\ninputs:\n  keys: \"aa\"\n", wantErr: "maps to positions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Check{KeymapFile{Keymap: writeKeymap(t, tt.keymap)}}
			assert.ErrorContains(t, c.check(&bytes.Buffer{}, log.Discard()), tt.wantErr)
		})
	}

	missing := &Check{KeymapFile{Keymap: filepath.Join(t.TempDir(), "nope.yaml")}}
	assert.ErrorContains(t, missing.check(&bytes.Buffer{}, log.Discard()), "load keymap")
}

func TestKeysFilter(t *testing.T) {
	tests := []struct {
		name     string
		keys     Keys
		contains string
		absent   string
	}{
		{name: "binding names", keys: Keys{Filter: "shift"}, contains: "LSHIFT\n", absent: "ESCAPE"},
		{name: "evdev names", keys: Keys{Filter: "caps", Evdev: true}, contains: "KEY_CAPSLOCK\n", absent: "LSHIFT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, tt.keys.list(&out))
			assert.Contains(t, out.String(), tt.contains)
			assert.NotContains(t, out.String(), tt.absent)
		})
	}
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script.txt")
	require.NoError(t, os.WriteFile(script, []byte("t=0 press 2\nt=10 tap 3\nt=20 release 2\n"), 0o644))

	r := &Replay{KeymapFile: KeymapFile{Keymap: writeKeymap(t, testKeymap)}, Script: script, Settle: 0}
	var out bytes.Buffer
	require.NoError(t, r.replay(&out, log.Discard(), log.NewRaw(nil)))

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "# session "))
	assert.Contains(t, got, "t=10 press LSHIFT\n")
	assert.Contains(t, got, "t=11 release LSHIFT\n")
	assert.Contains(t, got, "t=20 end\n")
}

func TestConfigInit(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "run.json")
	c := &ConfigInit{Command: "run", Format: "json", Output: dest}
	require.NoError(t, c.Run())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "evdev", got["source"])
	assert.Equal(t, []any{"log"}, got["sinks"])
	assert.Equal(t, "/dev/hidg0", got["gadget"].(map[string]any)["device"])
	assert.Equal(t, "20ms", got["gadget"].(map[string]any)["write_timeout"])
	assert.Equal(t, true, got["evdev"].(map[string]any)["grab"])
	assert.Contains(t, got, "keymap")

	assert.ErrorContains(t, c.Run(), "destination exists")
	c.Force = true
	assert.NoError(t, c.Run())
}

func TestConfigInitFormats(t *testing.T) {
	for _, format := range []string{"yaml", "toml"} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			wd, err := os.Getwd()
			require.NoError(t, err)
			require.NoError(t, os.Chdir(dir))
			t.Cleanup(func() { _ = os.Chdir(wd) })

			c := &ConfigInit{Command: "replay", Format: format}
			require.NoError(t, c.Run())
			data, err := os.ReadFile(filepath.Join(dir, "replay."+format))
			require.NoError(t, err)
			assert.Contains(t, string(data), "settle")
			assert.NotContains(t, string(data), "script")
		})
	}
}

func TestConfigKey(t *testing.T) {
	tests := map[string]string{
		"Keymap":       "keymap",
		"WriteTimeout": "write_timeout",
		"HoldMs":       "hold_ms",
		"RawFile":      "raw_file",
	}
	for in, want := range tests {
		assert.Equal(t, want, configKey(in), in)
	}
}

func TestSimulatorKeysPrecedence(t *testing.T) {
	f := &layout.File{}
	assert.Equal(t, "1234567890qwertyuiopasdfghjklzxcvbnm", simulatorKeys("", f))
	f.Inputs.Keys = "asdf"
	assert.Equal(t, "asdf", simulatorKeys("", f))
	assert.Equal(t, "jk", simulatorKeys("jk", f))
}

func TestOpenSinksRejectsUnknown(t *testing.T) {
	_, err := openSinks(context.Background(), []string{"log", "printer"}, GadgetConfig{}, ViiperConfig{}, log.Discard(), nil)
	assert.ErrorContains(t, err, `unknown sink "printer"`)

	outs, err := openSinks(context.Background(), []string{"log"}, GadgetConfig{}, ViiperConfig{}, log.Discard(), nil)
	require.NoError(t, err)
	assert.Len(t, outs.multi, 1)
	outs.Close()
}

func TestWatchKeymapReloads(t *testing.T) {
	path := writeKeymap(t, testKeymap)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads, err := watchKeymap(ctx, path, log.Discard())
	require.NoError(t, err)

	updated := strings.Replace(testKeymap, "name: nav", "name: arrows", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case f := <-reloads:
		require.NotNil(t, f)
		assert.Equal(t, "arrows", f.Layers[1].Name)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}
