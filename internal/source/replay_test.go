package source_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/engine"
	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/internal/log"
	_ "github.com/Alia5/keyflow/internal/registry"
	"github.com/Alia5/keyflow/internal/sink"
	"github.com/Alia5/keyflow/internal/source"
	"github.com/Alia5/keyflow/layout"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    source.Step
		wantErr string
	}{
		{name: "press", line: "t=10 press 3", want: source.Step{At: 10, Action: source.ActionPress, Position: 3}},
		{name: "release with source", line: "t=20 release 4 1", want: source.Step{At: 20, Action: source.ActionRelease, Position: 4, Source: 1}},
		{name: "tap without time", line: "tap 0", want: source.Step{At: -1, Action: source.ActionTap}},
		{name: "wait", line: "wait 250", want: source.Step{At: -1, Action: source.ActionWait, Wait: 250}},
		{name: "wait with unit", line: "wait 5ms", want: source.Step{At: -1, Action: source.ActionWait, Wait: 5}},
		{name: "upper case action", line: "t=0 PRESS 1", want: source.Step{At: 0, Action: source.ActionPress, Position: 1}},
		{name: "bad time", line: "t=x press 1", wantErr: "bad timestamp"},
		{name: "negative time", line: "t=-1 press 1", wantErr: "bad timestamp"},
		{name: "unknown action", line: "t=0 hold 1", wantErr: "unknown action"},
		{name: "missing position", line: "t=0 press", wantErr: "takes a position"},
		{name: "bad position", line: "press a", wantErr: "bad position"},
		{name: "bad source", line: "press 1 300", wantErr: "bad source"},
		{name: "wait without duration", line: "wait", wantErr: "one duration"},
		{name: "empty after time", line: "t=5", wantErr: "missing action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := source.ParseStep(tt.line)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLinesSkipsComments(t *testing.T) {
	steps, err := source.ParseLines(strings.NewReader("# warm up\n\nt=0 press 1\n  wait 10\nt=20 release 1\n"))
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, source.ActionWait, steps[1].Action)

	_, err = source.ParseLines(strings.NewReader("t=0 press 1\nbogus\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestParseYAML(t *testing.T) {
	steps, err := source.ParseYAML([]byte(`
steps:
  - t=0 press 2
  - {t: 5, action: release, position: 2, source: 1}
  - {wait: 100}
  - {action: tap, position: 0}
`))
	require.NoError(t, err)
	assert.Equal(t, []source.Step{
		{At: 0, Action: source.ActionPress, Position: 2},
		{At: 5, Action: source.ActionRelease, Position: 2, Source: 1},
		{At: -1, Action: source.ActionWait, Wait: 100},
		{At: -1, Action: source.ActionTap},
	}, steps)

	_, err = source.ParseYAML([]byte("steps:\n  - {action: jump}\n"))
	assert.ErrorContains(t, err, "unknown action")
}

func TestLoadScriptByExtension(t *testing.T) {
	dir := t.TempDir()
	lines := filepath.Join(dir, "script.txt")
	require.NoError(t, os.WriteFile(lines, []byte("t=0 tap 1\n"), 0o644))
	yml := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("steps: [\"t=0 tap 1\"]\n"), 0o644))

	a, err := source.LoadScript(lines)
	require.NoError(t, err)
	b, err := source.LoadScript(yml)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

const replayKeymap = `
behaviors:
  - name: sk
    compatible: one-shot
    release-after-ms: 1000
    bindings: "&kp"
layers:
  - name: base
    bindings: "&kp A &kp B &sk LSHIFT"
`

func newReplayer(t *testing.T) (*source.Replayer, *bytes.Buffer) {
	t.Helper()
	f, err := layout.Parse([]byte(replayKeymap), layout.FormatYAML)
	require.NoError(t, err)
	clock := deadline.NewMockClock(0)
	var out bytes.Buffer
	trace := sink.NewTrace(&out, clock)
	e, err := engine.Build(f, engine.Options{
		Logger: log.Discard(),
		Clock:  clock,
		Output: trace,
		Taps:   []hid.Sink{trace},
	})
	require.NoError(t, err)
	return &source.Replayer{Engine: e, Clock: clock, Settle: 2000}, &out
}

func TestReplayerRun(t *testing.T) {
	r, out := newReplayer(t)
	steps, err := source.ParseLines(strings.NewReader("t=0 press 0\nt=30 release 0\nt=40 tap 1\n"))
	require.NoError(t, err)

	end, err := r.Run(steps)
	require.NoError(t, err)
	assert.Equal(t, int64(41+2000), end)

	got := out.String()
	assert.Contains(t, got, "t=0 press A\n")
	assert.Contains(t, got, "t=0 report mods=0x00 keys=[A] consumer=[]\n")
	assert.Contains(t, got, "t=30 release A\n")
	assert.Contains(t, got, "t=40 press B\n")
	assert.Contains(t, got, "t=41 release B\n")
}

func TestReplayerSettleFiresDeadlines(t *testing.T) {
	r, out := newReplayer(t)
	// A one-shot tap arms its release timer; settling lets it expire.
	_, err := r.Run([]source.Step{{At: 0, Action: source.ActionTap, Position: 2}})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "press LSHIFT")
	assert.Contains(t, out.String(), "release LSHIFT")
}

func TestReplayerRejectsTimeTravel(t *testing.T) {
	r, _ := newReplayer(t)
	_, err := r.Run([]source.Step{
		{At: 50, Action: source.ActionPress},
		{At: 10, Action: source.ActionRelease},
	})
	assert.ErrorContains(t, err, "before t=50")
}
