// Package testing holds helpers shared by the behavior and engine tests.
package testing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/engine"
	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/internal/log"
	"github.com/Alia5/keyflow/layout"

	_ "github.com/Alia5/keyflow/internal/registry"
)

// Recorder is a hid.Sink tap and hid.Output that keeps everything it sees.
type Recorder struct {
	// Effects are "press A", "release A", "mods+ 0x02", "mods- 0x02".
	Effects []string
	Reports []hid.Snapshot
}

var (
	_ hid.Sink   = (*Recorder)(nil)
	_ hid.Output = (*Recorder)(nil)
)

func usageName(page uint8, id uint16) string {
	return hid.Encode(page, id, 0).String()
}

func (r *Recorder) Press(page uint8, id uint16) error {
	r.Effects = append(r.Effects, "press "+usageName(page, id))
	return nil
}

func (r *Recorder) Release(page uint8, id uint16) error {
	r.Effects = append(r.Effects, "release "+usageName(page, id))
	return nil
}

func (r *Recorder) RegisterModifier(mods uint8) {
	r.Effects = append(r.Effects, fmt.Sprintf("mods+ 0x%02X", mods))
}

func (r *Recorder) UnregisterModifier(mods uint8) {
	r.Effects = append(r.Effects, fmt.Sprintf("mods- 0x%02X", mods))
}

func (r *Recorder) Send(s hid.Snapshot) error {
	r.Reports = append(r.Reports, s)
	return nil
}

// Count returns how often effect was recorded.
func (r *Recorder) Count(effect string) int {
	n := 0
	for _, e := range r.Effects {
		if e == effect {
			n++
		}
	}
	return n
}

// Last returns the most recent report, or an empty one.
func (r *Recorder) Last() hid.Snapshot {
	if len(r.Reports) == 0 {
		return hid.Snapshot{}
	}
	return r.Reports[len(r.Reports)-1]
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.Effects = nil
	r.Reports = nil
}

func (r *Recorder) String() string { return strings.Join(r.Effects, ", ") }

// Harness drives an engine built from an inline keymap with a mock clock.
type Harness struct {
	T      *testing.T
	Engine *engine.Engine
	Clock  *deadline.MockClock
	Rec    *Recorder
}

// NewEngine builds an engine from a YAML keymap.
func NewEngine(t *testing.T, keymapYAML string) *Harness {
	t.Helper()
	rec := &Recorder{}
	clock := deadline.NewMockClock(0)
	e, err := build(keymapYAML, clock, rec)
	require.NoError(t, err)
	return &Harness{T: t, Engine: e, Clock: clock, Rec: rec}
}

// Build builds an engine from a YAML keymap without a harness, for tests
// that expect configuration errors.
func Build(keymapYAML string) (*engine.Engine, error) {
	return build(keymapYAML, deadline.NewMockClock(0), &Recorder{})
}

func build(keymapYAML string, clock deadline.Clock, rec *Recorder) (*engine.Engine, error) {
	f, err := layout.Parse([]byte(keymapYAML), layout.FormatYAML)
	if err != nil {
		return nil, err
	}
	return engine.Build(f, engine.Options{
		Logger: log.Discard(),
		Clock:  clock,
		Output: rec,
		Taps:   []hid.Sink{rec},
	})
}

// Press presses position at ms.
func (h *Harness) Press(position uint32, ms int64) {
	h.event(position, true, ms)
}

// Release releases position at ms.
func (h *Harness) Release(position uint32, ms int64) {
	h.event(position, false, ms)
}

// Tap presses position at ms and releases it one millisecond later.
func (h *Harness) Tap(position uint32, ms int64) {
	h.Press(position, ms)
	h.Release(position, ms+1)
}

// Wait fires deadlines up to ms.
func (h *Harness) Wait(ms int64) {
	h.Clock.Set(ms)
	h.Engine.Tick(ms)
}

func (h *Harness) event(position uint32, pressed bool, ms int64) {
	h.Clock.Set(ms)
	h.Engine.HandlePosition(behavior.PositionEvent{Position: position, Pressed: pressed, Timestamp: ms})
}

// Held lists the keyboard usages in the last report.
func (h *Harness) Held() []string {
	var out []string
	last := h.Rec.Last()
	for _, id := range last.Keyboard.Keys() {
		out = append(out, usageName(hid.PageKeyboard, uint16(id)))
	}
	return out
}

// Mods returns the modifier byte of the last report.
func (h *Harness) Mods() uint8 { return h.Rec.Last().Keyboard.Modifiers }
