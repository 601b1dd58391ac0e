// Package engine holds the keymap state a keyboard runs on: layers, the
// position router, the HID report, the deadline queue, the listener chains
// and the behavior table. Every method must be called from one goroutine;
// Run provides that goroutine for live input.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/internal/log"
	"github.com/Alia5/keyflow/keymap"
)

// maxDepth bounds nested Invoke calls so a binding cycle in the configuration
// fails instead of overflowing the stack.
const maxDepth = 16

// Engine is the explicit state every dispatch call runs against.
type Engine struct {
	logger *slog.Logger
	clock  deadline.Clock
	queue  *deadline.Queue

	keymap *keymap.Keymap
	layers *keymap.LayerState
	router *keymap.Router
	report *hid.Report

	behaviors []behavior.Behavior
	labels    []string

	posListeners   []behavior.PositionListener
	keyListeners   []behavior.KeycodeListener
	layerListeners []behavior.LayerListener
	resetters      []behavior.Resetter

	now       int64
	depth     int
	keyDepth  int
	afterKeys []func()
}

var _ behavior.Context = (*Engine)(nil)

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Now returns the timestamp of the event or deadline being processed.
func (e *Engine) Now() int64 { return e.now }

// Deadlines returns the cooperative deadline queue.
func (e *Engine) Deadlines() *deadline.Queue { return e.queue }

// HID returns the report behaviors act on.
func (e *Engine) HID() *hid.Report { return e.report }

// Keymap returns the immutable layer table.
func (e *Engine) Keymap() *keymap.Keymap { return e.keymap }

// Positions returns the number of physical key positions.
func (e *Engine) Positions() uint32 { return e.keymap.Positions() }

// Label returns the configured label of a behavior ID.
func (e *Engine) Label(id behavior.ID) string {
	if int(id) >= len(e.labels) {
		return ""
	}
	return e.labels[id]
}

// Behavior returns the behavior configured under label, or nil.
func (e *Engine) Behavior(label string) behavior.Behavior {
	for id, l := range e.labels {
		if l == label && id != 0 {
			return e.behaviors[id]
		}
	}
	return nil
}

// Behaviors returns the number of resolved behaviors, including the unused
// zero ID.
func (e *Engine) Behaviors() int { return len(e.behaviors) }

// HandlePosition processes one key transition. Deadlines due at or before
// the event timestamp fire first.
func (e *Engine) HandlePosition(ev behavior.PositionEvent) {
	e.advance(ev.Timestamp)
	if ev.Timestamp > e.now {
		e.now = ev.Timestamp
	}
	e.logger.Log(context.Background(), log.LevelTrace, "position",
		"position", ev.Position, "pressed", ev.Pressed, "timestamp", ev.Timestamp, "source", ev.Source)
	e.raisePosition(0, ev)
	e.flush()
}

// Tick fires every deadline due at or before now.
func (e *Engine) Tick(now int64) {
	e.advance(now)
	if now > e.now {
		e.now = now
	}
}

// SetLEDs records host LED state, e.g. caps lock.
func (e *Engine) SetLEDs(leds uint8) {
	e.report.SetLEDs(leds)
	e.logger.Debug("leds", "state", hid.ParseLEDs(leds))
}

// ReleaseAll resets behavior state and releases every held usage.
func (e *Engine) ReleaseAll() {
	for _, b := range e.behaviors {
		if r, ok := b.(behavior.Resetter); ok {
			r.Reset(e)
		}
	}
	for _, r := range e.resetters {
		r.Reset(e)
	}
	if err := e.report.ReleaseAll(); err != nil {
		e.logger.Error("release all", "error", err)
	}
}

// NextDeadline returns the earliest armed deadline.
func (e *Engine) NextDeadline() (int64, bool) { return e.queue.Next() }

// advance fires due deadlines in wake-time order. Now is set to each wake time
// before its callbacks run and the report is flushed after each batch.
func (e *Engine) advance(until int64) {
	for {
		at, ok := e.queue.Next()
		if !ok || at > until {
			return
		}
		if at > e.now {
			e.now = at
		}
		e.queue.RunUntil(at)
		e.flush()
	}
}

func (e *Engine) flush() {
	if err := e.report.Flush(); err != nil {
		e.logger.Error("send report", "error", err)
	}
}

func (e *Engine) raisePosition(start int, ev behavior.PositionEvent) {
	for i := start; i < len(e.posListeners); i++ {
		switch e.posListeners[i].OnPosition(e, ev) {
		case behavior.Stop, behavior.Captured:
			return
		}
	}
	e.logFailure(e.router.Dispatch(e, ev), "dispatch", "position", ev.Position, "pressed", ev.Pressed)
}

func (e *Engine) logFailure(err error, msg string, args ...any) {
	if err == nil {
		return
	}
	args = append(args, "error", err)
	if errors.Is(err, behavior.ErrNotSupported) {
		e.logger.Debug(msg, args...)
		return
	}
	e.logger.Error(msg, args...)
}

// RaisePosition injects ev at the start of the listener chain.
func (e *Engine) RaisePosition(ev behavior.PositionEvent) {
	e.raisePosition(0, ev)
}

// ReleaseCaptured resumes ev after the listener that captured it.
func (e *Engine) ReleaseCaptured(from behavior.PositionListener, ev behavior.PositionEvent) {
	for i, l := range e.posListeners {
		if l == from {
			e.raisePosition(i+1, ev)
			return
		}
	}
	e.logger.Error("release captured: unknown listener", "position", ev.Position)
}

// Invoke runs a binding's handler. An empty binding continues to the next
// layer.
func (e *Engine) Invoke(b behavior.Binding, ev behavior.Event, pressed bool) behavior.Outcome {
	if !b.Bound() {
		return behavior.Continue
	}
	if int(b.Behavior) >= len(e.behaviors) || e.behaviors[b.Behavior] == nil {
		return behavior.Failed(fmt.Errorf("behavior %d: %w", b.Behavior, behavior.ErrUnknownBehavior))
	}
	if e.depth >= maxDepth {
		return behavior.Failed(fmt.Errorf("%s: nesting deeper than %d", e.labels[b.Behavior], maxDepth))
	}
	e.depth++
	defer func() { e.depth-- }()

	bh := e.behaviors[b.Behavior]
	if pressed {
		return bh.Pressed(e, b, ev)
	}
	return bh.Released(e, b, ev)
}

// RaiseKeycode runs the keycode listeners, then applies ev to the report.
func (e *Engine) RaiseKeycode(ev behavior.KeycodeEvent) {
	e.keyDepth++
	stopped := false
	for _, l := range e.keyListeners {
		if l.OnKeycode(e, ev) != behavior.Bubble {
			stopped = true
			break
		}
	}
	if !stopped {
		e.applyKeycode(ev)
	}
	e.keyDepth--
	if e.keyDepth > 0 {
		return
	}
	for len(e.afterKeys) > 0 {
		fn := e.afterKeys[0]
		e.afterKeys = e.afterKeys[1:]
		fn()
	}
}

// AfterKeycode defers fn until the outermost keycode event is applied.
func (e *Engine) AfterKeycode(fn func()) {
	if e.keyDepth == 0 {
		fn()
		return
	}
	e.afterKeys = append(e.afterKeys, fn)
}

func (e *Engine) applyKeycode(ev behavior.KeycodeEvent) {
	var err error
	if ev.Pressed {
		e.report.SetImplicitMods(ev.ImplicitMods)
		err = e.report.Press(ev.Page, ev.ID)
	} else {
		err = e.report.Release(ev.Page, ev.ID)
		e.report.ClearImplicitMods()
	}
	if err != nil {
		e.logger.Error("apply keycode", "page", ev.Page, "id", ev.ID, "pressed", ev.Pressed, "error", err)
	}
	e.flush()
}

// LayerActivate activates layer.
func (e *Engine) LayerActivate(layer int) error {
	return e.changeLayers(func() error { return e.layers.Activate(layer) })
}

// LayerDeactivate deactivates layer.
func (e *Engine) LayerDeactivate(layer int) error {
	return e.changeLayers(func() error { return e.layers.Deactivate(layer) })
}

// LayerToggle flips layer.
func (e *Engine) LayerToggle(layer int) error {
	return e.changeLayers(func() error { return e.layers.Toggle(layer) })
}

// LayerTo makes layer the only active one besides the default layer.
func (e *Engine) LayerTo(layer int) error {
	return e.changeLayers(func() error { return e.layers.To(layer) })
}

// LayerActive reports whether layer is active.
func (e *Engine) LayerActive(layer int) bool { return e.layers.Active(layer) }

// HighestLayer returns the highest active layer.
func (e *Engine) HighestLayer() int { return e.layers.Highest() }

// LayerState returns the active layer mask.
func (e *Engine) LayerState() uint32 { return e.layers.Mask() }

func (e *Engine) changeLayers(op func() error) error {
	before := e.layers.Mask()
	if err := op(); err != nil {
		return err
	}
	for _, l := range keymap.Changes(before, e.layers.Mask(), e.layers.Default()) {
		ev := behavior.LayerEvent{Layer: l, Active: e.layers.Active(l), Timestamp: e.now}
		e.logger.Debug("layer", "layer", e.keymap.LayerName(l), "index", l, "active", ev.Active)
		for _, ll := range e.layerListeners {
			ll.OnLayer(e, ev)
		}
	}
	return nil
}

// InputKind tells what an Input carries.
type InputKind int

const (
	InputPosition InputKind = iota
	InputLEDs
)

// Input is one item fed to Run.
type Input struct {
	Kind     InputKind
	Position behavior.PositionEvent
	LEDs     uint8
}

// PositionInput wraps a position event.
func PositionInput(ev behavior.PositionEvent) Input {
	return Input{Kind: InputPosition, Position: ev}
}

// LEDInput wraps host LED state.
func LEDInput(leds uint8) Input {
	return Input{Kind: InputLEDs, LEDs: leds}
}

// Run processes inputs and deadlines until ctx is done or in is closed.
// Position events without a timestamp are stamped with the engine clock.
// Held usages are released before Run returns.
func (e *Engine) Run(ctx context.Context, in <-chan Input) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	defer e.ReleaseAll()

	for {
		e.armTimer(timer)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-in:
			if !ok {
				return nil
			}
			switch item.Kind {
			case InputLEDs:
				e.SetLEDs(item.LEDs)
			default:
				ev := item.Position
				if ev.Timestamp == 0 {
					ev.Timestamp = e.clock.Now()
				}
				e.HandlePosition(ev)
			}
		case <-timer.C:
			e.Tick(e.clock.Now())
		}
	}
}

func (e *Engine) armTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	at, ok := e.queue.Next()
	if !ok {
		t.Reset(time.Hour)
		return
	}
	d := time.Duration(at-e.clock.Now()) * time.Millisecond
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}
