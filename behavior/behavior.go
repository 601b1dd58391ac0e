package behavior

import (
	"log/slog"

	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/hid"
)

// Behavior is the capability every behavior variant implements. Handlers
// never block; follow-up work is scheduled on ctx.Deadlines().
type Behavior interface {
	Pressed(ctx Context, b Binding, ev Event) Outcome
	Released(ctx Context, b Binding, ev Event) Outcome
}

// PositionListener sees position events before the keymap does. Listeners
// run in ascending ListenPriority order.
type PositionListener interface {
	ListenPriority() int
	OnPosition(ctx Context, ev PositionEvent) Propagation
}

// KeycodeListener observes keycode events before they reach the report.
type KeycodeListener interface {
	OnKeycode(ctx Context, ev KeycodeEvent) Propagation
}

// LayerListener observes layer changes.
type LayerListener interface {
	OnLayer(ctx Context, ev LayerEvent)
}

// Resetter is implemented by behaviors that hold state across events. The
// engine calls Reset when it is torn down.
type Resetter interface {
	Reset(ctx Context)
}

// Listener priorities for the position chain.
const (
	PriorityCombo     = 10
	PriorityLeader    = 20
	PriorityTapDance  = 30
	PriorityTriState  = 40
	PriorityOneShot   = 50
	PriorityBehaviors = 100
)

// Context is the engine state a behavior acts through. It must only be used on
// the engine goroutine; deadline callbacks run there and may keep the Context
// they were armed with.
type Context interface {
	Logger() *slog.Logger
	Now() int64
	Deadlines() *deadline.Queue

	// Invoke runs another binding's press or release handler.
	Invoke(b Binding, ev Event, pressed bool) Outcome
	// RaiseKeycode sends a keycode event through the keycode listeners into
	// the HID report.
	RaiseKeycode(ev KeycodeEvent)
	// AfterKeycode runs fn once the keycode event currently being raised has
	// reached the report. Outside a keycode event fn runs immediately.
	AfterKeycode(fn func())
	// HID exposes the report for modifier and LED queries.
	HID() *hid.Report

	// ReleaseCaptured resumes a captured position event after listener from.
	ReleaseCaptured(from PositionListener, ev PositionEvent)
	// RaisePosition injects a position event at the start of the chain.
	RaisePosition(ev PositionEvent)

	LayerActivate(layer int) error
	LayerDeactivate(layer int) error
	LayerToggle(layer int) error
	LayerTo(layer int) error
	LayerActive(layer int) bool
	HighestLayer() int
	LayerState() uint32

	// Positions is the number of physical key positions.
	Positions() uint32
}
