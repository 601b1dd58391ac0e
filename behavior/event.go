package behavior

// Event is what a behavior receives on press and release.
type Event struct {
	Position  uint32
	Timestamp int64
	// Source distinguishes the halves of a split keyboard.
	Source uint8
}

// PositionEvent is a physical (or virtual) key transition.
type PositionEvent struct {
	Position  uint32
	Pressed   bool
	Timestamp int64
	Source    uint8
}

// Event returns the behavior view of the transition.
func (e PositionEvent) Event() Event {
	return Event{Position: e.Position, Timestamp: e.Timestamp, Source: e.Source}
}

// KeycodeEvent is raised by key-producing behaviors before it reaches the HID
// report.
type KeycodeEvent struct {
	Page         uint8
	ID           uint16
	ImplicitMods uint8
	Pressed      bool
	Timestamp    int64
}

// LayerEvent is raised on every layer activation or deactivation.
type LayerEvent struct {
	Layer     int
	Active    bool
	Timestamp int64
}

// Propagation is a listener's answer to an event.
type Propagation int

const (
	// Bubble passes the event on to the next listener.
	Bubble Propagation = iota
	// Stop consumes the event.
	Stop
	// Captured holds the event; the listener re-raises it later through
	// Context.ReleaseCaptured or drops it.
	Captured
)
