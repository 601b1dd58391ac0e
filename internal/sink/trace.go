package sink

import (
	"fmt"
	"io"

	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/hid"
)

// Trace prints every HID effect as one line stamped with the clock time:
//
//	t=120 press A
//	t=120 mods+ 0x02
type Trace struct {
	w     io.Writer
	clock deadline.Clock
}

// NewTrace creates a trace writer.
func NewTrace(w io.Writer, clock deadline.Clock) *Trace {
	return &Trace{w: w, clock: clock}
}

func (t *Trace) Press(page uint8, id uint16) error {
	t.line("press", hid.Encode(page, id, 0).String())
	return nil
}

func (t *Trace) Release(page uint8, id uint16) error {
	t.line("release", hid.Encode(page, id, 0).String())
	return nil
}

func (t *Trace) RegisterModifier(mods uint8) {
	t.line("mods+", fmt.Sprintf("0x%02x", mods))
}

func (t *Trace) UnregisterModifier(mods uint8) {
	t.line("mods-", fmt.Sprintf("0x%02x", mods))
}

// Send prints the resulting report.
func (t *Trace) Send(s hid.Snapshot) error {
	t.line("report", fmt.Sprintf("mods=0x%02x keys=[%s] consumer=[%s]",
		s.Keyboard.Modifiers, KeyList(s.Keyboard), ConsumerList(s.Consumer)))
	return nil
}

func (t *Trace) line(what, arg string) {
	fmt.Fprintf(t.w, "t=%d %s %s\n", t.clock.Now(), what, arg)
}
