package hid

import (
	"errors"
	"fmt"
	"slices"
)

// Sink receives key effects. The Report implements it and forwards every
// effect to any observing sinks before updating its own state.
type Sink interface {
	Press(page uint8, id uint16) error
	Release(page uint8, id uint16) error
	RegisterModifier(mods uint8)
	UnregisterModifier(mods uint8)
}

// Snapshot is one complete report: keyboard state plus held consumer usages.
type Snapshot struct {
	Keyboard InputState
	Consumer []uint16
}

// Equal compares two snapshots.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.Keyboard == o.Keyboard && slices.Equal(s.Consumer, o.Consumer)
}

// Output consumes reports as they change.
type Output interface {
	Send(Snapshot) error
}

// OutputFunc adapts a function to Output.
type OutputFunc func(Snapshot) error

func (f OutputFunc) Send(s Snapshot) error { return f(s) }

// MaxConsumerUsages bounds the number of concurrently held consumer usages.
const MaxConsumerUsages = 6

var (
	ErrUnsupportedPage = errors.New("unsupported usage page")
	ErrReportFull      = errors.New("report full")
)

// Report is the HID state the engine writes effects into. Modifiers are
// tracked three ways: explicit modifiers are reference counted per bit so two
// bindings holding shift do not release each other; implicit modifiers come
// from the keycode being pressed (e.g. LS(N1)); masked modifiers are hidden
// from the report while a mod-morph holds its morphed binding.
type Report struct {
	out  Output
	taps []Sink

	keys           InputState
	consumer       []uint16
	explicitCounts [8]int
	explicit       uint8
	implicit       uint8
	masked         uint8
	leds           uint8
	ledsKnown      bool

	last    Snapshot
	hasLast bool
}

// NewReport creates a report that sends changes to out. taps observe every
// effect in call order.
func NewReport(out Output, taps ...Sink) *Report {
	return &Report{out: out, taps: taps}
}

// AddTap attaches another observing sink.
func (r *Report) AddTap(s Sink) { r.taps = append(r.taps, s) }

// SetOutput replaces the report consumer.
func (r *Report) SetOutput(out Output) { r.out = out }

func (r *Report) Press(page uint8, id uint16) error {
	for _, t := range r.taps {
		_ = t.Press(page, id)
	}
	switch {
	case IsModifierUsage(page, id):
		r.register(ModifierBit(id))
	case page == PageKeyboard:
		if id > 0xFF {
			return fmt.Errorf("keyboard usage 0x%X: %w", id, ErrUnsupportedPage)
		}
		r.keys.set(uint8(id), true)
	case page == PageConsumer:
		if slices.Contains(r.consumer, id) {
			return nil
		}
		if len(r.consumer) >= MaxConsumerUsages {
			return fmt.Errorf("consumer usage 0x%X: %w", id, ErrReportFull)
		}
		r.consumer = append(r.consumer, id)
	default:
		return fmt.Errorf("page 0x%02X: %w", page, ErrUnsupportedPage)
	}
	return nil
}

func (r *Report) Release(page uint8, id uint16) error {
	for _, t := range r.taps {
		_ = t.Release(page, id)
	}
	switch {
	case IsModifierUsage(page, id):
		r.unregister(ModifierBit(id))
	case page == PageKeyboard:
		if id > 0xFF {
			return fmt.Errorf("keyboard usage 0x%X: %w", id, ErrUnsupportedPage)
		}
		r.keys.set(uint8(id), false)
	case page == PageConsumer:
		if i := slices.Index(r.consumer, id); i >= 0 {
			r.consumer = slices.Delete(r.consumer, i, i+1)
		}
	default:
		return fmt.Errorf("page 0x%02X: %w", page, ErrUnsupportedPage)
	}
	return nil
}

func (r *Report) RegisterModifier(mods uint8) {
	for _, t := range r.taps {
		t.RegisterModifier(mods)
	}
	r.register(mods)
}

func (r *Report) UnregisterModifier(mods uint8) {
	for _, t := range r.taps {
		t.UnregisterModifier(mods)
	}
	r.unregister(mods)
}

func (r *Report) register(mods uint8) {
	for i := 0; i < 8; i++ {
		if mods&(1<<i) != 0 {
			r.explicitCounts[i]++
			r.explicit |= 1 << i
		}
	}
}

func (r *Report) unregister(mods uint8) {
	for i := 0; i < 8; i++ {
		if mods&(1<<i) == 0 || r.explicitCounts[i] == 0 {
			continue
		}
		r.explicitCounts[i]--
		if r.explicitCounts[i] == 0 {
			r.explicit &^= 1 << i
		}
	}
}

// IsPressed reports whether a usage is held in the report. Modifier usages
// count as held while any binding registers their bit.
func (r *Report) IsPressed(page uint8, id uint16) bool {
	switch {
	case IsModifierUsage(page, id):
		return r.explicit&ModifierBit(id) != 0
	case page == PageKeyboard:
		return id <= 0xFF && r.keys.Pressed(uint8(id))
	case page == PageConsumer:
		return slices.Contains(r.consumer, id)
	}
	return false
}

// ExplicitMods returns the modifiers currently registered by held keys.
func (r *Report) ExplicitMods() uint8 { return r.explicit }

// SetImplicitMods applies modifiers carried by the keycode being pressed.
func (r *Report) SetImplicitMods(mods uint8) { r.implicit = mods }

// ClearImplicitMods drops implicit modifiers.
func (r *Report) ClearImplicitMods() { r.implicit = 0 }

// SetMaskedMods hides explicit modifiers from the report.
func (r *Report) SetMaskedMods(mods uint8) { r.masked = mods }

// ClearMaskedMods removes the modifier mask.
func (r *Report) ClearMaskedMods() { r.masked = 0 }

// Modifiers returns the modifier byte that goes into the report.
func (r *Report) Modifiers() uint8 {
	return (r.explicit &^ r.masked) | r.implicit
}

// SetLEDs stores the host LED output report.
func (r *Report) SetLEDs(b uint8) {
	r.leds = b
	r.ledsKnown = true
}

// LEDs returns the last LED state reported by the host.
func (r *Report) LEDs() LEDState { return ParseLEDs(r.leds) }

// HostLEDs is LEDs plus whether the host has reported any LED state yet.
func (r *Report) HostLEDs() (LEDState, bool) { return ParseLEDs(r.leds), r.ledsKnown }

// Snapshot returns the current report contents.
func (r *Report) Snapshot() Snapshot {
	kb := r.keys
	kb.Modifiers = r.Modifiers()
	return Snapshot{Keyboard: kb, Consumer: slices.Clone(r.consumer)}
}

// Flush sends the report if it changed since the last send.
func (r *Report) Flush() error {
	snap := r.Snapshot()
	if r.hasLast && snap.Equal(r.last) {
		return nil
	}
	r.last = snap
	r.hasLast = true
	if r.out == nil {
		return nil
	}
	return r.out.Send(snap)
}

// ReleaseAll releases every held usage and modifier and flushes.
func (r *Report) ReleaseAll() error {
	for _, id := range r.keys.Keys() {
		_ = r.Release(PageKeyboard, uint16(id))
	}
	for _, id := range slices.Clone(r.consumer) {
		_ = r.Release(PageConsumer, id)
	}
	for i := 0; i < 8; i++ {
		for r.explicitCounts[i] > 0 {
			r.UnregisterModifier(1 << i)
		}
	}
	r.implicit = 0
	r.masked = 0
	return r.Flush()
}
