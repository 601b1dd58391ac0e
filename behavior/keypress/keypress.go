// Package keypress implements the key-press behavior: param1 is a keycode
// that is held while the bound key is down.
package keypress

import (
	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/hid"
)

// Compatible is the registry name of &kp.
const Compatible = "key-press"

func init() {
	behavior.Register(Compatible, behavior.Registration{
		Params: []behavior.ParamKind{behavior.ParamKeycode},
		New:    func(behavior.Spec) (behavior.Behavior, error) { return KeyPress{}, nil },
	})
	behavior.RegisterDefault("kp", Compatible)
}

// KeyPress raises keycode events for its binding's keycode.
type KeyPress struct{}

func (KeyPress) Pressed(ctx behavior.Context, b behavior.Binding, ev behavior.Event) behavior.Outcome {
	ctx.RaiseKeycode(Event(b.Keycode(), true, ev.Timestamp))
	return behavior.Handled
}

func (KeyPress) Released(ctx behavior.Context, b behavior.Binding, ev behavior.Event) behavior.Outcome {
	ctx.RaiseKeycode(Event(b.Keycode(), false, ev.Timestamp))
	return behavior.Handled
}

// Event builds the keycode event for kc.
func Event(kc hid.Keycode, pressed bool, ts int64) behavior.KeycodeEvent {
	page, id := kc.Usage()
	return behavior.KeycodeEvent{
		Page:         page,
		ID:           id,
		ImplicitMods: kc.ImplicitMods(),
		Pressed:      pressed,
		Timestamp:    ts,
	}
}
