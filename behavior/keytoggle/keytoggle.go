// Package keytoggle implements &kt: each press flips whether the keycode in
// param1 is held. The toggle-mode property fixes the direction to "on" or
// "off" instead.
package keytoggle

import (
	"fmt"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/behavior/keypress"
)

// Compatible is the registry name of the key-toggle behavior.
const Compatible = "key-toggle"

// Mode selects what a key-toggle press does to its keycode.
type Mode string

const (
	ModeFlip Mode = "flip"
	ModeOn   Mode = "on"
	ModeOff  Mode = "off"
)

// Config is the key-toggle section of a keymap file.
type Config struct {
	Mode Mode `yaml:"toggle-mode"`
}

func init() {
	behavior.Register(Compatible, behavior.Registration{
		Params: []behavior.ParamKind{behavior.ParamKeycode},
		New:    New,
	})
	behavior.RegisterDefault("kt", Compatible)
}

// New builds a KeyToggle; the mode defaults to flip.
func New(spec behavior.Spec) (behavior.Behavior, error) {
	cfg := Config{Mode: ModeFlip}
	if err := spec.Decode(&cfg); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeFlip, ModeOn, ModeOff:
	default:
		return nil, fmt.Errorf("toggle-mode %q: expected flip, on or off", cfg.Mode)
	}
	return &KeyToggle{mode: cfg.Mode}, nil
}

// KeyToggle presses or releases its keycode on press and ignores releases.
type KeyToggle struct {
	mode Mode
}

func (k *KeyToggle) Pressed(ctx behavior.Context, b behavior.Binding, ev behavior.Event) behavior.Outcome {
	kc := b.Keycode()
	page, id := kc.Usage()
	held := ctx.HID().IsPressed(page, id)

	press := !held
	switch k.mode {
	case ModeOn:
		press = true
	case ModeOff:
		press = false
	}
	if press == held {
		return behavior.Handled
	}
	ctx.RaiseKeycode(keypress.Event(kc, press, ev.Timestamp))
	return behavior.Handled
}

func (k *KeyToggle) Released(behavior.Context, behavior.Binding, behavior.Event) behavior.Outcome {
	return behavior.Handled
}
