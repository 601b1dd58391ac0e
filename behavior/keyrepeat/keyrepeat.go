// Package keyrepeat implements &key_repeat, which presses the last key sent
// from one of its usage pages again, with the modifiers held at the time.
package keyrepeat

import (
	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/hid"
)

// Compatible is the registry name of the key-repeat behavior.
const Compatible = "key-repeat"

// Config lists the usage pages whose keycodes are remembered. Unset means
// the keyboard page only.
type Config struct {
	UsagePages []uint8 `yaml:"usage-pages"`
}

func init() {
	behavior.Register(Compatible, behavior.Registration{New: New})
	behavior.RegisterDefault("key_repeat", Compatible)
}

// KeyRepeat re-sends the last keycode pressed by any other binding.
type KeyRepeat struct {
	pages   []uint8
	last    behavior.KeycodeEvent
	current behavior.KeycodeEvent
	hasLast bool
	held    bool
}

// New builds a KeyRepeat from its keymap section.
func New(spec behavior.Spec) (behavior.Behavior, error) {
	cfg := Config{UsagePages: []uint8{hid.PageKeyboard}}
	if err := spec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &KeyRepeat{pages: cfg.UsagePages}, nil
}

// Pressed raises the remembered keycode; before any keycode it does nothing.
func (k *KeyRepeat) Pressed(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	if !k.hasLast {
		return behavior.Handled
	}
	k.current = k.last
	k.current.Pressed = true
	k.current.Timestamp = ev.Timestamp
	k.held = true
	ctx.RaiseKeycode(k.current)
	return behavior.Handled
}

func (k *KeyRepeat) Released(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	if !k.held {
		return behavior.Handled
	}
	k.held = false
	rel := k.current
	rel.Pressed = false
	rel.Timestamp = ev.Timestamp
	ctx.RaiseKeycode(rel)
	return behavior.Handled
}

// OnKeycode remembers presses from the configured pages.
func (k *KeyRepeat) OnKeycode(ctx behavior.Context, ev behavior.KeycodeEvent) behavior.Propagation {
	if !ev.Pressed {
		return behavior.Bubble
	}
	for _, p := range k.pages {
		if p == ev.Page {
			k.last = ev
			k.last.ImplicitMods |= ctx.HID().ExplicitMods()
			k.hasLast = true
			break
		}
	}
	return behavior.Bubble
}
