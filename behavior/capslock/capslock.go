// Package capslock implements a caps lock helper that drives the host's caps
// lock state instead of blindly toggling it.
//
// The host LED report is the source of truth. Until the host has sent one,
// the behavior tracks the state it last requested.
package capslock

import (
	"fmt"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/hid"
)

// Compatible is the registry name of the capslock behavior.
const Compatible = "capslock"

// Config is the capslock section of a keymap file.
type Config struct {
	// Bindings is tapped to flip the host state.
	Bindings             string   `yaml:"bindings"`
	EnableOnPress        bool     `yaml:"enable-on-press"`
	DisableOnRelease     bool     `yaml:"disable-on-release"`
	DisableOnSecondPress bool     `yaml:"disable-on-second-press"`
	DisableOnKeys        []string `yaml:"disable-on-keys"`
}

func init() {
	behavior.Register(Compatible, behavior.Registration{New: New})
}

// Capslock drives the host caps lock state through a toggle binding and
// turns it off again on release, on a second press or on configured keys.
type Capslock struct {
	name        string
	toggle      behavior.Binding
	cfg         Config
	disableKeys []hid.Keycode

	position      uint32
	active        bool
	justActivated bool
	assumed       bool
}

// New builds a Capslock from its keymap section.
func New(spec behavior.Spec) (behavior.Behavior, error) {
	cfg := Config{Bindings: "&kp CAPSLOCK", EnableOnPress: true}
	if err := spec.Decode(&cfg); err != nil {
		return nil, err
	}
	toggle, err := spec.Resolver.Binding(cfg.Bindings)
	if err != nil {
		return nil, err
	}
	c := &Capslock{name: spec.Name, toggle: toggle, cfg: cfg}
	for _, s := range cfg.DisableOnKeys {
		kc, err := hid.ParseKeycode(s)
		if err != nil {
			return nil, fmt.Errorf("disable-on-keys: %w", err)
		}
		c.disableKeys = append(c.disableKeys, kc)
	}
	return c, nil
}

// Active reports whether the behavior currently holds caps lock on.
func (c *Capslock) Active() bool { return c.active }

func (c *Capslock) Pressed(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	c.position = ev.Position
	if c.cfg.EnableOnPress {
		c.activate(ctx, ev.Timestamp)
	}
	return behavior.Handled
}

func (c *Capslock) Released(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	if c.cfg.DisableOnRelease || (c.cfg.DisableOnSecondPress && !c.justActivated) {
		c.deactivate(ctx, ev.Timestamp)
	}
	c.justActivated = false
	return behavior.Handled
}

// OnKeycode turns caps lock off when one of the disable-on-keys is pressed.
func (c *Capslock) OnKeycode(ctx behavior.Context, ev behavior.KeycodeEvent) behavior.Propagation {
	if !ev.Pressed || !c.active {
		return behavior.Bubble
	}
	mods := ev.ImplicitMods | ctx.HID().ExplicitMods()
	for _, kc := range c.disableKeys {
		page, id := kc.Usage()
		want := kc.ImplicitMods()
		if page == ev.Page && id == ev.ID && want&mods == want {
			ctx.Logger().Debug("capslock disabled by key", "behavior", c.name, "key", kc)
			c.deactivate(ctx, ev.Timestamp)
			break
		}
	}
	return behavior.Bubble
}

func (c *Capslock) activate(ctx behavior.Context, ts int64) {
	c.set(ctx, true, ts)
	if !c.active {
		c.justActivated = true
	}
	c.active = true
}

func (c *Capslock) deactivate(ctx behavior.Context, ts int64) {
	c.set(ctx, false, ts)
	c.active = false
}

func (c *Capslock) set(ctx behavior.Context, on bool, ts int64) {
	current := c.assumed
	if leds, ok := ctx.HID().HostLEDs(); ok {
		current = leds.CapsLock
	}
	if current == on {
		return
	}
	ctx.Logger().Debug("capslock toggled", "behavior", c.name, "from", current, "to", on)
	out := behavior.Tap(ctx, c.toggle, behavior.Event{Position: c.position, Timestamp: ts})
	behavior.LogFailure(ctx, out, "capslock toggle", "behavior", c.name)
	c.assumed = on
}
