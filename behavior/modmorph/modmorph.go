// Package modmorph implements the mod-morph behavior: it runs its normal
// binding, or its morph binding when the configured modifiers are held.
package modmorph

import (
	"errors"
	"fmt"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/internal/arena"
	"github.com/Alia5/keyflow/layout"
)

const (
	// Compatible is the registry name of the mod-morph behavior.
	Compatible = "mod-morph"

	MaxActive = 10
)

// Parameter sources for binding-params. Param1 uses bits 0..1 and Param2
// bits 2..3 of the selector.
const (
	SourceStatic   = 0
	SourceTrigger1 = 1
	SourceTrigger2 = 2
	SourceStatic2  = 3
)

// Config is the mod-morph section of a keymap file. Bindings holds the
// normal binding followed by the morph binding.
type Config struct {
	Bindings layout.BindingList `yaml:"bindings"`
	Mods     string             `yaml:"mods"`
	KeepMods string             `yaml:"keep-mods"`
	// MatchAny morphs when any of mods is held instead of all of them.
	MatchAny      bool  `yaml:"match-any"`
	BindingParams uint8 `yaml:"binding-params"`
}

func init() {
	behavior.Register(Compatible, behavior.Registration{
		Params: []behavior.ParamKind{behavior.ParamKeycode, behavior.ParamKeycode},
		New:    New,
	})
}

type instance struct {
	position uint32
	source   uint8
	binding  behavior.Binding
	morphed  bool
}

// ModMorph picks one of two bindings on press depending on the held
// explicit modifiers, and releases the same one.
type ModMorph struct {
	name     string
	normal   behavior.Binding
	morph    behavior.Binding
	mods     uint8
	masked   uint8
	matchAny bool
	selector uint8
	pool     *arena.Arena[instance]
}

// New builds a ModMorph from its keymap section.
func New(spec behavior.Spec) (behavior.Behavior, error) {
	var cfg Config
	if err := spec.Decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Bindings) != 2 {
		return nil, errors.New("mod-morph needs exactly two bindings: normal, morph")
	}
	bs, err := spec.Resolver.Bindings(cfg.Bindings)
	if err != nil {
		return nil, err
	}
	mods, err := hid.ParseMods(cfg.Mods)
	if err != nil {
		return nil, fmt.Errorf("mods: %w", err)
	}
	if mods == 0 {
		return nil, errors.New("mod-morph needs mods")
	}
	keep, err := hid.ParseMods(cfg.KeepMods)
	if err != nil {
		return nil, fmt.Errorf("keep-mods: %w", err)
	}
	if cfg.BindingParams > 0x0F {
		return nil, fmt.Errorf("binding-params 0x%X uses more than four bits", cfg.BindingParams)
	}
	return &ModMorph{
		name:     spec.Name,
		normal:   bs[0],
		morph:    bs[1],
		mods:     mods,
		masked:   mods &^ keep,
		matchAny: cfg.MatchAny,
		selector: cfg.BindingParams,
		pool:     arena.New[instance](MaxActive),
	}, nil
}

func (m *ModMorph) triggered(explicit uint8) bool {
	if m.matchAny {
		return explicit&m.mods != 0
	}
	return explicit&m.mods == m.mods
}

// MorphBinding returns the morph binding with parameters taken from trigger
// as binding-params selects.
func (m *ModMorph) MorphBinding(trigger behavior.Binding) behavior.Binding {
	b := m.morph
	b.Param1 = pick(m.selector&0x03, b.Param1, trigger)
	b.Param2 = pick(m.selector>>2&0x03, b.Param2, trigger)
	return b
}

func pick(src uint8, static int32, trigger behavior.Binding) int32 {
	switch src {
	case SourceTrigger1:
		return trigger.Param1
	case SourceTrigger2:
		return trigger.Param2
	default:
		return static
	}
}

func (m *ModMorph) Pressed(ctx behavior.Context, b behavior.Binding, ev behavior.Event) behavior.Outcome {
	if _, _, ok := m.find(ev); ok {
		return behavior.Failed(fmt.Errorf("%s pressed twice at %d: %w", m.name, ev.Position, behavior.ErrNotSupported))
	}
	h, inst, err := m.pool.Alloc()
	if err != nil {
		return behavior.Failed(fmt.Errorf("%s: %w", m.name, behavior.ErrPoolFull))
	}
	*inst = instance{position: ev.Position, source: ev.Source, binding: m.normal}
	if m.triggered(ctx.HID().ExplicitMods()) {
		inst.binding = m.MorphBinding(b)
		inst.morphed = true
		ctx.HID().SetMaskedMods(m.masked)
	}
	out := ctx.Invoke(inst.binding, ev, true)
	if out.Err() != nil {
		if inst.morphed {
			ctx.HID().ClearMaskedMods()
		}
		m.pool.Free(h)
	}
	return out
}

func (m *ModMorph) Released(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	h, inst, ok := m.find(ev)
	if !ok {
		return behavior.Failed(fmt.Errorf("%s at %d: %w", m.name, ev.Position, behavior.ErrStaleRelease))
	}
	binding, morphed := inst.binding, inst.morphed
	m.pool.Free(h)
	out := ctx.Invoke(binding, ev, false)
	if morphed {
		ctx.HID().ClearMaskedMods()
	}
	return out
}

func (m *ModMorph) find(ev behavior.Event) (arena.Handle, *instance, bool) {
	return m.pool.Find(func(in *instance) bool {
		return in.position == ev.Position && in.source == ev.Source
	})
}

// Reset releases held bindings.
func (m *ModMorph) Reset(ctx behavior.Context) {
	m.pool.Each(func(h arena.Handle, inst *instance) {
		m.Released(ctx, behavior.Binding{}, behavior.Event{Position: inst.position, Source: inst.source, Timestamp: ctx.Now()})
	})
}
