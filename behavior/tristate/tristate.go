// Package tristate implements the tri-state behavior, e.g. a "swapper" that
// holds alt while tab is tapped repeatedly.
//
// The first press taps the start binding. Every press holds the continue
// binding until the key is released. The end binding is tapped once when the
// sequence ends: timeout-ms after the last release, when a position outside
// ignored-key-positions is pressed or released, or when a layer outside
// ignored-layers is activated.
package tristate

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/internal/arena"
	"github.com/Alia5/keyflow/layout"
)

const (
	// Compatible is the registry name of the tri-state behavior.
	Compatible = "tri-state"

	DefaultTimeoutMs = 1000
	MaxActive        = 10
)

// Config is the tri-state section of a keymap file. Bindings are the start,
// continue and end bindings.
type Config struct {
	Bindings            layout.BindingList `yaml:"bindings"`
	TimeoutMs           int64              `yaml:"timeout-ms"`
	TapMs               int64              `yaml:"tap-ms"`
	IgnoredKeyPositions []uint32           `yaml:"ignored-key-positions"`
	IgnoredLayers       []string           `yaml:"ignored-layers"`
}

func init() {
	behavior.Register(Compatible, behavior.Registration{New: New})
}

type instance struct {
	position   uint32
	pressed    bool
	firstPress bool
	timer      *deadline.Timer
}

// TriState taps start on the first press, holds continue while pressed and
// taps end when it times out or another key interrupts it.
type TriState struct {
	name          string
	start         behavior.Binding
	cont          behavior.Binding
	end           behavior.Binding
	timeout       int64
	tapMs         int64
	ignoredKeys   []uint32
	ignoredLayers uint32
	pool          *arena.Arena[instance]
}

// New builds a TriState from its keymap section.
func New(spec behavior.Spec) (behavior.Behavior, error) {
	cfg := Config{TimeoutMs: DefaultTimeoutMs}
	if err := spec.Decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Bindings) != 3 {
		return nil, errors.New("tri-state needs exactly three bindings: start, continue, end")
	}
	bs, err := spec.Resolver.Bindings(cfg.Bindings)
	if err != nil {
		return nil, err
	}
	t := &TriState{
		name:        spec.Name,
		start:       bs[0],
		cont:        bs[1],
		end:         bs[2],
		timeout:     cfg.TimeoutMs,
		tapMs:       cfg.TapMs,
		ignoredKeys: cfg.IgnoredKeyPositions,
		pool:        arena.New[instance](MaxActive),
	}
	for _, l := range cfg.IgnoredLayers {
		idx, err := spec.Resolver.Layer(l)
		if err != nil {
			return nil, fmt.Errorf("ignored-layers: %w", err)
		}
		t.ignoredLayers |= 1 << uint(idx)
	}
	return t, nil
}

// Active returns the number of running sequences.
func (t *TriState) Active() int { return t.pool.Len() }

func (t *TriState) ListenPriority() int { return behavior.PriorityTriState }

func (t *TriState) find(position uint32) (arena.Handle, *instance, bool) {
	return t.pool.Find(func(in *instance) bool { return in.position == position })
}

func (t *TriState) Pressed(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	h, inst, ok := t.find(ev.Position)
	if !ok {
		var err error
		h, inst, err = t.pool.Alloc()
		if err != nil {
			ctx.Logger().Error("tri-state pool exhausted", "behavior", t.name, "position", ev.Position)
			return behavior.Failed(fmt.Errorf("%s: %w", t.name, behavior.ErrPoolFull))
		}
		*inst = instance{position: ev.Position, firstPress: true}
		inst.timer = ctx.Deadlines().NewTimer(func(at int64) { t.onTimeout(ctx, h, at) })
		ctx.Logger().Debug("tri-state started", "behavior", t.name, "position", ev.Position)
	}

	inst.timer.Cancel()
	inst.pressed = true
	if inst.firstPress {
		inst.firstPress = false
		behavior.LogFailure(ctx, behavior.Tap(ctx, t.start, ev), "tri-state start", "behavior", t.name)
	}
	return ctx.Invoke(t.cont, ev, true)
}

func (t *TriState) Released(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	_, inst, ok := t.find(ev.Position)
	if !ok {
		// already ended by an interruption while held
		return behavior.Handled
	}
	inst.pressed = false
	out := ctx.Invoke(t.cont, ev, false)
	inst.timer.Schedule(ev.Timestamp + t.timeout)
	return out
}

func (t *TriState) onTimeout(ctx behavior.Context, h arena.Handle, at int64) {
	inst := t.pool.Get(h)
	if inst == nil || inst.pressed {
		return
	}
	ctx.Logger().Debug("tri-state timed out", "behavior", t.name, "position", inst.position)
	t.finish(ctx, h, inst, at)
}

// finish ends a sequence: a held continue binding is released, then the end
// binding is tapped.
func (t *TriState) finish(ctx behavior.Context, h arena.Handle, inst *instance, ts int64) {
	ev := behavior.Event{Position: inst.position, Timestamp: ts}
	pressed := inst.pressed
	inst.timer.Cancel()
	t.pool.Free(h)
	if pressed {
		behavior.LogFailure(ctx, ctx.Invoke(t.cont, ev, false), "tri-state continue release", "behavior", t.name)
	}
	t.tapEnd(ctx, ev)
}

func (t *TriState) tapEnd(ctx behavior.Context, ev behavior.Event) {
	if t.tapMs <= 0 {
		behavior.LogFailure(ctx, behavior.Tap(ctx, t.end, ev), "tri-state end", "behavior", t.name)
		return
	}
	behavior.LogFailure(ctx, ctx.Invoke(t.end, ev, true), "tri-state end", "behavior", t.name)
	ctx.Deadlines().AfterFunc(ev.Timestamp+t.tapMs, func(at int64) {
		ev.Timestamp = at
		behavior.LogFailure(ctx, ctx.Invoke(t.end, ev, false), "tri-state end", "behavior", t.name)
	})
}

// OnPosition ends running sequences on any position that is not ignored.
// Ignored positions pause the timeout while pressed.
func (t *TriState) OnPosition(ctx behavior.Context, ev behavior.PositionEvent) behavior.Propagation {
	t.pool.Each(func(h arena.Handle, inst *instance) {
		if inst.position == ev.Position {
			return
		}
		if !slices.Contains(t.ignoredKeys, ev.Position) {
			ctx.Logger().Debug("tri-state interrupted", "behavior", t.name, "position", inst.position, "by", ev.Position)
			t.finish(ctx, h, inst, ev.Timestamp)
			return
		}
		if ev.Pressed {
			inst.timer.Cancel()
		} else if !inst.pressed {
			inst.timer.Schedule(ev.Timestamp + t.timeout)
		}
	})
	return behavior.Bubble
}

// OnLayer ends running sequences when a layer that is not ignored activates.
func (t *TriState) OnLayer(ctx behavior.Context, ev behavior.LayerEvent) {
	if !ev.Active || t.ignoredLayers&(1<<uint(ev.Layer)) != 0 {
		return
	}
	t.pool.Each(func(h arena.Handle, inst *instance) {
		ctx.Logger().Debug("tri-state ended by layer", "behavior", t.name, "position", inst.position, "layer", ev.Layer)
		t.finish(ctx, h, inst, ev.Timestamp)
	})
}

// Reset ends every running sequence.
func (t *TriState) Reset(ctx behavior.Context) {
	t.pool.Each(func(h arena.Handle, inst *instance) {
		t.finish(ctx, h, inst, ctx.Now())
	})
}
