// Package tapdance implements the tap-dance behavior: tapping the key n times
// within the tapping term runs the n-th configured binding.
//
// Each press restarts the tapping term. The decision is made when the term
// expires, when the count reaches the number of bindings, or when another
// position is pressed first. The chosen binding is held for as long as the
// key is held after the decision.
package tapdance

import (
	"errors"
	"fmt"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/internal/arena"
	"github.com/Alia5/keyflow/layout"
)

const (
	// Compatible is the registry name of the tap-dance behavior.
	Compatible = "tap-dance"

	DefaultTappingTermMs = 200
	DefaultPoolSize      = 10
)

// Config is the tap-dance section of a keymap file. The n-th binding runs
// after n taps.
type Config struct {
	TappingTermMs int64              `yaml:"tapping-term-ms"`
	Bindings      layout.BindingList `yaml:"bindings"`
	PoolSize      int                `yaml:"pool-size"`
}

func init() {
	behavior.Register(Compatible, behavior.Registration{New: New})
}

type instance struct {
	position uint32
	source   uint8
	counter  int
	pressed  bool
	decided  bool
	child    behavior.Binding
	timer    *deadline.Timer
}

// TapDance is one configured tap-dance.
type TapDance struct {
	name        string
	tappingTerm int64
	children    []behavior.Binding
	pool        *arena.Arena[instance]
}

// New builds a TapDance with its instance pool.
func New(spec behavior.Spec) (behavior.Behavior, error) {
	cfg := Config{TappingTermMs: DefaultTappingTermMs, PoolSize: DefaultPoolSize}
	if err := spec.Decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Bindings) == 0 {
		return nil, errors.New("tap-dance needs at least one binding")
	}
	if cfg.PoolSize <= 0 {
		return nil, fmt.Errorf("pool-size %d must be positive", cfg.PoolSize)
	}
	children, err := spec.Resolver.Bindings(cfg.Bindings)
	if err != nil {
		return nil, err
	}
	return &TapDance{
		name:        spec.Name,
		tappingTerm: cfg.TappingTermMs,
		children:    children,
		pool:        arena.New[instance](cfg.PoolSize),
	}, nil
}

// Active returns the number of live instances.
func (t *TapDance) Active() int { return t.pool.Len() }

func (t *TapDance) ListenPriority() int { return behavior.PriorityTapDance }

// Pressed counts a tap and restarts the tapping term. Reaching the last
// binding decides at once.
func (t *TapDance) Pressed(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	h, inst, ok := t.pool.Find(func(in *instance) bool {
		return in.position == ev.Position && in.source == ev.Source && !in.decided
	})
	if !ok {
		var err error
		h, inst, err = t.pool.Alloc()
		if err != nil {
			ctx.Logger().Error("tap-dance pool exhausted", "behavior", t.name, "position", ev.Position, "capacity", t.pool.Cap())
			return behavior.Failed(fmt.Errorf("%s: %w", t.name, behavior.ErrPoolFull))
		}
		*inst = instance{position: ev.Position, source: ev.Source}
		inst.timer = ctx.Deadlines().NewTimer(func(at int64) {
			t.onDeadline(ctx, h, at)
		})
	}

	inst.timer.Cancel()
	inst.counter++
	inst.pressed = true
	if inst.counter >= len(t.children) {
		t.decide(ctx, h, inst, ev.Timestamp)
		return behavior.Handled
	}
	inst.timer.Schedule(ev.Timestamp + t.tappingTerm)
	return behavior.Handled
}

func (t *TapDance) Released(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	match := func(in *instance) bool {
		return in.position == ev.Position && in.source == ev.Source && in.pressed
	}
	h, inst, ok := t.pool.Find(func(in *instance) bool { return match(in) && in.decided })
	if !ok {
		h, inst, ok = t.pool.Find(match)
	}
	if !ok {
		return behavior.Failed(fmt.Errorf("%s at %d: %w", t.name, ev.Position, behavior.ErrStaleRelease))
	}

	inst.pressed = false
	if !inst.decided {
		return behavior.Handled
	}
	out := ctx.Invoke(inst.child, t.childEvent(inst, ev.Timestamp), false)
	t.pool.Free(h)
	if out.Err() != nil {
		return out
	}
	return behavior.Handled
}

// OnPosition decides every undecided instance when another position is
// pressed, using the count reached so far.
func (t *TapDance) OnPosition(ctx behavior.Context, ev behavior.PositionEvent) behavior.Propagation {
	if !ev.Pressed || t.pool.Len() == 0 {
		return behavior.Bubble
	}
	t.pool.Each(func(h arena.Handle, inst *instance) {
		if inst.decided || (inst.position == ev.Position && inst.source == ev.Source) {
			return
		}
		inst.timer.Cancel()
		ctx.Logger().Debug("tap-dance interrupted", "behavior", t.name, "position", inst.position, "by", ev.Position)
		t.decide(ctx, h, inst, ev.Timestamp)
	})
	return behavior.Bubble
}

func (t *TapDance) onDeadline(ctx behavior.Context, h arena.Handle, at int64) {
	inst := t.pool.Get(h)
	if inst == nil || inst.decided {
		return
	}
	t.decide(ctx, h, inst, at)
}

func (t *TapDance) decide(ctx behavior.Context, h arena.Handle, inst *instance, ts int64) {
	n := min(inst.counter, len(t.children))
	inst.decided = true
	inst.child = t.children[n-1]
	ctx.Logger().Debug("tap-dance decided", "behavior", t.name, "position", inst.position, "count", inst.counter)

	ev := t.childEvent(inst, ts)
	behavior.LogFailure(ctx, ctx.Invoke(inst.child, ev, true), "tap-dance press", "behavior", t.name)
	if inst.pressed {
		return
	}
	behavior.LogFailure(ctx, ctx.Invoke(inst.child, ev, false), "tap-dance release", "behavior", t.name)
	t.pool.Free(h)
}

func (t *TapDance) childEvent(inst *instance, ts int64) behavior.Event {
	return behavior.Event{Position: inst.position, Timestamp: ts, Source: inst.source}
}

// Reset releases held children and drops every instance.
func (t *TapDance) Reset(ctx behavior.Context) {
	t.pool.Each(func(h arena.Handle, inst *instance) {
		inst.timer.Cancel()
		if inst.decided && inst.pressed {
			ctx.Invoke(inst.child, t.childEvent(inst, ctx.Now()), false)
		}
		t.pool.Free(h)
	})
}
