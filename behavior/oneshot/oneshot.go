// Package oneshot implements one-shot (sticky) bindings: the wrapped binding
// is pressed with the one-shot key and stays pressed after release until the
// next key has been pressed and released, or until release-after-ms passes.
//
// If another key is pressed while the one-shot key is still held, the
// one-shot acts as a plain key and releases with it.
package oneshot

import (
	"errors"
	"fmt"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/internal/arena"
)

const (
	// Compatible is the registry name of the one-shot behavior.
	Compatible = "one-shot"

	DefaultReleaseAfterMs = 1000
	DefaultPoolSize       = 10
)

// Config is the one-shot section of a keymap file.
type Config struct {
	ReleaseAfterMs int64  `yaml:"release-after-ms"`
	Binding        string `yaml:"bindings"`
	QuickRelease   bool   `yaml:"quick-release"`
	PoolSize       int    `yaml:"pool-size"`
}

func init() {
	behavior.Register(Compatible, behavior.Registration{
		Params: []behavior.ParamKind{behavior.ParamKeycode, behavior.ParamNumber},
		New:    New,
	})
}

type modifiedKey struct {
	page uint8
	id   uint16
}

type instance struct {
	position     uint32
	source       uint8
	child        behavior.Binding
	releaseAt    int64
	timerStarted bool
	modified     *modifiedKey
	timer        *deadline.Timer
}

// OneShot holds its binding after the key is released until the next
// keycode from another binding is released (pressed with quick-release), or
// until release-after-ms passes.
type OneShot struct {
	name         string
	releaseAfter int64
	quickRelease bool
	child        behavior.Binding
	pool         *arena.Arena[instance]

	// invoking marks the instance whose own keycode events are in flight.
	invoking arena.Handle
}

// New builds a OneShot from its keymap section.
func New(spec behavior.Spec) (behavior.Behavior, error) {
	cfg := Config{ReleaseAfterMs: DefaultReleaseAfterMs, PoolSize: DefaultPoolSize}
	if err := spec.Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.Binding == "" {
		return nil, errors.New("one-shot needs a binding")
	}
	if cfg.PoolSize <= 0 {
		return nil, fmt.Errorf("pool-size %d must be positive", cfg.PoolSize)
	}
	child, err := spec.Resolver.Binding(cfg.Binding)
	if err != nil {
		return nil, err
	}
	return &OneShot{
		name:         spec.Name,
		releaseAfter: cfg.ReleaseAfterMs,
		quickRelease: cfg.QuickRelease,
		child:        child,
		pool:         arena.New[instance](cfg.PoolSize),
	}, nil
}

// Active returns the number of live one-shots.
func (o *OneShot) Active() int { return o.pool.Len() }

// childFor applies the triggering binding's parameters to the wrapped
// binding. A trigger without parameters keeps the configured ones.
func (o *OneShot) childFor(b behavior.Binding) behavior.Binding {
	child := o.child
	if b.Param1 != 0 || b.Param2 != 0 {
		child.Param1, child.Param2 = b.Param1, b.Param2
	}
	return child
}

func (o *OneShot) find(ev behavior.Event) (arena.Handle, *instance, bool) {
	return o.pool.Find(func(in *instance) bool {
		return in.position == ev.Position && in.source == ev.Source
	})
}

func (o *OneShot) Pressed(ctx behavior.Context, b behavior.Binding, ev behavior.Event) behavior.Outcome {
	if h, inst, ok := o.find(ev); ok {
		inst.timer.Cancel()
		o.release(ctx, h, inst, ev.Timestamp)
	}

	h, inst, err := o.pool.Alloc()
	if err != nil {
		ctx.Logger().Error("one-shot pool exhausted", "behavior", o.name, "position", ev.Position, "capacity", o.pool.Cap())
		return behavior.Failed(fmt.Errorf("%s: %w", o.name, behavior.ErrPoolFull))
	}
	*inst = instance{position: ev.Position, source: ev.Source, child: o.childFor(b)}
	inst.timer = ctx.Deadlines().NewTimer(func(at int64) {
		if in := o.pool.Get(h); in != nil {
			ctx.Logger().Debug("one-shot expired", "behavior", o.name, "position", in.position)
			o.release(ctx, h, in, at)
		}
	})

	o.invoking = h
	out := ctx.Invoke(inst.child, ev, true)
	o.invoking = arena.Handle{}
	if out.Err() != nil {
		o.pool.Free(h)
		return out
	}
	return behavior.Handled
}

// Released ends the one-shot if a key was already modified, otherwise it
// starts the release-after timer.
func (o *OneShot) Released(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	h, inst, ok := o.find(ev)
	if !ok {
		return behavior.Failed(fmt.Errorf("%s at %d: %w", o.name, ev.Position, behavior.ErrStaleRelease))
	}
	if inst.modified != nil {
		o.release(ctx, h, inst, ev.Timestamp)
		return behavior.Handled
	}
	inst.timerStarted = true
	inst.releaseAt = ev.Timestamp + o.releaseAfter
	inst.timer.Schedule(inst.releaseAt)
	return behavior.Handled
}

// OnKeycode tracks the key a one-shot modifies.
func (o *OneShot) OnKeycode(ctx behavior.Context, ev behavior.KeycodeEvent) behavior.Propagation {
	o.pool.Each(func(h arena.Handle, inst *instance) {
		if h == o.invoking {
			return
		}
		// the deadline should have fired already; events were queued
		if inst.timerStarted && ev.Timestamp > inst.releaseAt {
			inst.timer.Cancel()
			o.release(ctx, h, inst, inst.releaseAt)
			return
		}
		if ev.Pressed {
			if inst.modified != nil {
				return
			}
			if inst.timerStarted {
				inst.timer.Cancel()
			}
			inst.modified = &modifiedKey{page: ev.Page, id: ev.ID}
			if o.quickRelease && inst.timerStarted {
				o.releaseAfterKeycode(ctx, h, ev.Timestamp)
			}
			return
		}
		if inst.timerStarted && inst.modified != nil &&
			inst.modified.page == ev.Page && inst.modified.id == ev.ID {
			inst.timer.Cancel()
			o.releaseAfterKeycode(ctx, h, ev.Timestamp)
		}
	})
	return behavior.Bubble
}

// releaseAfterKeycode lets the modified key's event reach the report before
// the wrapped binding is released.
func (o *OneShot) releaseAfterKeycode(ctx behavior.Context, h arena.Handle, ts int64) {
	ctx.AfterKeycode(func() {
		if inst := o.pool.Get(h); inst != nil {
			o.release(ctx, h, inst, ts)
		}
	})
}

func (o *OneShot) release(ctx behavior.Context, h arena.Handle, inst *instance, ts int64) {
	child := inst.child
	ev := behavior.Event{Position: inst.position, Timestamp: ts, Source: inst.source}
	o.pool.Free(h)
	o.invoking = h
	out := ctx.Invoke(child, ev, false)
	o.invoking = arena.Handle{}
	behavior.LogFailure(ctx, out, "one-shot release", "behavior", o.name)
}

// Reset releases every live one-shot.
func (o *OneShot) Reset(ctx behavior.Context) {
	o.pool.Each(func(h arena.Handle, inst *instance) {
		inst.timer.Cancel()
		o.release(ctx, h, inst, ctx.Now())
	})
}
