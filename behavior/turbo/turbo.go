// Package turbo implements the turbo key: while active it taps its binding
// every wait-ms. Holding the key longer than toggle-term-ms makes it
// momentary; a shorter press latches it until the next press.
package turbo

import (
	"errors"
	"fmt"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/internal/arena"
	"github.com/Alia5/keyflow/layout"
)

const (
	// Compatible is the registry name of the turbo-key behavior.
	Compatible = "turbo-key"

	MaxActive           = 5
	DefaultTapMs        = 5
	DefaultWaitMs       = 100
	DefaultToggleTermMs = 200
)

// Config is the turbo-key section of a keymap file.
type Config struct {
	Bindings     layout.BindingList `yaml:"bindings"`
	TapMs        int64              `yaml:"tap-ms"`
	WaitMs       int64              `yaml:"wait-ms"`
	ToggleTermMs int64              `yaml:"toggle-term-ms"`
}

func init() {
	behavior.Register(Compatible, behavior.Registration{New: New})
}

type instance struct {
	position  uint32
	source    uint8
	pressedAt int64
	timer     *deadline.Timer
}

// Turbo taps its binding every wait-ms while active. A press shorter than
// toggle-term-ms latches it on until the next press.
type Turbo struct {
	name       string
	binding    behavior.Binding
	tapMs      int64
	waitMs     int64
	toggleTerm int64
	pool       *arena.Arena[instance]
}

// New builds a Turbo from its keymap section.
func New(spec behavior.Spec) (behavior.Behavior, error) {
	cfg := Config{TapMs: DefaultTapMs, WaitMs: DefaultWaitMs, ToggleTermMs: DefaultToggleTermMs}
	if err := spec.Decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Bindings) != 1 {
		return nil, errors.New("turbo-key needs exactly one binding")
	}
	if cfg.WaitMs <= 0 {
		return nil, fmt.Errorf("wait-ms %d must be positive", cfg.WaitMs)
	}
	b, err := spec.Resolver.Binding(cfg.Bindings[0])
	if err != nil {
		return nil, err
	}
	return &Turbo{
		name:       spec.Name,
		binding:    b,
		tapMs:      cfg.TapMs,
		waitMs:     cfg.WaitMs,
		toggleTerm: cfg.ToggleTermMs,
		pool:       arena.New[instance](MaxActive),
	}, nil
}

// Active returns the number of running turbo keys.
func (t *Turbo) Active() int { return t.pool.Len() }

func (t *Turbo) find(ev behavior.Event) (arena.Handle, *instance, bool) {
	return t.pool.Find(func(in *instance) bool {
		return in.position == ev.Position && in.source == ev.Source
	})
}

func (t *Turbo) Pressed(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	if h, _, ok := t.find(ev); ok {
		ctx.Logger().Debug("turbo stopped", "behavior", t.name, "position", ev.Position)
		t.stop(h)
		return behavior.Handled
	}
	h, inst, err := t.pool.Alloc()
	if err != nil {
		ctx.Logger().Error("turbo pool exhausted", "behavior", t.name, "position", ev.Position, "capacity", t.pool.Cap())
		return behavior.Failed(fmt.Errorf("%s: %w", t.name, behavior.ErrPoolFull))
	}
	*inst = instance{position: ev.Position, source: ev.Source, pressedAt: ev.Timestamp}
	inst.timer = ctx.Deadlines().NewTimer(func(at int64) {
		t.onDeadline(ctx, h, at)
	})
	ctx.Logger().Debug("turbo started", "behavior", t.name, "position", ev.Position)
	t.tap(ctx, inst, ev.Timestamp)
	inst.timer.Schedule(ev.Timestamp + t.waitMs)
	return behavior.Handled
}

func (t *Turbo) Released(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	h, inst, ok := t.find(ev)
	if !ok {
		return behavior.Handled
	}
	if ev.Timestamp-inst.pressedAt > t.toggleTerm {
		ctx.Logger().Debug("turbo stopped", "behavior", t.name, "position", ev.Position)
		t.stop(h)
	}
	return behavior.Handled
}

func (t *Turbo) onDeadline(ctx behavior.Context, h arena.Handle, at int64) {
	inst := t.pool.Get(h)
	if inst == nil {
		return
	}
	t.tap(ctx, inst, at)
	inst.timer.Schedule(at + t.waitMs)
}

// tap presses the binding and releases it tap-ms later.
func (t *Turbo) tap(ctx behavior.Context, inst *instance, ts int64) {
	ev := behavior.Event{Position: inst.position, Timestamp: ts, Source: inst.source}
	if t.tapMs <= 0 {
		behavior.LogFailure(ctx, behavior.Tap(ctx, t.binding, ev), "turbo tap", "behavior", t.name)
		return
	}
	behavior.LogFailure(ctx, ctx.Invoke(t.binding, ev, true), "turbo press", "behavior", t.name)
	ctx.Deadlines().AfterFunc(ts+t.tapMs, func(at int64) {
		ev.Timestamp = at
		behavior.LogFailure(ctx, ctx.Invoke(t.binding, ev, false), "turbo release", "behavior", t.name)
	})
}

func (t *Turbo) stop(h arena.Handle) {
	if inst := t.pool.Get(h); inst != nil {
		inst.timer.Cancel()
	}
	t.pool.Free(h)
}

// Reset stops every turbo key.
func (t *Turbo) Reset(behavior.Context) {
	t.pool.Each(func(h arena.Handle, _ *instance) { t.stop(h) })
}
