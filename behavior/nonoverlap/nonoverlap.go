// Package nonoverlap implements non-overlap: at most one of its keys is held
// at a time. Pressing a key releases the most recent one; releasing the most
// recent key re-presses the one before it. The last keep-active-size presses
// are remembered, oldest evicted first.
package nonoverlap

import (
	"fmt"

	"github.com/Alia5/keyflow/behavior"
)

const (
	// Compatible is the registry name of the non-overlap behavior.
	Compatible = "non-overlap"

	DefaultKeepActiveSize = 10
)

// Config is the non-overlap section of a keymap file.
type Config struct {
	// Bindings names the child behavior; the trigger's parameters are
	// passed through to it.
	Bindings       string `yaml:"bindings"`
	KeepActiveSize int    `yaml:"keep-active-size"`
}

func init() {
	behavior.Register(Compatible, behavior.Registration{
		Params: []behavior.ParamKind{behavior.ParamKeycode, behavior.ParamNumber},
		New:    New,
	})
}

type active struct {
	position uint32
	binding  behavior.Binding
}

// NonOverlap keeps only the most recent of its keys pressed. Releasing it
// restores the previous one still held, up to keep-active-size keys back.
type NonOverlap struct {
	name  string
	child behavior.Binding
	depth int
	// actives is ordered least recent first.
	actives []active
}

// New builds a NonOverlap; bindings defaults to &kp.
func New(spec behavior.Spec) (behavior.Behavior, error) {
	cfg := Config{Bindings: "&kp", KeepActiveSize: DefaultKeepActiveSize}
	if err := spec.Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.KeepActiveSize <= 0 {
		return nil, fmt.Errorf("keep-active-size %d must be positive", cfg.KeepActiveSize)
	}
	child, err := spec.Resolver.Binding(cfg.Bindings)
	if err != nil {
		return nil, err
	}
	return &NonOverlap{
		name:    spec.Name,
		child:   child,
		depth:   cfg.KeepActiveSize,
		actives: make([]active, 0, cfg.KeepActiveSize),
	}, nil
}

func (n *NonOverlap) Pressed(ctx behavior.Context, b behavior.Binding, ev behavior.Event) behavior.Outcome {
	if len(n.actives) > 0 {
		n.invoke(ctx, n.actives[len(n.actives)-1], ev.Timestamp, false)
	}
	if len(n.actives) == n.depth {
		n.actives = append(n.actives[:0], n.actives[1:]...)
	}
	a := active{position: ev.Position, binding: n.bind(b)}
	n.actives = append(n.actives, a)
	return n.invoke(ctx, a, ev.Timestamp, true)
}

func (n *NonOverlap) Released(ctx behavior.Context, b behavior.Binding, ev behavior.Event) behavior.Outcome {
	want := n.bind(b)
	for i := len(n.actives) - 1; i >= 0; i-- {
		a := n.actives[i]
		if a.position != ev.Position || a.binding != want {
			continue
		}
		n.actives = append(n.actives[:i], n.actives[i+1:]...)
		if i < len(n.actives) {
			// Not the most recent one; it is already released.
			return behavior.Handled
		}
		out := n.invoke(ctx, a, ev.Timestamp, false)
		if len(n.actives) > 0 {
			n.invoke(ctx, n.actives[len(n.actives)-1], ev.Timestamp, true)
		}
		return out
	}
	ctx.Logger().Debug("non-overlap release without press", "behavior", n.name, "position", ev.Position)
	return behavior.Handled
}

// Held returns the number of remembered presses.
func (n *NonOverlap) Held() int { return len(n.actives) }

func (n *NonOverlap) bind(trigger behavior.Binding) behavior.Binding {
	b := n.child
	b.Param1, b.Param2 = trigger.Param1, trigger.Param2
	return b
}

func (n *NonOverlap) invoke(ctx behavior.Context, a active, ts int64, pressed bool) behavior.Outcome {
	out := ctx.Invoke(a.binding, behavior.Event{Position: a.position, Timestamp: ts}, pressed)
	behavior.LogFailure(ctx, out, "non-overlap child", "behavior", n.name)
	return out
}

// Reset releases the most recent key and forgets the rest.
func (n *NonOverlap) Reset(ctx behavior.Context) {
	if len(n.actives) > 0 {
		n.invoke(ctx, n.actives[len(n.actives)-1], ctx.Now(), false)
	}
	n.actives = n.actives[:0]
}
