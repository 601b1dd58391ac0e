package keymap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/internal/log"
)

// Invoker runs a binding's handler; the engine implements it.
type Invoker interface {
	Invoke(b behavior.Binding, ev behavior.Event, pressed bool) behavior.Outcome
}

// Router resolves position events to bindings with layer fallthrough. The
// layer mask seen at press time is kept per position so the matching release
// takes the same path even if layers changed while the key was held.
type Router struct {
	keymap *Keymap
	layers *LayerState
	active []uint32
	logger *slog.Logger
}

// NewRouter creates a router over keymap and layers.
func NewRouter(km *Keymap, layers *LayerState, logger *slog.Logger) *Router {
	return &Router{
		keymap: km,
		layers: layers,
		active: make([]uint32, km.Positions()),
		logger: logger,
	}
}

// ActiveBehaviorLayer returns the mask captured by the last press at position.
func (r *Router) ActiveBehaviorLayer(position uint32) uint32 {
	if position >= uint32(len(r.active)) {
		return 0
	}
	return r.active[position]
}

// Dispatch routes ev through the active layers, highest first, down to the
// default layer. It returns nil once a binding handles the event, the
// binding's error if one fails, or behavior.ErrNotSupported when nothing
// consumed it.
func (r *Router) Dispatch(inv Invoker, ev behavior.PositionEvent) error {
	if ev.Position >= r.keymap.Positions() {
		return fmt.Errorf("position %d: %w", ev.Position, behavior.ErrNotSupported)
	}

	mask := r.active[ev.Position]
	if ev.Pressed {
		mask = r.layers.Mask()
		r.active[ev.Position] = mask
	}

	def := r.layers.Default()
	bev := ev.Event()
	for layer := r.keymap.Len() - 1; layer >= def; layer-- {
		if !ActiveIn(mask, def, layer) {
			continue
		}
		b, ok := r.keymap.Binding(layer, ev.Position)
		if !ok {
			continue
		}
		r.logger.Log(context.Background(), log.LevelTrace, "dispatch",
			"position", ev.Position, "pressed", ev.Pressed, "layer", layer, "binding", b)

		out := inv.Invoke(b, bev, ev.Pressed)
		switch {
		case out.IsHandled():
			return nil
		case out.IsContinue():
			continue
		default:
			return out.Err()
		}
	}
	return fmt.Errorf("position %d: %w", ev.Position, behavior.ErrNotSupported)
}
