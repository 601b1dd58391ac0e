// Package source produces position events for the engine: scripted replays,
// a terminal simulator and Linux input devices.
package source

import (
	"context"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/engine"
)

// Source feeds engine input until ctx is done or the source is exhausted.
// Run never closes out.
type Source interface {
	Run(ctx context.Context, out chan<- engine.Input) error
}

func send(ctx context.Context, out chan<- engine.Input, ev behavior.PositionEvent) error {
	select {
	case out <- engine.PositionInput(ev):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
