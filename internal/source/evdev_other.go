//go:build !linux

package source

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/engine"
)

// Evdev is only available on Linux.
type Evdev struct {
	Path   string
	Grab   bool
	Codes  map[uint16]uint32
	Clock  deadline.Clock
	Logger *slog.Logger
}

func (d *Evdev) Run(context.Context, chan<- engine.Input) error {
	return errors.New("evdev input is only supported on linux")
}
