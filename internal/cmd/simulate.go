package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/engine"
	"github.com/Alia5/keyflow/internal/log"
	"github.com/Alia5/keyflow/internal/sink"
	"github.com/Alia5/keyflow/internal/source"
)

// Simulate turns the terminal into a keyboard: each typed character taps a
// position and the resulting HID effects are printed.
type Simulate struct {
	KeymapFile `embed:""`
	Map        string `help:"Characters for positions 0, 1, 2...; a space skips a position. Defaults to the keymap's inputs.keys"`
	HoldMs     int64  `help:"Milliseconds each simulated tap stays pressed" default:"1"`
}

// Run is called by Kong when the simulate command is executed.
func (s *Simulate) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := s.load()
	if err != nil {
		return err
	}
	keys, err := source.KeyMap(simulatorKeys(s.Map, f))
	if err != nil {
		return err
	}

	// Raw mode disables output post-processing, so restore line starts.
	out := crlfWriter{os.Stdout}
	clock := deadline.NewSystemClock()
	trace := sink.NewTrace(out, clock)
	eng, err := buildEngine(f, logger, clock, sink.Multi{trace, sink.NewLog(logger, rawLogger)}, trace)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "keyflow simulator: %d keys mapped, ctrl-c to quit\n", len(keys))
	term := &source.Terminal{In: os.Stdin, Keys: keys, Clock: clock, Logger: logger, HoldMs: s.HoldMs}

	input := make(chan engine.Input, 16)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx, input) }()

	err = term.Run(ctx, input)
	cancel()
	<-done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type crlfWriter struct{ w io.Writer }

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
