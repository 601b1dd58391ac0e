package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/internal/log"
	"github.com/Alia5/keyflow/internal/sink"
	"github.com/Alia5/keyflow/internal/source"
)

// Replay plays a scripted event file against a keymap on a simulated clock
// and prints every HID effect.
type Replay struct {
	KeymapFile `embed:""`
	Script     string `arg:"" help:"Script file: one step per line, or a yaml file with a steps list" type:"existingfile"`
	Settle     int64  `help:"Milliseconds to keep firing timers after the last step" default:"1000"`
	Output     string `help:"Write the transcript to this file instead of stdout" short:"o" type:"path"`
}

// Run is called by Kong when the replay command is executed.
func (r *Replay) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	var w io.Writer = os.Stdout
	if r.Output != "" {
		f, err := os.Create(r.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return r.replay(w, logger, rawLogger)
}

func (r *Replay) replay(w io.Writer, logger *slog.Logger, rawLogger log.RawLogger) error {
	f, err := r.load()
	if err != nil {
		return err
	}
	steps, err := source.LoadScript(r.Script)
	if err != nil {
		return fmt.Errorf("load script %s: %w", r.Script, err)
	}

	clock := deadline.NewMockClock(0)
	trace := sink.NewTrace(w, clock)
	eng, err := buildEngine(f, logger, clock, sink.Multi{trace, sink.NewLog(logger, rawLogger)}, trace)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "# session %s keymap %s script %s\n", uuid.NewString(), r.Keymap, r.Script)
	end, err := (&source.Replayer{Engine: eng, Clock: clock, Settle: r.Settle}).Run(steps)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "t=%d end\n", end)
	return nil
}
