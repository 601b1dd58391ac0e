package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/internal/source"
)

// Check loads and builds a keymap without running it and prints a summary.
type Check struct {
	KeymapFile `embed:""`
}

// Run is called by Kong when the check command is executed.
func (c *Check) Run(logger *slog.Logger) error {
	return c.check(os.Stdout, logger)
}

func (c *Check) check(w io.Writer, logger *slog.Logger) error {
	f, err := c.load()
	if err != nil {
		return err
	}
	eng, err := buildEngine(f, logger, deadline.NewMockClock(0), nil)
	if err != nil {
		return err
	}
	codes, err := source.EvdevMap(f.Inputs.Evdev, eng.Positions())
	if err != nil {
		return err
	}
	keys, err := source.KeyMap(simulatorKeys("", f))
	if err != nil {
		return err
	}

	labels := make([]string, 0, eng.Behaviors())
	for id := 0; id < eng.Behaviors(); id++ {
		labels = append(labels, eng.Label(behavior.ID(id)))
	}
	sort.Strings(labels)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "keymap\t%s\n", c.Keymap)
	fmt.Fprintf(tw, "positions\t%d\n", eng.Positions())
	fmt.Fprintf(tw, "layers\t%s\n", strings.Join(eng.Keymap().LayerNames(), ", "))
	fmt.Fprintf(tw, "behaviors\t%s\n", strings.Join(labels, ", "))
	fmt.Fprintf(tw, "combos\t%d\n", len(f.Combos))
	fmt.Fprintf(tw, "evdev keys\t%d\n", len(codes))
	fmt.Fprintf(tw, "simulator keys\t%d\n", len(keys))
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, "OK")
	return nil
}
