package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/engine"
	"github.com/Alia5/keyflow/internal/log"
	"github.com/Alia5/keyflow/internal/source"
	"github.com/Alia5/keyflow/layout"
)

// EvdevConfig selects the Linux input device.
type EvdevConfig struct {
	Device string `help:"Input event device" default:"/dev/input/event0" env:"KEYFLOW_EVDEV_DEVICE"`
	Grab   bool   `help:"Grab the device so its keys reach only keyflow" default:"true" negatable:"" env:"KEYFLOW_EVDEV_GRAB"`
}

// Run drives the engine from live input.
type Run struct {
	KeymapFile `embed:""`
	Source     string       `help:"Position source" enum:"evdev,terminal" default:"evdev" env:"KEYFLOW_SOURCE"`
	Sinks      []string     `help:"Report sinks: log, gadget, viiper" default:"log" env:"KEYFLOW_SINKS"`
	Watch      bool         `help:"Rebuild the engine when the keymap file changes" env:"KEYFLOW_WATCH"`
	Evdev      EvdevConfig  `embed:"" prefix:"evdev."`
	Gadget     GadgetConfig `embed:"" prefix:"gadget."`
	Viiper     ViiperConfig `embed:"" prefix:"viiper."`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.Start(ctx, logger.With("session", uuid.NewString()), rawLogger)
}

// Start runs until ctx is done, the source ends or a fatal error occurs.
func (r *Run) Start(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	f, err := r.load()
	if err != nil {
		return err
	}

	outs, err := openSinks(ctx, r.Sinks, r.Gadget, r.Viiper, logger, rawLogger)
	if err != nil {
		return err
	}
	defer outs.Close()

	clock := deadline.NewSystemClock()
	eng, err := buildEngine(f, logger, clock, outs.multi)
	if err != nil {
		return err
	}

	src, err := r.source(f, clock, logger)
	if err != nil {
		return err
	}

	input := make(chan engine.Input, 64)
	for _, read := range outs.leds {
		read := read
		go func() {
			err := read(func(leds uint8) {
				select {
				case input <- engine.LEDInput(leds):
				case <-ctx.Done():
				}
			})
			if err != nil {
				logger.Warn("LED feedback stopped", "error", err)
			}
		}()
	}

	srcErr := make(chan error, 1)
	go func() { srcErr <- src.Run(ctx, input) }()

	var reloads <-chan *layout.File
	if r.Watch {
		if reloads, err = watchKeymap(ctx, r.Keymap, logger); err != nil {
			return err
		}
	}

	logger.Info("keyflow running", "keymap", r.Keymap, "source", r.Source, "sinks", r.Sinks, "watch", r.Watch)
	for {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func(e *engine.Engine) { done <- e.Run(runCtx, input) }(eng)

		select {
		case <-ctx.Done():
			cancel()
			<-done
			logger.Info("Shutting down")
			return nil
		case err := <-srcErr:
			cancel()
			<-done
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("source %s: %w", r.Source, err)
			}
			logger.Info("input source finished")
			return nil
		case err := <-done:
			cancel()
			return err
		case nf := <-reloads:
			cancel()
			<-done
			next, err := buildEngine(nf, logger, clock, outs.multi)
			if err != nil {
				logger.Error("keymap reload failed, keeping the running keymap", "error", err)
				continue
			}
			eng = next
			logger.Info("keymap reloaded", "keymap", r.Keymap)
		}
	}
}

func (r *Run) source(f *layout.File, clock deadline.Clock, logger *slog.Logger) (source.Source, error) {
	switch r.Source {
	case "terminal":
		keys, err := source.KeyMap(simulatorKeys("", f))
		if err != nil {
			return nil, err
		}
		return &source.Terminal{In: os.Stdin, Keys: keys, Clock: clock, Logger: logger, HoldMs: 1}, nil
	default:
		codes, err := source.EvdevMap(f.Inputs.Evdev, uint32(f.Positions))
		if err != nil {
			return nil, err
		}
		if len(codes) == 0 {
			return nil, errors.New("keymap has no inputs.evdev section")
		}
		return &source.Evdev{Path: r.Evdev.Device, Grab: r.Evdev.Grab, Codes: codes, Clock: clock, Logger: logger}, nil
	}
}

func simulatorKeys(flag string, f *layout.File) string {
	switch {
	case flag != "":
		return flag
	case f.Inputs.Keys != "":
		return f.Inputs.Keys
	default:
		return source.DefaultSimulatorKeys
	}
}
