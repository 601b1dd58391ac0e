package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/internal/configpaths"
	"github.com/Alia5/keyflow/internal/log"
	"github.com/Alia5/keyflow/internal/sink"
	"github.com/Alia5/keyflow/internal/sink/viiper"
)

// GadgetConfig configures the HID gadget sink.
type GadgetConfig struct {
	Device       string        `help:"HID gadget character device" default:"/dev/hidg0" env:"KEYFLOW_GADGET_DEVICE"`
	WriteTimeout time.Duration `help:"Report write deadline" default:"20ms" env:"KEYFLOW_GADGET_WRITE_TIMEOUT"`
}

// ViiperConfig configures the VIIPER virtual keyboard sink.
type ViiperConfig struct {
	Addr        string        `help:"VIIPER API server address" default:"localhost:3242" env:"KEYFLOW_VIIPER_ADDR"`
	Bus         uint32        `help:"Bus to attach the keyboard to" default:"1" env:"KEYFLOW_VIIPER_BUS"`
	Password    string        `help:"API password; read from the local VIIPER key file when empty" env:"KEYFLOW_VIIPER_PASSWORD"`
	DialTimeout time.Duration `help:"Connection timeout" default:"3s" env:"KEYFLOW_VIIPER_DIAL_TIMEOUT"`
}

func (c ViiperConfig) password(logger *slog.Logger) string {
	if c.Password != "" {
		return c.Password
	}
	keyFile, err := configpaths.VIIPERKeyFile()
	if err != nil {
		return ""
	}
	pwd, err := os.ReadFile(keyFile)
	if err != nil {
		return ""
	}
	logger.Debug("using VIIPER key file", "path", keyFile)
	return strings.TrimSpace(string(pwd))
}

// outputs is the set of opened sinks for one run.
type outputs struct {
	multi   sink.Multi
	leds    []func(fn func(uint8)) error
	closers []io.Closer
}

func (o *outputs) Close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		_ = o.closers[i].Close()
	}
}

func openSinks(ctx context.Context, names []string, gadget GadgetConfig, vc ViiperConfig, logger *slog.Logger, raw log.RawLogger) (*outputs, error) {
	o := &outputs{}
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "log":
			o.multi = append(o.multi, sink.NewLog(logger, raw))
		case "gadget":
			g, err := sink.OpenGadget(gadget.Device, gadget.WriteTimeout, logger, raw)
			if err != nil {
				o.Close()
				return nil, err
			}
			o.multi = append(o.multi, g)
			o.leds = append(o.leds, g.ReadLEDs)
			o.closers = append(o.closers, g)
		case "viiper":
			kb, err := viiper.Connect(ctx, viiper.Config{
				Addr:        vc.Addr,
				Password:    vc.password(logger),
				DialTimeout: vc.DialTimeout,
			}, vc.Bus, logger, raw)
			if err != nil {
				o.Close()
				return nil, fmt.Errorf("viiper sink: %w", err)
			}
			o.multi = append(o.multi, kb)
			o.leds = append(o.leds, kb.ReadLEDs)
			o.closers = append(o.closers, kb)
		default:
			o.Close()
			return nil, fmt.Errorf("unknown sink %q (want log, gadget or viiper)", name)
		}
	}
	return o, nil
}

var _ hid.Output = sink.Multi(nil)
