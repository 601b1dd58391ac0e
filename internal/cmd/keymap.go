package cmd

import (
	"fmt"
	"log/slog"

	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/engine"
	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/internal/configpaths"
	"github.com/Alia5/keyflow/layout"
)

// KeymapFile is the keymap flag shared by every command that builds an engine.
type KeymapFile struct {
	Keymap string `help:"Keymap file (json, yaml or toml); defaults to keymap.* in the working or config directory" short:"k" type:"path" env:"KEYFLOW_KEYMAP"`
}

func (k *KeymapFile) load() (*layout.File, error) {
	if k.Keymap == "" {
		k.Keymap = configpaths.DefaultKeymapPath()
	}
	f, err := layout.Load(k.Keymap)
	if err != nil {
		return nil, fmt.Errorf("load keymap %s: %w", k.Keymap, err)
	}
	return f, nil
}

func buildEngine(f *layout.File, logger *slog.Logger, clock deadline.Clock, out hid.Output, taps ...hid.Sink) (*engine.Engine, error) {
	e, err := engine.Build(f, engine.Options{
		Logger: logger,
		Clock:  clock,
		Output: out,
		Taps:   taps,
	})
	if err != nil {
		return nil, fmt.Errorf("build keymap: %w", err)
	}
	return e, nil
}
