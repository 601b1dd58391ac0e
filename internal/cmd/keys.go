package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/internal/source"
)

// Keys lists the key names bindings and input maps accept.
type Keys struct {
	Filter string `arg:"" optional:"" help:"Only list names containing this text"`
	Evdev  bool   `help:"List Linux input key names for inputs.evdev instead of binding key names"`
}

// Run is called by Kong when the keys command is executed.
func (k *Keys) Run() error {
	return k.list(os.Stdout)
}

func (k *Keys) list(w io.Writer) error {
	names := hid.KeyNames()
	if k.Evdev {
		names = source.EvdevKeyNames()
	}
	filter := strings.ToUpper(k.Filter)
	for _, name := range names {
		if filter != "" && !strings.Contains(strings.ToUpper(name), filter) {
			continue
		}
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}
