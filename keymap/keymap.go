package keymap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Alia5/keyflow/behavior"
)

// Layer is a named array of bindings indexed by key position.
type Layer struct {
	Name     string
	Bindings []behavior.Binding
}

// Keymap is the immutable layer table built from configuration.
type Keymap struct {
	layers    []Layer
	positions uint32
}

// New validates the layers and builds a keymap. Every layer must have exactly
// positions bindings.
func New(positions uint32, layers []Layer) (*Keymap, error) {
	if len(layers) == 0 || len(layers) > MaxLayers {
		return nil, fmt.Errorf("%d layers: %w", len(layers), ErrInvalidLayer)
	}
	for i, l := range layers {
		if uint32(len(l.Bindings)) != positions {
			return nil, fmt.Errorf("layer %d (%s) has %d bindings, expected %d", i, l.Name, len(l.Bindings), positions)
		}
	}
	return &Keymap{layers: layers, positions: positions}, nil
}

// Positions returns the number of physical key positions.
func (k *Keymap) Positions() uint32 { return k.positions }

// Len returns the number of layers.
func (k *Keymap) Len() int { return len(k.layers) }

// Binding returns the binding at layer and position.
func (k *Keymap) Binding(layer int, position uint32) (behavior.Binding, bool) {
	if layer < 0 || layer >= len(k.layers) || position >= k.positions {
		return behavior.Binding{}, false
	}
	b := k.layers[layer].Bindings[position]
	return b, b.Bound()
}

// LayerName returns the configured name of layer.
func (k *Keymap) LayerName(layer int) string {
	if layer < 0 || layer >= len(k.layers) {
		return ""
	}
	return k.layers[layer].Name
}

// LayerIndex resolves a layer by name or number.
func (k *Keymap) LayerIndex(s string) (int, error) {
	return LayerIndex(k.LayerNames(), s)
}

// LayerNames returns the names in index order.
func (k *Keymap) LayerNames() []string {
	names := make([]string, len(k.layers))
	for i, l := range k.layers {
		names[i] = l.Name
	}
	return names
}

// LayerIndex resolves s against names, accepting a decimal index too.
func LayerIndex(names []string, s string) (int, error) {
	for i, n := range names {
		if n != "" && strings.EqualFold(n, s) {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(names) {
		return n, nil
	}
	return 0, fmt.Errorf("layer %q: %w", s, ErrInvalidLayer)
}
