// Package keymap holds the layer stack and the position router that resolves
// a key transition to the binding that handles it.
package keymap

import (
	"errors"
	"fmt"
	"math/bits"
)

// MaxLayers is the width of the layer bitmask.
const MaxLayers = 32

// ErrInvalidLayer is returned for layers outside [0, MaxLayers) or beyond the
// configured keymap.
var ErrInvalidLayer = errors.New("invalid layer")

// LayerState is the active-layer bitmask plus the default layer. The default
// layer is always considered active whatever its bit says.
type LayerState struct {
	mask         uint32
	defaultLayer int
	count        int
}

// NewLayerState creates a state for count layers with defaultLayer active.
func NewLayerState(count, defaultLayer int) (*LayerState, error) {
	if count < 1 || count > MaxLayers {
		return nil, fmt.Errorf("%d layers: %w", count, ErrInvalidLayer)
	}
	if defaultLayer < 0 || defaultLayer >= count {
		return nil, fmt.Errorf("default layer %d: %w", defaultLayer, ErrInvalidLayer)
	}
	return &LayerState{defaultLayer: defaultLayer, count: count}, nil
}

func (s *LayerState) check(layer int) error {
	if layer < 0 || layer >= s.count {
		return fmt.Errorf("layer %d: %w", layer, ErrInvalidLayer)
	}
	return nil
}

// Mask returns the raw bitmask, without the implicit default layer bit.
func (s *LayerState) Mask() uint32 { return s.mask }

// Default returns the default layer index.
func (s *LayerState) Default() int { return s.defaultLayer }

// Count returns the number of configured layers.
func (s *LayerState) Count() int { return s.count }

// Active reports whether layer is active.
func (s *LayerState) Active(layer int) bool {
	return ActiveIn(s.mask, s.defaultLayer, layer)
}

// ActiveIn reports whether layer is active in mask given a default layer.
func ActiveIn(mask uint32, defaultLayer, layer int) bool {
	if layer == defaultLayer {
		return true
	}
	if layer < 0 || layer >= MaxLayers {
		return false
	}
	return mask&(1<<uint(layer)) != 0
}

// Highest returns the highest active layer.
func (s *LayerState) Highest() int {
	h := s.defaultLayer
	if s.mask != 0 {
		if top := MaxLayers - 1 - bits.LeadingZeros32(s.mask); top > h {
			h = top
		}
	}
	return h
}

// Activate sets the layer bit.
func (s *LayerState) Activate(layer int) error {
	if err := s.check(layer); err != nil {
		return err
	}
	s.mask |= 1 << uint(layer)
	return nil
}

// Deactivate clears the layer bit. The default layer stays active.
func (s *LayerState) Deactivate(layer int) error {
	if err := s.check(layer); err != nil {
		return err
	}
	s.mask &^= 1 << uint(layer)
	return nil
}

// Toggle flips the layer bit.
func (s *LayerState) Toggle(layer int) error {
	if err := s.check(layer); err != nil {
		return err
	}
	s.mask ^= 1 << uint(layer)
	return nil
}

// To deactivates every layer but layer, then activates it.
func (s *LayerState) To(layer int) error {
	if err := s.check(layer); err != nil {
		return err
	}
	s.mask = 1 << uint(layer)
	return nil
}

// Changes lists the layers whose effective activity differs between two
// masks, in ascending order.
func Changes(before, after uint32, defaultLayer int) []int {
	var out []int
	diff := before ^ after
	for diff != 0 {
		l := bits.TrailingZeros32(diff)
		diff &^= 1 << uint(l)
		if l != defaultLayer {
			out = append(out, l)
		}
	}
	return out
}
