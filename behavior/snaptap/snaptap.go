// Package snaptap implements snap-tap: param1 is the key, param2 the opposing
// key. Pressing a key while its opponent is held releases the opponent;
// releasing it restores the opponent if that key is still physically down.
package snaptap

import (
	"fmt"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/behavior/keypress"
	"github.com/Alia5/keyflow/hid"
)

const (
	// Compatible is the registry name of the snap-tap behavior.
	Compatible = "snap-tap"

	// MaxKeys bounds the keys one snap-tap behavior tracks.
	MaxKeys = 16
)

func init() {
	behavior.Register(Compatible, behavior.Registration{
		Params: []behavior.ParamKind{behavior.ParamKeycode, behavior.ParamKeycode},
		New: func(spec behavior.Spec) (behavior.Behavior, error) {
			return &SnapTap{name: spec.Name}, nil
		},
	})
	behavior.RegisterDefault("st", Compatible)
}

type keyState struct {
	keycode  hid.Keycode
	opposing hid.Keycode
	physical bool
	logical  bool
}

// SnapTap sends only the latest of two opposing keys. Releasing it
// re-presses the opposing key if that is still physically held.
type SnapTap struct {
	name   string
	states []keyState
}

func (s *SnapTap) state(kc hid.Keycode) *keyState {
	for i := range s.states {
		if s.states[i].keycode == kc {
			return &s.states[i]
		}
	}
	return nil
}

func (s *SnapTap) Pressed(ctx behavior.Context, b behavior.Binding, ev behavior.Event) behavior.Outcome {
	kc, opp := b.Keycode(), b.Keycode2()
	st := s.state(kc)
	if st == nil {
		if len(s.states) >= MaxKeys {
			ctx.Logger().Error("snap-tap state full", "behavior", s.name, "key", kc)
			return behavior.Failed(fmt.Errorf("%s: %w", s.name, behavior.ErrPoolFull))
		}
		s.states = append(s.states, keyState{keycode: kc})
		st = &s.states[len(s.states)-1]
	}
	st.opposing = opp
	st.physical = true

	if o := s.state(opp); o != nil && o.logical {
		ctx.RaiseKeycode(keypress.Event(opp, false, ev.Timestamp))
		o.logical = false
	}
	if !st.logical {
		ctx.RaiseKeycode(keypress.Event(kc, true, ev.Timestamp))
		st.logical = true
	}
	return behavior.Handled
}

func (s *SnapTap) Released(ctx behavior.Context, b behavior.Binding, ev behavior.Event) behavior.Outcome {
	kc := b.Keycode()
	st := s.state(kc)
	if st == nil {
		return behavior.Handled
	}
	st.physical = false
	if st.logical {
		ctx.RaiseKeycode(keypress.Event(kc, false, ev.Timestamp))
		st.logical = false
	}
	if o := s.state(st.opposing); o != nil && o.physical && !o.logical {
		ctx.RaiseKeycode(keypress.Event(o.keycode, true, ev.Timestamp))
		o.logical = true
	}
	return behavior.Handled
}

// Reset releases every logically held key.
func (s *SnapTap) Reset(ctx behavior.Context) {
	for i := range s.states {
		if s.states[i].logical {
			ctx.RaiseKeycode(keypress.Event(s.states[i].keycode, false, ctx.Now()))
		}
	}
	s.states = s.states[:0]
}
