// Package combo implements combos: pressing several positions together
// within a timeout runs a binding on a virtual position instead of the
// positions' own bindings.
//
// Presses that may belong to a combo are captured. When exactly one fully
// pressed combo remains, or the shortest candidate is fully pressed when the
// timeout expires, the combo activates and its captured presses are consumed.
// Otherwise the captured presses are re-raised in order.
package combo

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/hid"
)

const (
	MaxCombos        = 64
	MaxActive        = 4
	MaxKeysPerCombo  = 8
	DefaultTimeoutMs = 50
)

var ErrTooManyCombos = errors.New("too many combos")

// Config is one resolved combo.
type Config struct {
	Name               string
	Positions          []uint32
	Binding            behavior.Binding
	TimeoutMs          int64
	RequirePriorIdleMs int64
	SlowRelease        bool
	// Layers limits the combo to these layers; empty means all.
	Layers          []int
	VirtualPosition uint32
}

type combo struct {
	Config
	layerMask uint32
}

func (c *combo) activeOn(layer int) bool {
	return c.layerMask == 0 || c.layerMask&(1<<uint(layer)) != 0
}

type active struct {
	combo   int
	pressed []behavior.PositionEvent
}

// Set is the combo table and the state of combos being pressed.
type Set struct {
	combos []combo
	lookup map[uint32]uint64

	pressed    []behavior.PositionEvent
	candidates uint64
	fully      int
	active     []active

	timer     *deadline.Timer
	timeoutAt int64

	lastTapped int64
	lastCombo  int64
}

// New validates cfgs and builds the combo table. Combos are ordered by key
// count, then by key positions.
func New(cfgs []Config) (*Set, error) {
	if len(cfgs) > MaxCombos {
		return nil, fmt.Errorf("%d combos: %w (max %d)", len(cfgs), ErrTooManyCombos, MaxCombos)
	}
	s := &Set{
		lookup:     make(map[uint32]uint64),
		fully:      -1,
		lastTapped: -1 << 31,
		lastCombo:  -1 << 31,
	}
	for _, cfg := range cfgs {
		if len(cfg.Positions) < 2 || len(cfg.Positions) > MaxKeysPerCombo {
			return nil, fmt.Errorf("combo %q: needs 2 to %d key positions", cfg.Name, MaxKeysPerCombo)
		}
		cfg.Positions = slices.Clone(cfg.Positions)
		slices.Sort(cfg.Positions)
		if len(slices.Compact(slices.Clone(cfg.Positions))) != len(cfg.Positions) {
			return nil, fmt.Errorf("combo %q: duplicate key position", cfg.Name)
		}
		if cfg.TimeoutMs <= 0 {
			cfg.TimeoutMs = DefaultTimeoutMs
		}
		c := combo{Config: cfg}
		for _, l := range cfg.Layers {
			c.layerMask |= 1 << uint(l)
		}
		s.combos = append(s.combos, c)
	}
	slices.SortStableFunc(s.combos, func(a, b combo) int {
		if len(a.Positions) != len(b.Positions) {
			return len(a.Positions) - len(b.Positions)
		}
		return slices.Compare(a.Positions, b.Positions)
	})
	for i, c := range s.combos {
		for _, p := range c.Positions {
			s.lookup[p] |= 1 << uint(i)
		}
	}
	return s, nil
}

// Len returns the number of combos.
func (s *Set) Len() int { return len(s.combos) }

// ActiveCombos returns the number of activated combos with keys still held.
func (s *Set) ActiveCombos() int { return len(s.active) }

func (s *Set) ListenPriority() int { return behavior.PriorityCombo }

func (s *Set) OnPosition(ctx behavior.Context, ev behavior.PositionEvent) behavior.Propagation {
	if s.timer == nil {
		s.timer = ctx.Deadlines().NewTimer(func(at int64) { s.onTimeout(ctx, at) })
	}
	if ev.Pressed {
		return s.down(ctx, ev)
	}
	return s.up(ctx, ev)
}

// OnKeycode records the last non-modifier press for require-prior-idle-ms.
func (s *Set) OnKeycode(_ behavior.Context, ev behavior.KeycodeEvent) behavior.Propagation {
	if ev.Pressed && !hid.IsModifierUsage(ev.Page, ev.ID) && ev.Timestamp > s.lastCombo {
		s.lastTapped = ev.Timestamp
	}
	return behavior.Bubble
}

func (s *Set) down(ctx behavior.Context, ev behavior.PositionEvent) behavior.Propagation {
	var n int
	if len(s.pressed) == 0 {
		n = s.setupCandidates(ctx, ev)
		if n == 0 {
			return behavior.Bubble
		}
	} else {
		s.filterTimedOut(ev.Timestamp)
		s.candidates &= s.lookup[ev.Position]
		n = bits.OnesCount64(s.candidates)
	}

	if len(s.pressed) == MaxKeysPerCombo {
		return behavior.Bubble
	}
	s.pressed = append(s.pressed, ev)
	s.updateTimer()

	if n == 0 {
		s.cleanup(ctx)
		return behavior.Captured
	}
	first := bits.TrailingZeros64(s.candidates)
	if len(s.combos[first].Positions) == len(s.pressed) {
		s.fully = first
		if n == 1 {
			s.cleanup(ctx)
		}
	}
	return behavior.Captured
}

func (s *Set) up(ctx behavior.Context, ev behavior.PositionEvent) behavior.Propagation {
	released := s.cleanup(ctx)
	if s.releaseComboKey(ctx, ev) {
		return behavior.Stop
	}
	if released > 1 {
		// later presses were re-raised; keep the release behind them
		ctx.RaisePosition(ev)
		return behavior.Captured
	}
	return behavior.Bubble
}

func (s *Set) setupCandidates(ctx behavior.Context, ev behavior.PositionEvent) int {
	layer := ctx.HighestLayer()
	s.candidates = 0
	for i := range s.combos {
		c := &s.combos[i]
		if s.lookup[ev.Position]&(1<<uint(i)) == 0 {
			continue
		}
		if !c.activeOn(layer) || s.quickTap(c, ev.Timestamp) {
			continue
		}
		s.candidates |= 1 << uint(i)
	}
	return bits.OnesCount64(s.candidates)
}

func (s *Set) quickTap(c *combo, ts int64) bool {
	return c.RequirePriorIdleMs > 0 && s.lastTapped+c.RequirePriorIdleMs > ts
}

func (s *Set) filterTimedOut(ts int64) int {
	if len(s.pressed) == 0 {
		return 0
	}
	start := s.pressed[0].Timestamp
	for i := range s.combos {
		bit := uint64(1) << uint(i)
		if s.candidates&bit != 0 && start+s.combos[i].TimeoutMs <= ts {
			s.candidates &^= bit
		}
	}
	return bits.OnesCount64(s.candidates)
}

func (s *Set) updateTimer() {
	if len(s.pressed) == 0 || s.candidates == 0 {
		s.timeoutAt = 0
		s.timer.Cancel()
		return
	}
	var first int64 = -1
	for i := range s.combos {
		if s.candidates&(1<<uint(i)) != 0 && (first < 0 || s.combos[i].TimeoutMs < first) {
			first = s.combos[i].TimeoutMs
		}
	}
	at := s.pressed[0].Timestamp + first
	if at == s.timeoutAt && s.timer.Pending() {
		return
	}
	s.timeoutAt = at
	s.timer.Schedule(at)
}

func (s *Set) onTimeout(ctx behavior.Context, at int64) {
	if s.timeoutAt == 0 || at < s.timeoutAt {
		return
	}
	if s.filterTimedOut(at) == 0 {
		s.cleanup(ctx)
	}
	s.updateTimer()
}

// cleanup activates the fully pressed combo, if any, and re-raises the
// remaining captured presses. It returns how many presses were captured.
func (s *Set) cleanup(ctx behavior.Context) int {
	s.timer.Cancel()
	s.timeoutAt = 0
	s.candidates = 0
	if s.fully >= 0 {
		idx := s.fully
		s.fully = -1
		s.activate(ctx, idx)
	}
	return s.releasePressed(ctx)
}

func (s *Set) releasePressed(ctx behavior.Context) int {
	events := s.pressed
	s.pressed = nil
	for i, ev := range events {
		if i == 0 {
			ctx.ReleaseCaptured(s, ev)
			continue
		}
		ctx.RaisePosition(ev)
	}
	return len(events)
}

func (s *Set) activate(ctx behavior.Context, idx int) {
	if len(s.active) >= MaxActive {
		ctx.Logger().Error("combo not activated, too many active combos", "combo", s.combos[idx].Name, "max", MaxActive)
		return
	}
	c := &s.combos[idx]
	n := min(len(s.pressed), len(c.Positions))
	a := active{combo: idx, pressed: slices.Clone(s.pressed[:n])}
	s.pressed = slices.Delete(s.pressed, 0, n)
	s.active = append(s.active, a)

	ts := a.pressed[0].Timestamp
	s.lastCombo = ts
	ctx.Logger().Debug("combo activated", "combo", c.Name, "position", c.VirtualPosition)
	out := ctx.Invoke(c.Binding, behavior.Event{Position: c.VirtualPosition, Timestamp: ts}, true)
	behavior.LogFailure(ctx, out, "combo press", "combo", c.Name)
}

func (s *Set) releaseComboKey(ctx behavior.Context, ev behavior.PositionEvent) bool {
	for i := range s.active {
		a := &s.active[i]
		c := &s.combos[a.combo]
		at := slices.IndexFunc(a.pressed, func(p behavior.PositionEvent) bool { return p.Position == ev.Position })
		if at < 0 {
			continue
		}
		allPressed := len(a.pressed) == len(c.Positions)
		a.pressed = slices.Delete(a.pressed, at, at+1)
		allReleased := len(a.pressed) == 0

		if (c.SlowRelease && allReleased) || (!c.SlowRelease && allPressed) {
			out := ctx.Invoke(c.Binding, behavior.Event{Position: c.VirtualPosition, Timestamp: ev.Timestamp}, false)
			behavior.LogFailure(ctx, out, "combo release", "combo", c.Name)
		}
		if allReleased {
			s.active = slices.Delete(s.active, i, i+1)
		}
		return true
	}
	return false
}

// Reset drops captured presses and releases active combos.
func (s *Set) Reset(ctx behavior.Context) {
	if s.timer != nil {
		s.timer.Cancel()
	}
	s.pressed = nil
	s.candidates = 0
	s.fully = -1
	for _, a := range s.active {
		c := &s.combos[a.combo]
		if c.SlowRelease || len(a.pressed) == len(c.Positions) {
			ctx.Invoke(c.Binding, behavior.Event{Position: c.VirtualPosition, Timestamp: ctx.Now()}, false)
		}
	}
	s.active = nil
}
