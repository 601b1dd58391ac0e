// Package leader implements leader-key sequences. Pressing the leader key
// opens a session; the keys pressed next are matched against the configured
// sequences and the binding of a matched sequence runs on that sequence's
// virtual key position.
//
// A sequence fires as soon as it is complete and either is the only
// candidate left or is marked immediate-trigger. Otherwise it fires when the
// session times out. A session with no candidate left is aborted on the next
// release.
package leader

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
)

// Compatible is the registry name of the leader-key behavior.
const Compatible = "leader-key"

// SequenceConfig is one entry of a leader-key sequences list.
type SequenceConfig struct {
	KeyPositions     []uint32 `yaml:"key-positions"`
	Binding          string   `yaml:"bindings"`
	ImmediateTrigger bool     `yaml:"immediate-trigger"`
	Layers           []string `yaml:"layers"`
}

// Config is the leader-key section of a keymap file.
type Config struct {
	TimeoutMs int64            `yaml:"timeout-ms"`
	Timerless bool             `yaml:"timerless"`
	Sequences []SequenceConfig `yaml:"sequences"`
}

func init() {
	behavior.Register(Compatible, behavior.Registration{New: New})
}

type sequence struct {
	positions []uint32
	binding   behavior.Binding
	immediate bool
	layers    []int
	virtual   uint32
	pressed   bool
}

func (s *sequence) activeOn(layer int) bool {
	return len(s.layers) == 0 || slices.Contains(s.layers, layer)
}

type heldKey struct {
	position uint32
	down     bool
}

// Leader is one leader key and its sequence table. It also listens to
// position events to drive an open session.
type Leader struct {
	name      string
	timeout   int64
	timerless bool
	sequences []*sequence

	active         bool
	leaderPosition uint32
	layer          int
	firstRelease   bool
	current        []uint32
	held           []heldKey
	candidates     []*sequence
	completed      []*sequence
	timer          *deadline.Timer
}

// New builds a Leader and allocates one virtual position per sequence.
func New(spec behavior.Spec) (behavior.Behavior, error) {
	var cfg Config
	if err := spec.Decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Sequences) == 0 {
		return nil, errors.New("leader-key needs at least one sequence")
	}

	l := &Leader{name: spec.Name, timeout: cfg.TimeoutMs, timerless: cfg.Timerless}
	for i, sc := range cfg.Sequences {
		if len(sc.KeyPositions) == 0 {
			return nil, fmt.Errorf("sequence %d: no key-positions", i)
		}
		for _, p := range sc.KeyPositions {
			if p >= spec.Resolver.Positions() {
				return nil, fmt.Errorf("sequence %d: key position %d does not exist", i, p)
			}
		}
		b, err := spec.Resolver.Binding(sc.Binding)
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		seq := &sequence{
			positions: sc.KeyPositions,
			binding:   b,
			immediate: sc.ImmediateTrigger,
			virtual:   spec.Resolver.VirtualPosition(),
		}
		for _, name := range sc.Layers {
			idx, err := spec.Resolver.Layer(name)
			if err != nil {
				return nil, fmt.Errorf("sequence %d: %w", i, err)
			}
			seq.layers = append(seq.layers, idx)
		}
		l.sequences = append(l.sequences, seq)
	}
	sort.SliceStable(l.sequences, func(i, j int) bool {
		a, b := l.sequences[i], l.sequences[j]
		if len(a.positions) != len(b.positions) {
			return len(a.positions) < len(b.positions)
		}
		return a.virtual < b.virtual
	})
	return l, nil
}

// Active reports whether a session is open.
func (l *Leader) Active() bool { return l.active }

func (l *Leader) ListenPriority() int { return behavior.PriorityLeader }

// Pressed opens a new session.
func (l *Leader) Pressed(ctx behavior.Context, _ behavior.Binding, ev behavior.Event) behavior.Outcome {
	l.activate(ctx, ev)
	return behavior.Handled
}

func (l *Leader) Released(behavior.Context, behavior.Binding, behavior.Event) behavior.Outcome {
	return behavior.Handled
}

func (l *Leader) activate(ctx behavior.Context, ev behavior.Event) {
	ctx.Logger().Debug("leader activated", "behavior", l.name, "position", ev.Position)
	l.active = true
	l.leaderPosition = ev.Position
	l.layer = ctx.HighestLayer()
	l.firstRelease = false
	l.current = l.current[:0]
	l.held = l.held[:0]
	l.candidates = nil
	l.completed = nil
	if l.timer == nil {
		l.timer = ctx.Deadlines().NewTimer(func(at int64) { l.onTimeout(ctx, at) })
	}
	if !l.timerless {
		l.resetTimer(ev.Timestamp)
	}
}

func (l *Leader) deactivate(ctx behavior.Context) {
	ctx.Logger().Debug("leader deactivated", "behavior", l.name)
	l.active = false
	l.timer.Cancel()
	l.candidates = nil
	l.completed = nil
}

func (l *Leader) resetTimer(ts int64) {
	if l.timeout > 0 {
		l.timer.Schedule(ts + l.timeout)
	}
}

func (l *Leader) onTimeout(ctx behavior.Context, at int64) {
	if !l.active {
		return
	}
	ctx.Logger().Debug("leader timed out", "behavior", l.name)
	for _, seq := range l.completed {
		if !seq.pressed {
			l.press(ctx, seq, at)
			l.release(ctx, seq, at)
		}
	}
	l.deactivate(ctx)
}

// OnPosition consumes the keys of an open session.
func (l *Leader) OnPosition(ctx behavior.Context, ev behavior.PositionEvent) behavior.Propagation {
	if !l.active {
		// a key whose press the last session consumed
		if !ev.Pressed && l.releaseHeld(ev.Position) {
			return behavior.Stop
		}
		return behavior.Bubble
	}
	if ev.Pressed {
		l.onPress(ctx, ev)
		return behavior.Stop
	}
	return l.onRelease(ctx, ev)
}

func (l *Leader) onPress(ctx behavior.Context, ev behavior.PositionEvent) {
	l.findCandidates(ev.Position, len(l.current))
	ctx.Logger().Debug("leader candidates", "behavior", l.name,
		"candidates", len(l.candidates), "completed", len(l.completed))
	l.timer.Cancel()
	l.current = append(l.current, ev.Position)
	l.held = append(l.held, heldKey{position: ev.Position, down: true})

	unique := len(l.candidates) == 1 && len(l.completed) == 1
	for _, seq := range l.completed {
		if seq.immediate || unique {
			l.press(ctx, seq, ev.Timestamp)
		}
	}
}

func (l *Leader) onRelease(ctx behavior.Context, ev behavior.PositionEvent) behavior.Propagation {
	if ev.Position == l.leaderPosition && !l.firstRelease {
		l.firstRelease = true
		return behavior.Bubble
	}
	if !slices.Contains(l.current, ev.Position) {
		return behavior.Bubble
	}
	if len(l.candidates) == 0 {
		l.releaseHeld(ev.Position)
		l.deactivate(ctx)
		return behavior.Stop
	}

	l.releaseHeld(ev.Position)
	released := 0
	if l.allReleased() {
		remaining := l.completed[:0]
		for _, seq := range l.completed {
			if seq.pressed {
				l.release(ctx, seq, ev.Timestamp)
				released++
				continue
			}
			remaining = append(remaining, seq)
		}
		l.completed = remaining
	}
	// the only candidate fired and is now fully released
	if released > 0 && len(l.candidates) == 1 {
		l.deactivate(ctx)
		return behavior.Stop
	}
	if !l.timerless || len(l.completed) < len(l.candidates) {
		l.resetTimer(ev.Timestamp)
	}
	return behavior.Stop
}

// findCandidates keeps the sequences whose first count keys match the keys
// pressed so far and whose key at count is position.
func (l *Leader) findCandidates(position uint32, count int) {
	l.candidates = l.candidates[:0:0]
	l.completed = l.completed[:0:0]
	for _, seq := range l.sequences {
		if count >= len(seq.positions) || seq.positions[count] != position {
			continue
		}
		if !seq.activeOn(l.layer) || !slices.Equal(seq.positions[:count], l.current) {
			continue
		}
		if slices.Contains(l.candidates, seq) {
			continue
		}
		l.candidates = append(l.candidates, seq)
		if len(seq.positions) == count+1 {
			l.completed = append(l.completed, seq)
		}
	}
}

func (l *Leader) releaseHeld(position uint32) bool {
	for i := range l.held {
		if l.held[i].down && l.held[i].position == position {
			l.held[i].down = false
			return true
		}
	}
	return false
}

func (l *Leader) allReleased() bool {
	for _, k := range l.held {
		if k.down {
			return false
		}
	}
	return true
}

func (l *Leader) press(ctx behavior.Context, seq *sequence, ts int64) {
	seq.pressed = true
	ctx.Logger().Debug("leader sequence", "behavior", l.name, "keys", seq.positions, "position", seq.virtual)
	out := ctx.Invoke(seq.binding, behavior.Event{Position: seq.virtual, Timestamp: ts}, true)
	behavior.LogFailure(ctx, out, "leader press", "behavior", l.name)
}

func (l *Leader) release(ctx behavior.Context, seq *sequence, ts int64) {
	seq.pressed = false
	out := ctx.Invoke(seq.binding, behavior.Event{Position: seq.virtual, Timestamp: ts}, false)
	behavior.LogFailure(ctx, out, "leader release", "behavior", l.name)
}

// Reset releases pressed sequences and closes the session.
func (l *Leader) Reset(ctx behavior.Context) {
	for _, seq := range l.sequences {
		if seq.pressed {
			l.release(ctx, seq, ctx.Now())
		}
	}
	l.held = l.held[:0]
	if l.active {
		l.deactivate(ctx)
	}
}
