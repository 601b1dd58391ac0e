package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/behavior/combo"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/keymap"
	"github.com/Alia5/keyflow/layout"
)

// Options configures Build.
type Options struct {
	Logger *slog.Logger
	// Clock stamps live input in Run. Defaults to the system clock.
	Clock deadline.Clock
	// Output receives every changed report snapshot.
	Output hid.Output
	// Taps observe the raw press/release/modifier effects.
	Taps []hid.Sink
}

type entry struct {
	label      string
	compatible string
	reg        behavior.Registration
	spec       *layout.BehaviorSpec
}

// Build resolves every label in f to a behavior ID, instantiates the
// behaviors and returns a ready engine.
func Build(f *layout.File, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = deadline.NewSystemClock()
	}
	if len(f.Layers) == 0 {
		return nil, fmt.Errorf("keymap has no layers")
	}

	positions := uint32(f.Positions)
	if positions == 0 {
		positions = uint32(len(f.Layers[0].Bindings))
	}
	layerNames := make([]string, len(f.Layers))
	for i, l := range f.Layers {
		layerNames[i] = l.Name
	}

	entries, err := collectBehaviors(f)
	if err != nil {
		return nil, err
	}

	r := &resolver{
		labels:     make(map[string]behavior.ID, len(entries)),
		entries:    entries,
		layerNames: layerNames,
		positions:  positions,
		next:       positions,
	}
	for i, en := range entries {
		r.labels[en.label] = behavior.ID(i + 1)
	}

	e := &Engine{
		logger:    opts.Logger,
		clock:     opts.Clock,
		queue:     deadline.NewQueue(),
		report:    hid.NewReport(opts.Output, opts.Taps...),
		behaviors: make([]behavior.Behavior, len(entries)+1),
		labels:    make([]string, len(entries)+1),
	}

	for i, en := range entries {
		id := i + 1
		spec := behavior.Spec{
			Name:       en.label,
			Compatible: en.compatible,
			Decode:     func(any) error { return nil },
			Resolver:   r,
			Logger:     opts.Logger.With("behavior", en.label),
		}
		if en.spec != nil {
			spec.Decode = en.spec.Decode
		}
		b, err := en.reg.New(spec)
		if err != nil {
			return nil, fmt.Errorf("behavior %q (%s): %w", en.label, en.compatible, err)
		}
		e.behaviors[id] = b
		e.labels[id] = en.label
		e.addListeners(b)
	}

	layers := make([]keymap.Layer, len(f.Layers))
	for i, l := range f.Layers {
		bs, err := r.Bindings(l.Bindings)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, l.Name, err)
		}
		layers[i] = keymap.Layer{Name: l.Name, Bindings: bs}
	}
	km, err := keymap.New(positions, layers)
	if err != nil {
		return nil, err
	}

	def := 0
	if f.DefaultLayer != "" {
		if def, err = r.Layer(f.DefaultLayer); err != nil {
			return nil, fmt.Errorf("default layer: %w", err)
		}
	}
	ls, err := keymap.NewLayerState(km.Len(), def)
	if err != nil {
		return nil, err
	}

	if len(f.Combos) > 0 {
		set, err := buildCombos(f.Combos, r)
		if err != nil {
			return nil, err
		}
		e.addListeners(set)
		e.resetters = append(e.resetters, set)
	}
	sort.SliceStable(e.posListeners, func(i, j int) bool {
		return e.posListeners[i].ListenPriority() < e.posListeners[j].ListenPriority()
	})

	e.keymap = km
	e.layers = ls
	e.router = keymap.NewRouter(km, ls, opts.Logger)
	e.now = opts.Clock.Now()

	opts.Logger.Debug("engine built",
		"positions", positions, "layers", km.Len(), "behaviors", len(entries), "combos", len(f.Combos))
	return e, nil
}

func (e *Engine) addListeners(b any) {
	if l, ok := b.(behavior.PositionListener); ok {
		e.posListeners = append(e.posListeners, l)
	}
	if l, ok := b.(behavior.KeycodeListener); ok {
		e.keyListeners = append(e.keyListeners, l)
	}
	if l, ok := b.(behavior.LayerListener); ok {
		e.layerListeners = append(e.layerListeners, l)
	}
}

// collectBehaviors orders built-in labels first, sorted, then the file's own
// behaviors. A file behavior reusing a built-in label replaces it.
func collectBehaviors(f *layout.File) ([]entry, error) {
	own := make(map[string]bool, len(f.Behaviors))
	for _, b := range f.Behaviors {
		own[b.Name] = true
	}

	defaults := behavior.Defaults()
	labels := make([]string, 0, len(defaults))
	for label := range defaults {
		if !own[label] {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	var out []entry
	for _, label := range labels {
		reg, ok := behavior.Lookup(defaults[label])
		if !ok {
			return nil, fmt.Errorf("built-in %q: %s: %w", label, defaults[label], behavior.ErrUnknownBehavior)
		}
		out = append(out, entry{label: label, compatible: defaults[label], reg: reg})
	}
	for i := range f.Behaviors {
		spec := &f.Behaviors[i]
		reg, ok := behavior.Lookup(spec.Compatible)
		if !ok {
			return nil, fmt.Errorf("behavior %q: %s: %w", spec.Name, spec.Compatible, behavior.ErrUnknownBehavior)
		}
		out = append(out, entry{label: spec.Name, compatible: spec.Compatible, reg: reg, spec: spec})
	}
	if len(out) > 0xFFFE {
		return nil, fmt.Errorf("too many behaviors: %d", len(out))
	}
	return out, nil
}

func buildCombos(specs []layout.ComboSpec, r *resolver) (*combo.Set, error) {
	cfgs := make([]combo.Config, 0, len(specs))
	for i, s := range specs {
		name := s.Name
		if name == "" {
			name = "combo" + strconv.Itoa(i)
		}
		b, err := r.Binding(s.Binding)
		if err != nil {
			return nil, fmt.Errorf("combo %q: %w", name, err)
		}
		cfg := combo.Config{
			Name:               name,
			Positions:          s.KeyPositions,
			Binding:            b,
			TimeoutMs:          s.TimeoutMs,
			RequirePriorIdleMs: s.RequirePriorIdleMs,
			SlowRelease:        s.SlowRelease,
			VirtualPosition:    r.VirtualPosition(),
		}
		for _, l := range s.Layers {
			idx, err := r.Layer(l)
			if err != nil {
				return nil, fmt.Errorf("combo %q: %w", name, err)
			}
			cfg.Layers = append(cfg.Layers, idx)
		}
		for _, p := range s.KeyPositions {
			if p >= r.positions {
				return nil, fmt.Errorf("combo %q: position %d out of range", name, p)
			}
		}
		cfgs = append(cfgs, cfg)
	}
	return combo.New(cfgs)
}

// resolver turns binding text into Bindings while the engine is built.
type resolver struct {
	labels     map[string]behavior.ID
	entries    []entry
	layerNames []string
	positions  uint32
	next       uint32
}

func (r *resolver) Binding(s string) (behavior.Binding, error) {
	ref, err := layout.ParseBinding(s)
	if err != nil {
		return behavior.Binding{}, fmt.Errorf("%w: %v", behavior.ErrInvalidBinding, err)
	}
	id, ok := r.labels[ref.Label]
	if !ok {
		return behavior.Binding{}, fmt.Errorf("&%s: %w", ref.Label, behavior.ErrUnknownBehavior)
	}
	kinds := r.entries[id-1].reg.Params
	if len(ref.Params) > len(kinds) {
		return behavior.Binding{}, fmt.Errorf("%s: takes %d parameters: %w", ref, len(kinds), behavior.ErrInvalidBinding)
	}

	b := behavior.Binding{Behavior: id}
	for i, p := range ref.Params {
		v, err := r.param(kinds[i], p)
		if err != nil {
			return behavior.Binding{}, fmt.Errorf("%s: %w", ref, err)
		}
		if i == 0 {
			b.Param1 = v
		} else {
			b.Param2 = v
		}
	}
	return b, nil
}

func (r *resolver) param(kind behavior.ParamKind, s string) (int32, error) {
	switch kind {
	case behavior.ParamKeycode:
		kc, err := hid.ParseKeycode(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", behavior.ErrInvalidBinding, err)
		}
		return int32(kc), nil
	case behavior.ParamLayer:
		l, err := r.Layer(s)
		return int32(l), err
	default:
		v, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", behavior.ErrInvalidBinding, s)
		}
		return int32(v), nil
	}
}

func (r *resolver) Bindings(list []string) ([]behavior.Binding, error) {
	out := make([]behavior.Binding, len(list))
	for i, s := range list {
		b, err := r.Binding(s)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (r *resolver) Layer(s string) (int, error) {
	return keymap.LayerIndex(r.layerNames, s)
}

func (r *resolver) VirtualPosition() uint32 {
	p := r.next
	r.next++
	return p
}

func (r *resolver) Positions() uint32 { return r.positions }

func (r *resolver) Layers() int { return len(r.layerNames) }
