// Package layer implements the layer switching behaviors. param1 is the
// layer, by name or index.
package layer

import (
	"github.com/Alia5/keyflow/behavior"
)

const (
	CompatibleMomentary = "momentary-layer"
	CompatibleToggle    = "toggle-layer"
	CompatibleTo        = "to-layer"
)

func init() {
	params := []behavior.ParamKind{behavior.ParamLayer}
	behavior.Register(CompatibleMomentary, behavior.Registration{
		Params: params,
		New:    func(behavior.Spec) (behavior.Behavior, error) { return Momentary{}, nil },
	})
	behavior.Register(CompatibleToggle, behavior.Registration{
		Params: params,
		New:    func(behavior.Spec) (behavior.Behavior, error) { return Toggle{}, nil },
	})
	behavior.Register(CompatibleTo, behavior.Registration{
		Params: params,
		New:    func(behavior.Spec) (behavior.Behavior, error) { return To{}, nil },
	})
	behavior.RegisterDefault("mo", CompatibleMomentary)
	behavior.RegisterDefault("tog", CompatibleToggle)
	behavior.RegisterDefault("to", CompatibleTo)
}

func outcome(err error) behavior.Outcome {
	if err != nil {
		return behavior.Failed(err)
	}
	return behavior.Handled
}

// Momentary holds a layer while the key is down.
type Momentary struct{}

func (Momentary) Pressed(ctx behavior.Context, b behavior.Binding, _ behavior.Event) behavior.Outcome {
	return outcome(ctx.LayerActivate(int(b.Param1)))
}

func (Momentary) Released(ctx behavior.Context, b behavior.Binding, _ behavior.Event) behavior.Outcome {
	return outcome(ctx.LayerDeactivate(int(b.Param1)))
}

// Toggle flips a layer on press.
type Toggle struct{}

func (Toggle) Pressed(ctx behavior.Context, b behavior.Binding, _ behavior.Event) behavior.Outcome {
	return outcome(ctx.LayerToggle(int(b.Param1)))
}

func (Toggle) Released(behavior.Context, behavior.Binding, behavior.Event) behavior.Outcome {
	return behavior.Handled
}

// To switches to a layer exclusively on press.
type To struct{}

func (To) Pressed(ctx behavior.Context, b behavior.Binding, _ behavior.Event) behavior.Outcome {
	return outcome(ctx.LayerTo(int(b.Param1)))
}

func (To) Released(behavior.Context, behavior.Binding, behavior.Event) behavior.Outcome {
	return behavior.Handled
}
