// Package transparent implements &trans, which defers to the next lower
// active layer, and &none, which swallows the event.
package transparent

import "github.com/Alia5/keyflow/behavior"

const (
	// Compatible and CompatibleNone are the registry names of &trans and &none.
	Compatible     = "transparent"
	CompatibleNone = "none"
)

func init() {
	behavior.Register(Compatible, behavior.Registration{
		New: func(behavior.Spec) (behavior.Behavior, error) { return Transparent{}, nil },
	})
	behavior.Register(CompatibleNone, behavior.Registration{
		New: func(behavior.Spec) (behavior.Behavior, error) { return None{}, nil },
	})
	behavior.RegisterDefault("trans", Compatible)
	behavior.RegisterDefault("none", CompatibleNone)
}

type Transparent struct{}

func (Transparent) Pressed(behavior.Context, behavior.Binding, behavior.Event) behavior.Outcome {
	return behavior.Continue
}

func (Transparent) Released(behavior.Context, behavior.Binding, behavior.Event) behavior.Outcome {
	return behavior.Continue
}

type None struct{}

func (None) Pressed(behavior.Context, behavior.Binding, behavior.Event) behavior.Outcome {
	return behavior.Handled
}

func (None) Released(behavior.Context, behavior.Binding, behavior.Event) behavior.Outcome {
	return behavior.Handled
}
