package behavior

import "fmt"

type outcomeKind uint8

const (
	kindHandled outcomeKind = iota
	kindContinue
	kindError
)

// Outcome is what a press or release handler reports to the router.
type Outcome struct {
	kind outcomeKind
	err  error
}

var (
	// Handled stops layer resolution.
	Handled = Outcome{kind: kindHandled}
	// Continue falls through to the next lower active layer.
	Continue = Outcome{kind: kindContinue}
)

// Failed stops layer resolution with an error.
func Failed(err error) Outcome {
	if err == nil {
		return Handled
	}
	return Outcome{kind: kindError, err: err}
}

// IsHandled reports whether the event was consumed successfully.
func (o Outcome) IsHandled() bool { return o.kind == kindHandled }

// IsContinue reports whether the router should try the next layer.
func (o Outcome) IsContinue() bool { return o.kind == kindContinue }

// Err returns the error of a failed outcome.
func (o Outcome) Err() error { return o.err }

func (o Outcome) String() string {
	switch o.kind {
	case kindHandled:
		return "handled"
	case kindContinue:
		return "continue"
	default:
		return fmt.Sprintf("error(%v)", o.err)
	}
}
