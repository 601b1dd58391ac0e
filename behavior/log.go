package behavior

import "errors"

// LogFailure logs a failed outcome produced outside the router, e.g. from a
// deadline callback, where nobody else would see it.
func LogFailure(ctx Context, out Outcome, msg string, args ...any) {
	err := out.Err()
	if err == nil {
		return
	}
	args = append(args, "error", err)
	if errors.Is(err, ErrNotSupported) {
		ctx.Logger().Debug(msg, args...)
		return
	}
	ctx.Logger().Error(msg, args...)
}

// Tap presses and immediately releases b.
func Tap(ctx Context, b Binding, ev Event) Outcome {
	if out := ctx.Invoke(b, ev, true); out.Err() != nil {
		return out
	}
	return ctx.Invoke(b, ev, false)
}
