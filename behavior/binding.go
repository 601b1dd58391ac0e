// Package behavior defines the contract between the engine and every
// behavior: bindings, events, outcomes, the Context a behavior acts through,
// and the registry that turns configured behaviors into stable indices.
package behavior

import (
	"fmt"

	"github.com/Alia5/keyflow/hid"
)

// ID is the stable index a behavior is resolved to when the keymap is built.
// The zero ID means no behavior is bound.
type ID uint16

// NoBehavior marks an empty binding slot.
const NoBehavior ID = 0

// Binding says what should run: a behavior and two parameters. Bindings are
// immutable once the keymap is built.
type Binding struct {
	Behavior ID
	Param1   int32
	Param2   int32
}

// Bound reports whether the binding references a behavior.
func (b Binding) Bound() bool { return b.Behavior != NoBehavior }

// Keycode interprets Param1 as a packed keycode.
func (b Binding) Keycode() hid.Keycode { return hid.Keycode(uint32(b.Param1)) }

// Keycode2 interprets Param2 as a packed keycode.
func (b Binding) Keycode2() hid.Keycode { return hid.Keycode(uint32(b.Param2)) }

func (b Binding) String() string {
	return fmt.Sprintf("{%d %d %d}", b.Behavior, b.Param1, b.Param2)
}

// ParamKind describes how a binding parameter is written in a keymap file.
type ParamKind int

const (
	ParamNumber ParamKind = iota
	ParamKeycode
	ParamLayer
)

func (k ParamKind) String() string {
	switch k {
	case ParamKeycode:
		return "keycode"
	case ParamLayer:
		return "layer"
	default:
		return "number"
	}
}
