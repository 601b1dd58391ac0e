package behavior

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Resolver turns configuration text into bindings while a keymap is built.
type Resolver interface {
	// Binding parses "&label param1 param2".
	Binding(s string) (Binding, error)
	Bindings(list []string) ([]Binding, error)
	Layer(s string) (int, error)
	// VirtualPosition reserves a position beyond the physical ones.
	VirtualPosition() uint32
	Positions() uint32
	Layers() int
}

// Spec is one configured behavior instance handed to its factory.
type Spec struct {
	Name       string
	Compatible string
	// Decode fills v from the instance's properties.
	Decode   func(v any) error
	Resolver Resolver
	Logger   *slog.Logger
}

// Factory creates a behavior instance from its configuration.
type Factory func(spec Spec) (Behavior, error)

// Registration describes a behavior variant.
type Registration struct {
	// Params declares how binding parameters are written, one entry per
	// parameter the behavior takes.
	Params []ParamKind
	New    Factory
}

var (
	registry   = make(map[string]Registration)
	defaults   = make(map[string]string)
	registryMu sync.RWMutex
)

// Register adds a behavior variant under its compatible name. Call it from
// the behavior package's init function. Names are case-insensitive.
func Register(compatible string, reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(compatible)] = reg
}

// RegisterDefault declares a label that exists without configuration, such as
// "kp" for key-press.
func RegisterDefault(label, compatible string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	defaults[label] = strings.ToLower(compatible)
}

// Lookup returns the registration for compatible.
func Lookup(compatible string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[strings.ToLower(compatible)]
	return reg, ok
}

// Defaults returns the built-in label to compatible map.
func Defaults() map[string]string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

// Compatibles lists registered variant names, sorted.
func Compatibles() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
