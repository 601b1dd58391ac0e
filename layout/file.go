// Package layout reads keymap files. JSON, YAML and TOML are accepted; all
// three are normalized into one YAML document tree and decoded from there, so
// behavior properties are decoded the same way whatever the file format.
package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// File is a parsed keymap file.
type File struct {
	// Positions is the number of physical key positions. Zero means the
	// length of the first layer.
	Positions    int            `yaml:"positions"`
	DefaultLayer string         `yaml:"default-layer"`
	Layers       []LayerSpec    `yaml:"layers"`
	Behaviors    []BehaviorSpec `yaml:"behaviors"`
	Combos       []ComboSpec    `yaml:"combos"`
	Inputs       InputSpec      `yaml:"inputs"`
}

// LayerSpec is one layer of bindings.
type LayerSpec struct {
	Name     string      `yaml:"name"`
	Bindings BindingList `yaml:"bindings"`
}

// ComboSpec configures one combo.
type ComboSpec struct {
	Name               string   `yaml:"name"`
	KeyPositions       []uint32 `yaml:"key-positions"`
	Binding            string   `yaml:"bindings"`
	TimeoutMs          int64    `yaml:"timeout-ms"`
	RequirePriorIdleMs int64    `yaml:"require-prior-idle-ms"`
	SlowRelease        bool     `yaml:"slow-release"`
	Layers             []string `yaml:"layers"`
}

// InputSpec maps input devices to key positions.
type InputSpec struct {
	// Evdev maps Linux input key codes to positions. Keys are numeric
	// codes or KEY_ names.
	Evdev map[string]uint32 `yaml:"evdev"`
	// Keys maps typed characters to positions for the terminal simulator;
	// the character at index i presses position i.
	Keys string `yaml:"keys"`
}

// BehaviorSpec names a behavior instance and keeps its properties for the
// factory to decode.
type BehaviorSpec struct {
	Name       string
	Compatible string
	node       yaml.Node
}

// UnmarshalYAML keeps the raw node next to the identifying fields.
func (b *BehaviorSpec) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Name       string `yaml:"name"`
		Compatible string `yaml:"compatible"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	if head.Name == "" {
		return fmt.Errorf("line %d: behavior without name", node.Line)
	}
	if head.Compatible == "" {
		return fmt.Errorf("line %d: behavior %q without compatible", node.Line, head.Name)
	}
	b.Name = head.Name
	b.Compatible = head.Compatible
	b.node = *node
	return nil
}

// Decode fills v from the behavior's properties. Unknown properties are
// ignored; an instance without properties leaves v untouched.
func (b BehaviorSpec) Decode(v any) error {
	if b.node.Kind == 0 {
		return nil
	}
	if err := b.node.Decode(v); err != nil {
		return fmt.Errorf("behavior %q: %w", b.Name, err)
	}
	return nil
}

// BindingList accepts either a sequence of binding strings or one string of
// space separated bindings ("&kp A &kp B &trans").
type BindingList []string

func (l *BindingList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		list, err := SplitBindings(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*l = list
		return nil
	case yaml.SequenceNode:
		var out []string
		for _, item := range node.Content {
			var s string
			if err := item.Decode(&s); err != nil {
				return err
			}
			list, err := SplitBindings(s)
			if err != nil {
				return fmt.Errorf("line %d: %w", item.Line, err)
			}
			out = append(out, list...)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: bindings must be a string or a list", node.Line)
	}
}

// Format names a keymap file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks a format by file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// Load reads and parses a keymap file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keymap: %w", err)
	}
	f, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (*File, error) {
	switch format {
	case FormatJSON:
		var tree map[string]any
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return fromTree(tree)
	case FormatTOML:
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
		return fromTree(tree.ToMap())
	default:
		var f File
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return &f, f.validate()
	}
}

func fromTree(tree map[string]any) (*File, error) {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &f, f.validate()
}

func (f *File) validate() error {
	if len(f.Layers) == 0 {
		return fmt.Errorf("keymap has no layers")
	}
	seen := make(map[string]bool, len(f.Behaviors))
	for _, b := range f.Behaviors {
		if seen[b.Name] {
			return fmt.Errorf("behavior %q defined twice", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}
