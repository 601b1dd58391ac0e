package layout_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/layout"
)

const yamlKeymap = `
default-layer: base
behaviors:
  - name: td
    compatible: tap-dance
    tapping-term-ms: 150
    bindings: ["&kp A", "&kp B"]
layers:
  - name: base
    bindings: "&td &kp B &mo nav"
  - name: nav
    bindings:
      - "&trans &trans"
      - "&trans"
combos:
  - name: esc
    key-positions: [0, 1]
    bindings: "&kp ESC"
    timeout-ms: 40
inputs:
  evdev:
    KEY_A: 0
    "31": 1
`

const jsonKeymap = `{
  "default-layer": "base",
  "behaviors": [
    {"name": "td", "compatible": "tap-dance", "tapping-term-ms": 150, "bindings": ["&kp A", "&kp B"]}
  ],
  "layers": [
    {"name": "base", "bindings": "&td &kp B &mo nav"},
    {"name": "nav", "bindings": ["&trans &trans", "&trans"]}
  ],
  "combos": [
    {"name": "esc", "key-positions": [0, 1], "bindings": "&kp ESC", "timeout-ms": 40}
  ],
  "inputs": {"evdev": {"KEY_A": 0, "31": 1}}
}`

const tomlKeymap = `
default-layer = "base"

[[behaviors]]
name = "td"
compatible = "tap-dance"
tapping-term-ms = 150
bindings = ["&kp A", "&kp B"]

[[layers]]
name = "base"
bindings = "&td &kp B &mo nav"

[[layers]]
name = "nav"
bindings = ["&trans &trans", "&trans"]

[[combos]]
name = "esc"
key-positions = [0, 1]
bindings = "&kp ESC"
timeout-ms = 40

[inputs.evdev]
KEY_A = 0
"31" = 1
`

func TestParseFormats(t *testing.T) {
	tests := []struct {
		format layout.Format
		data   string
	}{
		{layout.FormatYAML, yamlKeymap},
		{layout.FormatJSON, jsonKeymap},
		{layout.FormatTOML, tomlKeymap},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := layout.Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)

			assert.Equal(t, "base", f.DefaultLayer)
			require.Len(t, f.Layers, 2)
			assert.Equal(t, layout.BindingList{"&td", "&kp B", "&mo nav"}, f.Layers[0].Bindings)
			assert.Equal(t, layout.BindingList{"&trans", "&trans", "&trans"}, f.Layers[1].Bindings)

			require.Len(t, f.Behaviors, 1)
			assert.Equal(t, "td", f.Behaviors[0].Name)
			assert.Equal(t, "tap-dance", f.Behaviors[0].Compatible)
			var props struct {
				Term     int64    `yaml:"tapping-term-ms"`
				Bindings []string `yaml:"bindings"`
			}
			require.NoError(t, f.Behaviors[0].Decode(&props))
			assert.Equal(t, int64(150), props.Term)
			assert.Equal(t, []string{"&kp A", "&kp B"}, props.Bindings)

			require.Len(t, f.Combos, 1)
			assert.Equal(t, []uint32{0, 1}, f.Combos[0].KeyPositions)
			assert.Equal(t, int64(40), f.Combos[0].TimeoutMs)
			assert.Equal(t, map[string]uint32{"KEY_A": 0, "31": 1}, f.Inputs.Evdev)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no layers", "behaviors: []\n"},
		{"duplicate behavior", `
behaviors:
  - {name: a, compatible: tap-dance}
  - {name: a, compatible: tap-dance}
layers:
  - bindings: "&kp A"
`},
		{"behavior without compatible", `
behaviors:
  - name: a
layers:
  - bindings: "&kp A"
`},
		{"binding without ampersand", "layers:\n  - bindings: \"kp A\"\n"},
		{"bindings map", "layers:\n  - bindings: {a: b}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := layout.Parse([]byte(tt.data), layout.FormatYAML)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonKeymap), 0o644))

	f, err := layout.Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Layers, 2)

	_, err = layout.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, layout.FormatJSON, layout.FormatFromPath("a/b.JSON"))
	assert.Equal(t, layout.FormatTOML, layout.FormatFromPath("b.toml"))
	assert.Equal(t, layout.FormatYAML, layout.FormatFromPath("b.yml"))
	assert.Equal(t, layout.FormatYAML, layout.FormatFromPath("keymap"))
}
