package modmorph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/behavior/modmorph"
	"github.com/Alia5/keyflow/hid"
	ktest "github.com/Alia5/keyflow/internal/testing"
)

func newModMorph(t *testing.T, props string) *ktest.Harness {
	t.Helper()
	return ktest.NewEngine(t, `
behaviors:
  - name: mm
    compatible: mod-morph
    bindings: "&kp ESC &kp GRAVE"
`+props+`
layers:
  - bindings: "&mm &kp LSHIFT &kp LCTRL"
`)
}

func TestModMorph(t *testing.T) {
	tests := []struct {
		name     string
		props    string
		hold     []uint32
		wantKey  string
		wantMods uint8
	}{
		{name: "no modifier", props: "    mods: LSHIFT", wantKey: "ESCAPE"},
		{
			name: "modifier morphs and is masked", props: "    mods: LSHIFT",
			hold: []uint32{1}, wantKey: "GRAVE",
		},
		{
			name: "keep-mods leaves it in the report", props: "    mods: LSHIFT\n    keep-mods: LSHIFT",
			hold: []uint32{1}, wantKey: "GRAVE", wantMods: hid.ModLeftShift,
		},
		{
			name: "all modifiers required", props: "    mods: LSHIFT|LCTRL",
			hold: []uint32{1}, wantKey: "ESCAPE", wantMods: hid.ModLeftShift,
		},
		{
			name: "all modifiers held", props: "    mods: LSHIFT|LCTRL",
			hold: []uint32{1, 2}, wantKey: "GRAVE",
		},
		{
			name: "match-any", props: "    mods: LSHIFT|LCTRL\n    match-any: true",
			hold: []uint32{2}, wantKey: "GRAVE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newModMorph(t, tt.props)
			for i, p := range tt.hold {
				h.Press(p, int64(i))
			}
			h.Press(0, 10)
			assert.Equal(t, []string{tt.wantKey}, h.Held())
			assert.Equal(t, tt.wantMods, h.Mods())

			h.Release(0, 20)
			assert.Empty(t, h.Held())
			assert.Equal(t, 1, h.Rec.Count("release "+tt.wantKey))
		})
	}
}

func TestModMorphReleasesWhatItPressed(t *testing.T) {
	h := newModMorph(t, "    mods: LSHIFT")
	h.Press(1, 0)
	h.Press(0, 10)
	h.Release(1, 20)
	h.Release(0, 30)

	assert.Equal(t, []string{
		"press LSHIFT", "press GRAVE", "release LSHIFT", "release GRAVE",
	}, h.Rec.Effects)
	assert.Zero(t, h.Mods())
}

func TestModMorphBindingParams(t *testing.T) {
	h := newModMorph(t, "    mods: LSHIFT\n    binding-params: 9")
	mm := h.Engine.Behavior("mm").(*modmorph.ModMorph)

	got := mm.MorphBinding(behavior.Binding{Param1: 5, Param2: 7})
	assert.Equal(t, int32(5), got.Param1)
	assert.Equal(t, int32(7), got.Param2)

	h = newModMorph(t, "    mods: LSHIFT\n    binding-params: 6")
	mm = h.Engine.Behavior("mm").(*modmorph.ModMorph)
	got = mm.MorphBinding(behavior.Binding{Param1: 5, Param2: 7})
	assert.Equal(t, int32(7), got.Param1)
	assert.Equal(t, int32(5), got.Param2)
}

func TestModMorphRejectsConfig(t *testing.T) {
	for _, props := range []string{
		"",
		"    mods: NOPE",
		"    mods: LSHIFT\n    binding-params: 16",
	} {
		_, err := ktest.Build(`
behaviors:
  - name: mm
    compatible: mod-morph
    bindings: "&kp ESC &kp GRAVE"
` + props + `
layers:
  - bindings: "&mm"
`)
		assert.Error(t, err, props)
	}
}
