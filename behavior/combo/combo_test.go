package combo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/behavior/combo"
	ktest "github.com/Alia5/keyflow/internal/testing"
)

func newCombos(t *testing.T, combos string) *ktest.Harness {
	t.Helper()
	return ktest.NewEngine(t, `
layers:
  - bindings: "&kp A &kp B &kp C &kp D"
combos:
`+combos)
}

const pair = `
  - name: x
    key-positions: [0, 1]
    bindings: "&kp X"
`

func TestCombo(t *testing.T) {
	tests := []struct {
		name   string
		combos string
		script func(h *ktest.Harness)
		want   []string
	}{
		{
			name:   "both keys within the timeout",
			combos: pair,
			script: func(h *ktest.Harness) {
				h.Press(0, 0)
				h.Press(1, 10)
				assert.Equal(h.T, []string{"X"}, h.Held())
				h.Release(0, 20)
				h.Release(1, 30)
			},
			want: []string{"press X", "release X"},
		},
		{
			name:   "timeout replays the captured press",
			combos: pair,
			script: func(h *ktest.Harness) {
				h.Press(0, 0)
				h.Wait(49)
				assert.Empty(h.T, h.Rec.Effects)
				h.Wait(50)
				h.Release(0, 60)
			},
			want: []string{"press A", "release A"},
		},
		{
			name:   "other key breaks the combo in order",
			combos: pair,
			script: func(h *ktest.Harness) {
				h.Press(0, 0)
				h.Press(2, 10)
			},
			want: []string{"press A", "press C"},
		},
		{
			name:   "early release replays press then release",
			combos: pair,
			script: func(h *ktest.Harness) {
				h.Tap(0, 0)
			},
			want: []string{"press A", "release A"},
		},
		{
			name: "slow release waits for the last key",
			combos: `
  - name: x
    key-positions: [0, 1]
    bindings: "&kp X"
    slow-release: true
`,
			script: func(h *ktest.Harness) {
				h.Press(0, 0)
				h.Press(1, 10)
				h.Release(0, 20)
				assert.Equal(h.T, []string{"X"}, h.Held())
				h.Release(1, 30)
			},
			want: []string{"press X", "release X"},
		},
		{
			name: "require-prior-idle skips combos while typing",
			combos: `
  - name: x
    key-positions: [0, 1]
    bindings: "&kp X"
    require-prior-idle-ms: 100
`,
			script: func(h *ktest.Harness) {
				h.Tap(2, 0)
				h.Press(0, 50)
				h.Press(1, 55)
			},
			want: []string{"press C", "release C", "press A", "press B"},
		},
		{
			name: "longer combo wins when completed",
			combos: pair + `
  - name: y
    key-positions: [0, 1, 2]
    bindings: "&kp Y"
`,
			script: func(h *ktest.Harness) {
				h.Press(0, 0)
				h.Press(1, 10)
				h.Press(2, 20)
			},
			want: []string{"press Y"},
		},
		{
			name: "shorter combo wins on timeout",
			combos: pair + `
  - name: y
    key-positions: [0, 1, 2]
    bindings: "&kp Y"
`,
			script: func(h *ktest.Harness) {
				h.Press(0, 0)
				h.Press(1, 10)
				h.Wait(50)
			},
			want: []string{"press X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCombos(t, tt.combos)
			tt.script(h)
			assert.Equal(t, tt.want, h.Rec.Effects)
		})
	}
}

func TestComboValidation(t *testing.T) {
	kp := behavior.Binding{Behavior: 1}
	tests := []struct {
		name string
		cfg  []combo.Config
	}{
		{name: "single key", cfg: []combo.Config{{Name: "a", Positions: []uint32{0}, Binding: kp}}},
		{name: "duplicate key", cfg: []combo.Config{{Name: "a", Positions: []uint32{1, 1}, Binding: kp}}},
		{name: "too many keys", cfg: []combo.Config{{Name: "a", Positions: []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8}, Binding: kp}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := combo.New(tt.cfg)
			assert.Error(t, err)
		})
	}

	many := make([]combo.Config, combo.MaxCombos+1)
	for i := range many {
		many[i] = combo.Config{Positions: []uint32{0, uint32(i + 1)}, Binding: kp}
	}
	_, err := combo.New(many)
	require.ErrorIs(t, err, combo.ErrTooManyCombos)

	set, err := combo.New(many[:3])
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	assert.Zero(t, set.ActiveCombos())
}
