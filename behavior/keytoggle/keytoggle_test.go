package keytoggle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ktest "github.com/Alia5/keyflow/internal/testing"
)

func TestKeyToggle(t *testing.T) {
	tests := []struct {
		name  string
		props string
		taps  int
		held  []string
	}{
		{name: "flip on", taps: 1, held: []string{"A"}},
		{name: "flip off", taps: 2},
		{name: "on stays on", props: "toggle-mode: on", taps: 2, held: []string{"A"}},
		{name: "off never presses", props: "toggle-mode: off", taps: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := ktest.NewEngine(t, `
behaviors:
  - name: t
    compatible: key-toggle
    `+tt.props+`
layers:
  - bindings: "&t A"
`)
			for i := 0; i < tt.taps; i++ {
				h.Tap(0, int64(i*10))
			}
			assert.Equal(t, tt.held, h.Held())
		})
	}
}
