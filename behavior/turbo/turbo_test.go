package turbo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/keyflow/behavior/turbo"
	ktest "github.com/Alia5/keyflow/internal/testing"
)

func newTurbo(t *testing.T) (*ktest.Harness, *turbo.Turbo) {
	t.Helper()
	h := ktest.NewEngine(t, `
behaviors:
  - name: tb
    compatible: turbo-key
    bindings: "&kp A"
    tap-ms: 5
    wait-ms: 100
    toggle-term-ms: 200
layers:
  - bindings: "&tb"
`)
	return h, h.Engine.Behavior("tb").(*turbo.Turbo)
}

func TestTurboMomentary(t *testing.T) {
	h, tb := newTurbo(t)
	h.Press(0, 0)
	assert.Equal(t, []string{"A"}, h.Held())
	h.Wait(5)
	assert.Empty(t, h.Held())

	h.Release(0, 250)
	assert.Zero(t, tb.Active(), "held past toggle-term-ms")
	h.Wait(1000)
	assert.Equal(t, 3, h.Rec.Count("press A"))
	assert.Equal(t, 3, h.Rec.Count("release A"))
}

func TestTurboToggle(t *testing.T) {
	h, tb := newTurbo(t)
	h.Tap(0, 0)
	assert.Equal(t, 1, tb.Active(), "short press latches")

	h.Wait(350)
	assert.Equal(t, 4, h.Rec.Count("press A"))

	h.Press(0, 400)
	h.Release(0, 410)
	assert.Zero(t, tb.Active())
	h.Wait(1000)
	assert.Equal(t, 5, h.Rec.Count("press A"))
	assert.Empty(t, h.Held())
}
