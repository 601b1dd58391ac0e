package oneshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/behavior/oneshot"
	"github.com/Alia5/keyflow/hid"
	ktest "github.com/Alia5/keyflow/internal/testing"
)

func newOneShot(t *testing.T, extra string) (*ktest.Harness, *oneshot.OneShot) {
	t.Helper()
	h := ktest.NewEngine(t, `
behaviors:
  - name: sk
    compatible: one-shot
    release-after-ms: 1000
    bindings: "&kp"
`+extra+`
layers:
  - bindings: "&sk LSHIFT &sk LCTRL &kp K"
`)
	return h, h.Engine.Behavior("sk").(*oneshot.OneShot)
}

func TestOneShotModifiesNextKey(t *testing.T) {
	h, sk := newOneShot(t, "")
	h.Tap(0, 0)
	assert.Equal(t, uint8(hid.ModLeftShift), h.Mods())

	h.Press(2, 10)
	assert.Equal(t, uint8(hid.ModLeftShift), h.Mods())
	assert.Equal(t, []string{"K"}, h.Held())

	h.Release(2, 20)
	assert.Equal(t, []string{"press LSHIFT", "press K", "release K", "release LSHIFT"}, h.Rec.Effects)
	assert.Zero(t, h.Mods())
	assert.Zero(t, sk.Active())

	reports := h.Rec.Reports
	require.GreaterOrEqual(t, len(reports), 2)
	beforeLast := reports[len(reports)-2]
	assert.Equal(t, uint8(hid.ModLeftShift), beforeLast.Keyboard.Modifiers, "K goes up while shift is still held")
	assert.Empty(t, beforeLast.Keyboard.Keys())
}

func TestOneShotExpires(t *testing.T) {
	h, sk := newOneShot(t, "")
	h.Tap(0, 0)
	h.Wait(1000)
	assert.Equal(t, 1, sk.Active())
	h.Wait(1001)
	assert.Equal(t, []string{"press LSHIFT", "release LSHIFT"}, h.Rec.Effects)
	assert.Zero(t, sk.Active())

	h.Tap(2, 1100)
	assert.Zero(t, h.Mods())
}

func TestOneShotHeldActsAsModifier(t *testing.T) {
	h, _ := newOneShot(t, "")
	h.Press(0, 0)
	h.Tap(2, 10)
	h.Tap(2, 20)
	assert.Equal(t, uint8(hid.ModLeftShift), h.Mods(), "still held")

	h.Release(0, 30)
	assert.Zero(t, h.Mods())
	assert.Equal(t, 2, h.Rec.Count("press K"))
}

func TestOneShotQuickRelease(t *testing.T) {
	h, _ := newOneShot(t, "    quick-release: true")
	h.Tap(0, 0)
	h.Press(2, 10)
	assert.Equal(t, []string{"press LSHIFT", "press K", "release LSHIFT"}, h.Rec.Effects)
	assert.Zero(t, h.Mods())
	assert.Equal(t, []string{"K"}, h.Held())
	h.Release(2, 20)
}

func TestOneShotStacks(t *testing.T) {
	h, sk := newOneShot(t, "")
	h.Tap(0, 0)
	h.Tap(1, 10)
	assert.Equal(t, uint8(hid.ModLeftShift|hid.ModLeftCtrl), h.Mods())

	h.Tap(2, 20)
	assert.Equal(t, []string{
		"press LSHIFT", "press LCTRL", "press K",
		"release K", "release LCTRL", "release LSHIFT",
	}, h.Rec.Effects)
	assert.Zero(t, sk.Active())
}

func TestOneShotRetapRestarts(t *testing.T) {
	h, sk := newOneShot(t, "")
	h.Tap(0, 0)
	h.Tap(0, 500)
	assert.Equal(t, 1, sk.Active())

	h.Wait(1001)
	assert.Equal(t, 1, sk.Active(), "second tap re-armed the timeout")
	h.Wait(1501)
	assert.Zero(t, sk.Active())
	assert.Equal(t, 2, h.Rec.Count("press LSHIFT"))
}
