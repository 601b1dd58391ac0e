package hid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/hid"
)

type capture struct{ reports []hid.Snapshot }

func (c *capture) Send(s hid.Snapshot) error {
	c.reports = append(c.reports, s)
	return nil
}

func TestReportKeysAndFlush(t *testing.T) {
	out := &capture{}
	r := hid.NewReport(out)

	require.NoError(t, r.Press(hid.PageKeyboard, hid.KeyA))
	require.NoError(t, r.Flush())
	require.NoError(t, r.Flush())
	require.Len(t, out.reports, 1, "unchanged report must not be resent")
	assert.True(t, out.reports[0].Keyboard.Pressed(hid.KeyA))

	require.NoError(t, r.Release(hid.PageKeyboard, hid.KeyA))
	require.NoError(t, r.Flush())
	require.Len(t, out.reports, 2)
	assert.Empty(t, out.reports[1].Keyboard.Keys())
}

func TestExplicitModifierCounting(t *testing.T) {
	r := hid.NewReport(nil)

	require.NoError(t, r.Press(hid.PageKeyboard, hid.KeyLeftShift))
	r.RegisterModifier(hid.ModLeftShift)
	assert.Equal(t, uint8(hid.ModLeftShift), r.ExplicitMods())

	require.NoError(t, r.Release(hid.PageKeyboard, hid.KeyLeftShift))
	assert.Equal(t, uint8(hid.ModLeftShift), r.ExplicitMods(), "second holder keeps shift registered")

	r.UnregisterModifier(hid.ModLeftShift)
	assert.Zero(t, r.ExplicitMods())

	r.UnregisterModifier(hid.ModLeftShift)
	assert.Zero(t, r.ExplicitMods(), "unbalanced unregister is ignored")
}

func TestImplicitAndMaskedModifiers(t *testing.T) {
	r := hid.NewReport(nil)
	r.RegisterModifier(hid.ModLeftShift | hid.ModLeftCtrl)
	r.SetMaskedMods(hid.ModLeftShift)
	r.SetImplicitMods(hid.ModRightAlt)

	assert.Equal(t, uint8(hid.ModLeftCtrl|hid.ModRightAlt), r.Modifiers())

	r.ClearMaskedMods()
	r.ClearImplicitMods()
	assert.Equal(t, uint8(hid.ModLeftShift|hid.ModLeftCtrl), r.Modifiers())
}

func TestConsumerUsages(t *testing.T) {
	r := hid.NewReport(nil)
	for i := uint16(0); i < hid.MaxConsumerUsages; i++ {
		require.NoError(t, r.Press(hid.PageConsumer, 0x100+i))
	}
	assert.ErrorIs(t, r.Press(hid.PageConsumer, 0x200), hid.ErrReportFull)
	assert.NoError(t, r.Press(hid.PageConsumer, 0x100), "pressing a held usage is idempotent")

	require.NoError(t, r.Release(hid.PageConsumer, 0x100))
	assert.Len(t, r.Snapshot().Consumer, hid.MaxConsumerUsages-1)

	assert.ErrorIs(t, r.Press(0x42, 1), hid.ErrUnsupportedPage)
}

type effectLog struct{ effects []string }

func (e *effectLog) Press(page uint8, id uint16) error {
	e.effects = append(e.effects, "press")
	return nil
}
func (e *effectLog) Release(page uint8, id uint16) error {
	e.effects = append(e.effects, "release")
	return nil
}
func (e *effectLog) RegisterModifier(uint8)   { e.effects = append(e.effects, "register") }
func (e *effectLog) UnregisterModifier(uint8) { e.effects = append(e.effects, "unregister") }

func TestReleaseAll(t *testing.T) {
	out := &capture{}
	taps := &effectLog{}
	r := hid.NewReport(out, taps)

	require.NoError(t, r.Press(hid.PageKeyboard, hid.KeyB))
	require.NoError(t, r.Press(hid.PageConsumer, hid.ConsumerMute))
	r.RegisterModifier(hid.ModLeftGUI)
	r.RegisterModifier(hid.ModLeftGUI)

	require.NoError(t, r.ReleaseAll())
	snap := r.Snapshot()
	assert.Empty(t, snap.Keyboard.Keys())
	assert.Empty(t, snap.Consumer)
	assert.Zero(t, snap.Keyboard.Modifiers)
	assert.Equal(t, []string{"press", "press", "register", "register", "release", "release", "unregister", "unregister"}, taps.effects)
}

func TestInputStateWireFormat(t *testing.T) {
	var st hid.InputState
	require.NoError(t, st.UnmarshalBinary([]byte{hid.ModLeftCtrl, 2, hid.KeyA, hid.KeyZ}))
	assert.Equal(t, []uint8{hid.KeyA, hid.KeyZ}, st.Keys())

	b, err := st.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{hid.ModLeftCtrl, 2, hid.KeyA, hid.KeyZ}, b)

	report := st.BuildReport()
	require.Len(t, report, 34)
	assert.Equal(t, byte(hid.ModLeftCtrl), report[0])
	assert.Equal(t, byte(1<<(hid.KeyA%8)), report[2+hid.KeyA/8])

	assert.Error(t, st.UnmarshalBinary([]byte{0, 3, 1}))

	var leds hid.LEDState
	require.NoError(t, leds.UnmarshalBinary([]byte{hid.LEDCapsLock | hid.LEDNumLock}))
	assert.True(t, leds.CapsLock)
	assert.True(t, leds.NumLock)
	assert.False(t, leds.ScrollLock)
}
