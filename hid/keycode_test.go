package hid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/hid"
)

func TestParseKeycode(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		page   uint8
		id     uint16
		mods   uint8
		hasErr bool
	}{
		{name: "letter", input: "A", page: hid.PageKeyboard, id: hid.KeyA},
		{name: "lowercase name", input: "bspc", page: hid.PageKeyboard, id: hid.KeyBackspace},
		{name: "digit alias", input: "N1", page: hid.PageKeyboard, id: hid.Key1},
		{name: "function key", input: "F13", page: hid.PageKeyboard, id: hid.KeyF13},
		{name: "modifier usage", input: "LSHIFT", page: hid.PageKeyboard, id: hid.KeyLeftShift},
		{name: "shifted symbol", input: "EXCL", page: hid.PageKeyboard, id: hid.Key1, mods: hid.ModLeftShift},
		{name: "modifier function", input: "LS(A)", page: hid.PageKeyboard, id: hid.KeyA, mods: hid.ModLeftShift},
		{name: "nested modifier functions", input: "LC(LA(DEL))", page: hid.PageKeyboard, id: hid.KeyDelete, mods: hid.ModLeftCtrl | hid.ModLeftAlt},
		{name: "character literal", input: "'?'", page: hid.PageKeyboard, id: hid.KeySlash, mods: hid.ModLeftShift},
		{name: "consumer", input: "C_VOL_UP", page: hid.PageConsumer, id: hid.ConsumerVolumeUp},
		{name: "hex number", input: "0x0C00E9", page: hid.PageConsumer, id: hid.ConsumerVolumeUp},
		{name: "plain number defaults to keyboard page", input: "4", page: hid.PageKeyboard, id: hid.KeyA},
		{name: "unknown name", input: "NOPE", hasErr: true},
		{name: "unknown function", input: "XX(A)", hasErr: true},
		{name: "empty", input: " ", hasErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := hid.ParseKeycode(tt.input)
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.page, k.Page())
			assert.Equal(t, tt.id, k.ID())
			assert.Equal(t, tt.mods, k.ImplicitMods())
		})
	}
}

func TestKeycodeString(t *testing.T) {
	k, err := hid.ParseKeycode("LS(LC(a))")
	require.NoError(t, err)
	assert.Equal(t, "LC(LS(A))", k.String())

	assert.Equal(t, "C_PLAY_PAUSE", hid.Encode(hid.PageConsumer, hid.ConsumerPlayPause, 0).String())
	assert.Equal(t, "A", hid.Encode(hid.PageKeyboard, hid.KeyA, 0).String())
	assert.Equal(t, "0x09:0x01", hid.Encode(0x09, 0x01, 0).String())
}

func TestKeyNamesSorted(t *testing.T) {
	names := hid.KeyNames()
	require.NotEmpty(t, names)
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "C_VOL_UP")
}

func TestParseMods(t *testing.T) {
	tests := []struct {
		input  string
		want   uint8
		hasErr bool
	}{
		{input: "", want: 0},
		{input: "LSHIFT", want: hid.ModLeftShift},
		{input: "lshift | rshift", want: hid.ModLeftShift | hid.ModRightShift},
		{input: "MOD_LCTL|MOD_RGUI", want: hid.ModLeftCtrl | hid.ModRightGUI},
		{input: "0x05", want: 0x05},
		{input: "A", hasErr: true},
		{input: "LSHIFT|", hasErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := hid.ParseMods(tt.input)
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
