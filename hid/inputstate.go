package hid

import (
	"io"
)

// InputState is the keyboard part of a report: the effective modifier byte
// and a 256-bit bitmap of pressed keyboard-page usages (N-key rollover).
type InputState struct {
	Modifiers uint8
	KeyBitmap [32]uint8
}

// Pressed reports whether usage id is set in the bitmap.
func (st *InputState) Pressed(id uint8) bool {
	return st.KeyBitmap[id/8]&(1<<(id%8)) != 0
}

// Keys returns the pressed usages in ascending order.
func (st *InputState) Keys() []uint8 {
	var keys []uint8
	for i := 0; i < 256; i++ {
		if st.Pressed(uint8(i)) {
			keys = append(keys, uint8(i))
		}
	}
	return keys
}

func (st *InputState) set(id uint8, on bool) {
	if on {
		st.KeyBitmap[id/8] |= 1 << (id % 8)
	} else {
		st.KeyBitmap[id/8] &^= 1 << (id % 8)
	}
}

// LEDState is the host-controlled indicator state.
type LEDState struct {
	NumLock    bool
	CapsLock   bool
	ScrollLock bool
	Compose    bool
	Kana       bool
}

// ParseLEDs decodes a 1-byte LED bitmask.
func ParseLEDs(b uint8) LEDState {
	return LEDState{
		NumLock:    b&LEDNumLock != 0,
		CapsLock:   b&LEDCapsLock != 0,
		ScrollLock: b&LEDScrollLock != 0,
		Compose:    b&LEDCompose != 0,
		Kana:       b&LEDKana != 0,
	}
}

// UnmarshalBinary decodes a 1-byte LED bitmask into LEDState.
func (st *LEDState) UnmarshalBinary(data []byte) error {
	if len(data) < 1 {
		return io.ErrUnexpectedEOF
	}
	*st = ParseLEDs(data[0])
	return nil
}

// BuildReport encodes the state into the 34-byte NKRO keyboard report.
//
//	Byte 0: Modifiers
//	Byte 1: Reserved (0x00)
//	Bytes 2-33: Key bitmap
func (st InputState) BuildReport() []byte {
	b := make([]byte, 34)
	b[0] = st.Modifiers
	copy(b[2:34], st.KeyBitmap[:])
	return b
}

// MarshalBinary encodes the state to the variable-length stream format
// accepted by a VIIPER keyboard device:
//
//	Byte 0: Modifiers
//	Byte 1: Key count
//	Bytes 2+: Key usages
func (st *InputState) MarshalBinary() ([]byte, error) {
	keys := st.Keys()
	b := make([]byte, 2+len(keys))
	b[0] = st.Modifiers
	b[1] = uint8(len(keys))
	copy(b[2:], keys)
	return b, nil
}

// UnmarshalBinary decodes the stream format produced by MarshalBinary.
func (st *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return io.ErrUnexpectedEOF
	}
	keyCount := int(data[1])
	if len(data) < 2+keyCount {
		return io.ErrUnexpectedEOF
	}
	st.Modifiers = data[0]
	st.KeyBitmap = [32]uint8{}
	for _, k := range data[2 : 2+keyCount] {
		st.set(k, true)
	}
	return nil
}
