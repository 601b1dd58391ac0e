// Package hid models the HID side of the engine: usage constants, the
// packed keycode format used in binding parameters, the effect sink, and the
// report state that turns effects into keyboard and consumer reports.
package hid

import (
	"fmt"
	"strconv"
	"strings"
)

// Usage pages.
const (
	PageGenericDesktop = 0x01
	PageKeyboard       = 0x07
	PageLED            = 0x08
	PageConsumer       = 0x0C
)

// Modifier bitmasks as they appear in byte 0 of a keyboard report.
const (
	ModLeftCtrl   = 0x01
	ModLeftShift  = 0x02
	ModLeftAlt    = 0x04
	ModLeftGUI    = 0x08
	ModRightCtrl  = 0x10
	ModRightShift = 0x20
	ModRightAlt   = 0x40
	ModRightGUI   = 0x80
)

// LED bitmasks of the host output report.
const (
	LEDNumLock    = 0x01
	LEDCapsLock   = 0x02
	LEDScrollLock = 0x04
	LEDCompose    = 0x08
	LEDKana       = 0x10
)

// Keyboard page usages.
const (
	KeyA = 0x04
	KeyB = 0x05
	KeyC = 0x06
	KeyD = 0x07
	KeyE = 0x08
	KeyF = 0x09
	KeyG = 0x0A
	KeyH = 0x0B
	KeyI = 0x0C
	KeyJ = 0x0D
	KeyK = 0x0E
	KeyL = 0x0F
	KeyM = 0x10
	KeyN = 0x11
	KeyO = 0x12
	KeyP = 0x13
	KeyQ = 0x14
	KeyR = 0x15
	KeyS = 0x16
	KeyT = 0x17
	KeyU = 0x18
	KeyV = 0x19
	KeyW = 0x1A
	KeyX = 0x1B
	KeyY = 0x1C
	KeyZ = 0x1D

	Key1 = 0x1E
	Key2 = 0x1F
	Key3 = 0x20
	Key4 = 0x21
	Key5 = 0x22
	Key6 = 0x23
	Key7 = 0x24
	Key8 = 0x25
	Key9 = 0x26
	Key0 = 0x27

	KeyEnter      = 0x28
	KeyEscape     = 0x29
	KeyBackspace  = 0x2A
	KeyTab        = 0x2B
	KeySpace      = 0x2C
	KeyMinus      = 0x2D
	KeyEqual      = 0x2E
	KeyLeftBrace  = 0x2F
	KeyRightBrace = 0x30
	KeyBackslash  = 0x31
	KeyNonUSHash  = 0x32
	KeySemicolon  = 0x33
	KeyApostrophe = 0x34
	KeyGrave      = 0x35
	KeyComma      = 0x36
	KeyPeriod     = 0x37
	KeySlash      = 0x38
	KeyCapsLock   = 0x39

	KeyF1  = 0x3A
	KeyF12 = 0x45
	KeyF13 = 0x68
	KeyF24 = 0x73

	KeyPrintScreen = 0x46
	KeyScrollLock  = 0x47
	KeyPause       = 0x48
	KeyInsert      = 0x49
	KeyHome        = 0x4A
	KeyPageUp      = 0x4B
	KeyDelete      = 0x4C
	KeyEnd         = 0x4D
	KeyPageDown    = 0x4E

	KeyRight = 0x4F
	KeyLeft  = 0x50
	KeyDown  = 0x51
	KeyUp    = 0x52

	KeyNumLock     = 0x53
	KeyKpSlash     = 0x54
	KeyKpAsterisk  = 0x55
	KeyKpMinus     = 0x56
	KeyKpPlus      = 0x57
	KeyKpEnter     = 0x58
	KeyKp1         = 0x59
	KeyKp0         = 0x62
	KeyKpDot       = 0x63
	KeyNonUSBslash = 0x64
	KeyApplication = 0x65

	KeyLeftCtrl   = 0xE0
	KeyLeftShift  = 0xE1
	KeyLeftAlt    = 0xE2
	KeyLeftGUI    = 0xE3
	KeyRightCtrl  = 0xE4
	KeyRightShift = 0xE5
	KeyRightAlt   = 0xE6
	KeyRightGUI   = 0xE7
)

// Consumer page usages.
const (
	ConsumerPlayPause  = 0xCD
	ConsumerStop       = 0xB7
	ConsumerNext       = 0xB5
	ConsumerPrevious   = 0xB6
	ConsumerMute       = 0xE2
	ConsumerVolumeUp   = 0xE9
	ConsumerVolumeDown = 0xEA
)

// IsModifierUsage reports whether id on the keyboard page is one of the eight
// modifier keys.
func IsModifierUsage(page uint8, id uint16) bool {
	return page == PageKeyboard && id >= KeyLeftCtrl && id <= KeyRightGUI
}

// ModifierBit returns the report bitmask for a modifier usage.
func ModifierBit(id uint16) uint8 {
	return 1 << (id - KeyLeftCtrl)
}

var modAliases = map[string]uint8{
	"MOD_LCTL": ModLeftCtrl,
	"MOD_LSFT": ModLeftShift,
	"MOD_LALT": ModLeftAlt,
	"MOD_LGUI": ModLeftGUI,
	"MOD_RCTL": ModRightCtrl,
	"MOD_RSFT": ModRightShift,
	"MOD_RALT": ModRightAlt,
	"MOD_RGUI": ModRightGUI,
}

// ParseMods parses a modifier mask written as modifier key names or MOD_
// flags joined by '|' ("LSHIFT|RSHIFT", "MOD_LCTL"), or as a number.
func ParseMods(s string) (uint8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseUint(s, 0, 8); err == nil {
		return uint8(n), nil
	}
	var mask uint8
	for _, part := range strings.Split(s, "|") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if m, ok := modAliases[part]; ok {
			mask |= m
			continue
		}
		kc, err := ParseKeycode(part)
		if err != nil || !IsModifierUsage(kc.Page(), kc.ID()) {
			return 0, fmt.Errorf("%q is not a modifier", part)
		}
		mask |= ModifierBit(kc.ID())
	}
	return mask, nil
}
