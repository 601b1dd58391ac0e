package hid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Keycode is the packed form of a usage carried in binding parameters.
//
//	bits  0..15  usage id
//	bits 16..23  usage page (0 means the keyboard page)
//	bits 24..31  implicit modifiers applied while the usage is held
type Keycode uint32

// Encode packs a usage and its implicit modifiers.
func Encode(page uint8, id uint16, mods uint8) Keycode {
	return Keycode(uint32(mods)<<24 | uint32(page)<<16 | uint32(id))
}

// Page returns the usage page, defaulting to the keyboard page.
func (k Keycode) Page() uint8 {
	if p := uint8(k >> 16); p != 0 {
		return p
	}
	return PageKeyboard
}

// ID returns the usage id.
func (k Keycode) ID() uint16 { return uint16(k) }

// ImplicitMods returns the modifiers carried by the keycode.
func (k Keycode) ImplicitMods() uint8 { return uint8(k >> 24) }

// WithMods returns k with mods added to its implicit modifiers.
func (k Keycode) WithMods(mods uint8) Keycode {
	return k | Keycode(uint32(mods)<<24)
}

// StripMods returns k without implicit modifiers.
func (k Keycode) StripMods() Keycode { return k & 0x00FFFFFF }

// Usage returns the page and id pair with the page default applied.
func (k Keycode) Usage() (uint8, uint16) { return k.Page(), k.ID() }

func (k Keycode) String() string {
	base := k.StripMods()
	if base.Page() == PageKeyboard {
		base = Encode(0, base.ID(), 0)
	}
	name, ok := canonicalName[base]
	if !ok {
		name = fmt.Sprintf("0x%02X:0x%02X", k.Page(), k.ID())
	}
	mods := k.ImplicitMods()
	for i := len(modFuncs) - 1; i >= 0; i-- {
		if mods&modFuncs[i].mod != 0 {
			name = modFuncs[i].name + "(" + name + ")"
		}
	}
	return name
}

var modFuncs = []struct {
	name string
	mod  uint8
}{
	{"LC", ModLeftCtrl},
	{"LS", ModLeftShift},
	{"LA", ModLeftAlt},
	{"LG", ModLeftGUI},
	{"RC", ModRightCtrl},
	{"RS", ModRightShift},
	{"RA", ModRightAlt},
	{"RG", ModRightGUI},
}

type keyEntry struct {
	code  Keycode
	names []string
}

func kb(id uint16, names ...string) keyEntry {
	return keyEntry{code: Encode(0, id, 0), names: names}
}

func cons(id uint16, names ...string) keyEntry {
	return keyEntry{code: Encode(PageConsumer, id, 0), names: names}
}

func shifted(id uint16, names ...string) keyEntry {
	return keyEntry{code: Encode(0, id, ModLeftShift), names: names}
}

var keyTable = []keyEntry{
	kb(KeyEnter, "ENTER", "RET", "RETURN"),
	kb(KeyEscape, "ESCAPE", "ESC"),
	kb(KeyBackspace, "BACKSPACE", "BSPC"),
	kb(KeyTab, "TAB"),
	kb(KeySpace, "SPACE", "SPC"),
	kb(KeyMinus, "MINUS"),
	kb(KeyEqual, "EQUAL"),
	kb(KeyLeftBrace, "LEFTBRACE", "LBKT"),
	kb(KeyRightBrace, "RIGHTBRACE", "RBKT"),
	kb(KeyBackslash, "BACKSLASH", "BSLH"),
	kb(KeyNonUSHash, "NONUSHASH", "NUHS"),
	kb(KeySemicolon, "SEMICOLON", "SEMI"),
	kb(KeyApostrophe, "APOSTROPHE", "SQT"),
	kb(KeyGrave, "GRAVE"),
	kb(KeyComma, "COMMA"),
	kb(KeyPeriod, "PERIOD", "DOT"),
	kb(KeySlash, "SLASH", "FSLH"),
	kb(KeyCapsLock, "CAPSLOCK", "CAPS", "CLCK"),
	kb(KeyPrintScreen, "PRINTSCREEN", "PSCRN"),
	kb(KeyScrollLock, "SCROLLLOCK", "SLCK"),
	kb(KeyPause, "PAUSE"),
	kb(KeyInsert, "INSERT", "INS"),
	kb(KeyHome, "HOME"),
	kb(KeyPageUp, "PAGEUP", "PGUP"),
	kb(KeyDelete, "DELETE", "DEL"),
	kb(KeyEnd, "END"),
	kb(KeyPageDown, "PAGEDOWN", "PGDN"),
	kb(KeyRight, "RIGHT"),
	kb(KeyLeft, "LEFT"),
	kb(KeyDown, "DOWN"),
	kb(KeyUp, "UP"),
	kb(KeyNumLock, "NUMLOCK", "KP_NUM"),
	kb(KeyKpSlash, "KP_SLASH", "KP/"),
	kb(KeyKpAsterisk, "KP_MULTIPLY", "KP*"),
	kb(KeyKpMinus, "KP_MINUS", "KP-"),
	kb(KeyKpPlus, "KP_PLUS", "KP+"),
	kb(KeyKpEnter, "KP_ENTER", "KPENTER"),
	kb(KeyKpDot, "KP_DOT", "KP."),
	kb(KeyNonUSBslash, "NONUSBACKSLASH", "NUBS"),
	kb(KeyApplication, "APPLICATION", "K_APP"),
	kb(KeyLeftCtrl, "LCTRL", "LEFTCTRL"),
	kb(KeyLeftShift, "LSHIFT", "LSHFT", "LEFTSHIFT"),
	kb(KeyLeftAlt, "LALT", "LEFTALT"),
	kb(KeyLeftGUI, "LGUI", "LEFTGUI", "LCMD", "LWIN"),
	kb(KeyRightCtrl, "RCTRL", "RIGHTCTRL"),
	kb(KeyRightShift, "RSHIFT", "RSHFT", "RIGHTSHIFT"),
	kb(KeyRightAlt, "RALT", "RIGHTALT"),
	kb(KeyRightGUI, "RGUI", "RIGHTGUI", "RCMD", "RWIN"),

	shifted(Key1, "EXCLAMATION", "EXCL"),
	shifted(Key2, "AT_SIGN", "AT"),
	shifted(Key3, "HASH", "POUND"),
	shifted(Key4, "DOLLAR", "DLLR"),
	shifted(Key5, "PERCENT", "PRCNT"),
	shifted(Key6, "CARET"),
	shifted(Key7, "AMPERSAND", "AMPS"),
	shifted(Key8, "ASTERISK", "STAR"),
	shifted(Key9, "LEFT_PARENTHESIS", "LPAR"),
	shifted(Key0, "RIGHT_PARENTHESIS", "RPAR"),
	shifted(KeyMinus, "UNDERSCORE", "UNDER"),
	shifted(KeyEqual, "PLUS"),
	shifted(KeyLeftBrace, "LEFT_BRACE", "LBRC"),
	shifted(KeyRightBrace, "RIGHT_BRACE", "RBRC"),
	shifted(KeyBackslash, "PIPE"),
	shifted(KeySemicolon, "COLON"),
	shifted(KeyApostrophe, "DOUBLE_QUOTES", "DQT"),
	shifted(KeyGrave, "TILDE"),
	shifted(KeyComma, "LESS_THAN", "LT"),
	shifted(KeyPeriod, "GREATER_THAN", "GT"),
	shifted(KeySlash, "QUESTION", "QMARK"),

	cons(ConsumerPlayPause, "C_PLAY_PAUSE", "C_PP", "MEDIAPLAYPAUSE"),
	cons(ConsumerStop, "C_STOP", "MEDIASTOP"),
	cons(ConsumerNext, "C_NEXT", "MEDIANEXT"),
	cons(ConsumerPrevious, "C_PREVIOUS", "C_PREV", "MEDIAPREVIOUS"),
	cons(ConsumerMute, "C_MUTE", "MUTE"),
	cons(ConsumerVolumeUp, "C_VOLUME_UP", "C_VOL_UP", "VOLUMEUP"),
	cons(ConsumerVolumeDown, "C_VOLUME_DOWN", "C_VOL_DN", "VOLUMEDOWN"),
}

var (
	nameToCode    map[string]Keycode
	canonicalName map[Keycode]string
)

func init() {
	nameToCode = make(map[string]Keycode)
	canonicalName = make(map[Keycode]string)
	add := func(code Keycode, names ...string) {
		for i, n := range names {
			nameToCode[strings.ToUpper(n)] = code
			if _, ok := canonicalName[code]; !ok && i == 0 {
				canonicalName[code] = n
			}
		}
	}
	for i := uint16(0); i < 26; i++ {
		letter := string(rune('A' + i))
		add(Encode(0, KeyA+i, 0), letter)
	}
	digits := []uint16{Key0, Key1, Key2, Key3, Key4, Key5, Key6, Key7, Key8, Key9}
	for d, id := range digits {
		s := strconv.Itoa(d)
		add(Encode(0, id, 0), "N"+s, "NUMBER_"+s)
	}
	for f := uint16(1); f <= 24; f++ {
		id := KeyF1 + f - 1
		if f >= 13 {
			id = KeyF13 + f - 13
		}
		add(Encode(0, id, 0), "F"+strconv.Itoa(int(f)))
	}
	for d := uint16(1); d <= 9; d++ {
		add(Encode(0, KeyKp1+d-1, 0), "KP_N"+strconv.Itoa(int(d)), "KP"+strconv.Itoa(int(d)))
	}
	add(Encode(0, KeyKp0, 0), "KP_N0", "KP0")
	for _, e := range keyTable {
		add(e.code, e.names...)
	}
}

// ParseKeycode parses a binding parameter naming a usage. Accepted forms:
// key names (case-insensitive, e.g. "A", "LSHIFT", "C_VOL_UP"), modifier
// functions ("LS(A)", "LC(LA(DEL))"), quoted characters ("'!'"), and plain
// numbers ("0x04", "4", "0x0C00E9").
func ParseKeycode(s string) (Keycode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty keycode")
	}
	if open := strings.IndexByte(s, '('); open > 0 && strings.HasSuffix(s, ")") {
		fn := strings.ToUpper(s[:open])
		for _, m := range modFuncs {
			if m.name == fn {
				inner, err := ParseKeycode(s[open+1 : len(s)-1])
				if err != nil {
					return 0, err
				}
				return inner.WithMods(m.mod), nil
			}
		}
		return 0, fmt.Errorf("unknown modifier function %q", s[:open])
	}
	if len(s) == 3 && s[0] == '\'' && s[2] == '\'' {
		return charKeycode(s[1])
	}
	if code, ok := nameToCode[strings.ToUpper(s)]; ok {
		return code, nil
	}
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return Keycode(n), nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

// KeyNames returns every accepted key name, sorted.
func KeyNames() []string {
	out := make([]string, 0, len(nameToCode))
	for n := range nameToCode {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
