package source

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/engine"
	"github.com/Alia5/keyflow/internal/log"
)

func TestKeyMap(t *testing.T) {
	m, err := KeyMap("ab c")
	require.NoError(t, err)
	assert.Equal(t, map[rune]uint32{'a': 0, 'b': 1, 'c': 3}, m)

	_, err = KeyMap("aba")
	assert.ErrorContains(t, err, "positions 0 and 2")

	def, err := KeyMap(DefaultSimulatorKeys)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), def['q'])
}

func TestTerminalTapsMappedKeys(t *testing.T) {
	keys, err := KeyMap("qw")
	require.NoError(t, err)
	term := &Terminal{Keys: keys, Clock: deadline.NewMockClock(100), Logger: log.Discard(), HoldMs: 5}

	out := make(chan engine.Input, 16)
	require.NoError(t, term.read(context.Background(), strings.NewReader("wxq\x03q"), out))
	close(out)

	var got []string
	for in := range out {
		ev := in.Position
		state := "up"
		if ev.Pressed {
			state = "down"
		}
		got = append(got, strings.Join([]string{string(rune('0' + ev.Position)), state}, " "))
		if ev.Pressed {
			assert.Equal(t, int64(100), ev.Timestamp)
		} else {
			assert.Equal(t, int64(105), ev.Timestamp)
		}
	}
	assert.Equal(t, []string{"1 down", "1 up", "0 down", "0 up"}, got)
}

func TestTerminalStopsOnEOF(t *testing.T) {
	term := &Terminal{Keys: map[rune]uint32{}, Clock: deadline.NewMockClock(0), Logger: log.Discard()}
	out := make(chan engine.Input, 1)
	assert.NoError(t, term.read(context.Background(), strings.NewReader(""), out))
}
