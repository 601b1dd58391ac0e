package sink_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/internal/log"
	"github.com/Alia5/keyflow/internal/sink"
)

type fakeDevice struct {
	in       *bytes.Reader
	out      bytes.Buffer
	deadline time.Time
	closed   bool
}

func (d *fakeDevice) Read(p []byte) (int, error)  { return d.in.Read(p) }
func (d *fakeDevice) Write(p []byte) (int, error) { return d.out.Write(p) }
func (d *fakeDevice) Close() error                { d.closed = true; return nil }
func (d *fakeDevice) SetWriteDeadline(t time.Time) error {
	d.deadline = t
	return nil
}

func snapshot(mods uint8, keys ...uint8) hid.Snapshot {
	var st hid.InputState
	data := append([]byte{mods, uint8(len(keys))}, keys...)
	_ = st.UnmarshalBinary(data)
	return hid.Snapshot{Keyboard: st}
}

func TestGadgetWritesNKROReport(t *testing.T) {
	dev := &fakeDevice{in: bytes.NewReader(nil)}
	var raw bytes.Buffer
	g := sink.NewGadget(dev, 10*time.Millisecond, log.Discard(), log.NewRaw(&raw))

	require.NoError(t, g.Send(snapshot(hid.ModLeftCtrl, 0x04, 0x29)))

	report := dev.out.Bytes()
	require.Len(t, report, 34)
	assert.Equal(t, byte(hid.ModLeftCtrl), report[0])
	assert.Equal(t, byte(0), report[1])
	assert.Equal(t, byte(1<<4), report[2+0x04/8])
	assert.Equal(t, byte(1<<1), report[2+0x29/8])
	assert.False(t, dev.deadline.IsZero())
	assert.Contains(t, raw.String(), "gadget report: 34 bytes")

	require.NoError(t, g.Close())
	assert.True(t, dev.closed)
}

func TestGadgetReadLEDs(t *testing.T) {
	dev := &fakeDevice{in: bytes.NewReader([]byte{hid.LEDCapsLock})}
	g := sink.NewGadget(dev, 0, log.Discard(), nil)

	var got []uint8
	require.NoError(t, g.ReadLEDs(func(l uint8) { got = append(got, l) }))
	assert.Equal(t, []uint8{hid.LEDCapsLock}, got)
}

type failingOutput struct{ err error }

func (f failingOutput) Send(hid.Snapshot) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	var sent []hid.Snapshot
	m := sink.Multi{
		failingOutput{err: boom},
		hid.OutputFunc(func(s hid.Snapshot) error { sent = append(sent, s); return nil }),
	}
	err := m.Send(snapshot(0, 0x04))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, sent, 1)
}

func TestLogSink(t *testing.T) {
	var buf, raw bytes.Buffer
	l := sink.NewLog(log.NewWriterLogger(&buf, log.LevelTrace), log.NewRaw(&raw))

	s := snapshot(hid.ModLeftShift, 0x04)
	s.Consumer = []uint16{0xE9}
	require.NoError(t, l.Send(s))

	out := buf.String()
	assert.Contains(t, out, "mods=0x02")
	assert.Contains(t, out, "keys=A")
	assert.Contains(t, out, "C_VOLUME_UP")
	assert.Equal(t, 1, strings.Count(raw.String(), "\n"))
}

var _ io.ReadWriteCloser = (*fakeDevice)(nil)
