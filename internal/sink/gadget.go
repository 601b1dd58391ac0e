package sink

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/internal/log"
)

// DefaultGadgetPath is the first HID function of a Linux USB gadget.
const DefaultGadgetPath = "/dev/hidg0"

type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

// Gadget writes 34-byte NKRO keyboard reports to a HID gadget device and
// reads the host's one-byte LED output reports back.
type Gadget struct {
	dev     io.ReadWriteCloser
	timeout time.Duration
	logger  *slog.Logger
	raw     log.RawLogger
}

// OpenGadget opens the gadget character device at path.
func OpenGadget(path string, timeout time.Duration, logger *slog.Logger, raw log.RawLogger) (*Gadget, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open gadget: %w", err)
	}
	return NewGadget(f, timeout, logger, raw), nil
}

// NewGadget wraps an already open device.
func NewGadget(dev io.ReadWriteCloser, timeout time.Duration, logger *slog.Logger, raw log.RawLogger) *Gadget {
	return &Gadget{dev: dev, timeout: timeout, logger: logger, raw: raw}
}

func (g *Gadget) Send(s hid.Snapshot) error {
	report := s.Keyboard.BuildReport()
	if dw, ok := g.dev.(deadlineWriter); ok && g.timeout > 0 {
		if err := dw.SetWriteDeadline(time.Now().Add(g.timeout)); err != nil && !errors.Is(err, os.ErrNoDeadline) {
			return fmt.Errorf("gadget deadline: %w", err)
		}
	}
	if _, err := g.dev.Write(report); err != nil {
		return fmt.Errorf("gadget write: %w", err)
	}
	if g.raw != nil {
		g.raw.Log("gadget", report)
	}
	return nil
}

// ReadLEDs blocks reading LED reports and hands each to fn until the device
// is closed or fails.
func (g *Gadget) ReadLEDs(fn func(leds uint8)) error {
	buf := make([]byte, 8)
	for {
		n, err := g.dev.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("gadget read: %w", err)
		}
		if n == 0 {
			continue
		}
		g.logger.Debug("host LEDs", "leds", fmt.Sprintf("0x%02x", buf[0]))
		fn(buf[0])
	}
}

func (g *Gadget) Close() error { return g.dev.Close() }
