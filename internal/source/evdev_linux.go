//go:build linux

package source

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/engine"
)

const (
	evKey = 0x01
	// EVIOCGRAB, _IOW('E', 0x90, int).
	evioCGrab = 0x40044590
)

// inputEventSize is sizeof(struct input_event): a timeval followed by
// type, code and value.
var inputEventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// Evdev reads key events from a Linux input device.
type Evdev struct {
	Path   string
	Grab   bool
	Codes  map[uint16]uint32
	Clock  deadline.Clock
	Logger *slog.Logger
}

func (d *Evdev) Run(ctx context.Context, out chan<- engine.Input) error {
	fd, err := unix.Open(d.Path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", d.Path, err)
	}
	if d.Grab {
		if err := unix.IoctlSetInt(fd, evioCGrab, 1); err != nil {
			_ = unix.Close(fd)
			return fmt.Errorf("grab %s: %w", d.Path, err)
		}
	}
	f := os.NewFile(uintptr(fd), d.Path)
	defer f.Close()
	d.Logger.Info("reading input device", "path", d.Path, "grab", d.Grab, "mapped", len(d.Codes))

	go func() {
		<-ctx.Done()
		_ = f.Close()
	}()
	err = d.read(ctx, f, out)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *Evdev) read(ctx context.Context, r io.Reader, out chan<- engine.Input) error {
	buf := make([]byte, inputEventSize*64)
	tv := inputEventSize - 8
	for {
		n, err := r.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read %s: %w", d.Path, err)
		}
		for off := 0; off+inputEventSize <= n; off += inputEventSize {
			ev := buf[off : off+inputEventSize]
			typ := binary.NativeEndian.Uint16(ev[tv:])
			code := binary.NativeEndian.Uint16(ev[tv+2:])
			value := int32(binary.NativeEndian.Uint32(ev[tv+4:]))
			if typ != evKey || value == 2 {
				continue
			}
			pos, ok := d.Codes[code]
			if !ok {
				d.Logger.Debug("unmapped evdev key", "code", code)
				continue
			}
			pe := behavior.PositionEvent{Position: pos, Pressed: value == 1, Timestamp: d.Clock.Now()}
			if err := send(ctx, out, pe); err != nil {
				return err
			}
		}
	}
}
