package viiper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/internal/log"
)

// Keyboard is a virtual keyboard device on a VIIPER bus.
type Keyboard struct {
	client *Client
	stream net.Conn
	dev    Device
	logger *slog.Logger
	raw    log.RawLogger

	closeOnce sync.Once
}

// Connect creates a keyboard device on bus and opens its stream.
func Connect(ctx context.Context, cfg Config, bus uint32, logger *slog.Logger, raw log.RawLogger) (*Keyboard, error) {
	client := NewClient(cfg)
	dev, err := client.DeviceAdd(ctx, bus)
	if err != nil {
		return nil, err
	}
	stream, err := client.OpenStream(ctx, dev.BusID, dev.DevID)
	if err != nil {
		_ = client.DeviceRemove(context.Background(), dev.BusID, dev.DevID)
		return nil, err
	}
	logger.Info("VIIPER keyboard attached", "addr", cfg.Addr, "bus", dev.BusID, "dev", dev.DevID)
	return &Keyboard{client: client, stream: stream, dev: *dev, logger: logger, raw: raw}, nil
}

// Device returns the server's device entry.
func (k *Keyboard) Device() Device { return k.dev }

// Send streams the keyboard part of the snapshot. Consumer usages have no
// representation on a VIIPER keyboard and are dropped.
func (k *Keyboard) Send(s hid.Snapshot) error {
	data, err := s.Keyboard.MarshalBinary()
	if err != nil {
		return err
	}
	if k.client.cfg.WriteTimeout > 0 {
		_ = k.stream.SetWriteDeadline(time.Now().Add(k.client.cfg.WriteTimeout))
	}
	if _, err := k.stream.Write(data); err != nil {
		return fmt.Errorf("viiper stream write: %w", err)
	}
	if k.raw != nil {
		k.raw.Log("viiper", data)
	}
	return nil
}

// ReadLEDs reads one LED byte per host update and hands it to fn until the
// stream closes.
func (k *Keyboard) ReadLEDs(fn func(leds uint8)) error {
	var b [1]byte
	for {
		if _, err := io.ReadFull(k.stream, b[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("viiper stream read: %w", err)
		}
		k.logger.Debug("host LEDs", "leds", fmt.Sprintf("0x%02x", b[0]))
		fn(b[0])
	}
}

// Close closes the stream and removes the device from its bus.
func (k *Keyboard) Close() error {
	var err error
	k.closeOnce.Do(func() {
		err = k.stream.Close()
		ctx, cancel := context.WithTimeout(context.Background(), k.client.cfg.ReadTimeout)
		defer cancel()
		if rmErr := k.client.DeviceRemove(ctx, k.dev.BusID, k.dev.DevID); rmErr != nil {
			k.logger.Warn("failed to remove VIIPER device", "error", rmErr)
		}
	})
	return err
}
