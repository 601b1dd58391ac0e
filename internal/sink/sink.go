// Package sink delivers report snapshots produced by the engine to the
// places a keyboard report can go: the log, a HID gadget character device or
// a VIIPER virtual keyboard.
package sink

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Alia5/keyflow/hid"
	"github.com/Alia5/keyflow/internal/log"
)

// Multi sends each snapshot to every output and joins their errors.
type Multi []hid.Output

func (m Multi) Send(s hid.Snapshot) error {
	var errs []error
	for _, o := range m {
		if err := o.Send(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes every report to the logger at debug level and, when a raw
// logger is set, a hex dump of the 34-byte report.
type Log struct {
	logger *slog.Logger
	raw    log.RawLogger
}

// NewLog creates a log sink. raw may be nil.
func NewLog(logger *slog.Logger, raw log.RawLogger) *Log {
	return &Log{logger: logger, raw: raw}
}

func (l *Log) Send(s hid.Snapshot) error {
	l.logger.Debug("report",
		"mods", fmt.Sprintf("0x%02x", s.Keyboard.Modifiers),
		"keys", KeyList(s.Keyboard),
		"consumer", ConsumerList(s.Consumer),
	)
	if l.raw != nil {
		l.raw.Log("log", s.Keyboard.BuildReport())
	}
	return nil
}

// KeyList names the pressed keyboard usages, space separated.
func KeyList(st hid.InputState) string {
	keys := st.Keys()
	names := make([]string, len(keys))
	for i, id := range keys {
		names[i] = hid.Encode(hid.PageKeyboard, uint16(id), 0).String()
	}
	return strings.Join(names, " ")
}

// ConsumerList names the held consumer usages, space separated.
func ConsumerList(usages []uint16) string {
	names := make([]string, len(usages))
	for i, id := range usages {
		names[i] = hid.Encode(hid.PageConsumer, id, 0).String()
	}
	return strings.Join(names, " ")
}
