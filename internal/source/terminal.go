package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode"

	"golang.org/x/term"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/engine"
)

// DefaultSimulatorKeys maps typed characters to positions 0, 1, 2, ...
const DefaultSimulatorKeys = "1234567890qwertyuiopasdfghjklzxcvbnm"

// KeyMap turns a character string into a rune to position map. The
// character at index i presses position i; a space skips a position.
func KeyMap(keys string) (map[rune]uint32, error) {
	m := make(map[rune]uint32)
	pos := uint32(0)
	for _, r := range keys {
		if unicode.IsSpace(r) {
			pos++
			continue
		}
		if prev, dup := m[r]; dup {
			return nil, fmt.Errorf("character %q maps to positions %d and %d", r, prev, pos)
		}
		m[r] = pos
		pos++
	}
	return m, nil
}

// Terminal reads characters from a terminal and taps the mapped positions.
// Ctrl-C or Ctrl-D ends the session.
type Terminal struct {
	In     *os.File
	Keys   map[rune]uint32
	Clock  deadline.Clock
	Logger *slog.Logger
	// HoldMs is how long each simulated tap stays pressed.
	HoldMs int64
}

func (t *Terminal) Run(ctx context.Context, out chan<- engine.Input) error {
	fd := int(t.In.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw terminal: %w", err)
		}
		defer func() { _ = term.Restore(fd, state) }()
	}
	return t.read(ctx, bufio.NewReader(t.In), out)
}

func (t *Terminal) read(ctx context.Context, r io.RuneReader, out chan<- engine.Input) error {
	runes := make(chan rune)
	errCh := make(chan error, 1)
	go func() {
		for {
			c, _, err := r.ReadRune()
			if err != nil {
				errCh <- err
				return
			}
			select {
			case runes <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case c := <-runes:
			if c == 0x03 || c == 0x04 {
				return nil
			}
			pos, ok := t.Keys[c]
			if !ok {
				t.Logger.Debug("unmapped key", "char", string(c))
				continue
			}
			if err := t.tap(ctx, pos, out); err != nil {
				return err
			}
		}
	}
}

func (t *Terminal) tap(ctx context.Context, pos uint32, out chan<- engine.Input) error {
	now := t.Clock.Now()
	if err := send(ctx, out, behavior.PositionEvent{Position: pos, Pressed: true, Timestamp: now}); err != nil {
		return err
	}
	return send(ctx, out, behavior.PositionEvent{Position: pos, Pressed: false, Timestamp: now + t.HoldMs})
}
