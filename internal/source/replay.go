package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/keyflow/behavior"
	"github.com/Alia5/keyflow/deadline"
	"github.com/Alia5/keyflow/engine"
)

// Action is what a replay step does.
type Action string

const (
	ActionPress   Action = "press"
	ActionRelease Action = "release"
	ActionTap     Action = "tap"
	ActionWait    Action = "wait"
)

// Step is one line of a replay script. At is absolute; -1 means "now".
type Step struct {
	At       int64  `yaml:"t"`
	Action   Action `yaml:"action"`
	Position uint32 `yaml:"position"`
	Source   uint8  `yaml:"source"`
	Wait     int64  `yaml:"wait"`
}

// UnmarshalYAML accepts a step in line form ("t=0 press 3") or as a mapping.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		step, err := ParseStep(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*s = step
		return nil
	}
	type plain Step
	p := plain{At: -1}
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Action == "" && p.Wait > 0 {
		p.Action = ActionWait
	}
	if err := Step(p).validate(); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = Step(p)
	return nil
}

func (s Step) validate() error {
	switch s.Action {
	case ActionPress, ActionRelease, ActionTap:
		return nil
	case ActionWait:
		if s.Wait < 0 {
			return fmt.Errorf("negative wait %d", s.Wait)
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
}

// ParseStep parses "t=<ms> press|release|tap <position> [source]" or
// "wait <ms>". The t= prefix is optional.
func ParseStep(line string) (Step, error) {
	fields := strings.Fields(line)
	step := Step{At: -1}
	if len(fields) > 0 && strings.HasPrefix(fields[0], "t=") {
		at, err := strconv.ParseInt(strings.TrimPrefix(fields[0], "t="), 10, 64)
		if err != nil || at < 0 {
			return Step{}, fmt.Errorf("bad timestamp %q", fields[0])
		}
		step.At = at
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return Step{}, fmt.Errorf("missing action in %q", line)
	}
	step.Action = Action(strings.ToLower(fields[0]))
	args := fields[1:]
	switch step.Action {
	case ActionWait:
		if len(args) != 1 {
			return Step{}, fmt.Errorf("wait takes one duration: %q", line)
		}
		ms, err := strconv.ParseInt(strings.TrimSuffix(args[0], "ms"), 10, 64)
		if err != nil {
			return Step{}, fmt.Errorf("bad wait %q", args[0])
		}
		step.Wait = ms
	case ActionPress, ActionRelease, ActionTap:
		if len(args) < 1 || len(args) > 2 {
			return Step{}, fmt.Errorf("%s takes a position and an optional source: %q", step.Action, line)
		}
		pos, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return Step{}, fmt.Errorf("bad position %q", args[0])
		}
		step.Position = uint32(pos)
		if len(args) == 2 {
			src, err := strconv.ParseUint(args[1], 10, 8)
			if err != nil {
				return Step{}, fmt.Errorf("bad source %q", args[1])
			}
			step.Source = uint8(src)
		}
	}
	return step, step.validate()
}

// ParseLines reads a line script. Blank lines and lines starting with # are
// skipped.
func ParseLines(r io.Reader) ([]Step, error) {
	var steps []Step
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		step, err := ParseStep(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		steps = append(steps, step)
	}
	return steps, sc.Err()
}

// ParseYAML reads a YAML script: a document with a steps list.
func ParseYAML(data []byte) ([]Step, error) {
	var doc struct {
		Steps []Step `yaml:"steps"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Steps, nil
}

// LoadScript reads a script file, choosing the format by extension.
func LoadScript(path string) ([]Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseLines(bytes.NewReader(data))
	}
}

// Replayer drives an engine through a script on a mock clock.
type Replayer struct {
	Engine *engine.Engine
	Clock  *deadline.MockClock
	// Settle is how long past the last step pending deadlines keep firing.
	Settle int64
}

// Run plays steps in order and returns the final timestamp. Steps may not
// go back in time.
func (r *Replayer) Run(steps []Step) (int64, error) {
	now := r.Clock.Now()
	for i, s := range steps {
		at := now
		if s.At >= 0 {
			if s.At < now {
				return now, fmt.Errorf("step %d: t=%d is before t=%d", i+1, s.At, now)
			}
			at = s.At
		}
		switch s.Action {
		case ActionWait:
			now = at + s.Wait
			r.tick(now)
		case ActionPress, ActionRelease:
			r.position(s, s.Action == ActionPress, at)
			now = at
		case ActionTap:
			r.position(s, true, at)
			r.position(s, false, at+1)
			now = at + 1
		}
	}
	if r.Settle > 0 {
		now += r.Settle
		r.tick(now)
	}
	return now, nil
}

func (r *Replayer) tick(at int64) {
	r.Clock.Set(at)
	r.Engine.Tick(at)
}

func (r *Replayer) position(s Step, pressed bool, at int64) {
	r.Clock.Set(at)
	r.Engine.HandlePosition(behavior.PositionEvent{
		Position:  s.Position,
		Pressed:   pressed,
		Timestamp: at,
		Source:    s.Source,
	})
}
