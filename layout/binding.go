package layout

import (
	"fmt"
	"strings"
)

// Ref is a binding as written: a behavior label and raw parameters.
type Ref struct {
	Label  string
	Params []string
}

func (r Ref) String() string {
	if len(r.Params) == 0 {
		return "&" + r.Label
	}
	return "&" + r.Label + " " + strings.Join(r.Params, " ")
}

// ParseBinding parses one binding such as "&kp LS(A)" or "&mo nav".
func ParseBinding(s string) (Ref, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Ref{}, fmt.Errorf("empty binding")
	}
	if !strings.HasPrefix(fields[0], "&") || len(fields[0]) == 1 {
		return Ref{}, fmt.Errorf("binding %q must start with &label", s)
	}
	return Ref{Label: fields[0][1:], Params: fields[1:]}, nil
}

// SplitBindings splits "&kp A &kp B &trans" into single bindings.
// Parameters never contain '&', so every '&' starts a new binding.
func SplitBindings(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if s[0] != '&' {
		return nil, fmt.Errorf("bindings %q must start with &", s)
	}
	var out []string
	for _, part := range strings.Split(s[1:], "&") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty binding in %q", s)
		}
		out = append(out, "&"+part)
	}
	return out, nil
}
