package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrRuleFailed marks a rule that evaluated to anything but true.
	ErrRuleFailed = errors.New("schema: rule not satisfied")
	// ErrMissingField marks a required field absent from (or null in) the
	// input object.
	ErrMissingField = errors.New("schema: required field missing")
)

// Violation describes one failed check. Validate joins every violation of a
// candidate with errors.Join.
type Violation struct {
	Schema string
	Rule   string
	Expr   string
	Path   string
	Err    error
}

func (v *Violation) Error() string {
	if v == nil {
		return "<nil>"
	}
	target := v.Schema
	if target == "" {
		target = "value"
	}
	switch {
	case v.Path != "":
		return fmt.Sprintf("schema: %s: %s: %v", target, v.Path, v.Err)
	case v.Expr != "":
		return fmt.Sprintf("schema: %s: rule %q (%s): %v", target, v.Rule, v.Expr, v.Err)
	default:
		return fmt.Sprintf("schema: %s: rule %q: %v", target, v.Rule, v.Err)
	}
}

func (v *Violation) Unwrap() error {
	if v == nil {
		return nil
	}
	return v.Err
}

// Violations extracts every Violation contained in err.
func Violations(err error) []*Violation {
	if err == nil {
		return nil
	}
	var out []*Violation
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if v, ok := e.(*Violation); ok {
			out = append(out, v)
			return
		}
		switch unwrapped := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range unwrapped.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(unwrapped.Unwrap())
		}
	}
	walk(err)
	return out
}
