package compiler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/reactors/internal/library"
	"github.com/roach88/reactors/internal/timing"
)

// CompileError is a network description error with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

var (
	networkFields    = []string{"name", "options", "reactors", "connections"}
	optionFields     = []string{"workers", "timeout", "keepalive", "fast_forward"}
	reactorFields    = []string{"kind", "params", "bank"}
	connectionFields = []string{"from", "to"}
)

// checkFields rejects regular fields of v not listed in allowed.
func checkFields(v cue.Value, field string, allowed []string) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if !slices.Contains(allowed, iter.Label()) {
			return &CompileError{
				Field:   field,
				Message: fmt.Sprintf("unknown field %q (allowed: %s)", iter.Label(), strings.Join(allowed, ", ")),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

// CompileNetwork parses a CUE value into a Network.
//
// The value must be concrete. reactors is required and must declare at
// least one reactor; options and connections are optional.
func CompileNetwork(v cue.Value) (*Network, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	if err := checkFields(v, "network", networkFields); err != nil {
		return nil, err
	}

	n := &Network{}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		n.Name = name
	}

	if optVal := v.LookupPath(cue.ParsePath("options")); optVal.Exists() {
		opts, err := parseOptions(optVal)
		if err != nil {
			return nil, err
		}
		n.Options = opts
	}

	reactors, err := parseReactors(v)
	if err != nil {
		return nil, err
	}
	n.Reactors = reactors

	if connVal := v.LookupPath(cue.ParsePath("connections")); connVal.Exists() {
		conns, err := parseConnections(connVal, reactors)
		if err != nil {
			return nil, err
		}
		n.Connections = conns
	}

	return n, nil
}

func parseOptions(v cue.Value) (Options, error) {
	var o Options
	if err := checkFields(v, "options", optionFields); err != nil {
		return o, err
	}

	if w := v.LookupPath(cue.ParsePath("workers")); w.Exists() {
		n, err := w.Int64()
		if err != nil {
			return o, formatCUEError(err)
		}
		if n < 0 {
			return o, &CompileError{Field: "options", Message: fmt.Sprintf("workers must not be negative, got %d", n), Pos: w.Pos()}
		}
		o.Workers = int(n)
	}

	if t := v.LookupPath(cue.ParsePath("timeout")); t.Exists() {
		s, err := t.String()
		if err != nil {
			return o, formatCUEError(err)
		}
		d, err := timing.ParseDuration(s)
		if err != nil {
			return o, &CompileError{Field: "options", Message: err.Error(), Pos: t.Pos()}
		}
		o.Timeout = d
	}

	for _, f := range []struct {
		name string
		dst  *bool
	}{
		{"keepalive", &o.KeepAlive},
		{"fast_forward", &o.FastForward},
	} {
		b := v.LookupPath(cue.ParsePath(f.name))
		if !b.Exists() {
			continue
		}
		val, err := b.Bool()
		if err != nil {
			return o, formatCUEError(err)
		}
		*f.dst = val
	}
	return o, nil
}

func parseReactors(v cue.Value) ([]ReactorDecl, error) {
	reactorsVal := v.LookupPath(cue.ParsePath("reactors"))
	if !reactorsVal.Exists() {
		return nil, &CompileError{Field: "reactors", Message: "reactors is required", Pos: v.Pos()}
	}

	iter, err := reactorsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var decls []ReactorDecl
	for iter.Next() {
		decl, err := parseReactor(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}

	if len(decls) == 0 {
		return nil, &CompileError{Field: "reactors", Message: "at least one reactor is required", Pos: reactorsVal.Pos()}
	}
	return decls, nil
}

func parseReactor(label string, v cue.Value) (ReactorDecl, error) {
	decl := ReactorDecl{Label: label, Params: library.Params{}, Pos: v.Pos()}
	if strings.ContainsAny(label, ".[]/#") {
		return decl, &CompileError{Field: "reactors", Message: fmt.Sprintf("reactor label %q may not contain . [ ] / or #", label), Pos: v.Pos()}
	}
	if err := checkFields(v, "reactors", reactorFields); err != nil {
		return decl, err
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return decl, &CompileError{Field: "kind", Message: fmt.Sprintf("reactor %s: kind is required", label), Pos: v.Pos()}
	}
	kind, err := kindVal.String()
	if err != nil {
		return decl, formatCUEError(err)
	}
	decl.Kind = kind

	if bankVal := v.LookupPath(cue.ParsePath("bank")); bankVal.Exists() {
		n, err := bankVal.Int64()
		if err != nil {
			return decl, formatCUEError(err)
		}
		if n < 1 {
			return decl, &CompileError{Field: "reactors", Message: fmt.Sprintf("reactor %s: bank must be at least 1, got %d", label, n), Pos: bankVal.Pos()}
		}
		decl.Bank = int(n)
	}

	if paramsVal := v.LookupPath(cue.ParsePath("params")); paramsVal.Exists() {
		params, err := parseParams(label, paramsVal)
		if err != nil {
			return decl, err
		}
		decl.Params = params
	}
	return decl, nil
}

// parseParams extracts scalar parameters. Floats are rejected: the
// network digest is computed over canonical JSON, which has no floats.
func parseParams(label string, v cue.Value) (library.Params, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	params := library.Params{}
	for iter.Next() {
		name := iter.Label()
		pv := iter.Value()

		switch pv.Kind() {
		case cue.IntKind:
			n, err := pv.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			params[name] = n
		case cue.StringKind:
			s, _ := pv.String()
			params[name] = s
		case cue.BoolKind:
			b, _ := pv.Bool()
			params[name] = b
		case cue.FloatKind:
			return nil, &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("reactor %s: parameter %s: floats are not supported, use an integer", label, name),
				Pos:     pv.Pos(),
			}
		default:
			return nil, &CompileError{
				Field:   "params",
				Message: fmt.Sprintf("reactor %s: parameter %s: unsupported type %s", label, name, pv.Kind()),
				Pos:     pv.Pos(),
			}
		}
	}
	return params, nil
}

func parseConnections(v cue.Value, decls []ReactorDecl) ([]Connection, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var conns []Connection
	for list.Next() {
		cv := list.Value()
		if err := checkFields(cv, "connections", connectionFields); err != nil {
			return nil, err
		}

		c := Connection{Pos: cv.Pos()}
		for _, end := range []struct {
			name string
			dst  *PortRef
		}{
			{"from", &c.From},
			{"to", &c.To},
		} {
			ev := cv.LookupPath(cue.ParsePath(end.name))
			if !ev.Exists() {
				return nil, &CompileError{Field: "connections", Message: end.name + " is required", Pos: cv.Pos()}
			}
			s, err := ev.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			ref, err := ParsePortRef(s)
			if err == nil {
				err = checkReactorRef(ref.Reactor, decls)
			}
			if err != nil {
				return nil, &CompileError{Field: "connections", Message: err.Error(), Pos: ev.Pos()}
			}
			*end.dst = ref
		}
		conns = append(conns, c)
	}
	return conns, nil
}

// checkReactorRef verifies that name is a declared reactor, or an
// in-range member "label[i]" of a declared bank.
func checkReactorRef(name string, decls []ReactorDecl) error {
	label, index, indexed, err := splitIndex(name)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(decls, func(d ReactorDecl) bool { return d.Label == label })
	if i < 0 {
		return fmt.Errorf("unknown reactor %q", label)
	}
	d := decls[i]
	switch {
	case d.Bank == 0 && indexed:
		return fmt.Errorf("reactor %s is not a bank and cannot be indexed", label)
	case d.Bank > 0 && !indexed:
		return fmt.Errorf("reactor %s is a bank of %d; address a member as %s[i]", label, d.Bank, label)
	case indexed && index >= d.Bank:
		return fmt.Errorf("index %d out of range for bank %s of %d", index, label, d.Bank)
	}
	return nil
}

func splitIndex(s string) (name string, index int, indexed bool, err error) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		return s, 0, false, nil
	}
	if open == 0 || !strings.HasSuffix(s, "]") {
		return "", 0, false, fmt.Errorf("malformed reactor reference %q", s)
	}
	index, err = strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil || index < 0 {
		return "", 0, false, fmt.Errorf("malformed index in reactor reference %q", s)
	}
	return s[:open], index, true, nil
}
