package library

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/reactors/internal/engine"
)

// Endpoint is a resolved port reference: one port, or a whole multiport.
type Endpoint struct {
	Port  engine.AnyPort
	Multi engine.AnyMultiport
}

// Name returns the referenced component's full name.
func (e Endpoint) Name() string {
	if e.Multi != nil {
		return e.Multi.Name()
	}
	return e.Port.Name()
}

// Resolve looks up a port reference local to inst: "out" names a port or
// a whole multiport, "ins[2]" one channel of a multiport.
func Resolve(inst Instance, ref string) (Endpoint, error) {
	name, index, indexed, err := splitRef(ref)
	if err != nil {
		return Endpoint{}, err
	}
	if !indexed {
		if p, ok := inst.Port(name); ok {
			return Endpoint{Port: p}, nil
		}
		if m, ok := inst.Multiport(name); ok {
			return Endpoint{Multi: m}, nil
		}
		return Endpoint{}, fmt.Errorf("no port %q (ports: %s)", name, strings.Join(inst.PortNames(), ", "))
	}

	m, ok := inst.Multiport(name)
	if !ok {
		return Endpoint{}, fmt.Errorf("no multiport %q (ports: %s)", name, strings.Join(inst.PortNames(), ", "))
	}
	if index >= m.Width() {
		return Endpoint{}, fmt.Errorf("index %d out of range for %s (width %d)", index, m.Name(), m.Width())
	}
	return Endpoint{Port: m.Channel(index)}, nil
}

func splitRef(ref string) (name string, index int, indexed bool, err error) {
	open := strings.IndexByte(ref, '[')
	if open < 0 {
		if ref == "" {
			return "", 0, false, fmt.Errorf("empty port reference")
		}
		return ref, 0, false, nil
	}
	if !strings.HasSuffix(ref, "]") || open == 0 {
		return "", 0, false, fmt.Errorf("malformed port reference %q", ref)
	}
	index, err = strconv.Atoi(ref[open+1 : len(ref)-1])
	if err != nil || index < 0 {
		return "", 0, false, fmt.Errorf("malformed index in port reference %q", ref)
	}
	return ref[:open], index, true, nil
}

// Connect binds up to down. Two multiports are zipped channel by channel;
// mixing a multiport with a single port is an error.
func Connect(a *engine.AssemblyCtx, up, down Endpoint) error {
	switch {
	case up.Multi != nil && down.Multi != nil:
		return engine.BindAnyMulti(a, up.Multi, down.Multi)
	case up.Port != nil && down.Port != nil:
		return engine.BindAny(a, up.Port, down.Port)
	default:
		return fmt.Errorf("cannot connect %s to %s: one side is a multiport, index it with [i]", up.Name(), down.Name())
	}
}
