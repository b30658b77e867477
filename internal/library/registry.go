package library

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/timing"
)

// Instance is an assembled library reactor whose ports are addressable by
// name.
type Instance interface {
	engine.Reactor
	Port(name string) (engine.AnyPort, bool)
	Multiport(name string) (engine.AnyMultiport, bool)
	PortNames() []string
}

// Env carries what factories need beyond their parameters.
type Env struct {
	// Clock paces goroutines feeding physical actions. Nil means the
	// system clock.
	Clock timing.Clock
}

func (e Env) clock() timing.Clock {
	if e.Clock == nil {
		return timing.SystemClock{}
	}
	return e.Clock
}

// Factory assembles one reactor of a kind.
type Factory func(a *engine.AssemblyCtx, p Params, env Env) (Instance, error)

// Kind describes a reactor kind.
type Kind struct {
	Name        string
	Description string
	Params      []string
	Build       Factory
}

// Registry maps kind names to factories.
//
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Default returns a registry holding every built-in kind.
func Default() *Registry {
	r := NewRegistry()
	for _, k := range builtins() {
		if err := r.Register(k); err != nil {
			panic(err)
		}
	}
	return r
}

func builtins() []Kind {
	return []Kind{
		clockKind, relayKind, scaleKind, delayKind, sumKind,
		recorderKind, stopperKind, pingPongKind, tickerKind,
	}
}

// Register adds k. Names must be unique.
func (r *Registry) Register(k Kind) error {
	if k.Name == "" || k.Build == nil {
		return fmt.Errorf("register kind: name and build function are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.kinds[k.Name]; dup {
		return fmt.Errorf("register kind: %q already registered", k.Name)
	}
	r.kinds[k.Name] = k
	return nil
}

// Lookup returns the kind named name.
func (r *Registry) Lookup(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Names returns the registered kind names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for n := range r.kinds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build assembles a reactor of the named kind.
func (r *Registry) Build(a *engine.AssemblyCtx, kind string, p Params, env Env) (Instance, error) {
	k, ok := r.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown reactor kind %q (known: %s)", kind, strings.Join(r.Names(), ", "))
	}
	if err := p.check(kind, k.Params); err != nil {
		return nil, err
	}
	return k.Build(a, p, env)
}

// PortSet indexes a reactor's ports by local name. Library reactors embed
// it to implement Instance.
type PortSet struct {
	ports map[string]engine.AnyPort
	multi map[string]engine.AnyMultiport
	names []string
}

// AddPort exposes p under name.
func (s *PortSet) AddPort(name string, p engine.AnyPort) {
	if s.ports == nil {
		s.ports = make(map[string]engine.AnyPort)
	}
	s.ports[name] = p
	s.names = append(s.names, name)
}

// AddMultiport exposes m under name.
func (s *PortSet) AddMultiport(name string, m engine.AnyMultiport) {
	if s.multi == nil {
		s.multi = make(map[string]engine.AnyMultiport)
	}
	s.multi[name] = m
	s.names = append(s.names, name)
}

// Port returns the single port named name.
func (s *PortSet) Port(name string) (engine.AnyPort, bool) {
	p, ok := s.ports[name]
	return p, ok
}

// Multiport returns the multiport named name.
func (s *PortSet) Multiport(name string) (engine.AnyMultiport, bool) {
	m, ok := s.multi[name]
	return m, ok
}

// PortNames lists the exposed names in declaration order.
func (s *PortSet) PortNames() []string {
	return s.names
}
