package engine

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/roach88/reactors/internal/graph"
	"github.com/roach88/reactors/internal/ir"
)

// Reactor is implemented once per reactor type. React dispatches on the
// local reaction id assigned by AssemblyCtx.NewReactions.
type Reactor interface {
	React(ctx *ReactionCtx, r ir.LocalReactionID)
}

// BuildFunc assembles one reactor: it creates components, assembles
// children, binds ports and declares reactions.
type BuildFunc[R Reactor] func(a *AssemblyCtx) (R, error)

type reactionInfo struct {
	id     ir.GlobalReactionID
	name   string
	key    ir.ReactionKey
	reads  map[ir.TriggerID]bool
	writes map[ir.TriggerID]bool
}

type reactorInstance struct {
	id        ir.ReactorID
	path      string
	reactor   Reactor
	reactions []*reactionInfo
	names     map[string]bool
}

// assembler accumulates one program. Nothing escapes it until every build
// function has returned and the graph has been analyzed.
type assembler struct {
	graph    *graph.DepGraph
	reactors []*reactorInstance
	timers   []*Timer
	actions  map[ir.TriggerID]tagValues
	err      error
}

// AssemblyCtx is handed to a BuildFunc for the reactor being assembled.
type AssemblyCtx struct {
	asm  *assembler
	inst *reactorInstance
}

// Path returns the reactor's path ("main/src").
func (a *AssemblyCtx) Path() string { return a.inst.path }

// ReactorID returns the reactor's id.
func (a *AssemblyCtx) ReactorID() ir.ReactorID { return a.inst.id }

// fail records the first assembly error. Errors are recorded even when the
// caller ignores them, so assembly aborts regardless.
func (a *AssemblyCtx) fail(err error) error {
	if a.asm.err == nil {
		a.asm.err = err
	}
	return err
}

func (a *AssemblyCtx) componentName(name string) string {
	if a.inst.names[name] {
		a.fail(newAssemblyError(ErrCodeDuplicateName, a.inst.path, "duplicate name %q", name))
	}
	a.inst.names[name] = true
	return a.inst.path + "." + name
}

func (asm *assembler) newInstance(path string) *reactorInstance {
	inst := &reactorInstance{
		id:    ir.ReactorID(len(asm.reactors)),
		path:  path,
		names: make(map[string]bool),
	}
	asm.reactors = append(asm.reactors, inst)
	return inst
}

// NewReactions declares n reactions in declaration order and returns their
// local ids. Each reaction is ordered after the previous one of the same
// reactor.
func (a *AssemblyCtx) NewReactions(n int) []ir.LocalReactionID {
	ids := make([]ir.LocalReactionID, n)
	for i := range n {
		local := ir.LocalReactionID(len(a.inst.reactions))
		info := &reactionInfo{
			id:     ir.GlobalReactionID{Reactor: a.inst.id, Local: local},
			name:   fmt.Sprintf("%s#%d", a.inst.path, local),
			reads:  make(map[ir.TriggerID]bool),
			writes: make(map[ir.TriggerID]bool),
		}
		a.asm.graph.AddReaction(info.id, info.name)
		if local > 0 {
			a.asm.graph.Precedes(a.inst.reactions[local-1].id, info.id)
		}
		a.inst.reactions = append(a.inst.reactions, info)
		ids[i] = local
	}
	return ids
}

func (a *AssemblyCtx) reaction(r ir.LocalReactionID) *reactionInfo {
	if int(r) >= len(a.inst.reactions) {
		panic(fmt.Sprintf("engine: %s has no reaction %d", a.inst.path, r))
	}
	return a.inst.reactions[r]
}

// DeclareTriggers makes each component fire reaction r.
func (a *AssemblyCtx) DeclareTriggers(r ir.LocalReactionID, cs ...Component) {
	info := a.reaction(r)
	for _, c := range cs {
		for _, t := range c.triggerIDs() {
			info.reads[t] = true
			a.asm.graph.TriggersReaction(t, info.id)
		}
	}
}

// DeclareUses lets reaction r read each component without being fired by it.
func (a *AssemblyCtx) DeclareUses(r ir.LocalReactionID, cs ...Component) {
	info := a.reaction(r)
	for _, c := range cs {
		for _, t := range c.triggerIDs() {
			info.reads[t] = true
			a.asm.graph.UsedBy(t, info.id)
		}
	}
}

// DeclareEffects lets reaction r write ports or schedule actions.
func (a *AssemblyCtx) DeclareEffects(r ir.LocalReactionID, cs ...Component) {
	info := a.reaction(r)
	for _, c := range cs {
		for _, t := range c.triggerIDs() {
			info.reads[t] = true
			info.writes[t] = true
			a.asm.graph.Effects(info.id, t)
		}
	}
}

// AssembleChild assembles a child reactor named name under the reactor
// being assembled.
func AssembleChild[R Reactor](a *AssemblyCtx, name string, build BuildFunc[R]) (R, error) {
	var zero R
	if a.inst.names[name] {
		return zero, a.fail(newAssemblyError(ErrCodeDuplicateName, a.inst.path, "duplicate name %q", name))
	}
	a.inst.names[name] = true
	return assemble(a.asm, a.inst.path+"/"+name, build)
}

// AssembleBank assembles n children named name[0] … name[n-1]. build
// receives each child's bank index.
func AssembleBank[R Reactor](a *AssemblyCtx, name string, n int, build func(a *AssemblyCtx, index int) (R, error)) ([]R, error) {
	if n <= 0 {
		return nil, a.fail(newAssemblyError(ErrCodeBadWidth, a.inst.path, "bank %s has width %d", name, n))
	}
	bank := make([]R, n)
	for i := range n {
		r, err := AssembleChild[R](a, fmt.Sprintf("%s[%d]", name, i), func(ca *AssemblyCtx) (R, error) {
			return build(ca, i)
		})
		if err != nil {
			return nil, err
		}
		bank[i] = r
	}
	return bank, nil
}

func assemble[R Reactor](asm *assembler, path string, build BuildFunc[R]) (R, error) {
	var zero R
	inst := asm.newInstance(path)
	a := &AssemblyCtx{asm: asm, inst: inst}

	r, err := build(a)
	if err != nil {
		var ae *AssemblyError
		if !errors.As(err, &ae) {
			err = &AssemblyError{Code: ErrCodeBuildFailed, Message: err.Error(), Reactor: path, Err: err}
		}
		return zero, a.fail(err)
	}
	if asm.err != nil {
		return zero, asm.err
	}
	inst.reactor = r
	return r, nil
}

// Assemble builds the reactor tree rooted at a reactor named name and
// analyzes its dependency graph.
//
// Assembly is atomic: on any error, including errors a build function
// ignored, the first error is returned and no Program exists.
func Assemble[R Reactor](name string, build BuildFunc[R]) (*Program, error) {
	asm := &assembler{
		graph:   graph.New(),
		actions: make(map[ir.TriggerID]tagValues),
	}
	if _, err := assemble(asm, name, build); err != nil {
		return nil, err
	}

	flow, err := asm.graph.Analyze()
	if err != nil {
		var ce *graph.CycleError
		if errors.As(err, &ce) {
			return nil, newCycleError(name, ce)
		}
		return nil, err
	}

	p := &Program{
		name:      name,
		graph:     asm.graph,
		flow:      flow,
		reactors:  asm.reactors,
		reactions: make([]*reactionInfo, len(flow.Reactions())),
		timers:    asm.timers,
		actions:   asm.actions,
		timerByID: make(map[ir.TriggerID]*Timer, len(asm.timers)),
	}
	for _, inst := range asm.reactors {
		for _, info := range inst.reactions {
			info.key = flow.Key(info.id)
			p.reactions[flow.Index(info.id)] = info
		}
	}
	for _, t := range asm.timers {
		p.timerByID[t.id] = t
	}
	return p, nil
}

// Program is an assembled reactor tree with its analyzed dependency graph.
// A Program runs at most once.
type Program struct {
	name      string
	graph     *graph.DepGraph
	flow      *graph.Dataflow
	reactors  []*reactorInstance
	reactions []*reactionInfo // in execution order
	timers    []*Timer
	timerByID map[ir.TriggerID]*Timer
	actions   map[ir.TriggerID]tagValues
	ran       atomic.Bool
}

// Name returns the root reactor's name.
func (p *Program) Name() string { return p.name }

// Graph returns the dependency graph.
func (p *Program) Graph() *graph.DepGraph { return p.graph }

// Dataflow returns the analyzed execution plans.
func (p *Program) Dataflow() *graph.Dataflow { return p.flow }

// WriteDOT writes the dependency graph in Graphviz syntax.
func (p *Program) WriteDOT(w io.Writer) error {
	return graph.FormatDOT(w, p.name, p.graph)
}

// ReactionOrder lists reaction names in execution order with their levels.
func (p *Program) ReactionOrder() []ReactionEntry {
	out := make([]ReactionEntry, len(p.reactions))
	for i, info := range p.reactions {
		out[i] = ReactionEntry{Name: info.name, Level: info.key.Level, ID: info.id}
	}
	return out
}

// ReactionEntry describes one reaction of a Program.
type ReactionEntry struct {
	Name  string
	Level ir.LevelIx
	ID    ir.GlobalReactionID
}

// Summary counts a Program's parts.
type Summary struct {
	Reactors  int
	Reactions int
	Triggers  int
	Timers    int
	Levels    int
}

// Summary returns counts of the program's parts.
func (p *Program) Summary() Summary {
	levels := 0
	if len(p.reactions) > 0 {
		levels = int(p.flow.MaxLevel()) + 1
	}
	return Summary{
		Reactors:  len(p.reactors),
		Reactions: len(p.reactions),
		Triggers:  p.graph.NumTriggers(),
		Timers:    len(p.timers),
		Levels:    levels,
	}
}
