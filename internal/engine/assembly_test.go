package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

// runFault runs build and returns the RuntimeFault it panics with.
func runFault(t *testing.T, build BuildFunc[*fnReactor], extra ...Option) *RuntimeFault {
	t.Helper()
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		_, _ = Run(context.Background(), "main", build, testOpts(extra...)...)
	}()
	require.NotNil(t, recovered, "expected a runtime fault")
	f, ok := AsRuntimeFault(recovered)
	require.True(t, ok, "panic value %v is not a RuntimeFault", recovered)
	return f
}

func TestAssemble_CyclicPortBinding(t *testing.T) {
	reactions := 0
	_, err := Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		r := &fnReactor{}
		p := NewOutput[int](a, "p")
		q := NewOutput[int](a, "q")
		id := r.on(a, func(*ReactionCtx) { reactions++ })
		a.DeclareTriggers(id, Startup)
		if err := Bind(a, p, q); err != nil {
			return nil, err
		}
		return r, Bind(a, q, p)
	})

	require.Error(t, err)
	assert.True(t, IsAssemblyError(err))
	assert.True(t, IsCycleError(err))
	assert.Contains(t, err.Error(), "main.p → main.q → main.p")
	assert.Zero(t, reactions)
}

func TestAssemble_ReactionCycleNamesReactions(t *testing.T) {
	type node struct {
		fnReactor
		in  *Port[int]
		out *Port[int]
	}
	relay := func(a *AssemblyCtx) (*node, error) {
		n := &node{in: NewInput[int](a, "in"), out: NewOutput[int](a, "out")}
		id := n.on(a, func(ctx *ReactionCtx) {
			v, _ := n.in.Get(ctx)
			n.out.Set(ctx, v)
		})
		a.DeclareTriggers(id, n.in)
		a.DeclareEffects(id, n.out)
		return n, nil
	}

	p, err := Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		x, err := AssembleChild(a, "a", relay)
		if err != nil {
			return nil, err
		}
		y, err := AssembleChild(a, "b", relay)
		if err != nil {
			return nil, err
		}
		if err := Bind(a, x.out, y.in); err != nil {
			return nil, err
		}
		return &fnReactor{}, Bind(a, y.out, x.in)
	})

	require.Nil(t, p, "no program exists after a failed assembly")
	require.True(t, IsCycleError(err))

	var ae *AssemblyError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, ErrCodeCyclicDependency, ae.Code)
	assert.Equal(t, []string{"main/a#0", "main/b#0"}, ae.Reactions)
	assert.Contains(t, ae.Error(), "main/a#0")
}

func TestAssemble_DuplicateName(t *testing.T) {
	_, err := Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		NewInput[int](a, "x")
		NewTimer(a, "x", 0, 0)
		return &fnReactor{}, nil
	})
	assert.Equal(t, ErrCodeDuplicateName, AssemblyErrorCodeOf(err))

	_, err = Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		empty := func(*AssemblyCtx) (*fnReactor, error) { return &fnReactor{}, nil }
		if _, err := AssembleChild(a, "c", empty); err != nil {
			return nil, err
		}
		_, err := AssembleChild(a, "c", empty)
		return &fnReactor{}, err
	})
	assert.Equal(t, ErrCodeDuplicateName, AssemblyErrorCodeOf(err))
}

func TestAssemble_BadWidth(t *testing.T) {
	_, err := Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		NewInputMultiport[int](a, "ins", 0)
		return &fnReactor{}, nil
	})
	assert.Equal(t, ErrCodeBadWidth, AssemblyErrorCodeOf(err))

	_, err = Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		_, err := AssembleBank(a, "bank", -1, func(*AssemblyCtx, int) (*fnReactor, error) {
			return &fnReactor{}, nil
		})
		return &fnReactor{}, err
	})
	assert.Equal(t, ErrCodeBadWidth, AssemblyErrorCodeOf(err))

	_, err = Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		up := NewOutputMultiport[int](a, "outs", 2)
		down := NewInputMultiport[int](a, "ins", 3)
		return &fnReactor{}, BindMulti(a, up, down)
	})
	assert.Equal(t, ErrCodeBadWidth, AssemblyErrorCodeOf(err))
}

func TestAssemble_PortTypeMismatch(t *testing.T) {
	_, err := Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		up := NewOutput[int](a, "out")
		down := NewInput[string](a, "in")
		return &fnReactor{}, BindAny(a, up, down)
	})
	assert.Equal(t, ErrCodePortTypeMismatch, AssemblyErrorCodeOf(err))
	assert.Contains(t, err.Error(), "int")
	assert.Contains(t, err.Error(), "string")
}

func TestAssemble_CannotBindTwice(t *testing.T) {
	_, err := Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		a1 := NewOutput[int](a, "a")
		b1 := NewOutput[int](a, "b")
		in := NewInput[int](a, "in")
		if err := Bind(a, a1, in); err != nil {
			return nil, err
		}
		return &fnReactor{}, Bind(a, b1, in)
	})
	assert.Equal(t, ErrCodeCannotBind, AssemblyErrorCodeOf(err))
}

func TestAssemble_IgnoredErrorStillAborts(t *testing.T) {
	p, err := Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		up := NewOutput[int](a, "out")
		down := NewInput[bool](a, "in")
		_ = BindAny(a, up, down)
		return &fnReactor{}, nil
	})
	assert.Nil(t, p)
	assert.Equal(t, ErrCodePortTypeMismatch, AssemblyErrorCodeOf(err))
}

func TestAssemble_BuildErrorWrapped(t *testing.T) {
	cause := errors.New("boom")
	_, err := Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		return nil, cause
	})
	assert.Equal(t, ErrCodeBuildFailed, AssemblyErrorCodeOf(err))
	assert.ErrorIs(t, err, cause)
}

func TestAssemble_BankNamesAndSummary(t *testing.T) {
	var paths []string
	p, err := Assemble("main", func(a *AssemblyCtx) (*fnReactor, error) {
		bank, err := AssembleBank(a, "w", 3, func(a *AssemblyCtx, i int) (*fnReactor, error) {
			paths = append(paths, a.Path())
			r := &fnReactor{}
			id := r.on(a, func(*ReactionCtx) {})
			a.DeclareTriggers(id, Startup)
			NewTimer(a, "t", timing.Duration(i), 0)
			return r, nil
		})
		if err != nil {
			return nil, err
		}
		assert.Len(t, bank, 3)
		return &fnReactor{}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"main/w[0]", "main/w[1]", "main/w[2]"}, paths)
	assert.Equal(t, Summary{Reactors: 4, Reactions: 3, Triggers: 5, Timers: 3, Levels: 1}, p.Summary())

	order := p.ReactionOrder()
	require.Len(t, order, 3)
	assert.Equal(t, "main/w[0]#0", order[0].Name)
	assert.Equal(t, ir.LevelIx(0), order[2].Level)
}

func TestAssemble_PortChainSharesValue(t *testing.T) {
	var got int
	_, err := Run(context.Background(), "main", func(a *AssemblyCtx) (*fnReactor, error) {
		r := &fnReactor{}
		out := NewOutput[int](a, "out")
		mid := NewOutput[int](a, "mid")
		in := NewInput[int](a, "in")
		if err := Bind(a, out, mid); err != nil {
			return nil, err
		}
		if err := Bind(a, mid, in); err != nil {
			return nil, err
		}
		w := r.on(a, func(ctx *ReactionCtx) { out.Set(ctx, 9) })
		a.DeclareTriggers(w, Startup)
		a.DeclareEffects(w, out)
		rd := r.on(a, func(ctx *ReactionCtx) { got, _ = in.Get(ctx) })
		a.DeclareTriggers(rd, in)
		return r, nil
	}, testOpts()...)
	require.NoError(t, err)
	assert.Equal(t, 9, got)
}

func TestRuntimeFault_UndeclaredEffect(t *testing.T) {
	f := runFault(t, func(a *AssemblyCtx) (*fnReactor, error) {
		r := &fnReactor{}
		out := NewOutput[int](a, "out")
		id := r.on(a, func(ctx *ReactionCtx) { out.Set(ctx, 1) })
		a.DeclareTriggers(id, Startup)
		return r, nil
	})
	assert.Equal(t, FaultUndeclaredEffect, f.Code)
	assert.Equal(t, "main#0", f.Reaction)
}

func TestRuntimeFault_UndeclaredUse(t *testing.T) {
	f := runFault(t, func(a *AssemblyCtx) (*fnReactor, error) {
		r := &fnReactor{}
		in := NewInput[int](a, "in")
		id := r.on(a, func(ctx *ReactionCtx) { in.Get(ctx) })
		a.DeclareTriggers(id, Startup)
		return r, nil
	})
	assert.Equal(t, FaultUndeclaredUse, f.Code)
}

func TestRuntimeFault_WriteToBoundPort(t *testing.T) {
	f := runFault(t, func(a *AssemblyCtx) (*fnReactor, error) {
		r := &fnReactor{}
		up := NewOutput[int](a, "up")
		down := NewOutput[int](a, "down")
		if err := Bind(a, up, down); err != nil {
			return nil, err
		}
		id := r.on(a, func(ctx *ReactionCtx) { down.Set(ctx, 1) })
		a.DeclareTriggers(id, Startup)
		a.DeclareEffects(id, down)
		return r, nil
	})
	assert.Equal(t, FaultWriteToBoundPort, f.Code)
}

func TestRuntimeFault_ScheduleFromWrongContext(t *testing.T) {
	f := runFault(t, func(a *AssemblyCtx) (*fnReactor, error) {
		r := &fnReactor{}
		ext := NewPhysicalAction[int](a, "ext", 0)
		id := r.on(a, func(ctx *ReactionCtx) { ctx.Schedule(ext, timing.Asap) })
		a.DeclareTriggers(id, Startup)
		a.DeclareEffects(id, ext)
		return r, nil
	})
	assert.Equal(t, FaultScheduleFromWrongContext, f.Code)
}

func TestRuntimeFault_NegativeDelay(t *testing.T) {
	f := runFault(t, func(a *AssemblyCtx) (*fnReactor, error) {
		r := &fnReactor{}
		act := NewLogicalAction[int](a, "act", 0)
		id := r.on(a, func(ctx *ReactionCtx) { act.Schedule(ctx, timing.After(-timing.Millisecond)) })
		a.DeclareTriggers(id, Startup)
		a.DeclareEffects(id, act)
		return r, nil
	})
	assert.Equal(t, FaultNegativeDelay, f.Code)
}

func TestRuntimeFault_ContextEscaped(t *testing.T) {
	f := runFault(t, func(a *AssemblyCtx) (*fnReactor, error) {
		r := &fnReactor{}
		var escaped *ReactionCtx
		later := NewTimer(a, "later", ms(1), 0)

		first := r.on(a, func(ctx *ReactionCtx) { escaped = ctx })
		a.DeclareTriggers(first, Startup)

		second := r.on(a, func(*ReactionCtx) { escaped.Tag() })
		a.DeclareTriggers(second, later)
		return r, nil
	})
	assert.Equal(t, FaultContextEscaped, f.Code)
	assert.Equal(t, "main#0", f.Reaction)
}

func TestRuntimeFault_Error(t *testing.T) {
	f := &RuntimeFault{Code: FaultUndeclaredUse, Message: "x", Reaction: "main#1"}
	assert.Equal(t, "UNDECLARED_USE: x (reaction=main#1)", f.Error())

	_, ok := AsRuntimeFault("not a fault")
	assert.False(t, ok)
}
