package library

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/trace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// node is one library reactor of a test network.
type node struct {
	name   string
	kind   string
	params Params
}

// testRoot owns the nodes of a test network and has no reactions.
type testRoot struct{}

func (testRoot) React(*engine.ReactionCtx, ir.LocalReactionID) {}

// buildNet returns a build function assembling nodes under the root and
// connecting each "a.out" → "b.in" pair of wires.
func buildNet(nodes []node, wires ...[2]string) engine.BuildFunc[testRoot] {
	return func(a *engine.AssemblyCtx) (testRoot, error) {
		reg := Default()
		insts := make(map[string]Instance)
		for _, n := range nodes {
			inst, err := engine.AssembleChild[Instance](a, n.name, func(ca *engine.AssemblyCtx) (Instance, error) {
				return reg.Build(ca, n.kind, n.params, Env{})
			})
			if err != nil {
				return testRoot{}, err
			}
			insts[n.name] = inst
		}
		for _, w := range wires {
			up, err := endpoint(insts, w[0])
			if err != nil {
				return testRoot{}, err
			}
			down, err := endpoint(insts, w[1])
			if err != nil {
				return testRoot{}, err
			}
			if err := Connect(a, up, down); err != nil {
				return testRoot{}, err
			}
		}
		return testRoot{}, nil
	}
}

func endpoint(insts map[string]Instance, ref string) (Endpoint, error) {
	name, port, _ := strings.Cut(ref, ".")
	return Resolve(insts[name], port)
}

// runNet runs a network in fast-forward with a trace recorder attached.
func runNet(t *testing.T, nodes []node, wires [][2]string, opts ...engine.Option) (*trace.Recorder, engine.Stats) {
	t.Helper()
	rec := trace.NewRecorder()
	all := []engine.Option{
		engine.WithFastForward(true),
		engine.WithWorkers(1),
		engine.WithLogger(quiet()),
		engine.WithTracer(rec),
	}
	stats, err := engine.Run(context.Background(), "main", buildNet(nodes, wires...), append(all, opts...)...)
	require.NoError(t, err)
	return rec, stats
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// values returns the values recorded under label.
func values(rec *trace.Recorder, label string) []any {
	var out []any
	for _, e := range rec.Values(label) {
		out = append(out, e.Value)
	}
	return out
}
