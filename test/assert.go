// Package test provides helpers to exercise one problem across every
// backend available in the current build.
package test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convexlab/qpbridge"
	"github.com/convexlab/qpbridge/backend"
	"github.com/convexlab/qpbridge/qp"
)

// Assert is a helper to test solves across backends.
type Assert struct {
	t *testing.T
	*require.Assertions
}

// NewAssert returns an Assert helper embedding a testify/require object for
// convenience.
func NewAssert(t *testing.T) *Assert {
	return &Assert{t: t, Assertions: require.New(t)}
}

// Backends returns the available backends whose capabilities cover the
// problem's active features.
func (a *Assert) Backends(p *qp.Problem) []backend.ID {
	required := backend.FeaturesOf(p)
	var ids []backend.ID
	for _, id := range qpbridge.Available() {
		desc, err := backend.Describe(id)
		a.NoError(err)
		if desc.Features.Covers(required) {
			ids = append(ids, id)
		}
	}
	return ids
}

// SolveSucceeded solves p on every compatible available backend and checks
// that each reports optimal, lands within tol of wantX (Euclidean norm) and
// satisfies the constraints.
func (a *Assert) SolveSucceeded(p *qp.Problem, wantX []float64, tol float64, opts ...backend.SolverOption) {
	ids := a.Backends(p)
	a.NotEmpty(ids, "no compatible backend for problem")
	for _, id := range ids {
		id := id
		a.t.Run(id.String(), func(t *testing.T) {
			assert := require.New(t)
			res, err := qpbridge.Solve(p, append(opts, backend.WithBackend(id))...)
			assert.NoError(err)
			assert.Equal(qp.StatusOptimal, res.Status, "status %s", res.Status)
			assert.True(res.Found())
			assert.InDelta(0, norm(res.X, wantX), tol, "solution %v, want %v", res.X, wantX)
			assert.LessOrEqual(p.Residuals(res.X).Max(), qp.DefaultTolerance)
		})
	}
}

// SolveFailed solves p on every compatible available backend and checks
// that none of them reports a solution.
func (a *Assert) SolveFailed(p *qp.Problem, opts ...backend.SolverOption) {
	ids := a.Backends(p)
	a.NotEmpty(ids, "no compatible backend for problem")
	for _, id := range ids {
		id := id
		a.t.Run(id.String(), func(t *testing.T) {
			assert := require.New(t)
			res, err := qpbridge.Solve(p, append(opts, backend.WithBackend(id))...)
			assert.NoError(err)
			assert.False(res.Found(), "backend %s returned %v", id, res.X)
			assert.NotEqual(qp.StatusOptimal, res.Status)
		})
	}
}

// SolveRejected checks that requesting the given backend fails before any
// native call with an error matching wantErr.
func (a *Assert) SolveRejected(p *qp.Problem, id backend.ID, wantErr error, opts ...backend.SolverOption) {
	res, err := qpbridge.Solve(p, append(opts, backend.WithBackend(id))...)
	a.Error(err)
	a.ErrorIs(err, wantErr)
	a.Nil(res)
}

func norm(x, y []float64) float64 {
	var s float64
	for i := range x {
		d := x[i] - y[i]
		s += d * d
	}
	return math.Sqrt(s)
}
