package qp

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func boundedProblem(t *testing.T) *Problem {
	t.Helper()
	p, err := NewProblem(
		mat.NewDense(2, 2, []float64{2, 0, 0, 2}),
		mat.NewVecDense(2, []float64{0, 0}),
		WithInequalities(
			mat.NewDense(1, 2, []float64{1, 1}),
			mat.NewVecDense(1, []float64{1}),
		),
	)
	require.NoError(t, err)
	return p
}

func TestValidateDowngradesOptimal(t *testing.T) {
	assert := require.New(t)
	p := boundedProblem(t)

	// x violates x0+x1 ≤ 1 by 1, far beyond tolerance, yet the backend
	// claimed optimality
	res := &Result{X: []float64{1, 1}, Status: StatusOptimal, Solver: "fake"}
	out, report := Validate(p, res, 1e-6)

	assert.False(report.Feasible)
	assert.InDelta(1.0, report.Residuals.Inequality, 1e-12)
	assert.Equal(StatusOptimalInfeasible, out.Status)
	// the input result is untouched
	assert.Equal(StatusOptimal, res.Status)
}

func TestValidateKeepsFeasible(t *testing.T) {
	assert := require.New(t)
	p := boundedProblem(t)

	res := &Result{X: []float64{0.25, 0.25}, Status: StatusOptimal}
	out, report := Validate(p, res, 1e-6)

	assert.True(report.Feasible)
	assert.Equal(StatusOptimal, out.Status)
}

func TestValidateWithinTolerance(t *testing.T) {
	assert := require.New(t)
	p := boundedProblem(t)

	// violation below tolerance stays optimal
	res := &Result{X: []float64{0.5, 0.5 + 1e-9}, Status: StatusOptimal}
	out, report := Validate(p, res, 1e-6)

	assert.True(report.Feasible)
	assert.Equal(StatusOptimal, out.Status)
}

func TestValidateNoSolutionPassthrough(t *testing.T) {
	assert := require.New(t)
	p := boundedProblem(t)

	res := &Result{Status: StatusInfeasible}
	out, report := Validate(p, res, 0)

	assert.True(report.Feasible)
	assert.Equal(StatusInfeasible, out.Status)
	assert.Equal(DefaultTolerance, report.Tolerance)
}

func TestValidateNonOptimalNotUpgraded(t *testing.T) {
	assert := require.New(t)
	p := boundedProblem(t)

	// an infeasible X on a max_iterations result keeps its status; the
	// validator only ever downgrades optimal
	res := &Result{X: []float64{5, 5}, Status: StatusMaxIterations}
	out, report := Validate(p, res, 1e-6)

	assert.False(report.Feasible)
	assert.Equal(StatusMaxIterations, out.Status)
}

func TestStatusStrings(t *testing.T) {
	assert := require.New(t)
	assert.Equal("optimal", StatusOptimal.String())
	assert.Equal("infeasible", StatusInfeasible.String())
	assert.Equal("unbounded", StatusUnbounded.String())
	assert.Equal("solver_error", StatusSolverError.String())
	assert.Equal("max_iterations", StatusMaxIterations.String())
	assert.Equal("optimal_but_infeasible", StatusOptimalInfeasible.String())
	assert.Equal("unknown", StatusUnknown.String())
}
