package slsqp

import (
	"testing"

	solver "github.com/curioloop/optimizer/slsqp"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/convexlab/qpbridge/backend"
	"github.com/convexlab/qpbridge/qp"
)

func simpleProblem(t *testing.T, opts ...qp.ProblemOption) *qp.Problem {
	t.Helper()
	p, err := qp.NewProblem(
		mat.NewDense(2, 2, []float64{2, 0, 0, 2}),
		mat.NewVecDense(2, []float64{-2, -5}),
		opts...,
	)
	require.NoError(t, err)
	return p
}

func pipeline(t *testing.T, p *qp.Problem, opts ...backend.SolverOption) *qp.Result {
	t.Helper()
	assert := require.New(t)

	cfg, err := backend.NewSolverConfig(opts...)
	assert.NoError(err)

	var a Adapter
	converted, err := a.ConvertIn(p, &cfg)
	assert.NoError(err)
	raw, err := a.Invoke(converted, &cfg)
	assert.NoError(err)
	res, err := a.ConvertOut(raw)
	assert.NoError(err)
	return res
}

func TestAdapterUnconstrained(t *testing.T) {
	assert := require.New(t)

	res := pipeline(t, simpleProblem(t))
	assert.Equal(qp.StatusOptimal, res.Status)
	assert.InDelta(1.0, res.X[0], 1e-6)
	assert.InDelta(2.5, res.X[1], 1e-6)
	assert.InDelta(-7.25, res.Objective, 1e-9)
	assert.Equal("slsqp", res.Solver)
}

func TestAdapterEqualityConstrained(t *testing.T) {
	assert := require.New(t)

	// x+y = 1 pulls the optimum to the projection of (1, 2.5)
	p := simpleProblem(t, qp.WithEqualities(
		mat.NewDense(1, 2, []float64{1, 1}),
		mat.NewVecDense(1, []float64{1}),
	))
	res := pipeline(t, p)
	assert.Equal(qp.StatusOptimal, res.Status)
	assert.InDelta(-0.25, res.X[0], 1e-6)
	assert.InDelta(1.25, res.X[1], 1e-6)
}

func TestAdapterActiveBound(t *testing.T) {
	assert := require.New(t)

	p := simpleProblem(t, qp.WithBounds(nil, []float64{0.5, 2.0}))
	res := pipeline(t, p)
	assert.Equal(qp.StatusOptimal, res.Status)
	assert.InDelta(0.5, res.X[0], 1e-6)
	assert.InDelta(2.0, res.X[1], 1e-6)
}

func TestAdapterWarmStart(t *testing.T) {
	assert := require.New(t)

	p := simpleProblem(t, qp.WithInitialGuess([]float64{0.9, 2.4}))
	res := pipeline(t, p)
	assert.Equal(qp.StatusOptimal, res.Status)
	assert.InDelta(1.0, res.X[0], 1e-6)
}

func TestAdapterRejectsUnknownOption(t *testing.T) {
	assert := require.New(t)

	cfg, err := backend.NewSolverConfig(backend.WithBackendOption("pivoting", "fancy"))
	assert.NoError(err)
	var a Adapter
	_, err = a.ConvertIn(simpleProblem(t), &cfg)
	assert.Error(err)
	assert.Contains(err.Error(), "pivoting")
}

func TestAdapterOptionTypes(t *testing.T) {
	assert := require.New(t)

	cfg, err := backend.NewSolverConfig(
		backend.WithBackendOption("nnls_iterations", 200),
		backend.WithBackendOption("exact_linesearch", true),
	)
	assert.NoError(err)
	var a Adapter
	_, err = a.ConvertIn(simpleProblem(t), &cfg)
	assert.NoError(err)

	cfg, err = backend.NewSolverConfig(backend.WithBackendOption("nnls_iterations", "lots"))
	assert.NoError(err)
	_, err = a.ConvertIn(simpleProblem(t), &cfg)
	assert.Error(err)
}

func TestConvertOutStatusTable(t *testing.T) {
	assert := require.New(t)
	var a Adapter

	cases := []struct {
		raw  *solver.Result
		want qp.Status
	}{
		{&solver.Result{OK: true, F: 1, X: []float64{0}, Summary: solver.Summary{Status: solver.HasSolution}}, qp.StatusOptimal},
		{&solver.Result{Summary: solver.Summary{Status: solver.ConsIncompatible}}, qp.StatusInfeasible},
		{&solver.Result{Summary: solver.Summary{Status: solver.SQPExceedMaxIter}}, qp.StatusMaxIterations},
		{&solver.Result{Summary: solver.Summary{Status: solver.NNLSExceedMaxIter}}, qp.StatusMaxIterations},
		{&solver.Result{Summary: solver.Summary{Status: solver.BadArgument}}, qp.StatusSolverError},
		{&solver.Result{Summary: solver.Summary{Status: solver.SearchNotDescent}}, qp.StatusSolverError},
	}
	for _, tc := range cases {
		res, err := a.ConvertOut(tc.raw)
		assert.NoError(err)
		assert.Equal(tc.want, res.Status, "native status %v", tc.raw.Status)
	}
}
