package lbfgsb

import (
	"testing"

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
	assert.InDelta(1.0, res.X[0], 1e-5)
	assert.InDelta(2.5, res.X[1], 1e-5)
	assert.Equal("lbfgsb", res.Solver)
}

func TestAdapterActiveBounds(t *testing.T) {
	assert := require.New(t)

	p := simpleProblem(t, qp.WithBounds([]float64{1.5, 0}, []float64{3, 2}))
	res := pipeline(t, p)
	assert.Equal(qp.StatusOptimal, res.Status)
	assert.InDelta(1.5, res.X[0], 1e-5)
	assert.InDelta(2.0, res.X[1], 1e-5)
}

func TestAdapterOneSidedBound(t *testing.T) {
	assert := require.New(t)

	p := simpleProblem(t, qp.WithBounds(nil, []float64{0, 2}))
	res := pipeline(t, p)
	assert.Equal(qp.StatusOptimal, res.Status)
	assert.InDelta(0.0, res.X[0], 1e-5)
	assert.InDelta(2.0, res.X[1], 1e-5)
}

func TestAdapterRejectsConstraints(t *testing.T) {
	assert := require.New(t)

	cfg, err := backend.NewSolverConfig()
	assert.NoError(err)
	var a Adapter

	withEq := simpleProblem(t, qp.WithEqualities(
		mat.NewDense(1, 2, []float64{1, 1}), mat.NewVecDense(1, []float64{1})))
	_, err = a.ConvertIn(withEq, &cfg)
	assert.ErrorIs(err, backend.ErrUnsupportedFeature)

	withIneq := simpleProblem(t, qp.WithInequalities(
		mat.NewDense(1, 2, []float64{1, 0}), mat.NewVecDense(1, []float64{0})))
	_, err = a.ConvertIn(withIneq, &cfg)
	assert.ErrorIs(err, backend.ErrUnsupportedFeature)
}

func TestAdapterCorrectionsOption(t *testing.T) {
	assert := require.New(t)

	res := pipeline(t, simpleProblem(t), backend.WithBackendOption("corrections", 5))
	assert.Equal(qp.StatusOptimal, res.Status)

	cfg, err := backend.NewSolverConfig(backend.WithBackendOption("corrections", -1))
	assert.NoError(err)
	var a Adapter
	_, err = a.ConvertIn(simpleProblem(t), &cfg)
	assert.Error(err)
}
