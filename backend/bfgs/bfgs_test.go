package bfgs

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

func TestAdapterUnconstrained(t *testing.T) {
	assert := require.New(t)

	cfg, err := backend.NewSolverConfig()
	assert.NoError(err)

	var a Adapter
	converted, err := a.ConvertIn(simpleProblem(t), &cfg)
	assert.NoError(err)
	raw, err := a.Invoke(converted, &cfg)
	assert.NoError(err)
	res, err := a.ConvertOut(raw)
	assert.NoError(err)

	assert.Equal(qp.StatusOptimal, res.Status)
	assert.InDelta(1.0, res.X[0], 1e-6)
	assert.InDelta(2.5, res.X[1], 1e-6)
	assert.InDelta(-7.25, res.Objective, 1e-9)
	assert.Equal("bfgs", res.Solver)
}

func TestAdapterWarmStart(t *testing.T) {
	assert := require.New(t)

	cfg, err := backend.NewSolverConfig()
	assert.NoError(err)

	var a Adapter
	converted, err := a.ConvertIn(simpleProblem(t, qp.WithInitialGuess([]float64{1, 2.5})), &cfg)
	assert.NoError(err)
	raw, err := a.Invoke(converted, &cfg)
	assert.NoError(err)
	res, err := a.ConvertOut(raw)
	assert.NoError(err)
	assert.Equal(qp.StatusOptimal, res.Status)
}

func TestAdapterRejectsConstraints(t *testing.T) {
	assert := require.New(t)

	cfg, err := backend.NewSolverConfig()
	assert.NoError(err)
	var a Adapter

	for _, opt := range []qp.ProblemOption{
		qp.WithEqualities(mat.NewDense(1, 2, []float64{1, 1}), mat.NewVecDense(1, []float64{1})),
		qp.WithInequalities(mat.NewDense(1, 2, []float64{1, 0}), mat.NewVecDense(1, []float64{0})),
		qp.WithBounds([]float64{0, 0}, nil),
	} {
		_, err := a.ConvertIn(simpleProblem(t, opt), &cfg)
		assert.ErrorIs(err, backend.ErrUnsupportedFeature)
	}
}

func TestAdapterRejectsUnknownOption(t *testing.T) {
	assert := require.New(t)

	cfg, err := backend.NewSolverConfig(backend.WithBackendOption("step", 0.1))
	assert.NoError(err)
	var a Adapter
	_, err = a.ConvertIn(simpleProblem(t), &cfg)
	assert.Error(err)
}
