// Package lbfgsb adapts the L-BFGS-B solver from
// github.com/curioloop/optimizer: bound-constrained problems only, with
// warm start.
package lbfgsb

import (
	"fmt"
	"math"

	"github.com/blang/semver/v4"
	solver "github.com/curioloop/optimizer/lbfgsb"

	"github.com/convexlab/qpbridge/backend"
	"github.com/convexlab/qpbridge/logger"
	"github.com/convexlab/qpbridge/qp"
)

// defaultCorrections is the number of limited-memory BFGS corrections kept
// when the caller does not override it.
const defaultCorrections = 10

func init() {
	backend.MustRegister(backend.Descriptor{
		ID:        backend.LBFGSB,
		Version:   semver.MustParse("1.0.1"),
		Features:  backend.FeatureBounds | backend.FeatureWarmStart,
		Reentrant: true,
		New:       func() backend.Adapter { return Adapter{} },
	})
}

// Adapter implements the convert/invoke/convert pipeline for L-BFGS-B.
type Adapter struct{}

type native struct {
	problem *solver.Problem
	x0      []float64
	maxIter int
}

type rawResult struct {
	res     *solver.Result
	maxIter int
}

// ConvertIn maps the canonical problem onto an L-BFGS-B problem. Equality
// or inequality blocks are outside this backend's capability set and fail
// defensively; the dispatcher normally rejects them first.
func (Adapter) ConvertIn(p *qp.Problem, cfg *backend.SolverConfig) (any, error) {
	if required := backend.FeaturesOf(p); required&(backend.FeatureEquality|backend.FeatureInequality) != 0 {
		return nil, fmt.Errorf("%w: lbfgsb cannot handle %s", backend.ErrUnsupportedFeature, required)
	}

	n := p.N()
	corrections := defaultCorrections
	for key, value := range cfg.Extra {
		switch key {
		case "corrections":
			m, ok := value.(int)
			if !ok || m <= 0 {
				return nil, fmt.Errorf("lbfgsb: option %q wants a positive int, got %v", key, value)
			}
			corrections = m
		default:
			return nil, fmt.Errorf("lbfgsb: unrecognized option %q", key)
		}
	}

	prob := &solver.Problem{
		N: n,
		M: corrections,
		Eval: func(x, g []float64) float64 {
			if g != nil {
				p.Gradient(x, g)
			}
			return p.Objective(x)
		},
		Stop: solver.Termination{
			MaxIterations:     cfg.MaxIterations,
			ProjGradTolerance: cfg.Accuracy,
			EpsAccuracyFactor: 1e7,
		},
	}
	if lb, ub, ok := p.Bounds(); ok {
		// L-BFGS-B marks absent bounds with NaN rather than ±Inf
		bounds := make([]solver.Bound, n)
		for i := range bounds {
			bounds[i] = solver.Bound{Lower: math.NaN(), Upper: math.NaN()}
			if p.FiniteLower(i) {
				bounds[i].Lower = lb[i]
			}
			if p.FiniteUpper(i) {
				bounds[i].Upper = ub[i]
			}
		}
		prob.Bounds = bounds
	}

	x0 := make([]float64, n)
	if guess, ok := p.InitialGuess(); ok {
		copy(x0, guess)
	}
	if cfg.TimeLimit > 0 {
		log := logger.For("lbfgsb")
		log.Warn().Msg("time limit not supported, ignoring")
	}

	return &native{problem: prob, x0: x0, maxIter: cfg.MaxIterations}, nil
}

// Invoke runs the native solve with a per-call optimizer and workspace.
func (Adapter) Invoke(converted any, _ *backend.SolverConfig) (any, error) {
	in := converted.(*native)
	opt, err := in.problem.New(nil)
	if err != nil {
		return nil, fmt.Errorf("lbfgsb: %w", err)
	}
	ws := opt.Init()
	return &rawResult{res: opt.Fit(in.x0, ws), maxIter: in.maxIter}, nil
}

// ConvertOut maps the L-BFGS-B outcome onto the canonical status set. The
// native task status type is not exported, so the discrimination uses the
// convergence flag and the iteration count.
func (Adapter) ConvertOut(raw any) (*qp.Result, error) {
	rr := raw.(*rawResult)
	res := rr.res
	out := &qp.Result{
		Solver:     backend.LBFGSB.String(),
		Iterations: res.NumIter,
	}
	switch {
	case res.OK:
		out.Status = qp.StatusOptimal
		out.X = append([]float64(nil), res.X...)
		out.Objective = res.F
	case res.NumIter >= rr.maxIter:
		out.Status = qp.StatusMaxIterations
	default:
		out.Status = qp.StatusSolverError
	}
	return out, nil
}
