// Package bfgs adapts gonum's BFGS quasi-Newton method as an unconstrained
// backend. On a convex QP the method reduces to a handful of Newton-like
// steps, which makes it a dependable fallback when no constraint is active.
package bfgs

import (
	"fmt"

	"github.com/blang/semver/v4"
	"gonum.org/v1/gonum/optimize"

	"github.com/convexlab/qpbridge/backend"
	"github.com/convexlab/qpbridge/logger"
	"github.com/convexlab/qpbridge/qp"
)

func init() {
	backend.MustRegister(backend.Descriptor{
		ID:        backend.BFGS,
		Version:   semver.MustParse("0.16.0"),
		Features:  backend.FeatureWarmStart,
		Reentrant: true,
		New:       func() backend.Adapter { return Adapter{} },
	})
}

// Adapter implements the convert/invoke/convert pipeline for gonum BFGS.
type Adapter struct{}

type native struct {
	problem  optimize.Problem
	settings *optimize.Settings
	x0       []float64
}

// ConvertIn maps the canonical problem onto a gonum optimize.Problem.
// Any constraint block fails defensively with ErrUnsupportedFeature.
func (Adapter) ConvertIn(p *qp.Problem, cfg *backend.SolverConfig) (any, error) {
	if required := backend.FeaturesOf(p); required != 0 {
		return nil, fmt.Errorf("%w: bfgs is unconstrained only, problem uses %s", backend.ErrUnsupportedFeature, required)
	}
	for key := range cfg.Extra {
		return nil, fmt.Errorf("bfgs: unrecognized option %q", key)
	}

	prob := optimize.Problem{
		Func: p.Objective,
		Grad: func(grad, x []float64) { p.Gradient(x, grad) },
	}
	settings := &optimize.Settings{
		MajorIterations:   cfg.MaxIterations,
		GradientThreshold: cfg.Accuracy,
	}
	if cfg.TimeLimit > 0 {
		settings.Runtime = cfg.TimeLimit
	}
	if cfg.Verbose {
		log := logger.For("bfgs")
		log.Debug().Int("n", p.N()).Msg("converted unconstrained problem")
	}

	x0 := make([]float64, p.N())
	if guess, ok := p.InitialGuess(); ok {
		copy(x0, guess)
	}
	return &native{problem: prob, settings: settings, x0: x0}, nil
}

// Invoke runs optimize.Minimize. Method failures surface through the result
// status rather than the error so ConvertOut owns the full mapping table.
func (Adapter) Invoke(converted any, _ *backend.SolverConfig) (any, error) {
	in := converted.(*native)
	res, err := optimize.Minimize(in.problem, in.x0, in.settings, &optimize.BFGS{})
	if res == nil {
		return nil, fmt.Errorf("bfgs: %w", err)
	}
	return res, nil
}

// ConvertOut maps gonum's termination status onto the canonical set.
func (Adapter) ConvertOut(raw any) (*qp.Result, error) {
	res := raw.(*optimize.Result)
	out := &qp.Result{
		Solver:     backend.BFGS.String(),
		Iterations: res.Stats.MajorIterations,
	}
	switch res.Status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence,
		optimize.StepConvergence, optimize.MethodConverge:
		out.Status = qp.StatusOptimal
		out.X = append([]float64(nil), res.X...)
		out.Objective = res.F
	case optimize.IterationLimit, optimize.RuntimeLimit, optimize.FunctionEvaluationLimit:
		out.Status = qp.StatusMaxIterations
	case optimize.FunctionNegativeInfinity:
		out.Status = qp.StatusUnbounded
	default:
		out.Status = qp.StatusSolverError
	}
	return out, nil
}
