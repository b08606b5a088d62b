// Package slsqp adapts the pure-Go SLSQP solver from
// github.com/curioloop/optimizer to the canonical problem model. It is the
// most general backend: equality and inequality constraints, bounds and
// warm start, on dense problems.
package slsqp

import (
	"fmt"
	"math"

	"github.com/blang/semver/v4"
	solver "github.com/curioloop/optimizer/slsqp"
	"gonum.org/v1/gonum/mat"

	"github.com/convexlab/qpbridge/backend"
	"github.com/convexlab/qpbridge/logger"
	"github.com/convexlab/qpbridge/qp"
)

func init() {
	backend.MustRegister(backend.Descriptor{
		ID:      backend.SLSQP,
		Version: semver.MustParse("1.0.1"),
		Features: backend.FeatureInequality | backend.FeatureEquality |
			backend.FeatureBounds | backend.FeatureWarmStart,
		Reentrant: true, // one optimizer and workspace per call
		New:       func() backend.Adapter { return Adapter{} },
	})
}

// Adapter implements the convert/invoke/convert pipeline for SLSQP.
type Adapter struct{}

// native is the converted form handed from ConvertIn to Invoke.
type native struct {
	problem *solver.Problem
	x0      []float64
	maxIter int
}

// ConvertIn maps the canonical problem onto an SLSQP problem: the quadratic
// objective and each linear constraint row become function/derivative
// closures, with the SLSQP sign conventions c(x) = 0 for equalities and
// c(x) ≥ 0 for inequalities.
func (Adapter) ConvertIn(p *qp.Problem, cfg *backend.SolverConfig) (any, error) {
	if required := backend.FeaturesOf(p); !desc().Features.Covers(required) {
		return nil, fmt.Errorf("%w: slsqp cannot handle %s", backend.ErrUnsupportedFeature, required)
	}

	n := p.N()
	prob := &solver.Problem{
		N: n,
		Stop: solver.Termination{
			Accuracy:      cfg.Accuracy,
			MaxIterations: cfg.MaxIterations,
		},
		Object: func(x, g []float64) float64 {
			if g != nil {
				p.Gradient(x, g)
			}
			return p.Objective(x)
		},
	}

	for key, value := range cfg.Extra {
		switch key {
		case "nnls_iterations":
			iters, ok := value.(int)
			if !ok {
				return nil, fmt.Errorf("slsqp: option %q wants an int, got %T", key, value)
			}
			prob.Stop.NNLSIterations = iters
		case "exact_linesearch":
			exact, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("slsqp: option %q wants a bool, got %T", key, value)
			}
			prob.Line.Exact = exact
		default:
			return nil, fmt.Errorf("slsqp: unrecognized option %q", key)
		}
	}

	if A, b, ok := p.Equalities(); ok {
		rows := p.NumEqualities()
		for i := 0; i < rows; i++ {
			prob.EqCons = append(prob.EqCons, linearConstraint(A, n, i, b.AtVec(i), 1))
		}
	}
	if G, h, ok := p.Inequalities(); ok {
		rows := p.NumInequalities()
		for i := 0; i < rows; i++ {
			// Gx ≤ h expressed as h − Gx ≥ 0
			prob.NeqCons = append(prob.NeqCons, linearConstraint(G, n, i, h.AtVec(i), -1))
		}
	}
	if lb, ub, ok := p.Bounds(); ok {
		bounds := make([]solver.Bound, n)
		for i := range bounds {
			bounds[i] = solver.Bound{Lower: lb[i], Upper: ub[i]}
		}
		prob.Bounds = bounds
	}

	x0 := make([]float64, n)
	if guess, ok := p.InitialGuess(); ok {
		copy(x0, guess)
	}
	if cfg.TimeLimit > 0 {
		log := logger.For("slsqp")
		log.Warn().Msg("time limit not supported, ignoring")
	}

	return &native{problem: prob, x0: x0, maxIter: cfg.MaxIterations}, nil
}

// linearConstraint builds the evaluation closure for one row of a linear
// constraint block: sign=+1 yields rᵢ·x − rhs, sign=−1 yields rhs − rᵢ·x.
// A nil gradient slice requests the value only.
func linearConstraint(m mat.Matrix, n, row int, rhs, sign float64) solver.Evaluation {
	return func(x, g []float64) float64 {
		if g != nil {
			for j := 0; j < n; j++ {
				g[j] = sign * m.At(row, j)
			}
		}
		var dot float64
		for j := 0; j < n; j++ {
			dot += m.At(row, j) * x[j]
		}
		return sign * (dot - rhs)
	}
}

// Invoke runs the native solve. A fresh optimizer and workspace are created
// per call, so concurrent solves never share state.
func (Adapter) Invoke(converted any, _ *backend.SolverConfig) (any, error) {
	in := converted.(*native)
	opt, err := in.problem.New()
	if err != nil {
		return nil, fmt.Errorf("slsqp: %w", err)
	}
	ws := opt.Init()
	return opt.Fit(in.x0, ws), nil
}

// ConvertOut maps the SLSQP termination mode onto the canonical status set.
func (Adapter) ConvertOut(raw any) (*qp.Result, error) {
	res := raw.(*solver.Result)
	out := &qp.Result{
		Solver:     backend.SLSQP.String(),
		Iterations: res.NumIter,
	}
	switch res.Status {
	case solver.OK, solver.HasSolution:
		out.Status = qp.StatusOptimal
		out.X = sanitize(res.X)
		out.Objective = res.F
	case solver.ConsIncompatible:
		out.Status = qp.StatusInfeasible
	case solver.SQPExceedMaxIter, solver.NNLSExceedMaxIter:
		out.Status = qp.StatusMaxIterations
	default:
		// BadArgument, singular subproblems, failed line-search
		out.Status = qp.StatusSolverError
	}
	return out, nil
}

func sanitize(x []float64) []float64 {
	for _, v := range x {
		if math.IsNaN(v) {
			return nil
		}
	}
	return append([]float64(nil), x...)
}

func desc() backend.Descriptor {
	d, _ := backend.Describe(backend.SLSQP)
	return d
}
