//go:build highs && (linux || darwin) && (amd64 || arm64)

// Package highs adapts the HiGHS native solver through the
// github.com/bartolsthoorn/gohighs cgo binding. It is the only sparse
// backend and the only one returning dual variables. The adapter is gated
// behind the `highs` build tag; without it a stub descriptor keeps the
// backend visible but unavailable.
package highs

import (
	"fmt"
	"math"

	gohighs "github.com/bartolsthoorn/gohighs/highs"
	"github.com/blang/semver/v4"
	"gonum.org/v1/gonum/mat"

	"github.com/convexlab/qpbridge/backend"
	"github.com/convexlab/qpbridge/logger"
	"github.com/convexlab/qpbridge/qp"
)

func init() {
	backend.MustRegister(backend.Descriptor{
		ID:      backend.HIGHS,
		Version: semver.MustParse("0.2.0"),
		Features: backend.FeatureInequality | backend.FeatureEquality |
			backend.FeatureBounds | backend.FeatureSparse,
		// the binding installs process-global callbacks around a solve
		Reentrant: false,
		New:       func() backend.Adapter { return Adapter{} },
	})
}

// Adapter implements the convert/invoke/convert pipeline for HiGHS.
type Adapter struct{}

type native struct {
	model *gohighs.Model
	opts  []gohighs.SolveOption
	mineq int
	meq   int
}

// ConvertIn maps the canonical problem onto a HiGHS model. The quadratic
// term always goes through (P+Pᵀ)/2 since HiGHS stores the Hessian as an
// upper triangle; the projection preserves the quadratic form exactly and
// is the identity for symmetric P. Nonzero extraction keeps values bitwise
// intact.
func (Adapter) ConvertIn(p *qp.Problem, cfg *backend.SolverConfig) (any, error) {
	if required := backend.FeaturesOf(p); !(backend.FeatureInequality | backend.FeatureEquality | backend.FeatureBounds).Covers(required) {
		return nil, fmt.Errorf("%w: highs cannot handle %s", backend.ErrUnsupportedFeature, required)
	}

	n := p.N()
	model := &gohighs.Model{ColCosts: vecSlice(p, n)}

	s := p.SymmetrizedP()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if v := s.At(i, j); v != 0 {
				model.Hessian = append(model.Hessian, gohighs.Nonzero{Row: i, Col: j, Val: v})
			}
		}
	}

	if lb, ub, ok := p.Bounds(); ok {
		model.ColLower = lb
		model.ColUpper = ub
	} else {
		model.ColLower = constSlice(n, math.Inf(-1))
		model.ColUpper = constSlice(n, math.Inf(1))
	}

	var mineq, meq int
	if G, h, ok := p.Inequalities(); ok {
		mineq = p.NumInequalities()
		for i := 0; i < mineq; i++ {
			model.AddLeRow(rowSlice(G, i, n), h.AtVec(i))
		}
	}
	if A, b, ok := p.Equalities(); ok {
		meq = p.NumEqualities()
		for i := 0; i < meq; i++ {
			model.AddEqRow(rowSlice(A, i, n), b.AtVec(i))
		}
	}

	if p.HasInitialGuess() {
		log := logger.For("highs")
		log.Warn().Msg("warm start not supported, ignoring initial guess")
	}

	opts := []gohighs.SolveOption{gohighs.WithOutput(cfg.Verbose)}
	if cfg.TimeLimit > 0 {
		opts = append(opts, gohighs.WithTimeLimit(cfg.TimeLimit.Seconds()))
	}
	for key, value := range cfg.Extra {
		switch key {
		case "presolve":
			mode, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("highs: option %q wants a string, got %T", key, value)
			}
			opts = append(opts, gohighs.WithPresolve(mode))
		case "threads":
			threads, ok := value.(int)
			if !ok {
				return nil, fmt.Errorf("highs: option %q wants an int, got %T", key, value)
			}
			opts = append(opts, gohighs.WithThreads(threads))
		default:
			return nil, fmt.Errorf("highs: unrecognized option %q", key)
		}
	}

	return &native{model: model, opts: opts, mineq: mineq, meq: meq}, nil
}

// Invoke calls the native solve entry point.
func (Adapter) Invoke(converted any, _ *backend.SolverConfig) (any, error) {
	in := converted.(*native)
	sol, err := in.model.Solve(in.opts...)
	if err != nil {
		return nil, fmt.Errorf("highs: %w", err)
	}
	return &rawResult{sol: sol, mineq: in.mineq, meq: in.meq}, nil
}

type rawResult struct {
	sol   *gohighs.Solution
	mineq int
	meq   int
}

// ConvertOut maps the HiGHS model status onto the canonical set and splits
// the row duals back into inequality and equality blocks.
func (Adapter) ConvertOut(raw any) (*qp.Result, error) {
	rr := raw.(*rawResult)
	sol := rr.sol
	out := &qp.Result{Solver: backend.HIGHS.String()}
	switch sol.Status {
	case gohighs.ModelStatusOptimal:
		out.Status = qp.StatusOptimal
		out.X = append([]float64(nil), sol.ColValues...)
		out.Objective = sol.Objective
		if len(sol.RowDuals) == rr.mineq+rr.meq {
			out.IneqDuals = append([]float64(nil), sol.RowDuals[:rr.mineq]...)
			out.EqDuals = append([]float64(nil), sol.RowDuals[rr.mineq:]...)
		}
	case gohighs.ModelStatusInfeasible, gohighs.ModelStatusUnboundedOrInfeasible:
		out.Status = qp.StatusInfeasible
	case gohighs.ModelStatusUnbounded:
		out.Status = qp.StatusUnbounded
	case gohighs.ModelStatusIterationLimit, gohighs.ModelStatusTimeLimit:
		out.Status = qp.StatusMaxIterations
	default:
		out.Status = qp.StatusSolverError
	}
	return out, nil
}

func vecSlice(p *qp.Problem, n int) []float64 {
	q := p.Q()
	out := make([]float64, n)
	for i := range out {
		out[i] = q.AtVec(i)
	}
	return out
}

func rowSlice(m mat.Matrix, row, n int) []float64 {
	out := make([]float64, n)
	for j := range out {
		out[j] = m.At(row, j)
	}
	return out
}

func constSlice(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
