package qpbridge

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/convexlab/qpbridge/backend"
	"github.com/convexlab/qpbridge/qp"
)

// slackRegularization keeps the slack block of the relaxed objective
// strictly convex.
const slackRegularization = 1e-8

// SolveSafer solves p with the inequality constraints softened through
// rewarded slack variables: one slack sᵢ per row of G, the constraints
// rewritten as Gx + s = h with s ≥ 0, and the objective extended by
// −sr·Σsᵢ plus a small quadratic regularization of s. A positive slack
// reward sr pushes the solution strictly inside the inequality region, at
// the price of a slightly different optimum than Solve would return.
//
// The relaxed problem dispatches through [Solve], so every option accepted
// there is accepted here. The returned result is expressed in terms of p:
// the solution is truncated to the original variables and the objective
// re-evaluated on p.
func SolveSafer(p *qp.Problem, sr float64, opts ...backend.SolverOption) (*qp.Result, error) {
	if sr <= 0 {
		return nil, fmt.Errorf("%w: slack reward must be positive, got %g", qp.ErrMalformed, sr)
	}
	if !p.HasInequalities() {
		return nil, fmt.Errorf("%w: safer solve requires inequality constraints", qp.ErrMalformed)
	}

	relaxed, err := relaxInequalities(p, sr)
	if err != nil {
		return nil, err
	}
	res, err := Solve(relaxed, opts...)
	if err != nil {
		return nil, err
	}
	return projectRelaxed(p, res), nil
}

// relaxInequalities builds the slack-augmented problem over [x; s].
func relaxInequalities(p *qp.Problem, sr float64) (*qp.Problem, error) {
	n := p.N()
	m := p.NumInequalities()
	G, h, _ := p.Inequalities()
	nm := n + m

	P2 := mat.NewDense(nm, nm, nil)
	q2 := mat.NewVecDense(nm, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			P2.Set(i, j, p.P().At(i, j))
		}
		q2.SetVec(i, p.Q().AtVec(i))
	}
	for i := 0; i < m; i++ {
		P2.Set(n+i, n+i, slackRegularization)
		q2.SetVec(n+i, -sr)
	}

	// Gx + s = h stacked above the original equality rows
	meq := p.NumEqualities()
	A2 := mat.NewDense(m+meq, nm, nil)
	b2 := mat.NewVecDense(m+meq, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			A2.Set(i, j, G.At(i, j))
		}
		A2.Set(i, n+i, 1)
		b2.SetVec(i, h.AtVec(i))
	}
	if A, b, ok := p.Equalities(); ok {
		for i := 0; i < meq; i++ {
			for j := 0; j < n; j++ {
				A2.Set(m+i, j, A.At(i, j))
			}
			b2.SetVec(m+i, b.AtVec(i))
		}
	}

	// s ≥ 0 joins whatever bounds p puts on x
	lb2 := make([]float64, nm)
	ub2 := make([]float64, nm)
	for i := 0; i < n; i++ {
		lb2[i], ub2[i] = math.Inf(-1), math.Inf(1)
	}
	if lb, ub, ok := p.Bounds(); ok {
		copy(lb2, lb)
		copy(ub2, ub)
	}
	for i := 0; i < m; i++ {
		lb2[n+i], ub2[n+i] = 0, math.Inf(1)
	}

	relaxOpts := []qp.ProblemOption{
		qp.WithEqualities(A2, b2),
		qp.WithBounds(lb2, ub2),
	}
	if x0, ok := p.InitialGuess(); ok {
		z0 := make([]float64, nm)
		copy(z0, x0)
		for i := 0; i < m; i++ {
			var gx float64
			for j := 0; j < n; j++ {
				gx += G.At(i, j) * x0[j]
			}
			z0[n+i] = math.Max(0, h.AtVec(i)-gx)
		}
		relaxOpts = append(relaxOpts, qp.WithInitialGuess(z0))
	}
	return qp.NewProblem(P2, q2, relaxOpts...)
}

// projectRelaxed maps a result of the relaxed problem back onto p: the
// slack entries are dropped, the objective re-evaluated without the slack
// terms, and the duals of the Gx + s = h rows become the inequality duals.
func projectRelaxed(p *qp.Problem, res *qp.Result) *qp.Result {
	out := &qp.Result{
		Status:     res.Status,
		Solver:     res.Solver,
		Iterations: res.Iterations,
	}
	if !res.Found() {
		return out
	}
	n := p.N()
	m := p.NumInequalities()
	out.X = append([]float64(nil), res.X[:n]...)
	out.Objective = p.Objective(out.X)
	if len(res.EqDuals) == m+p.NumEqualities() {
		out.IneqDuals = append([]float64(nil), res.EqDuals[:m]...)
		out.EqDuals = append([]float64(nil), res.EqDuals[m:]...)
	}
	return out
}
