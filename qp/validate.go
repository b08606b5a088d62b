package qp

// DefaultTolerance is the absolute feasibility tolerance used by the
// post-solve validator when none is configured.
const DefaultTolerance = 1e-6

// Report is the outcome of a feasibility check of a Result against its
// Problem.
type Report struct {
	Residuals Residuals
	Tolerance float64
	Feasible  bool
}

// Validate checks the solution of res against the constraints of p with an
// absolute tolerance tol (DefaultTolerance when tol <= 0). It is pure: res
// is never mutated. The returned result is a copy whose status is downgraded
// from optimal to optimal_but_infeasible when a violation exceeds the
// tolerance, guarding against backends that misreport convergence.
//
// Results without a solution vector pass through unchanged.
func Validate(p *Problem, res *Result, tol float64) (*Result, Report) {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	rep := Report{Tolerance: tol, Feasible: true}
	if !res.Found() {
		return res.clone(), rep
	}
	rep.Residuals = p.Residuals(res.X)
	rep.Feasible = rep.Residuals.Max() <= tol

	out := res.clone()
	if !rep.Feasible && out.Status == StatusOptimal {
		out.Status = StatusOptimalInfeasible
	}
	return out, rep
}
