package qp

// Status is the canonical solve outcome vocabulary. Each adapter owns the
// mapping table from its backend's native status codes to this set, so no
// backend-specific magic value ever leaks into a Result.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
	StatusSolverError
	StatusMaxIterations
	// StatusOptimalInfeasible marks a solution the backend reported optimal
	// but which violates a constraint beyond the validator tolerance.
	StatusOptimalInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusSolverError:
		return "solver_error"
	case StatusMaxIterations:
		return "max_iterations"
	case StatusOptimalInfeasible:
		return "optimal_but_infeasible"
	default:
		return "unknown"
	}
}

// Result is the canonical outcome of one solve call. It is created once per
// dispatch, never mutated after return, and owned by the caller.
type Result struct {
	// X is the primal solution, nil when the backend found none.
	X []float64
	// Status is the canonical solve status.
	Status Status
	// Objective is ½xᵀPx + qᵀx at X, meaningful only when X is present.
	Objective float64
	// EqDuals and IneqDuals hold the Lagrange multipliers of the equality
	// and inequality blocks when the backend exposes them.
	EqDuals   []float64
	IneqDuals []float64
	// Solver names the backend that produced this result.
	Solver string
	// Iterations is the backend-reported iteration count, 0 when unknown.
	Iterations int
}

// Found reports whether the result carries a solution vector.
func (r *Result) Found() bool { return len(r.X) > 0 }

// clone returns a deep copy; the validator annotates copies, never the
// original.
func (r *Result) clone() *Result {
	cp := *r
	cp.X = append([]float64(nil), r.X...)
	cp.EqDuals = append([]float64(nil), r.EqDuals...)
	cp.IneqDuals = append([]float64(nil), r.IneqDuals...)
	return &cp
}
