// Package backend manages the catalog of QP solver backends: which exist,
// which problem features each one supports, and which are available in the
// current process. It also defines the adapter contract every backend
// package implements and the solver options shared across backends.
package backend

import "fmt"

// ID represents a unique ID for a solver backend.
type ID uint16

const (
	// UNKNOWN doubles as the "auto" sentinel: a zero backend ID lets the
	// dispatcher pick the first available backend covering the problem.
	UNKNOWN ID = iota
	HIGHS
	SLSQP
	LBFGSB
	BFGS
)

// Implemented returns the list of backends this module ships an adapter for.
// Being implemented does not imply being available at runtime, see
// [IsAvailable].
func Implemented() []ID {
	return []ID{HIGHS, SLSQP, LBFGSB, BFGS}
}

// Priority returns the fixed order consulted by auto-selection: the native
// interior-point solver first, then the full SQP solver, then the
// bound-constrained and unconstrained quasi-Newton solvers. The order
// reflects general robustness on convex QPs and is deliberately not
// alphabetical.
func Priority() []ID {
	return []ID{HIGHS, SLSQP, LBFGSB, BFGS}
}

// String returns the string representation of a backend ID.
func (id ID) String() string {
	switch id {
	case HIGHS:
		return "highs"
	case SLSQP:
		return "slsqp"
	case LBFGSB:
		return "lbfgsb"
	case BFGS:
		return "bfgs"
	default:
		return "unknown"
	}
}

// IDFromName parses a backend name. The sentinel "auto" (and the empty
// string) map to UNKNOWN, which requests auto-selection.
func IDFromName(name string) (ID, error) {
	switch name {
	case "", "auto":
		return UNKNOWN, nil
	case "highs":
		return HIGHS, nil
	case "slsqp":
		return SLSQP, nil
	case "lbfgsb":
		return LBFGSB, nil
	case "bfgs":
		return BFGS, nil
	default:
		return UNKNOWN, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}
