package backend

import (
	"fmt"
	"time"

	"github.com/convexlab/qpbridge/qp"
)

// SolverOption defines an option for altering the behavior of a solve call.
// See the descriptions of functions returning instances of this type for
// implemented options.
type SolverOption func(*SolverConfig) error

// SolverConfig is the configuration of a solve call with the options
// applied. The recognized keys of Extra are backend-specific and validated
// by each adapter, not centrally.
type SolverConfig struct {
	Backend       ID
	MaxIterations int
	Accuracy      float64
	TimeLimit     time.Duration
	Validate      bool
	Tolerance     float64
	SymmetricProj bool
	Verbose       bool
	Extra         map[string]any
}

// NewSolverConfig returns a default SolverConfig with the given options
// applied. Defaults: auto backend selection, 1000 iterations, 1e-9 accuracy,
// post-solve validation at [qp.DefaultTolerance].
func NewSolverConfig(opts ...SolverOption) (SolverConfig, error) {
	cfg := SolverConfig{
		Backend:       UNKNOWN,
		MaxIterations: 1000,
		Accuracy:      1e-9,
		Validate:      true,
		Tolerance:     qp.DefaultTolerance,
		Extra:         make(map[string]any),
	}
	for _, option := range opts {
		if err := option(&cfg); err != nil {
			return SolverConfig{}, err
		}
	}
	return cfg, nil
}

// WithBackend pins the solve to one backend instead of auto-selection.
func WithBackend(id ID) SolverOption {
	return func(cfg *SolverConfig) error {
		cfg.Backend = id
		return nil
	}
}

// WithBackendName is WithBackend for a textual name; "auto" requests
// auto-selection.
func WithBackendName(name string) SolverOption {
	return func(cfg *SolverConfig) error {
		id, err := IDFromName(name)
		if err != nil {
			return err
		}
		cfg.Backend = id
		return nil
	}
}

// WithMaxIterations bounds the backend's iteration count.
func WithMaxIterations(n int) SolverOption {
	return func(cfg *SolverConfig) error {
		if n <= 0 {
			return fmt.Errorf("max iterations must be positive, got %d", n)
		}
		cfg.MaxIterations = n
		return nil
	}
}

// WithAccuracy sets the convergence accuracy requested from the backend.
func WithAccuracy(eps float64) SolverOption {
	return func(cfg *SolverConfig) error {
		if eps <= 0 {
			return fmt.Errorf("accuracy must be positive, got %g", eps)
		}
		cfg.Accuracy = eps
		return nil
	}
}

// WithTimeLimit forwards a wall-clock limit to backends that support one;
// others ignore it with a logged warning. The dispatcher itself imposes no
// timeout.
func WithTimeLimit(d time.Duration) SolverOption {
	return func(cfg *SolverConfig) error {
		if d <= 0 {
			return fmt.Errorf("time limit must be positive, got %s", d)
		}
		cfg.TimeLimit = d
		return nil
	}
}

// WithValidation enables the post-solve feasibility check with an absolute
// tolerance. Validation is on by default at [qp.DefaultTolerance].
func WithValidation(tol float64) SolverOption {
	return func(cfg *SolverConfig) error {
		if tol <= 0 {
			return fmt.Errorf("validation tolerance must be positive, got %g", tol)
		}
		cfg.Validate = true
		cfg.Tolerance = tol
		return nil
	}
}

// WithoutValidation skips the post-solve feasibility check, trusting the
// backend status as reported.
func WithoutValidation() SolverOption {
	return func(cfg *SolverConfig) error {
		cfg.Validate = false
		return nil
	}
}

// WithSymmetricProjection replaces P by (P+Pᵀ)/2 before the problem
// reaches the backend. The projection is deterministic and idempotent.
func WithSymmetricProjection() SolverOption {
	return func(cfg *SolverConfig) error {
		cfg.SymmetricProj = true
		return nil
	}
}

// WithVerboseOutput enables the backend's own progress output where the
// native library has one.
func WithVerboseOutput() SolverOption {
	return func(cfg *SolverConfig) error {
		cfg.Verbose = true
		return nil
	}
}

// WithBackendOption forwards a backend-specific option. Keys are validated
// by the selected adapter; an unrecognized key fails the conversion step.
func WithBackendOption(key string, value any) SolverOption {
	return func(cfg *SolverConfig) error {
		cfg.Extra[key] = value
		return nil
	}
}
