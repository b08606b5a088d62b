package qpbridge

import (
	"fmt"
	"sync"
	"time"

	"github.com/convexlab/qpbridge/backend"
	"github.com/convexlab/qpbridge/logger"
	"github.com/convexlab/qpbridge/qp"

	// adapter registration
	_ "github.com/convexlab/qpbridge/backend/bfgs"
	_ "github.com/convexlab/qpbridge/backend/highs"
	_ "github.com/convexlab/qpbridge/backend/lbfgsb"
	_ "github.com/convexlab/qpbridge/backend/slsqp"
)

// Solve dispatches the problem to a QP backend and returns the normalized
// result.
//
// Without [backend.WithBackend] the dispatcher walks the fixed priority
// order (see [backend.Priority]) and picks the first available backend
// whose capabilities cover the problem's active features. Selection-time
// problems surface as errors: [backend.ErrUnknownBackend],
// [backend.ErrBackendUnavailable], [backend.ErrUnsupportedFeature] and
// [backend.ErrNoCompatibleBackend]. Once a backend has been dispatched,
// nothing it does can fail the call: conversion errors, native errors and
// panics all come back as a Result with status solver_error.
//
// Unless disabled with [backend.WithoutValidation], a reported solution is
// re-checked against the constraints and an optimistic backend status is
// downgraded to optimal_but_infeasible.
func Solve(p *qp.Problem, opts ...backend.SolverOption) (*qp.Result, error) {
	cfg, err := backend.NewSolverConfig(opts...)
	if err != nil {
		return nil, err
	}
	desc, err := selectBackend(p, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.SymmetricProj {
		p = p.Symmetrized()
	}
	res := dispatch(p, desc, &cfg)

	if cfg.Validate && res.Found() {
		validated, report := qp.Validate(p, res, cfg.Tolerance)
		if !report.Feasible {
			log := logger.Logger()
			log.Warn().
				Str("backend", desc.ID.String()).
				Float64("violation", report.Residuals.Max()).
				Float64("tolerance", report.Tolerance).
				Msg("backend solution violates constraints")
		}
		res = validated
	}
	return res, nil
}

// Available returns the backends usable in this process, in priority order.
func Available() []backend.ID { return backend.Available() }

// selectBackend validates the request: explicit backends must exist, be
// available and cover the problem's features; auto-selection walks the
// priority order and must find at least one candidate.
func selectBackend(p *qp.Problem, cfg *backend.SolverConfig) (backend.Descriptor, error) {
	required := backend.FeaturesOf(p)

	if cfg.Backend != backend.UNKNOWN {
		desc, err := backend.Describe(cfg.Backend)
		if err != nil {
			return backend.Descriptor{}, err
		}
		if err := backend.IsAvailable(cfg.Backend); err != nil {
			return backend.Descriptor{}, err
		}
		if !desc.Features.Covers(required) {
			return backend.Descriptor{}, fmt.Errorf("%w: %s does not support %s",
				backend.ErrUnsupportedFeature, desc.ID, required&^desc.Features)
		}
		return desc, nil
	}

	return firstCovering(required, backend.Available())
}

// firstCovering picks the first candidate whose capabilities cover the
// required features. Candidates come in priority order from Available.
func firstCovering(required backend.Feature, candidates []backend.ID) (backend.Descriptor, error) {
	for _, id := range candidates {
		desc, err := backend.Describe(id)
		if err != nil {
			continue
		}
		if desc.Features.Covers(required) {
			log := logger.Logger()
			log.Debug().Str("backend", id.String()).Msg("auto-selected backend")
			return desc, nil
		}
	}
	return backend.Descriptor{}, fmt.Errorf("%w: problem uses %s", backend.ErrNoCompatibleBackend, required)
}

// dispatch runs the convert-in → invoke → convert-out pipeline. It never
// returns an error: every failure past this point, panics from native code
// included, becomes a Result with status solver_error so one misbehaving
// backend cannot crash a caller that may retry with another.
func dispatch(p *qp.Problem, desc backend.Descriptor, cfg *backend.SolverConfig) (res *qp.Result) {
	log := logger.Logger()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("backend", desc.ID.String()).Interface("panic", r).Msg("backend panicked")
			res = &qp.Result{Status: qp.StatusSolverError, Solver: desc.ID.String()}
		}
	}()

	failed := func(stage string, err error) *qp.Result {
		log.Error().Str("backend", desc.ID.String()).Str("stage", stage).Err(err).Msg("solve failed")
		return &qp.Result{Status: qp.StatusSolverError, Solver: desc.ID.String()}
	}

	adapter := desc.New()
	converted, err := adapter.ConvertIn(p, cfg)
	if err != nil {
		return failed("convert_in", err)
	}

	raw, err := invoke(adapter, desc, converted, cfg)
	if err != nil {
		return failed("invoke", err)
	}

	out, err := adapter.ConvertOut(raw)
	if err != nil {
		return failed("convert_out", err)
	}

	log.Debug().
		Str("backend", desc.ID.String()).
		Str("status", out.Status.String()).
		Dur("took", time.Since(start)).
		Msg("solve completed")
	return out
}

// invokeLocks serializes calls into backends whose native library is not
// reentrant. The lock is held only around the invoke step and released on
// every exit path, panics included.
var (
	invokeLocks  = make(map[backend.ID]*sync.Mutex)
	invokeLocksM sync.Mutex
)

func invoke(adapter backend.Adapter, desc backend.Descriptor, converted any, cfg *backend.SolverConfig) (any, error) {
	if desc.Reentrant {
		return adapter.Invoke(converted, cfg)
	}
	mu := lockFor(desc.ID)
	mu.Lock()
	defer mu.Unlock()
	return adapter.Invoke(converted, cfg)
}

func lockFor(id backend.ID) *sync.Mutex {
	invokeLocksM.Lock()
	defer invokeLocksM.Unlock()
	mu, ok := invokeLocks[id]
	if !ok {
		mu = new(sync.Mutex)
		invokeLocks[id] = mu
	}
	return mu
}
