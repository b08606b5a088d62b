// Package qpbridge provides a unified interface to convex Quadratic
// Programming solvers: one canonical problem form, one canonical result
// form, and interchangeable numerical backends behind it.
//
// qpbridge supports the following backends:
//   - HiGHS (native, via cgo, `highs` build tag)
//   - SLSQP (pure Go)
//   - L-BFGS-B (pure Go, bound-constrained)
//   - BFGS (pure Go, unconstrained)
//
// qpbridge never solves a QP itself: it validates the problem, picks a
// compatible backend (or uses the one requested), translates in and out of
// the backend's native form, and cross-checks the feasibility of whatever
// the backend reports.
package qpbridge
