// Package qp defines the canonical representation of a convex quadratic
// program and of its solution.
//
// A Problem minimizes ½xᵀPx + qᵀx subject to Gx ≤ h, Ax = b and
// lb ≤ x ≤ ub. It is constructed once, validated at construction, and never
// mutated; adapters and the dispatcher only see read-only views or copies.
package qp

import (
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/mat"
)

// ErrMalformed is wrapped by all construction-time validation failures.
// A malformed problem never reaches a backend.
var ErrMalformed = errors.New("malformed problem")

// Problem is an immutable convex QP.
type Problem struct {
	n int

	p *mat.Dense    // n×n objective matrix
	q *mat.VecDense // n

	g *mat.Dense    // m×n, nil when m == 0
	h *mat.VecDense // m

	a *mat.Dense    // p×n, nil when p == 0
	b *mat.VecDense // p

	lb, ub []float64
	// finite marks which bound entries are active: bit i for lb[i],
	// bit n+i for ub[i]. Nil when the problem has no bounds.
	finite *bitset.BitSet

	x0 []float64 // warm-start guess, nil when absent
}

// ProblemOption sets an optional block of the problem under construction.
type ProblemOption func(*Problem) error

// WithInequalities adds the linear inequality constraints Gx ≤ h.
func WithInequalities(G mat.Matrix, h mat.Vector) ProblemOption {
	return func(p *Problem) error {
		if G == nil || h == nil {
			return fmt.Errorf("%w: inequality block requires both G and h", ErrMalformed)
		}
		p.g = mat.DenseCopyOf(G)
		p.h = mat.VecDenseCopyOf(h)
		return nil
	}
}

// WithEqualities adds the linear equality constraints Ax = b.
func WithEqualities(A mat.Matrix, b mat.Vector) ProblemOption {
	return func(p *Problem) error {
		if A == nil || b == nil {
			return fmt.Errorf("%w: equality block requires both A and b", ErrMalformed)
		}
		p.a = mat.DenseCopyOf(A)
		p.b = mat.VecDenseCopyOf(b)
		return nil
	}
}

// WithBounds adds elementwise bounds lb ≤ x ≤ ub. Either slice may be nil,
// and ±Inf entries mark individual variables as unbounded on that side.
func WithBounds(lb, ub []float64) ProblemOption {
	return func(p *Problem) error {
		if lb == nil && ub == nil {
			return fmt.Errorf("%w: bound block requires lb or ub", ErrMalformed)
		}
		if lb != nil {
			p.lb = append([]float64(nil), lb...)
		}
		if ub != nil {
			p.ub = append([]float64(nil), ub...)
		}
		return nil
	}
}

// WithInitialGuess supplies a warm-start point forwarded to backends that
// support it; others ignore it.
func WithInitialGuess(x0 []float64) ProblemOption {
	return func(p *Problem) error {
		p.x0 = append([]float64(nil), x0...)
		return nil
	}
}

// NewProblem builds and validates a problem with objective ½xᵀPx + qᵀx.
// P does not have to be exactly symmetric; components that require symmetry
// work on (P+Pᵀ)/2, see [Problem.SymmetrizedP].
//
// Dimension inconsistencies return an error wrapping [ErrMalformed].
func NewProblem(P mat.Matrix, q mat.Vector, opts ...ProblemOption) (*Problem, error) {
	if P == nil || q == nil {
		return nil, fmt.Errorf("%w: objective requires both P and q", ErrMalformed)
	}
	r, c := P.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: P must be square, got %d×%d", ErrMalformed, r, c)
	}
	p := &Problem{
		n: r,
		p: mat.DenseCopyOf(P),
		q: mat.VecDenseCopyOf(q),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.indexBounds()
	return p, nil
}

func (p *Problem) validate() error {
	n := p.n
	if p.q.Len() != n {
		return fmt.Errorf("%w: q has length %d, want %d", ErrMalformed, p.q.Len(), n)
	}
	if p.g != nil {
		m, gc := p.g.Dims()
		if gc != n {
			return fmt.Errorf("%w: G has %d columns, want %d", ErrMalformed, gc, n)
		}
		if p.h.Len() != m {
			return fmt.Errorf("%w: h has length %d, want %d rows of G", ErrMalformed, p.h.Len(), m)
		}
	}
	if p.a != nil {
		rows, ac := p.a.Dims()
		if ac != n {
			return fmt.Errorf("%w: A has %d columns, want %d", ErrMalformed, ac, n)
		}
		if p.b.Len() != rows {
			return fmt.Errorf("%w: b has length %d, want %d rows of A", ErrMalformed, p.b.Len(), rows)
		}
	}
	if p.lb != nil && len(p.lb) != n {
		return fmt.Errorf("%w: lb has length %d, want %d", ErrMalformed, len(p.lb), n)
	}
	if p.ub != nil && len(p.ub) != n {
		return fmt.Errorf("%w: ub has length %d, want %d", ErrMalformed, len(p.ub), n)
	}
	if p.lb != nil && p.ub != nil {
		for i := range p.lb {
			if !math.IsInf(p.lb[i], -1) && !math.IsInf(p.ub[i], 1) && p.lb[i] > p.ub[i] {
				return fmt.Errorf("%w: lb[%d]=%g exceeds ub[%d]=%g", ErrMalformed, i, p.lb[i], i, p.ub[i])
			}
		}
	}
	if p.x0 != nil && len(p.x0) != n {
		return fmt.Errorf("%w: initial guess has length %d, want %d", ErrMalformed, len(p.x0), n)
	}
	return nil
}

// indexBounds records which bound entries are finite. Missing sides default
// to ±Inf so adapters only consult the mask.
func (p *Problem) indexBounds() {
	if p.lb == nil && p.ub == nil {
		return
	}
	n := p.n
	if p.lb == nil {
		p.lb = make([]float64, n)
		for i := range p.lb {
			p.lb[i] = math.Inf(-1)
		}
	}
	if p.ub == nil {
		p.ub = make([]float64, n)
		for i := range p.ub {
			p.ub[i] = math.Inf(1)
		}
	}
	p.finite = bitset.New(uint(2 * n))
	for i := 0; i < n; i++ {
		if !math.IsInf(p.lb[i], -1) {
			p.finite.Set(uint(i))
		}
		if !math.IsInf(p.ub[i], 1) {
			p.finite.Set(uint(n + i))
		}
	}
	if p.finite.Count() == 0 {
		// all entries ±Inf: equivalent to no bounds at all
		p.lb, p.ub, p.finite = nil, nil, nil
	}
}

// N returns the number of decision variables.
func (p *Problem) N() int { return p.n }

// P returns a read-only view of the objective matrix.
func (p *Problem) P() mat.Matrix { return p.p }

// Q returns a read-only view of the linear objective term.
func (p *Problem) Q() mat.Vector { return p.q }

// NumInequalities returns the number of rows of G.
func (p *Problem) NumInequalities() int {
	if p.g == nil {
		return 0
	}
	m, _ := p.g.Dims()
	return m
}

// NumEqualities returns the number of rows of A.
func (p *Problem) NumEqualities() int {
	if p.a == nil {
		return 0
	}
	m, _ := p.a.Dims()
	return m
}

func (p *Problem) HasInequalities() bool { return p.g != nil }
func (p *Problem) HasEqualities() bool   { return p.a != nil }
func (p *Problem) HasBounds() bool       { return p.finite != nil }
func (p *Problem) HasInitialGuess() bool { return p.x0 != nil }

// Inequalities returns read-only views of G and h, or ok=false when the
// problem has no inequality block.
func (p *Problem) Inequalities() (G mat.Matrix, h mat.Vector, ok bool) {
	if p.g == nil {
		return nil, nil, false
	}
	return p.g, p.h, true
}

// Equalities returns read-only views of A and b, or ok=false when the
// problem has no equality block.
func (p *Problem) Equalities() (A mat.Matrix, b mat.Vector, ok bool) {
	if p.a == nil {
		return nil, nil, false
	}
	return p.a, p.b, true
}

// Bounds returns copies of lb and ub with ±Inf on unbounded sides, or
// ok=false when the problem has no finite bound at all.
func (p *Problem) Bounds() (lb, ub []float64, ok bool) {
	if p.finite == nil {
		return nil, nil, false
	}
	return append([]float64(nil), p.lb...), append([]float64(nil), p.ub...), true
}

// FiniteLower reports whether variable i has a finite lower bound.
func (p *Problem) FiniteLower(i int) bool {
	return p.finite != nil && p.finite.Test(uint(i))
}

// FiniteUpper reports whether variable i has a finite upper bound.
func (p *Problem) FiniteUpper(i int) bool {
	return p.finite != nil && p.finite.Test(uint(p.n+i))
}

// InitialGuess returns a copy of the warm-start point, or ok=false.
func (p *Problem) InitialGuess() (x0 []float64, ok bool) {
	if p.x0 == nil {
		return nil, false
	}
	return append([]float64(nil), p.x0...), true
}

// Objective evaluates ½xᵀPx + qᵀx.
func (p *Problem) Objective(x []float64) float64 {
	var quad, lin float64
	for i := 0; i < p.n; i++ {
		var row float64
		for j := 0; j < p.n; j++ {
			row += p.p.At(i, j) * x[j]
		}
		quad += x[i] * row
		lin += p.q.AtVec(i) * x[i]
	}
	return 0.5*quad + lin
}

// Gradient writes ∇(½xᵀPx + qᵀx) = ½(P+Pᵀ)x + q into dst.
// The symmetrized form is exact when P is symmetric and is the documented
// deterministic interpretation otherwise.
func (p *Problem) Gradient(x, dst []float64) {
	for i := 0; i < p.n; i++ {
		g := p.q.AtVec(i)
		for j := 0; j < p.n; j++ {
			g += 0.5 * (p.p.At(i, j) + p.p.At(j, i)) * x[j]
		}
		dst[i] = g
	}
}

// SymmetrizedP returns (P+Pᵀ)/2 as a fresh matrix. The transformation is
// idempotent: a symmetric P round-trips unchanged.
func (p *Problem) SymmetrizedP() *mat.Dense {
	s := mat.NewDense(p.n, p.n, nil)
	for i := 0; i < p.n; i++ {
		for j := 0; j < p.n; j++ {
			s.Set(i, j, 0.5*(p.p.At(i, j)+p.p.At(j, i)))
		}
	}
	return s
}

// Symmetrized returns a problem identical to p but with the objective
// matrix replaced by (P+Pᵀ)/2. Constraint blocks are shared, which is safe
// because problems are never mutated after construction. Symmetrizing does
// not change the objective value at any point; it only changes the matrix
// handed to backends that interpret an asymmetric P literally.
func (p *Problem) Symmetrized() *Problem {
	s := *p
	s.p = p.SymmetrizedP()
	return &s
}

// Residuals holds the worst-case constraint violations of a candidate point.
type Residuals struct {
	Equality   float64 // max |Ax−b|
	Inequality float64 // max(0, Gx−h)
	Bound      float64 // max bound violation over finite entries
}

// Max returns the largest of the three violations.
func (r Residuals) Max() float64 {
	return math.Max(r.Equality, math.Max(r.Inequality, r.Bound))
}

// Residuals computes the constraint violations of x. It is the measurement
// half of the post-solve validator and has no side effects.
func (p *Problem) Residuals(x []float64) Residuals {
	var res Residuals
	if p.a != nil {
		rows, _ := p.a.Dims()
		for i := 0; i < rows; i++ {
			var ax float64
			for j := 0; j < p.n; j++ {
				ax += p.a.At(i, j) * x[j]
			}
			res.Equality = math.Max(res.Equality, math.Abs(ax-p.b.AtVec(i)))
		}
	}
	if p.g != nil {
		rows, _ := p.g.Dims()
		for i := 0; i < rows; i++ {
			var gx float64
			for j := 0; j < p.n; j++ {
				gx += p.g.At(i, j) * x[j]
			}
			res.Inequality = math.Max(res.Inequality, gx-p.h.AtVec(i))
		}
		res.Inequality = math.Max(res.Inequality, 0)
	}
	if p.finite != nil {
		for i := 0; i < p.n; i++ {
			if p.FiniteLower(i) {
				res.Bound = math.Max(res.Bound, p.lb[i]-x[i])
			}
			if p.FiniteUpper(i) {
				res.Bound = math.Max(res.Bound, x[i]-p.ub[i])
			}
		}
		res.Bound = math.Max(res.Bound, 0)
	}
	return res
}
