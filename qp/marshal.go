package qp

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"gonum.org/v1/gonum/mat"
)

// serializedProblem is the wire form of a Problem. Matrices are row-major.
type serializedProblem struct {
	N  int       `cbor:"n"`
	P  []float64 `cbor:"p"`
	Q  []float64 `cbor:"q"`
	M  int       `cbor:"m,omitempty"`
	G  []float64 `cbor:"g,omitempty"`
	H  []float64 `cbor:"h,omitempty"`
	Me int       `cbor:"me,omitempty"`
	A  []float64 `cbor:"a,omitempty"`
	B  []float64 `cbor:"b,omitempty"`
	Lb []float64 `cbor:"lb,omitempty"`
	Ub []float64 `cbor:"ub,omitempty"`
	X0 []float64 `cbor:"x0,omitempty"`
}

func flatten(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

func flattenVec(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// ToBytes serializes the problem to CBOR so it can be stored or shipped
// between processes. Values round-trip exactly.
func (p *Problem) ToBytes() ([]byte, error) {
	s := serializedProblem{
		N: p.n,
		P: flatten(p.p),
		Q: flattenVec(p.q),
	}
	if p.g != nil {
		s.M, _ = p.g.Dims()
		s.G = flatten(p.g)
		s.H = flattenVec(p.h)
	}
	if p.a != nil {
		s.Me, _ = p.a.Dims()
		s.A = flatten(p.a)
		s.B = flattenVec(p.b)
	}
	if p.finite != nil {
		s.Lb = append([]float64(nil), p.lb...)
		s.Ub = append([]float64(nil), p.ub...)
	}
	if p.x0 != nil {
		s.X0 = append([]float64(nil), p.x0...)
	}
	return cbor.Marshal(s)
}

// ProblemFromBytes deserializes a problem written by [Problem.ToBytes].
// The decoded problem goes through the same validation as NewProblem.
func ProblemFromBytes(data []byte) (*Problem, error) {
	var s serializedProblem
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if s.N <= 0 || len(s.P) != s.N*s.N || len(s.Q) != s.N {
		return nil, fmt.Errorf("%w: inconsistent serialized objective", ErrMalformed)
	}
	var opts []ProblemOption
	if s.M > 0 {
		if len(s.G) != s.M*s.N || len(s.H) != s.M {
			return nil, fmt.Errorf("%w: inconsistent serialized inequality block", ErrMalformed)
		}
		opts = append(opts, WithInequalities(mat.NewDense(s.M, s.N, s.G), mat.NewVecDense(s.M, s.H)))
	}
	if s.Me > 0 {
		if len(s.A) != s.Me*s.N || len(s.B) != s.Me {
			return nil, fmt.Errorf("%w: inconsistent serialized equality block", ErrMalformed)
		}
		opts = append(opts, WithEqualities(mat.NewDense(s.Me, s.N, s.A), mat.NewVecDense(s.Me, s.B)))
	}
	if s.Lb != nil || s.Ub != nil {
		opts = append(opts, WithBounds(s.Lb, s.Ub))
	}
	if s.X0 != nil {
		opts = append(opts, WithInitialGuess(s.X0))
	}
	return NewProblem(mat.NewDense(s.N, s.N, s.P), mat.NewVecDense(s.N, s.Q), opts...)
}
