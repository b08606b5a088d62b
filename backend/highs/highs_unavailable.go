//go:build !highs || !(linux || darwin) || !(amd64 || arm64)

// Stub registration for builds without HiGHS support. The descriptor stays
// visible so Describe works, but the availability probe always fails and
// the dispatcher reports ErrBackendUnavailable before any native call.
package highs

import (
	"errors"

	"github.com/blang/semver/v4"

	"github.com/convexlab/qpbridge/backend"
	"github.com/convexlab/qpbridge/qp"
)

var errNotBuilt = errors.New("qpbridge built without the highs build tag")

func init() {
	backend.MustRegister(backend.Descriptor{
		ID:      backend.HIGHS,
		Version: semver.MustParse("0.2.0"),
		Features: backend.FeatureInequality | backend.FeatureEquality |
			backend.FeatureBounds | backend.FeatureSparse,
		Probe: func() error { return errNotBuilt },
		New:   func() backend.Adapter { return unavailable{} },
	})
}

type unavailable struct{}

func (unavailable) ConvertIn(*qp.Problem, *backend.SolverConfig) (any, error) {
	return nil, errNotBuilt
}

func (unavailable) Invoke(any, *backend.SolverConfig) (any, error) {
	return nil, errNotBuilt
}

func (unavailable) ConvertOut(any) (*qp.Result, error) {
	return nil, errNotBuilt
}
