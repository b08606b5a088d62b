package backend

import (
	"strings"

	"github.com/blang/semver/v4"
	"github.com/convexlab/qpbridge/qp"
)

// Feature is a bitmask of problem features a backend can handle.
type Feature uint8

const (
	FeatureInequality Feature = 1 << iota
	FeatureEquality
	FeatureBounds
	// FeatureWarmStart marks backends that consume an initial guess.
	// A guess on the problem is never a selection requirement: adapters
	// without this flag ignore it.
	FeatureWarmStart
	// FeatureSparse marks backends whose native form is sparse; the adapter
	// extracts exact nonzeros from the canonical dense form.
	FeatureSparse
)

// Covers reports whether f supports every feature in required.
func (f Feature) Covers(required Feature) bool {
	return required&^f == 0
}

func (f Feature) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, e := range []struct {
		bit  Feature
		name string
	}{
		{FeatureInequality, "inequality"},
		{FeatureEquality, "equality"},
		{FeatureBounds, "bounds"},
		{FeatureWarmStart, "warm_start"},
		{FeatureSparse, "sparse"},
	} {
		if f&e.bit != 0 {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, "|")
}

// FeaturesOf returns the features a problem actively uses. This is the
// requirement set a backend's capabilities must cover before dispatch.
// Warm start is intentionally not part of it.
func FeaturesOf(p *qp.Problem) Feature {
	var f Feature
	if p.HasInequalities() {
		f |= FeatureInequality
	}
	if p.HasEqualities() {
		f |= FeatureEquality
	}
	if p.HasBounds() {
		f |= FeatureBounds
	}
	return f
}

// Adapter converts the canonical problem into one backend's native form,
// invokes it, and converts the native output back. The converted forms are
// private to each adapter and travel through the pipeline opaquely.
//
// Invoke is the only step that crosses into external solver code. Errors it
// returns (and panics it causes) are normalized by the dispatcher into a
// Result with status solver_error; they never propagate to the caller.
type Adapter interface {
	ConvertIn(p *qp.Problem, cfg *SolverConfig) (native any, err error)
	Invoke(native any, cfg *SolverConfig) (raw any, err error)
	ConvertOut(raw any) (*qp.Result, error)
}

// Descriptor declares one backend to the registry.
type Descriptor struct {
	ID ID
	// Version of the wrapped solver library.
	Version semver.Version
	// Features the backend supports.
	Features Feature
	// Reentrant reports whether the native solve entry point may be called
	// from several goroutines at once. The dispatcher serializes Invoke on
	// backends that are not.
	Reentrant bool
	// Probe checks that the backend's runtime is actually usable. A nil
	// Probe means always available. The result is cached process-wide after
	// the first call.
	Probe func() error
	// New returns a fresh adapter. Adapters are cheap, stateless values;
	// one is created per solve call.
	New func() Adapter
}
