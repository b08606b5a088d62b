package backend

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/convexlab/qpbridge/qp"
)

func TestIDString(t *testing.T) {
	assert := require.New(t)
	assert.Equal("highs", HIGHS.String())
	assert.Equal("slsqp", SLSQP.String())
	assert.Equal("lbfgsb", LBFGSB.String())
	assert.Equal("bfgs", BFGS.String())
	assert.Equal("unknown", UNKNOWN.String())
	assert.Equal("unknown", ID(999).String())
}

func TestIDFromName(t *testing.T) {
	assert := require.New(t)

	for _, id := range Implemented() {
		got, err := IDFromName(id.String())
		assert.NoError(err)
		assert.Equal(id, got)
	}

	got, err := IDFromName("auto")
	assert.NoError(err)
	assert.Equal(UNKNOWN, got)

	got, err = IDFromName("")
	assert.NoError(err)
	assert.Equal(UNKNOWN, got)

	_, err = IDFromName("ideal")
	assert.ErrorIs(err, ErrUnknownBackend)
}

func TestFeatureCovers(t *testing.T) {
	assert := require.New(t)

	full := FeatureInequality | FeatureEquality | FeatureBounds
	assert.True(full.Covers(FeatureEquality))
	assert.True(full.Covers(full))
	assert.True(full.Covers(0))
	assert.False(FeatureBounds.Covers(FeatureEquality))
	assert.False(Feature(0).Covers(FeatureInequality))
}

func TestFeatureString(t *testing.T) {
	assert := require.New(t)
	assert.Equal("none", Feature(0).String())
	assert.Equal("equality", FeatureEquality.String())
	assert.Equal("inequality|bounds", (FeatureInequality | FeatureBounds).String())
}

func TestFeaturesOf(t *testing.T) {
	assert := require.New(t)

	P := mat.NewDense(2, 2, []float64{2, 0, 0, 2})
	q := mat.NewVecDense(2, []float64{0, 0})

	p, err := qp.NewProblem(P, q)
	assert.NoError(err)
	assert.Equal(Feature(0), FeaturesOf(p))

	p, err = qp.NewProblem(P, q,
		qp.WithEqualities(mat.NewDense(1, 2, []float64{1, 1}), mat.NewVecDense(1, []float64{1})),
		qp.WithBounds([]float64{0, 0}, nil),
		qp.WithInitialGuess([]float64{0, 0}),
	)
	assert.NoError(err)
	// warm start is deliberately not a selection requirement
	assert.Equal(FeatureEquality|FeatureBounds, FeaturesOf(p))
}

func TestPriorityMatchesImplemented(t *testing.T) {
	assert := require.New(t)
	assert.ElementsMatch(Implemented(), Priority())
}
