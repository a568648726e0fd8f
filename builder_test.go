package easysfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// countTableOf builds a count table directly, bypassing genotype parsing.
func countTableOf(variants ...Variant) *CountTable {
	return &CountTable{Variants: variants}
}

func TestProjectionWeights(t *testing.T) {
	// 2 derived out of 4 calls projected to 2 samples: the classic
	// hypergeometric 1/6, 4/6, 1/6.
	w := make([]float64, 3)
	projectionWeights(2, 4, 2, w)
	require.InDelta(t, 1.0/6, w[0], 1e-12)
	require.InDelta(t, 4.0/6, w[1], 1e-12)
	require.InDelta(t, 1.0/6, w[2], 1e-12)

	// No down-projection: the weight concentrates on the observed count.
	projectionWeights(1, 2, 2, w)
	require.Equal(t, []float64{0, 1, 0}, w)
}

func TestBuildPolarized(t *testing.T) {
	tbl := countTableOf(Variant{
		Key: "c-1-0", Ref: "A", Alt: "T", Outgroup: "A",
		Calls: map[string]AlleleCounts{"popA": {Ref: 2, Alt: 2}},
	})

	s, err := ProjectionBuilder{}.Build(tbl, []string{"popA"}, []int{2}, true)
	require.NoError(t, err)
	require.False(t, s.Folded)
	require.Equal(t, []int{3}, s.Shape)
	require.InDelta(t, 1.0/6, s.Data[0], 1e-12)
	require.InDelta(t, 4.0/6, s.Data[1], 1e-12)
	require.InDelta(t, 1.0/6, s.Data[2], 1e-12)
	require.True(t, s.Mask[0])
	require.True(t, s.Mask[2])
}

func TestBuildPolarizedByAlternateOutgroup(t *testing.T) {
	// When the outgroup matches ALT, the reference allele is derived.
	tbl := countTableOf(Variant{
		Key: "c-1-0", Ref: "A", Alt: "T", Outgroup: "T",
		Calls: map[string]AlleleCounts{"popA": {Ref: 3, Alt: 1}},
	})

	s, err := ProjectionBuilder{}.Build(tbl, []string{"popA"}, []int{4}, true)
	require.NoError(t, err)
	require.Equal(t, 1.0, s.Data[3], "three derived (reference) copies out of four")
}

func TestBuildSkipsUnpolarizable(t *testing.T) {
	tbl := countTableOf(Variant{
		Key: "c-1-0", Ref: "A", Alt: "T", Outgroup: "G",
		Calls: map[string]AlleleCounts{"popA": {Ref: 2, Alt: 2}},
	})

	s, err := ProjectionBuilder{}.Build(tbl, []string{"popA"}, []int{2}, true)
	require.NoError(t, err)
	require.Zero(t, s.Segregating())
}

func TestBuildSkipsUnderprojectedVariants(t *testing.T) {
	tbl := countTableOf(
		Variant{Key: "a", Ref: "A", Alt: "T", Outgroup: "A",
			Calls: map[string]AlleleCounts{"popA": {Ref: 1, Alt: 1}}}, // 2 calls < 4
		Variant{Key: "b", Ref: "A", Alt: "T", Outgroup: "A",
			Calls: map[string]AlleleCounts{"popA": {Ref: 3, Alt: 1}}},
	)

	s, err := ProjectionBuilder{}.Build(tbl, []string{"popA"}, []int{4}, true)
	require.NoError(t, err)
	// Only the second variant has enough calls; it lands wholly in bin 1.
	require.Equal(t, 1.0, s.Data[1])
	require.InDelta(t, 1.0, s.Segregating(), 1e-12)
}

func TestBuildFoldedIgnoresPolarity(t *testing.T) {
	// Mirrored count configurations must produce the same folded spectrum.
	a := countTableOf(Variant{Key: "a", Ref: "A", Alt: "T", Outgroup: "A",
		Calls: map[string]AlleleCounts{"popA": {Ref: 3, Alt: 1}}})
	b := countTableOf(Variant{Key: "b", Ref: "A", Alt: "T", Outgroup: "A",
		Calls: map[string]AlleleCounts{"popA": {Ref: 1, Alt: 3}}})

	sa, err := ProjectionBuilder{}.Build(a, []string{"popA"}, []int{4}, false)
	require.NoError(t, err)
	sb, err := ProjectionBuilder{}.Build(b, []string{"popA"}, []int{4}, false)
	require.NoError(t, err)

	require.True(t, sa.Folded)
	require.Equal(t, sa.Data, sb.Data)
}

func TestBuildJointShape(t *testing.T) {
	tbl := countTableOf(Variant{
		Key: "c-1-0", Ref: "A", Alt: "T", Outgroup: "A",
		Calls: map[string]AlleleCounts{
			"popA": {Ref: 6, Alt: 2},
			"popB": {Ref: 10, Alt: 2},
		},
	})

	s, err := ProjectionBuilder{}.Build(tbl, []string{"popA", "popB"}, []int{8, 12}, false)
	require.NoError(t, err)
	require.Equal(t, []int{9, 13}, s.Shape)
	require.Len(t, s.Data, 9*13)
}

func TestBuildMissingPopulation(t *testing.T) {
	tbl := countTableOf(Variant{Key: "a", Calls: map[string]AlleleCounts{}})
	_, err := ProjectionBuilder{}.Build(tbl, []string{"popZ"}, []int{2}, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "popZ")
}
