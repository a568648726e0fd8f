package easysfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func threePopTable() (*CountTable, *Populations) {
	pops := &Populations{
		Names: []string{"p0", "p1", "p2"},
		Members: map[string][]string{
			"p0": {"i0"}, "p1": {"i1"}, "p2": {"i2"},
		},
		indPop: map[string]string{"i0": "p0", "i1": "p1", "i2": "p2"},
	}

	tbl := countTableOf(
		Variant{Key: "c-1-0", Ref: "A", Alt: "T", Outgroup: "A",
			Calls: map[string]AlleleCounts{
				"p0": {Ref: 1, Alt: 1},
				"p1": {Ref: 2, Alt: 0},
				"p2": {Ref: 0, Alt: 2},
			}},
		Variant{Key: "c-2-1", Ref: "C", Alt: "G", Outgroup: "C",
			Calls: map[string]AlleleCounts{
				"p0": {Ref: 2, Alt: 0},
				"p1": {Ref: 1, Alt: 1},
				"p2": {Ref: 2, Alt: 0},
			}},
	)
	return tbl, pops
}

func TestProjectorValidate(t *testing.T) {
	_, pops := threePopTable()

	p := &Projector{Pops: pops, Sizes: []int{2, 2}}
	err := p.Validate()
	require.ErrorIs(t, err, ErrConfig)
	require.Contains(t, err.Error(), "3 populations")

	p = &Projector{Pops: pops, Sizes: []int{2, -1, 2}}
	require.ErrorIs(t, p.Validate(), ErrConfig)

	p = &Projector{Pops: pops, Sizes: []int{2, 2, 2}}
	require.NoError(t, p.Validate())
}

func TestProjectorOneD(t *testing.T) {
	tbl, pops := threePopTable()
	p := &Projector{Pops: pops, Sizes: []int{2, 2, 2}}

	specs, err := p.OneD(tbl)
	require.NoError(t, err)
	require.Len(t, specs, 3)
	for i, s := range specs {
		require.Equal(t, []string{pops.Names[i]}, s.Pops)
		require.Equal(t, []int{3}, s.Shape)
		require.True(t, s.Folded)
	}
}

func TestProjectorPairEnumeration(t *testing.T) {
	tbl, pops := threePopTable()
	p := &Projector{Pops: pops, Sizes: []int{2, 4, 6}}

	// Sizes larger than the available calls just drop variants; the
	// enumeration is what matters here.
	pairs, err := p.Pairs(tbl)
	require.NoError(t, err)
	require.Len(t, pairs, Choose(3, 2))

	// Name pairs and size pairs come from one enumeration, in canonical
	// combinatorial order, so they always correspond positionally.
	require.Equal(t, [2]string{"p0", "p1"}, pairs[0].Pops)
	require.Equal(t, [2]int{2, 4}, pairs[0].Sizes)
	require.Equal(t, [2]int{0, 1}, pairs[0].PopIndex)

	require.Equal(t, [2]string{"p0", "p2"}, pairs[1].Pops)
	require.Equal(t, [2]int{2, 6}, pairs[1].Sizes)

	require.Equal(t, [2]string{"p1", "p2"}, pairs[2].Pops)
	require.Equal(t, [2]int{4, 6}, pairs[2].Sizes)
	require.Equal(t, [2]int{1, 2}, pairs[2].PopIndex)
}

func TestProjectorJoint(t *testing.T) {
	tbl, pops := threePopTable()
	p := &Projector{Pops: pops, Sizes: []int{2, 2, 2}, IntBins: true}

	s, err := p.Joint(tbl)
	require.NoError(t, err)
	require.Equal(t, []int{3, 3, 3}, s.Shape)
	require.True(t, s.IntBins)
}

func TestChoose(t *testing.T) {
	require.Equal(t, 3, Choose(3, 2))
	require.Equal(t, 10, Choose(5, 2))
	require.Equal(t, 5, Choose(5, 1))
	require.Equal(t, 10, Choose(5, 3))
	require.Equal(t, 1, Choose(4, 4))
	require.Equal(t, 252, Choose(10, 5))
}
