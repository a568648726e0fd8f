package easysfs

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func bootstrapTable(nPerChrom map[string]int, order []string) *GenotypeTable {
	var rows [][]string
	for _, chrom := range order {
		for i := 0; i < nPerChrom[chrom]; i++ {
			rows = append(rows, []string{chrom, strconv.Itoa(i + 1), "A", "T", "GT", "0/0"})
		}
	}
	return newTestTable([]string{"#CHROM", "POS", "REF", "ALT", "FORMAT", "ind1"}, rows)
}

func TestBlockIndex(t *testing.T) {
	g := bootstrapTable(map[string]int{"chr1": 7, "chr2": 3}, []string{"chr1", "chr2"})

	idx := BlockIndex(g, 3)
	// chr1: two full blocks of 3 and a final short block of 1.
	require.Equal(t, []int{0, 0, 0, 1, 1, 1, 2, 0, 0, 0}, idx)
}

func TestResampleVariantsPreservesRowCount(t *testing.T) {
	g := bootstrapTable(map[string]int{"chr1": 25}, []string{"chr1"})

	r := &Resampler{Replicates: 1, Seed: 7, Seeded: true}
	resampled, err := r.Resample(g, 0)
	require.NoError(t, err)
	require.Len(t, resampled.Rows, len(g.Rows))
}

func TestResampleBlocksProperties(t *testing.T) {
	g := bootstrapTable(map[string]int{"chr1": 6, "chr2": 5}, []string{"chr1", "chr2"})

	r := &Resampler{Replicates: 1, BlockSize: 2, Seed: 3, Seeded: true}
	resampled, err := r.Resample(g, 0)
	require.NoError(t, err)

	sourceBlocks := map[blockKey]bool{}
	for i, idx := range BlockIndex(g, 2) {
		sourceBlocks[blockKey{chrom: g.Rows[i][0], index: idx}] = true
	}
	gotBlocks := map[blockKey]bool{}
	for i, idx := range BlockIndex(resampled, 2) {
		gotBlocks[blockKey{chrom: resampled.Rows[i][0], index: idx}] = true
	}

	// Resampling can only repeat or omit source blocks, never invent them.
	require.LessOrEqual(t, len(gotBlocks), len(sourceBlocks))
}

func TestResampleDeterminism(t *testing.T) {
	g := bootstrapTable(map[string]int{"chr1": 10, "chr2": 10}, []string{"chr1", "chr2"})

	for _, blockSize := range []int{0, 3} {
		a := &Resampler{Replicates: 3, BlockSize: blockSize, Seed: 42, Seeded: true}
		b := &Resampler{Replicates: 3, BlockSize: blockSize, Seed: 42, Seeded: true}

		for rep := 0; rep < 3; rep++ {
			ra, err := a.Resample(g, rep)
			require.NoError(t, err)
			rb, err := b.Resample(g, rep)
			require.NoError(t, err)
			require.Equal(t, ra.Rows, rb.Rows, "replicate %d must be reproducible", rep)
		}
	}
}

func TestResampleReplicatesDiffer(t *testing.T) {
	g := bootstrapTable(map[string]int{"chr1": 40}, []string{"chr1"})

	r := &Resampler{Replicates: 2, Seed: 1, Seeded: true}
	r0, err := r.Resample(g, 0)
	require.NoError(t, err)
	r1, err := r.Resample(g, 1)
	require.NoError(t, err)
	require.NotEqual(t, r0.Rows, r1.Rows)
}

func TestResampleNegativeBlockSize(t *testing.T) {
	g := bootstrapTable(map[string]int{"chr1": 4}, []string{"chr1"})

	r := &Resampler{Replicates: 1, BlockSize: -2}
	_, err := r.Resample(g, 0)
	require.ErrorIs(t, err, ErrConfig)
}

func TestEachParallelMatchesSerial(t *testing.T) {
	g := bootstrapTable(map[string]int{"chr1": 12, "chr2": 9}, []string{"chr1", "chr2"})

	collect := func(workers int) map[int][][]string {
		r := &Resampler{Replicates: 8, BlockSize: 3, Seed: 11, Seeded: true, Workers: workers}
		var mu sync.Mutex
		got := make(map[int][][]string)
		err := r.Each(g, func(rep int, resampled *GenotypeTable) error {
			mu.Lock()
			defer mu.Unlock()
			got[rep] = resampled.Rows
			return nil
		})
		require.NoError(t, err)
		return got
	}

	require.Equal(t, collect(1), collect(4))
}
