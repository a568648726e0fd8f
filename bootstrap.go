package easysfs

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Resampler draws bootstrap replicates of a variant table. With BlockSize 0
// it resamples individual variants; otherwise it resamples whole contiguous
// per-chromosome blocks. Each replicate owns an independent random source
// and an independent resampled table, so replicates may run in parallel.
type Resampler struct {
	Replicates int
	BlockSize  int
	Seed       int64
	Seeded     bool
	Workers    int
}

// replicateSeed derives replicate rep's seed. With a base seed, replicate
// rep always uses base+rep, which makes every replicate reproducible on its
// own; without one, seeds are drawn from the clock but still distinct per
// replicate.
func (r *Resampler) replicateSeed(rep int) int64 {
	if r.Seeded {
		return r.Seed + int64(rep)
	}
	return time.Now().UnixNano() + int64(rep)
}

// Resample returns replicate rep's resampled table. The returned table
// shares row storage with the source, which is read-only downstream.
func (r *Resampler) Resample(g *GenotypeTable, rep int) (*GenotypeTable, error) {
	rng := rand.New(rand.NewSource(r.replicateSeed(rep)))

	if r.BlockSize == 0 {
		return resampleVariants(g, rng), nil
	}

	if r.BlockSize < 0 {
		return nil, configErrorf("block size must be a positive number of variants, got %d", r.BlockSize)
	}
	return resampleBlocks(g, BlockIndex(g, r.BlockSize), rng), nil
}

// Each runs fn once per replicate, serially or on a bounded worker pool.
// Replicates share nothing mutable, so the produced outputs are identical
// either way; only completion order differs.
func (r *Resampler) Each(g *GenotypeTable, fn func(rep int, resampled *GenotypeTable) error) error {
	if r.Workers <= 1 {
		for rep := 0; rep < r.Replicates; rep++ {
			resampled, err := r.Resample(g, rep)
			if err != nil {
				return err
			}
			if err := fn(rep, resampled); err != nil {
				return err
			}
		}
		return nil
	}

	workers := r.Workers
	if workers > r.Replicates {
		workers = r.Replicates
	}

	reps := make(chan int)
	errs := make(chan error, r.Replicates)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rep := range reps {
				resampled, err := r.Resample(g, rep)
				if err != nil {
					errs <- fmt.Errorf("bootstrap replicate %d: %w", rep, err)
					continue
				}
				if err := fn(rep, resampled); err != nil {
					errs <- fmt.Errorf("bootstrap replicate %d: %w", rep, err)
				}
			}
		}()
	}

	for rep := 0; rep < r.Replicates; rep++ {
		reps <- rep
	}
	close(reps)
	wg.Wait()
	close(errs)

	return <-errs
}

// resampleVariants draws len(rows) variants with replacement, in draw order.
func resampleVariants(g *GenotypeTable, rng *rand.Rand) *GenotypeTable {
	n := len(g.Rows)
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, g.Rows[rng.Intn(n)])
	}
	return g.withRows(rows)
}

// BlockIndex assigns each row a block index within its chromosome: rows are
// numbered in occurrence order and grouped into blocks of blockSize, so the
// trailing partial group of a chromosome becomes a final short block rather
// than being dropped.
func BlockIndex(g *GenotypeTable, blockSize int) []int {
	seen := make(map[string]int)
	idx := make([]int, len(g.Rows))
	for i, row := range g.Rows {
		chrom := row[0]
		idx[i] = seen[chrom] / blockSize
		seen[chrom]++
	}
	return idx
}

// blockKey identifies one contiguous block of one chromosome.
type blockKey struct {
	chrom string
	index int
}

// resampleBlocks draws as many whole blocks, with replacement, as the table
// has, then emits rows in source order repeated by their block's draw
// multiplicity. The distinct blocks of the result are always a subset of
// the source's.
func resampleBlocks(g *GenotypeTable, blockIdx []int, rng *rand.Rand) *GenotypeTable {
	var blocks []blockKey
	seen := make(map[blockKey]bool)
	for i, row := range g.Rows {
		key := blockKey{chrom: row[0], index: blockIdx[i]}
		if !seen[key] {
			seen[key] = true
			blocks = append(blocks, key)
		}
	}

	multiplicity := make(map[blockKey]int, len(blocks))
	for i := 0; i < len(blocks); i++ {
		multiplicity[blocks[rng.Intn(len(blocks))]]++
	}

	var rows [][]string
	for i, row := range g.Rows {
		key := blockKey{chrom: row[0], index: blockIdx[i]}
		for n := 0; n < multiplicity[key]; n++ {
			rows = append(rows, row)
		}
	}
	return g.withRows(rows)
}

// withRows is a shallow copy with a different row set.
func (g *GenotypeTable) withRows(rows [][]string) *GenotypeTable {
	return &GenotypeTable{
		Columns:     g.Columns,
		Rows:        rows,
		SkippedRows: g.SkippedRows,
		colIdx:      g.colIdx,
	}
}
