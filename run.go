package easysfs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
)

// Config collects a run's validated settings. Zero values mean "off" except
// Ploidy, which callers must set (the CLI defaults it to 2).
type Config struct {
	OutDir string
	Prefix string

	Projections []int
	Ploidy      int
	Unfolded    bool
	IntBins     bool
	Force       bool
	Verbose     bool

	// Bootstrap resampling: Replicates > 0 enables it. BlockSize 0 means
	// variant-level resampling; Seeded fixes the base seed.
	Replicates int
	BlockSize  int
	Seed       int64
	Seeded     bool
	Threads    int

	// Builder overrides the spectrum engine; nil uses ProjectionBuilder.
	Builder SpectrumBuilder
	// Logger receives progress and data-quality messages; nil uses the
	// default logger.
	Logger *log.Logger
}

func (cfg *Config) logger() *log.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return log.Default()
}

// ParseProjections parses the comma-separated sample-size vector.
func ParseProjections(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, configErrorf("projection values must be comma-separated integers, got %q", s)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

func (cfg *Config) validate(pops *Populations) error {
	if len(cfg.Projections) != len(pops.Names) {
		return configErrorf(
			"you must pass one projection value per population: %d populations, %d projection values %v",
			len(pops.Names), len(cfg.Projections), cfg.Projections)
	}
	if cfg.Ploidy < 1 {
		return configErrorf("ploidy must be at least 1, got %d", cfg.Ploidy)
	}
	if cfg.Replicates < 0 {
		return configErrorf("bootstrap replicate count must be non-negative, got %d", cfg.Replicates)
	}
	if cfg.BlockSize < 0 {
		return configErrorf("block size must be a positive number of variants, got %d", cfg.BlockSize)
	}
	return nil
}

// InitOutDir creates the output root, refusing to touch an existing one
// unless force is set.
func InitOutDir(path string, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			return configErrorf("output directory %s exists; use -f to overwrite it", path)
		}
		if err := os.RemoveAll(path); err != nil {
			return pfx.Err(err)
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return pfx.Err(err)
	}
	return nil
}

// Run derives the count table and writes every output format into
// cfg.OutDir; with Replicates set it additionally writes one resampled run
// per replicate. Configuration problems are reported before any file is
// written.
func Run(cfg *Config, g *GenotypeTable, pops *Populations) error {
	if err := cfg.validate(pops); err != nil {
		return err
	}
	if cfg.Replicates > 0 && cfg.BlockSize > 0 {
		// Surface an unusable block partition before creating any output.
		if len(g.Rows) == 0 {
			return configErrorf("cannot block-bootstrap an empty variant table")
		}
	}

	if err := InitOutDir(cfg.OutDir, cfg.Force); err != nil {
		return err
	}

	if cfg.Replicates == 0 {
		return createSFS(cfg, cfg.OutDir, g, pops, false)
	}

	logger := cfg.logger()
	logger.Println("Starting bootstrap resampling")
	if cfg.BlockSize > 0 {
		idx := BlockIndex(g, cfg.BlockSize)
		distinct := make(map[blockKey]bool)
		for i, row := range g.Rows {
			distinct[blockKey{chrom: row[0], index: idx[i]}] = true
		}
		logger.Printf("  Resampling whole blocks: %d blocks of up to %d variants", len(distinct), cfg.BlockSize)
	} else {
		logger.Println("  Resampling variants")
	}

	if err := createSFS(cfg, filepath.Join(cfg.OutDir, "original"), g, pops, false); err != nil {
		return err
	}

	r := &Resampler{
		Replicates: cfg.Replicates,
		BlockSize:  cfg.BlockSize,
		Seed:       cfg.Seed,
		Seeded:     cfg.Seeded,
		Workers:    cfg.Threads,
	}
	return r.Each(g, func(rep int, resampled *GenotypeTable) error {
		if cfg.Verbose {
			logger.Printf("# bootrep %d", rep)
		}
		dir := filepath.Join(cfg.OutDir, fmt.Sprintf("bootrep%d", rep))
		return createSFS(cfg, dir, resampled, pops, true)
	})
}

// createSFS runs the full count-table -> spectra -> files pipeline into one
// run directory. quiet suppresses per-artifact progress (bootstrap
// replicates would otherwise interleave their logs).
func createSFS(cfg *Config, dir string, g *GenotypeTable, pops *Populations, quiet bool) error {
	logger := cfg.logger()

	dadiDir := filepath.Join(dir, "dadi")
	fscDir := filepath.Join(dir, "fastsimcoal2")
	for _, d := range []string{dadiDir, fscDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return pfx.Err(err)
		}
	}

	tbl, err := MakeCountTable(g, pops, cfg.Ploidy)
	if err != nil {
		return pfx.Err(err)
	}
	if tbl.DroppedTokens > 0 && !quiet {
		logger.Printf("Warning: dropped %d unrecognized genotype tokens", tbl.DroppedTokens)
	}

	if err := WriteCountIndex(filepath.Join(dir, "counts.sqlite3"), tbl, pops, cfg.Ploidy); err != nil {
		return pfx.Err(err)
	}

	proj := &Projector{
		Builder:  cfg.Builder,
		Pops:     pops,
		Sizes:    cfg.Projections,
		Unfolded: cfg.Unfolded,
		IntBins:  cfg.IntBins,
	}

	// 1D per population
	oneD, err := proj.OneD(tbl)
	if err != nil {
		return err
	}
	for i, s := range oneD {
		pop, size := pops.Names[i], cfg.Projections[i]
		if !quiet {
			logger.Printf("Doing 1D sfs - %s", pop)
		}

		native := filepath.Join(dadiDir, fmt.Sprintf("%s-%d.sfs", pop, size))
		if err := WriteNative(s, native); err != nil {
			return err
		}
		obs := filepath.Join(fscDir, fmt.Sprintf("%s_%sAFpop0.obs", pop, afMarker(cfg.Unfolded)))
		if err := WriteFSC1D(native, obs, size); err != nil {
			return err
		}
	}

	// 2D per population pair
	pairs, err := proj.Pairs(tbl)
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		if !quiet {
			logger.Printf("Doing 2D sfs - (%s, %s)", pair.Pops[0], pair.Pops[1])
		}

		native := filepath.Join(dadiDir, fmt.Sprintf("%s-%s.sfs", pair.Pops[0], pair.Pops[1]))
		if err := WriteNative(pair.Spectrum, native); err != nil {
			return err
		}

		ax := NewPairAxisMap(pair)
		obs := filepath.Join(fscDir, ax.FileName(cfg.Prefix, cfg.Unfolded))
		if err := WriteFSCJoint(native, obs, ax); err != nil {
			// A structural failure in one pair's conversion only loses
			// that pair's file; the rest of the run continues.
			os.Remove(obs)
			logger.Printf("Joint SFS conversion failed: %v", err)
		}
	}

	// Full joint SFS over all populations
	if !quiet {
		logger.Println("Doing multiSFS for all pops")
	}
	joint, err := proj.Joint(tbl)
	if err != nil {
		return err
	}
	native := filepath.Join(dadiDir, strings.Join(pops.Names, "-")+".sfs")
	if err := WriteNative(joint, native); err != nil {
		return err
	}
	if err := WriteMSFS(native, filepath.Join(fscDir, cfg.Prefix+"_MSFS.obs"), cfg.Projections); err != nil {
		return err
	}

	// Bin-count container, best-effort
	if err := writeBinCounts(native, filepath.Join(dir, "momi"), !cfg.Unfolded); err != nil {
		logger.Printf("Skipping bin-count output: %v", err)
	}

	return nil
}

// writeBinCounts converts the joint native file into the sparse bin-count
// container. The container is built unfolded and, when folding is wanted,
// explicitly refolded and re-serialized afterwards.
func writeBinCounts(nativePath, momiDir string, fold bool) error {
	if err := os.MkdirAll(momiDir, 0o755); err != nil {
		return pfx.Err(err)
	}

	b, err := BinCountsFromNative(nativePath)
	if err != nil {
		return pfx.Err(err)
	}

	base := strings.TrimSuffix(filepath.Base(nativePath), ".sfs")
	out := filepath.Join(momiDir, base+"_momi.sfs")
	if err := b.WriteFile(out); err != nil {
		return pfx.Err(err)
	}

	if fold {
		b.Fold()
		if err := b.WriteFile(out); err != nil {
			return pfx.Err(err)
		}
	}
	return nil
}
