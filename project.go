package easysfs

import (
	"errors"
	"fmt"

	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/stat/combin"
)

// ErrConfig marks configuration errors: problems that invalidate the whole
// run and must abort before any output is written.
var ErrConfig = errors.New("configuration error")

func configErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Projector produces 1-D, 2-D, and N-D spectra from a count table, one
// projected sample size per population in mapping order.
type Projector struct {
	Builder SpectrumBuilder
	Pops    *Populations
	Sizes   []int

	// Unfolded polarizes by the outgroup allele instead of folding.
	Unfolded bool
	// IntBins casts every produced spectrum to integer bins.
	IntBins bool
}

// Validate checks the sample-size vector against the population mapping.
func (p *Projector) Validate() error {
	if len(p.Sizes) != len(p.Pops.Names) {
		return configErrorf(
			"you must pass one projection value per population: %d populations, %d projection values %v",
			len(p.Pops.Names), len(p.Sizes), p.Sizes)
	}
	for i, size := range p.Sizes {
		if size < 0 {
			return configErrorf("projection value %d for population %s must be non-negative", size, p.Pops.Names[i])
		}
	}
	return nil
}

func (p *Projector) builder() SpectrumBuilder {
	if p.Builder != nil {
		return p.Builder
	}
	return ProjectionBuilder{}
}

func (p *Projector) build(tbl *CountTable, pops []string, sizes []int) (*Spectrum, error) {
	s, err := p.builder().Build(tbl, pops, sizes, p.Unfolded)
	if err != nil {
		return nil, pfx.Err(err)
	}
	if p.IntBins {
		s.CastInt()
	}
	return s, nil
}

// OneD builds one single-population spectrum per population, in mapping
// order.
func (p *Projector) OneD(tbl *CountTable) ([]*Spectrum, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	specs := make([]*Spectrum, 0, len(p.Pops.Names))
	for i, pop := range p.Pops.Names {
		s, err := p.build(tbl, []string{pop}, []int{p.Sizes[i]})
		if err != nil {
			return nil, pfx.Err(err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// PairSpectrum is a two-population joint spectrum together with the
// whole-set positional indices of its populations, which downstream format
// labels are derived from.
type PairSpectrum struct {
	Spectrum *Spectrum
	Pops     [2]string
	PopIndex [2]int
	Sizes    [2]int
}

// Pairs builds a joint spectrum for every unordered population pair. A
// single combinatorial enumeration supplies both the name pairs and the
// size pairs, so the two always correspond positionally.
func (p *Projector) Pairs(tbl *CountTable) ([]*PairSpectrum, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(p.Pops.Names) < 2 {
		return nil, nil
	}

	pairs := make([]*PairSpectrum, 0, Choose(len(p.Pops.Names), 2))
	for _, c := range combin.Combinations(len(p.Pops.Names), 2) {
		a, b := c[0], c[1]
		pops := []string{p.Pops.Names[a], p.Pops.Names[b]}
		sizes := []int{p.Sizes[a], p.Sizes[b]}

		s, err := p.build(tbl, pops, sizes)
		if err != nil {
			return nil, pfx.Err(err)
		}
		pairs = append(pairs, &PairSpectrum{
			Spectrum: s,
			Pops:     [2]string{pops[0], pops[1]},
			PopIndex: [2]int{a, b},
			Sizes:    [2]int{sizes[0], sizes[1]},
		})
	}
	return pairs, nil
}

// Joint builds the full N-dimensional spectrum over every population.
func (p *Projector) Joint(tbl *CountTable) (*Spectrum, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p.build(tbl, p.Pops.Names, p.Sizes)
}
