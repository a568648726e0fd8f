package easysfs

import (
	"fmt"

	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/stat/combin"
)

// SpectrumBuilder turns a count table into a frequency tensor for a subset
// of populations at the given projected sample sizes. When polarized is
// true the outgroup allele orients the derived/ancestral axes and the
// resulting spectrum is left unfolded; otherwise the spectrum is folded.
type SpectrumBuilder interface {
	Build(table *CountTable, pops []string, sizes []int, polarized bool) (*Spectrum, error)
}

// ProjectionBuilder is the shipped spectrum engine. Each variant's
// per-population allele counts are projected down to the requested sample
// sizes hypergeometrically: a variant with d derived out of n successful
// calls contributes weight
//
//	C(d,k) * C(n-d, m-k) / C(n,m)
//
// to bin k of an m-sized axis, and the product of the per-axis weights to
// each joint bin. Variants with fewer than m calls in any population
// contribute nothing to that spectrum.
type ProjectionBuilder struct{}

var _ SpectrumBuilder = ProjectionBuilder{}

func (ProjectionBuilder) Build(table *CountTable, pops []string, sizes []int, polarized bool) (*Spectrum, error) {
	s, err := NewSpectrum(pops, sizes)
	if err != nil {
		return nil, pfx.Err(err)
	}

	weights := make([][]float64, len(pops))
	for i, size := range sizes {
		weights[i] = make([]float64, size+1)
	}
	idx := make([]int, len(pops))

	for _, v := range table.Variants {
		usable := true
		for i, pop := range pops {
			calls, ok := v.Calls[pop]
			if !ok {
				return nil, pfx.Err(fmt.Errorf("variant %s has no calls for population %s", v.Key, pop))
			}

			derived, total, ok := derivedCount(v, calls, polarized)
			if !ok || total < sizes[i] {
				usable = false
				break
			}
			projectionWeights(derived, total, sizes[i], weights[i])
		}
		if !usable {
			continue
		}

		accumulate(s, weights, idx)
	}

	s.MaskCorners()
	if !polarized {
		s.Fold()
	}

	return s, nil
}

// derivedCount orients a variant's counts. Unpolarized spectra use the
// alternate allele arbitrarily, since folding erases the choice. Polarized
// spectra require the outgroup allele to match one of the two segregating
// alleles; variants that cannot be polarized are skipped.
func derivedCount(v Variant, calls AlleleCounts, polarized bool) (derived, total int, ok bool) {
	total = calls.Ref + calls.Alt
	if !polarized {
		return calls.Alt, total, true
	}

	switch v.Outgroup {
	case v.Ref:
		return calls.Alt, total, true
	case v.Alt:
		return calls.Ref, total, true
	}
	return 0, 0, false
}

// projectionWeights fills w[0..size] with the hypergeometric probability of
// observing each derived-allele count in a size-sized draw from total calls
// carrying derived copies of the derived allele.
func projectionWeights(derived, total, size int, w []float64) {
	denom := combin.GeneralizedBinomial(float64(total), float64(size))
	ancestral := total - derived
	for k := 0; k <= size; k++ {
		if k > derived || size-k > ancestral {
			w[k] = 0
			continue
		}
		w[k] = combin.GeneralizedBinomial(float64(derived), float64(k)) *
			combin.GeneralizedBinomial(float64(ancestral), float64(size-k)) / denom
	}
}

// accumulate adds the outer product of the per-axis weight vectors into the
// spectrum. idx is scratch space with one element per axis.
func accumulate(s *Spectrum, weights [][]float64, idx []int) {
	for flat := range s.Data {
		s.MultiIndex(flat, idx)
		p := 1.0
		for axis, k := range idx {
			p *= weights[axis][k]
			if p == 0 {
				break
			}
		}
		s.Data[flat] += p
	}
}
