package easysfs

import (
	"fmt"
	"math"

	"github.com/carbocation/pfx"
)

// Spectrum is an N-dimensional site frequency spectrum. Axis i corresponds to
// Pops[i] and has length sampleSizes[i]+1; entry (k0,...,kN) holds the
// expected number of variants whose derived-allele count is ki in population
// i. Data is stored flat in row-major order. Entries with Mask set are the
// (quasi-)monomorphic corners and are excluded from summaries.
type Spectrum struct {
	Pops   []string
	Shape  []int
	Data   []float64
	Mask   []bool
	Folded bool

	// IntBins marks a spectrum whose entries have been rounded to integer
	// bins; it only changes how values are rendered on disk.
	IntBins bool
}

// NewSpectrum allocates a zero spectrum for the given populations at the
// given projected sample sizes.
func NewSpectrum(pops []string, sizes []int) (*Spectrum, error) {
	if len(pops) != len(sizes) {
		return nil, pfx.Err(fmt.Errorf("%d populations but %d sample sizes", len(pops), len(sizes)))
	}

	n := 1
	shape := make([]int, len(sizes))
	for i, size := range sizes {
		if size < 0 {
			return nil, pfx.Err(fmt.Errorf("negative sample size %d for population %s", size, pops[i]))
		}
		shape[i] = size + 1
		n *= shape[i]
	}

	return &Spectrum{
		Pops:  append([]string{}, pops...),
		Shape: shape,
		Data:  make([]float64, n),
		Mask:  make([]bool, n),
	}, nil
}

// SampleSizes returns the projected sample size along each axis.
func (s *Spectrum) SampleSizes() []int {
	sizes := make([]int, len(s.Shape))
	for i, n := range s.Shape {
		sizes[i] = n - 1
	}
	return sizes
}

// strides returns the row-major stride of each axis.
func (s *Spectrum) strides() []int {
	strides := make([]int, len(s.Shape))
	acc := 1
	for i := len(s.Shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= s.Shape[i]
	}
	return strides
}

// FlatIndex converts a multi-index to its flat row-major offset.
func (s *Spectrum) FlatIndex(idx []int) int {
	flat := 0
	for i, k := range idx {
		flat = flat*s.Shape[i] + k
	}
	return flat
}

// MultiIndex fills dst with the multi-index of the flat offset and returns
// it. dst must have len(Shape) elements.
func (s *Spectrum) MultiIndex(flat int, dst []int) []int {
	for i := len(s.Shape) - 1; i >= 0; i-- {
		dst[i] = flat % s.Shape[i]
		flat /= s.Shape[i]
	}
	return dst
}

// ReverseIndex negates each coordinate relative to its axis maximum,
// mapping a derived-allele configuration onto its ancestral mirror.
func (s *Spectrum) ReverseIndex(idx []int) []int {
	rev := make([]int, len(idx))
	for i, k := range idx {
		rev[i] = s.Shape[i] - 1 - k
	}
	return rev
}

// At returns the entry at the given multi-index.
func (s *Spectrum) At(idx ...int) float64 {
	return s.Data[s.FlatIndex(idx)]
}

// MaskCorners masks the all-ancestral and all-derived entries, which hold
// (quasi-)monomorphic sites rather than segregating variation.
func (s *Spectrum) MaskCorners() {
	s.Mask[0] = true
	s.Mask[len(s.Mask)-1] = true
}

// Fold removes allele polarity by symmetrizing the spectrum: every entry
// becomes the mean of itself and its reversed-index mirror, so that
// Data[i] == Data[reverse(i)] holds exactly and the total segregating mass
// is unchanged.
func (s *Spectrum) Fold() {
	if s.Folded {
		return
	}

	folded := make([]float64, len(s.Data))
	idx := make([]int, len(s.Shape))
	for flat := range s.Data {
		s.MultiIndex(flat, idx)
		mirror := s.FlatIndex(s.ReverseIndex(idx))
		folded[flat] = 0.5 * (s.Data[flat] + s.Data[mirror])
	}

	s.Data = folded
	s.Folded = true
}

// CastInt rounds every entry to the nearest integer bin. Masked entries are
// refilled with 0. The shape and mask are unchanged.
func (s *Spectrum) CastInt() {
	for i, v := range s.Data {
		if s.Mask[i] {
			s.Data[i] = 0
			continue
		}
		s.Data[i] = math.Round(v)
	}
	s.IntBins = true
}

// Segregating sums the unmasked entries, i.e. the (expected) number of
// segregating sites represented by the spectrum.
func (s *Spectrum) Segregating() float64 {
	var sum float64
	for i, v := range s.Data {
		if !s.Mask[i] {
			sum += v
		}
	}
	return sum
}
