package easysfs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
)

// The fastsimcoal2 observed-SFS formats are derived from an already-written
// native file rather than from the in-memory tensor, so the native format
// stays the single source of truth for the flattened values.

// WriteFSC1D writes a single-population observed SFS: an observation-count
// header, d0_* column labels, and the native data line verbatim.
func WriteFSC1D(nativePath, outPath string, size int) error {
	lines, err := readNativeLines(nativePath)
	if err != nil {
		return pfx.Err(err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "1 observation")
	fmt.Fprintln(w, strings.Join(axisLabels(0, size), "\t"))
	fmt.Fprintln(w, lines[1])

	if err := w.Flush(); err != nil {
		return pfx.Err(err)
	}
	return nil
}

// PairAxisMap makes the joint-matrix axis convention explicit: the first
// population of a pair supplies the columns and the second supplies the
// rows, and label subscripts use whole-set population indices, not
// pair-local ones. This reversal is a downstream-tool convention; keep it
// even though it reads backwards.
type PairAxisMap struct {
	ColPop   string
	RowPop   string
	ColIndex int
	RowIndex int
	ColSize  int
	RowSize  int
}

// NewPairAxisMap derives the axis assignment for one pair spectrum.
func NewPairAxisMap(pair *PairSpectrum) PairAxisMap {
	return PairAxisMap{
		ColPop:   pair.Pops[0],
		RowPop:   pair.Pops[1],
		ColIndex: pair.PopIndex[0],
		RowIndex: pair.PopIndex[1],
		ColSize:  pair.Sizes[0],
		RowSize:  pair.Sizes[1],
	}
}

// FileName is the joint observed-SFS file name: the row population's index
// precedes the column population's.
func (ax PairAxisMap) FileName(prefix string, unfolded bool) string {
	return fmt.Sprintf("%s_joint%sAFpop%d_%d.obs", prefix, afMarker(unfolded), ax.RowIndex, ax.ColIndex)
}

// WriteFSCJoint writes a pairwise observed SFS. The flattened native values
// are decomposed into RowSize+1 consecutive rows of ColSize+1 values; if the
// decomposition does not come out even, the pair's file is abandoned and an
// error describing the expected and actual row counts is returned so the
// caller can report it and continue with other pairs.
func WriteFSCJoint(nativePath, outPath string, ax PairAxisMap) error {
	lines, err := readNativeLines(nativePath)
	if err != nil {
		return pfx.Err(err)
	}

	values := strings.Fields(lines[1])
	width := ax.ColSize + 1
	var rows [][]string
	for i := 0; i < len(values); i += width {
		end := i + width
		if end > len(values) {
			end = len(values)
		}
		rows = append(rows, values[i:end])
	}

	rowLabels := axisLabels(ax.RowIndex, ax.RowSize)
	if len(rows) != len(rowLabels) {
		return pfx.Err(fmt.Errorf(
			"joint SFS for %s-%s: expected %d rows of %d values, decomposed into %d",
			ax.ColPop, ax.RowPop, len(rowLabels), width, len(rows)))
	}

	f, err := os.Create(outPath)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "1 observation")
	fmt.Fprintln(w, "\t"+strings.Join(axisLabels(ax.ColIndex, ax.ColSize), "\t"))
	for i, label := range rowLabels {
		fmt.Fprintln(w, label+"\t"+strings.Join(rows[i], " "))
	}

	if err := w.Flush(); err != nil {
		return pfx.Err(err)
	}
	return nil
}

// WriteMSFS writes the multi-population sparse format: a fixed header, the
// deme count and sample sizes, then the native data line verbatim. All
// masking is already baked into the values, so no mask row is written.
func WriteMSFS(nativePath, outPath string, sizes []int) error {
	lines, err := readNativeLines(nativePath)
	if err != nil {
		return pfx.Err(err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	sizeStrs := make([]string, len(sizes))
	for i, size := range sizes {
		sizeStrs[i] = strconv.Itoa(size)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "1 observations. No. of demes and sample sizes are on next line.")
	fmt.Fprintln(w, strconv.Itoa(len(sizes))+"\t"+strings.Join(sizeStrs, " "))
	fmt.Fprintln(w, lines[1])

	if err := w.Flush(); err != nil {
		return pfx.Err(err)
	}
	return nil
}

// axisLabels formats the d{popIndex}_{k} bin labels for one axis.
func axisLabels(popIndex, size int) []string {
	labels := make([]string, size+1)
	for k := 0; k <= size; k++ {
		labels[k] = fmt.Sprintf("d%d_%d", popIndex, k)
	}
	return labels
}

// afMarker selects the allele-frequency marker used in observed-SFS file
// names: M for folded (minor-allele) spectra, D for unfolded
// (derived-allele) spectra.
func afMarker(unfolded bool) string {
	if unfolded {
		return "D"
	}
	return "M"
}
