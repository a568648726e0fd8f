package easysfs

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// GenotypeTable is the parsed variant table: a header row starting with
// #CHROM and one whitespace-split row per variant. Sample columns follow the
// FORMAT column.
type GenotypeTable struct {
	Columns []string
	Rows    [][]string

	// SkippedRows counts data rows whose field count did not match the
	// header and were therefore discarded.
	SkippedRows int

	colIdx map[string]int
}

// Column returns the index of a named column.
func (g *GenotypeTable) Column(name string) (int, bool) {
	idx, ok := g.colIdx[name]
	return idx, ok
}

// SampleNames returns the sample columns, which by convention follow the
// FORMAT column.
func (g *GenotypeTable) SampleNames() ([]string, error) {
	return samplesFromHeader(g.Columns)
}

func samplesFromHeader(columns []string) ([]string, error) {
	for i, col := range columns {
		if col == "FORMAT" {
			if i+1 >= len(columns) {
				return nil, pfx.Err(fmt.Errorf("no sample names found after the FORMAT column"))
			}
			return columns[i+1:], nil
		}
	}
	return nil, pfx.Err(fmt.Errorf("variant table header has no FORMAT column"))
}

// ReadSampleNames scans only the header of a variant file and returns its
// sample names.
func ReadSampleNames(path string) ([]string, error) {
	r, err := openMaybeCompressed(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer r.Close()

	scanner := newRowScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#CHROM") {
			return samplesFromHeader(strings.Fields(line))
		}
		if !strings.HasPrefix(line, "#") {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	return nil, pfx.Err(fmt.Errorf("no #CHROM header found in %s; check the variant file formatting", path))
}

// ReadGenotypes parses a variant file, transparently decompressing .gz and
// .zst inputs. Unless allSNPs is set, one variant is drawn per locus (rows
// grouped by the first column) using rng, which matches the density
// assumptions of downstream model fitting for linked RAD data.
func ReadGenotypes(path string, allSNPs bool, rng *rand.Rand, logger *log.Logger) (*GenotypeTable, error) {
	if logger == nil {
		logger = log.Default()
	}

	r, err := openMaybeCompressed(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer r.Close()

	var header []string
	var rows [][]string
	skipped := 0

	scanner := newRowScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			if strings.HasPrefix(line, "#CHROM") {
				header = strings.Fields(line)
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if header != nil && len(fields) != len(header) {
			skipped++
			continue
		}
		rows = append(rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	if header == nil {
		return nil, pfx.Err(fmt.Errorf("no #CHROM header found in %s; check the variant file formatting", path))
	}
	if skipped > 0 {
		logger.Printf("Skipped %d malformed rows in %s", skipped, path)
	}

	if !allSNPs {
		rows, err = sampleOnePerLocus(rows, rng)
		if err != nil {
			return nil, pfx.Err(err)
		}
	}

	g := &GenotypeTable{
		Columns:     header,
		Rows:        rows,
		SkippedRows: skipped,
		colIdx:      make(map[string]int, len(header)),
	}
	for i, col := range header {
		g.colIdx[col] = i
	}

	return g, nil
}

// sampleOnePerLocus keeps one randomly chosen row per locus, where a locus
// is everything sharing the first (chromosome) column. Locus order follows
// first appearance so a fixed rng gives a fixed result.
func sampleOnePerLocus(rows [][]string, rng *rand.Rand) ([][]string, error) {
	var loci []string
	byLocus := make(map[string][][]string)
	for _, row := range rows {
		locus := row[0]
		if _, seen := byLocus[locus]; !seen {
			loci = append(loci, locus)
		}
		byLocus[locus] = append(byLocus[locus], row)
	}

	// Some pipelines put RAD locus IDs in the chromosome column (ipyrad)
	// and some assign every variant to a single chromosome (tassel). With
	// the latter, sampling one variant per "locus" would keep one variant
	// for the whole dataset.
	if len(loci) == 1 {
		return nil, pfx.Err(fmt.Errorf("the variant file has no per-locus chromosome info; re-run with -a to use all variants"))
	}

	sampled := make([][]string, 0, len(loci))
	for _, locus := range loci {
		group := byLocus[locus]
		sampled = append(sampled, group[rng.Intn(len(group))])
	}
	return sampled, nil
}

func newRowScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return scanner
}

// multiCloser closes a decompressor and its underlying file together.
type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openMaybeCompressed opens a variant file, layering a gzip or zstd reader
// by file extension.
func openMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, pfx.Err(err)
		}
		return &multiCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil

	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, pfx.Err(err)
		}
		return &multiCloser{
			Reader: dec,
			closers: []io.Closer{
				closerFunc(func() error { dec.Close(); return nil }),
				f,
			},
		}, nil
	}

	return f, nil
}
