package easysfs

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

const testVCF = `##fileformat=VCFv4.2
##source=test
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	ind1	ind2
loc1	10	.	A	T	.	.	.	GT	0/0	0/1
loc1	20	.	C	G	.	.	.	GT	1/1	0|0
loc2	5	.	G	A	.	.	.	GT	0|1	1/1
`

func writeVCF(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadSampleNames(t *testing.T) {
	path := writeVCF(t, "test.vcf", testVCF)

	samples, err := ReadSampleNames(path)
	require.NoError(t, err)
	require.Equal(t, []string{"ind1", "ind2"}, samples)
}

func TestReadGenotypesAllSNPs(t *testing.T) {
	path := writeVCF(t, "test.vcf", testVCF)

	g, err := ReadGenotypes(path, true, nil, nil)
	require.NoError(t, err)
	require.Len(t, g.Rows, 3)
	require.Zero(t, g.SkippedRows)

	col, ok := g.Column("ind2")
	require.True(t, ok)
	require.Equal(t, "0/1", g.Rows[0][col])
}

func TestReadGenotypesOnePerLocus(t *testing.T) {
	path := writeVCF(t, "test.vcf", testVCF)

	g, err := ReadGenotypes(path, false, rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)

	// One row per locus, loci in first-seen order.
	require.Len(t, g.Rows, 2)
	require.Equal(t, "loc1", g.Rows[0][0])
	require.Equal(t, "loc2", g.Rows[1][0])

	// The same seed always picks the same rows.
	again, err := ReadGenotypes(path, false, rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)
	require.Equal(t, g.Rows, again.Rows)
}

func TestReadGenotypesSingleLocusRejected(t *testing.T) {
	vcf := "#CHROM\tPOS\tREF\tALT\tFORMAT\tind1\n" +
		"chr1\t1\tA\tT\tGT\t0/0\n" +
		"chr1\t2\tC\tG\tGT\t1/1\n"
	path := writeVCF(t, "test.vcf", vcf)

	_, err := ReadGenotypes(path, false, rand.New(rand.NewSource(1)), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "-a")
}

func TestReadGenotypesGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.vcf.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(testVCF))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	g, err := ReadGenotypes(path, true, nil, nil)
	require.NoError(t, err)
	require.Len(t, g.Rows, 3)

	samples, err := g.SampleNames()
	require.NoError(t, err)
	require.Equal(t, []string{"ind1", "ind2"}, samples)
}

func TestReadGenotypesMissingHeader(t *testing.T) {
	path := writeVCF(t, "test.vcf", "chr1\t1\tA\tT\n")

	_, err := ReadGenotypes(path, true, nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "#CHROM")
}

func TestReadGenotypesSkipsRaggedRows(t *testing.T) {
	vcf := "#CHROM\tPOS\tREF\tALT\tFORMAT\tind1\n" +
		"chr1\t1\tA\tT\tGT\t0/0\n" +
		"chr2\t2\tC\tG\tGT\n" // short row
	path := writeVCF(t, "test.vcf", vcf)

	g, err := ReadGenotypes(path, true, nil, nil)
	require.NoError(t, err)
	require.Len(t, g.Rows, 1)
	require.Equal(t, 1, g.SkippedRows)
}
