package easysfs

import (
	"fmt"

	"github.com/carbocation/pfx"
)

// AlleleCounts is one population's reference/alternate tally at one variant.
type AlleleCounts struct {
	Ref int
	Alt int
}

// Variant is one row of the variant table reduced to per-population allele
// counts. Key is synthetic (chromosome-position-row) so rows sharing a
// position stay distinct.
type Variant struct {
	Key        string
	Chromosome string
	Position   string
	Row        int
	Ref        string
	Alt        string
	Outgroup   string
	Calls      map[string]AlleleCounts
}

// CountTable holds the derived per-variant, per-population allele counts for
// one (original or resampled) variant table, in row order.
type CountTable struct {
	Variants []Variant

	// DroppedTokens counts genotype tokens that matched no recognized
	// zygosity pattern and so contributed to neither allele count. A
	// non-zero value is a data-quality warning, not an error.
	DroppedTokens int
}

// MakeCountTable reduces per-individual genotype strings to per-population
// (ref, alt) count pairs. Homozygous calls add ploidy to their side; any
// heterozygous form adds 1 to both sides regardless of ploidy (a deliberate
// approximation for unphased data); anything else is dropped from both
// sides and tallied. The outgroup allele is taken to be the reference
// allele.
func MakeCountTable(g *GenotypeTable, pops *Populations, ploidy int) (*CountTable, error) {
	chromCol, ok := g.Column("#CHROM")
	if !ok {
		return nil, pfx.Err(fmt.Errorf("variant table has no #CHROM column"))
	}
	posCol, ok := g.Column("POS")
	if !ok {
		return nil, pfx.Err(fmt.Errorf("variant table has no POS column"))
	}
	refCol, ok := g.Column("REF")
	if !ok {
		return nil, pfx.Err(fmt.Errorf("variant table has no REF column"))
	}
	altCol, ok := g.Column("ALT")
	if !ok {
		return nil, pfx.Err(fmt.Errorf("variant table has no ALT column"))
	}

	memberCols := make(map[string][]int, len(pops.Names))
	for _, pop := range pops.Names {
		for _, ind := range pops.Members[pop] {
			col, ok := g.Column(ind)
			if !ok {
				return nil, pfx.Err(fmt.Errorf("individual %s (population %s) has no column in the variant table", ind, pop))
			}
			memberCols[pop] = append(memberCols[pop], col)
		}
	}

	tbl := &CountTable{Variants: make([]Variant, 0, len(g.Rows))}
	for i, row := range g.Rows {
		v := Variant{
			Key:        fmt.Sprintf("%s-%s-%d", row[chromCol], row[posCol], i),
			Chromosome: row[chromCol],
			Position:   row[posCol],
			Row:        i,
			Ref:        row[refCol],
			Alt:        row[altCol],
			Outgroup:   row[refCol],
			Calls:      make(map[string]AlleleCounts, len(pops.Names)),
		}

		for _, pop := range pops.Names {
			var counts AlleleCounts
			for _, col := range memberCols[pop] {
				switch zygosity(row[col]) {
				case homRef:
					counts.Ref += ploidy
				case homAlt:
					counts.Alt += ploidy
				case het:
					counts.Ref++
					counts.Alt++
				default:
					tbl.DroppedTokens++
				}
			}
			v.Calls[pop] = counts
		}

		tbl.Variants = append(tbl.Variants, v)
	}

	return tbl, nil
}

type zygosityClass int

const (
	unknown zygosityClass = iota
	homRef
	homAlt
	het
)

// zygosity classifies the first colon-delimited field of a genotype token.
// Haploid calls are bare "0"/"1"; anything unrecognized (missing data,
// extra alleles, malformed tokens) is unknown.
func zygosity(token string) zygosityClass {
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			token = token[:i]
			break
		}
	}

	switch token {
	case "0", "0/0", "0|0":
		return homRef
	case "1", "1/1", "1|1":
		return homAlt
	case "0/1", "1/0", "0|1", "1|0":
		return het
	}
	return unknown
}
