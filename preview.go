package easysfs

import (
	"fmt"
	"io"
	"math"

	"github.com/carbocation/pfx"
)

// Preview prints, for every population, the number of segregating sites
// retained at each candidate projection value from 2 up to ploidy times the
// population's membership. Users pick the per-population value that best
// trades sample size against retained sites and pass the result as the
// projection vector.
func Preview(w io.Writer, g *GenotypeTable, pops *Populations, ploidy int, unfolded bool, builder SpectrumBuilder) error {
	if builder == nil {
		builder = ProjectionBuilder{}
	}

	tbl, err := MakeCountTable(g, pops, ploidy)
	if err != nil {
		return pfx.Err(err)
	}

	for _, pop := range pops.Names {
		fmt.Fprintln(w, pop)
		max := ploidy * len(pops.Members[pop])
		for size := 2; size <= max; size++ {
			s, err := builder.Build(tbl, []string{pop}, []int{size}, unfolded)
			if err != nil {
				return pfx.Err(err)
			}
			fmt.Fprintf(w, "(%d, %d)\t", size, int(math.Round(s.Segregating())))
		}
		fmt.Fprint(w, "\n\n")
	}

	return nil
}
