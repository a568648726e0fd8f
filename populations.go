package easysfs

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/carbocation/pfx"
)

// Populations is an ordered mapping of population names to their member
// individuals. Population order is first appearance in the assignment file
// and is the canonical axis order for every spectrum produced from it.
type Populations struct {
	Names   []string
	Members map[string][]string
	indPop  map[string]string
}

// ReadPopulations parses a population-assignment file: plain text, one
// individual name and one population name per line separated by whitespace,
// no header.
func ReadPopulations(path string) (*Populations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	p := &Populations{
		Members: make(map[string][]string),
		indPop:  make(map[string]string),
	}

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, pfx.Err(fmt.Errorf("population file %s line %d: expected `individual population`, got %q", path, line, text))
		}
		ind, pop := fields[0], fields[1]

		if _, seen := p.Members[pop]; !seen {
			p.Names = append(p.Names, pop)
		}
		p.Members[pop] = append(p.Members[pop], ind)
		p.indPop[ind] = pop
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	if len(p.Names) == 0 {
		return nil, pfx.Err(fmt.Errorf("population file %s contains no assignments", path))
	}

	return p, nil
}

// Individuals returns every assigned individual in mapping order.
func (p *Populations) Individuals() []string {
	var inds []string
	for _, pop := range p.Names {
		inds = append(inds, p.Members[pop]...)
	}
	return inds
}

// NumIndividuals counts assigned individuals across all populations.
func (p *Populations) NumIndividuals() int {
	n := 0
	for _, pop := range p.Names {
		n += len(p.Members[pop])
	}
	return n
}

// MismatchReport lists individuals present in only one of the two inputs.
type MismatchReport struct {
	// OnlyInMapping are individuals assigned to a population but absent
	// from the variant table's sample columns.
	OnlyInMapping []string
	// OnlyInTable are sample columns with no population assignment.
	OnlyInTable []string
}

// Empty reports whether the two inputs agree.
func (r *MismatchReport) Empty() bool {
	return len(r.OnlyInMapping) == 0 && len(r.OnlyInTable) == 0
}

// Reconcile compares the mapping against the variant table's sample names.
// It reports but does not resolve mismatches; callers decide (typically
// after prompting) whether to Exclude the offenders and continue.
func (p *Populations) Reconcile(samples []string) *MismatchReport {
	inTable := make(map[string]bool, len(samples))
	for _, s := range samples {
		inTable[s] = true
	}

	rep := &MismatchReport{}
	for _, ind := range p.Individuals() {
		if !inTable[ind] {
			rep.OnlyInMapping = append(rep.OnlyInMapping, ind)
		}
	}
	for _, s := range samples {
		if _, ok := p.indPop[s]; !ok {
			rep.OnlyInTable = append(rep.OnlyInTable, s)
		}
	}

	return rep
}

// Exclude removes the named individuals from the mapping. Populations left
// with no members are dropped, and the dropped names are returned.
func (p *Populations) Exclude(inds []string) (droppedPops []string) {
	exclude := make(map[string]bool, len(inds))
	for _, ind := range inds {
		exclude[ind] = true
	}

	var kept []string
	for _, pop := range p.Names {
		members := p.Members[pop][:0]
		for _, ind := range p.Members[pop] {
			if exclude[ind] {
				delete(p.indPop, ind)
				continue
			}
			members = append(members, ind)
		}

		if len(members) == 0 {
			delete(p.Members, pop)
			droppedPops = append(droppedPops, pop)
			continue
		}
		p.Members[pop] = members
		kept = append(kept, pop)
	}
	p.Names = kept

	return droppedPops
}
