package easysfs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
)

// WriteNative writes the 3-line interchange representation of a spectrum:
// a header with the integer shape, a folded/unfolded marker, and quoted
// population names; the flattened row-major values; and the flattened
// boolean mask. Every other converter reads this format back.
func WriteNative(s *Spectrum, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	header := make([]string, 0, len(s.Shape)+1+len(s.Pops))
	for _, n := range s.Shape {
		header = append(header, strconv.Itoa(n))
	}
	if s.Folded {
		header = append(header, "folded")
	} else {
		header = append(header, "unfolded")
	}
	for _, pop := range s.Pops {
		header = append(header, `"`+pop+`"`)
	}
	fmt.Fprintln(w, strings.Join(header, " "))

	values := make([]string, len(s.Data))
	for i, v := range s.Data {
		values[i] = formatValue(v, s.IntBins)
	}
	fmt.Fprintln(w, strings.Join(values, " "))

	mask := make([]string, len(s.Mask))
	for i, m := range s.Mask {
		if m {
			mask[i] = "1"
		} else {
			mask[i] = "0"
		}
	}
	fmt.Fprintln(w, strings.Join(mask, " "))

	if err := w.Flush(); err != nil {
		return pfx.Err(err)
	}
	return nil
}

func formatValue(v float64, intBins bool) string {
	if intBins {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// readNativeLines returns the three content lines of a native-format file,
// skipping comments.
func readNativeLines(path string) ([3]string, error) {
	var out [3]string

	f, err := os.Open(path)
	if err != nil {
		return out, pfx.Err(err)
	}
	defer f.Close()

	var lines []string
	scanner := newRowScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return out, pfx.Err(err)
	}

	if len(lines) != 3 {
		return out, pfx.Err(fmt.Errorf("malformed spectrum file %s: must have 3 lines, has %d", path, len(lines)))
	}
	copy(out[:], lines)
	return out, nil
}

// ReadNative parses a native-format spectrum file back into a Spectrum.
// Round-tripping through WriteNative and ReadNative preserves the flattened
// values and mask exactly.
func ReadNative(path string) (*Spectrum, error) {
	lines, err := readNativeLines(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	// The header is shape integers for as long as tokens parse as ints,
	// then the folding marker, then optional quoted population names.
	info := strings.Fields(lines[0])
	var shape []int
	for _, tok := range info {
		n, err := strconv.Atoi(tok)
		if err != nil {
			break
		}
		shape = append(shape, n)
	}
	if len(shape) == 0 || len(info) <= len(shape) {
		return nil, pfx.Err(fmt.Errorf("malformed spectrum header in %s: %q", path, lines[0]))
	}
	folded := !strings.Contains(info[len(shape)], "un")

	pops := make([]string, 0, len(shape))
	for _, tok := range info[len(shape)+1:] {
		pops = append(pops, strings.ReplaceAll(tok, `"`, ""))
	}
	if len(pops) != len(shape) {
		// Population names are optional metadata; fall back to generic
		// names when they are absent or do not line up.
		pops = pops[:0]
		for i := range shape {
			pops = append(pops, fmt.Sprintf("pop%d", i))
		}
	}

	total := 1
	for _, n := range shape {
		total *= n
	}

	valueTokens := strings.Fields(lines[1])
	if len(valueTokens) != total {
		return nil, pfx.Err(fmt.Errorf("spectrum file %s: shape %v wants %d values, found %d", path, shape, total, len(valueTokens)))
	}
	data := make([]float64, total)
	for i, tok := range valueTokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("spectrum file %s: bad value %q: %v", path, tok, err))
		}
		data[i] = v
	}

	maskTokens := strings.Fields(lines[2])
	if len(maskTokens) != total {
		return nil, pfx.Err(fmt.Errorf("spectrum file %s: shape %v wants %d mask entries, found %d", path, shape, total, len(maskTokens)))
	}
	mask := make([]bool, total)
	for i, tok := range maskTokens {
		mask[i] = tok != "0"
	}

	return &Spectrum{
		Pops:   pops,
		Shape:  shape,
		Data:   data,
		Mask:   mask,
		Folded: folded,
	}, nil
}
