package easysfs

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"sort"

	"github.com/carbocation/pfx"
)

// BinCounts re-expresses a spectrum as sparse (configuration, count) pairs:
// one configuration per non-zero, non-monomorphic tensor cell, giving each
// population's (ancestral, derived) allele counts. The serialized form is a
// reloadable container for downstream composite-likelihood tools; producing
// it is best-effort and its failure never fails a run.
type BinCounts struct {
	SampledPops []string     `json:"sampled_pops"`
	Folded      bool         `json:"folded"`
	Length      int          `json:"length"`
	Configs     [][][2]int   `json:"configs"`
	LocusInfo   [][3]float64 `json:"(locus,config_id,count)"`
}

// BinCountsFromNative builds the container from a native-format spectrum
// file. The container is always constructed unfolded; callers fold it
// explicitly afterwards when folding is wanted.
func BinCountsFromNative(path string) (*BinCounts, error) {
	s, err := ReadNative(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var length float64
	for i, v := range s.Data {
		if !s.Mask[i] {
			length += v
		}
	}

	b := &BinCounts{
		SampledPops: s.Pops,
		Length:      int(length),
	}

	idx := make([]int, len(s.Shape))
	last := len(s.Data) - 1
	for flat, v := range s.Data {
		// The all-ancestral and all-derived corners are monomorphic, and
		// empty bins carry no information.
		if flat == 0 || flat == last || v == 0 {
			continue
		}

		s.MultiIndex(flat, idx)
		cfg := make([][2]int, len(idx))
		for axis, k := range idx {
			size := s.Shape[axis] - 1
			cfg[axis] = [2]int{size - k, k}
		}

		id := len(b.Configs)
		b.Configs = append(b.Configs, cfg)
		b.LocusInfo = append(b.LocusInfo, [3]float64{0, float64(id), v})
	}

	return b, nil
}

// Fold collapses allele polarity by merging every configuration with its
// ancestral/derived mirror into a canonical orientation: the one with the
// smaller total derived count, ties broken lexicographically. Counts of
// merged pairs are summed. Folding an already-folded container is a no-op.
func (b *BinCounts) Fold() {
	if b.Folded {
		return
	}

	order := make([]string, 0, len(b.Configs))
	merged := make(map[string]float64, len(b.Configs))
	byKey := make(map[string][][2]int, len(b.Configs))

	for i, cfg := range b.Configs {
		canon := canonicalConfig(cfg)
		key := configKey(canon)
		if _, seen := merged[key]; !seen {
			order = append(order, key)
			byKey[key] = canon
		}
		merged[key] += b.LocusInfo[i][2]
	}
	sort.Strings(order)

	b.Configs = b.Configs[:0]
	b.LocusInfo = b.LocusInfo[:0]
	for _, key := range order {
		id := len(b.Configs)
		b.Configs = append(b.Configs, byKey[key])
		b.LocusInfo = append(b.LocusInfo, [3]float64{0, float64(id), merged[key]})
	}
	b.Folded = true
}

// canonicalConfig returns cfg or its mirror, whichever has the smaller
// total derived count (lexicographically smaller on ties).
func canonicalConfig(cfg [][2]int) [][2]int {
	mirror := make([][2]int, len(cfg))
	derived, mirrorDerived := 0, 0
	for i, pair := range cfg {
		mirror[i] = [2]int{pair[1], pair[0]}
		derived += pair[1]
		mirrorDerived += pair[0]
	}

	switch {
	case derived < mirrorDerived:
		return cfg
	case mirrorDerived < derived:
		return mirror
	case configKey(cfg) <= configKey(mirror):
		return cfg
	}
	return mirror
}

func configKey(cfg [][2]int) string {
	key, err := json.Marshal(cfg)
	if err != nil {
		// [][2]int always marshals.
		panic(err)
	}
	return string(key)
}

// MarshalJSON emits the field names verbatim: the "(locus,config_id,count)"
// key cannot be expressed as a struct tag because commas delimit tag options.
func (b *BinCounts) MarshalJSON() ([]byte, error) {
	fields := []struct {
		key string
		val any
	}{
		{"sampled_pops", b.SampledPops},
		{"folded", b.Folded},
		{"length", b.Length},
		{"configs", b.Configs},
		{"(locus,config_id,count)", b.LocusInfo},
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.val)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WriteFile serializes the container as JSON.
func (b *BinCounts) WriteFile(path string) error {
	data, err := json.Marshal(b)
	if err != nil {
		return pfx.Err(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return pfx.Err(err)
	}
	return nil
}

// NumVariants sums the per-configuration counts, rounded to whole variants.
func (b *BinCounts) NumVariants() int {
	var n float64
	for _, row := range b.LocusInfo {
		n += row[2]
	}
	return int(math.Round(n))
}
