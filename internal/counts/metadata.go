package counts

import (
	"strings"

	"rnadiff/internal/rnaerr"
)

// Metadata annotates each sample with covariate values, kept as strings.
type Metadata struct {
	Samples []string
	Columns []string
	Values  map[string][]string // column → value per sample
}

// Has reports whether the table carries covariate col.
func (md Metadata) Has(col string) bool {
	_, ok := md.Values[col]
	return ok
}

// Column returns the values of covariate col, one per sample.
func (md Metadata) Column(col string) ([]string, bool) {
	v, ok := md.Values[col]
	return v, ok
}

// Validate checks sample ids and that each column has one value per sample.
func (md Metadata) Validate() error {
	if err := uniqueIDs("metadata sample", md.Samples); err != nil {
		return err
	}
	for _, c := range md.Columns {
		if len(md.Values[c]) != len(md.Samples) {
			return rnaerr.Shapef("metadata column %q has %d values, want %d", c, len(md.Values[c]), len(md.Samples))
		}
	}
	return nil
}

// Align verifies that the metadata rows name exactly the given samples in the same order.
// Mismatches are rejected rather than reordered.
func (md Metadata) Align(samples []string) error {
	if len(md.Samples) != len(samples) {
		return rnaerr.Shapef("metadata has %d samples, count matrix has %d", len(md.Samples), len(samples))
	}
	inMeta := make(map[string]struct{}, len(md.Samples))
	for _, s := range md.Samples {
		inMeta[s] = struct{}{}
	}
	var missing []string
	for _, s := range samples {
		if _, ok := inMeta[s]; !ok {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return rnaerr.Shapef("samples missing from metadata: %s", strings.Join(missing, ", "))
	}
	for i := range samples {
		if md.Samples[i] != samples[i] {
			return rnaerr.Shapef("sample order differs at position %d: metadata %q, counts %q", i+1, md.Samples[i], samples[i])
		}
	}
	return nil
}
