package design

import (
	"fmt"
	"slices"
	"strings"

	"rnadiff/internal/rnaerr"
)

// Contrast compares two levels of one factor: log2(Numerator / Denominator).
type Contrast struct {
	Factor      string
	Numerator   string
	Denominator string
}

func (c Contrast) String() string {
	return fmt.Sprintf("%s %s vs %s", c.Factor, c.Numerator, c.Denominator)
}

// Vector returns the coefficient weights selecting c. Levels other than the two
// named stay in the model and receive weight zero.
func (m *Model) Vector(c Contrast) ([]float64, error) {
	fac, ok := m.Factors[c.Factor]
	if !ok {
		return nil, rnaerr.Schemaf("contrast factor %q is not a categorical term of %s", c.Factor, m.Formula)
	}
	for _, lvl := range []string{c.Numerator, c.Denominator} {
		if !slices.Contains(fac.Levels, lvl) {
			return nil, rnaerr.Schemaf("contrast level %q is not a level of %q (levels %v)", lvl, c.Factor, fac.Levels)
		}
	}
	if c.Numerator == c.Denominator {
		return nil, rnaerr.Schemaf("contrast compares level %q with itself", c.Numerator)
	}
	w := make([]float64, len(m.Coefficients))
	if c.Numerator != fac.Reference {
		w[m.CoefficientIndex(CoefficientName(fac.Name, c.Numerator, fac.Reference))] = 1
	}
	if c.Denominator != fac.Reference {
		w[m.CoefficientIndex(CoefficientName(fac.Name, c.Denominator, fac.Reference))] = -1
	}
	return w, nil
}

// ContrastCoefficient returns the single coefficient equal to c, if c compares
// a level with the factor's reference.
func (m *Model) ContrastCoefficient(c Contrast) (string, bool) {
	fac, ok := m.Factors[c.Factor]
	if !ok || c.Denominator != fac.Reference || c.Numerator == fac.Reference {
		return "", false
	}
	name := CoefficientName(fac.Name, c.Numerator, fac.Reference)
	return name, m.CoefficientIndex(name) >= 0
}

// ParseContrast reads "factor,numerator,denominator".
func ParseContrast(s string) (Contrast, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Contrast{}, rnaerr.Schemaf("contrast %q: want factor,numerator,denominator", s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return Contrast{}, rnaerr.Schemaf("contrast %q has an empty field", s)
		}
	}
	return Contrast{Factor: parts[0], Numerator: parts[1], Denominator: parts[2]}, nil
}

// DefaultContrast compares the last level of the formula's last term with
// that factor's reference.
func (m *Model) DefaultContrast() (Contrast, error) {
	name := m.Formula.Last()
	fac, ok := m.Factors[name]
	if !ok {
		return Contrast{}, rnaerr.Schemaf("last design term %q is not categorical; name a contrast explicitly", name)
	}
	for i := len(fac.Levels) - 1; i >= 0; i-- {
		if fac.Levels[i] != fac.Reference {
			return Contrast{Factor: name, Numerator: fac.Levels[i], Denominator: fac.Reference}, nil
		}
	}
	return Contrast{}, rnaerr.Degeneratef("factor %q has a single level", name)
}
