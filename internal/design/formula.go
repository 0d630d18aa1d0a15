// Package design turns a design formula and sample metadata into a model matrix
// and resolves contrasts against its coefficients.
package design

import (
	"strings"

	"rnadiff/internal/rnaerr"
)

// Formula lists the covariates modelled as explaining count variation.
// The intercept is implicit; the last term is the variable of interest.
type Formula struct {
	Terms []string
}

// ParseFormula reads "~ batch + condition". Interactions are not supported.
func ParseFormula(s string) (Formula, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "~") {
		return Formula{}, rnaerr.Schemaf("design formula %q must start with '~'", s)
	}
	body := strings.TrimSpace(s[1:])
	if body == "" {
		return Formula{}, rnaerr.Schemaf("design formula %q has no terms", s)
	}
	if strings.ContainsAny(body, ":*") {
		return Formula{}, rnaerr.Schemaf("design formula %q: interaction terms are not supported", s)
	}
	var f Formula
	seen := map[string]bool{}
	for _, t := range strings.Split(body, "+") {
		t = strings.TrimSpace(t)
		switch {
		case t == "":
			return Formula{}, rnaerr.Schemaf("design formula %q has an empty term", s)
		case t == "1":
			continue
		case seen[t]:
			return Formula{}, rnaerr.Schemaf("design formula %q repeats term %q", s, t)
		}
		seen[t] = true
		f.Terms = append(f.Terms, t)
	}
	if len(f.Terms) == 0 {
		return Formula{}, rnaerr.Schemaf("design formula %q has no covariates", s)
	}
	return f, nil
}

// Last returns the variable of interest.
func (f Formula) Last() string { return f.Terms[len(f.Terms)-1] }

func (f Formula) String() string { return "~ " + strings.Join(f.Terms, " + ") }
