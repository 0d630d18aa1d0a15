// Package jsonutil holds the JSON encoding conventions shared by writers.
package jsonutil

import (
	"encoding/json"
	"io"
	"math"
)

// EncodePretty writes v as two-space indented JSON to w. Gene ids are
// written as is, without HTML escaping.
func EncodePretty(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Float maps a statistic to a nullable JSON number. NaN and ±Inf have no
// JSON form and become null.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
