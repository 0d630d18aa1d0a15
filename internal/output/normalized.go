package output

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteNormalized writes a gene × sample table of normalized counts.
func WriteNormalized(w io.Writer, genes, samples []string, values [][]float64, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(append([]string{"gene"}, samples...)); err != nil {
		return err
	}
	row := make([]string, len(samples)+1)
	for i, g := range genes {
		row[0] = g
		for j, v := range values[i] {
			row[j+1] = strconv.FormatFloat(v, 'f', 4, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSizeFactors writes one "sample, sizeFactor" row per sample.
func WriteSizeFactors(w io.Writer, samples []string, sf []float64, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write([]string{"sample", "sizeFactor"}); err != nil {
		return err
	}
	for j, s := range samples {
		if err := cw.Write([]string{s, FormatFloat(sf[j])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Delimiter returns the field separator implied by a format name.
func Delimiter(format string) rune {
	if format == "tsv" {
		return '\t'
	}
	return ','
}
