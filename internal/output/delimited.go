package output

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"rnadiff/internal/results"
)

// Header is the column order of delimited exports.
var Header = []string{"gene", "baseMean", "log2FoldChange", "lfcSE", "stat", "pvalue", "padj"}

// NA marks an undefined value in delimited output.
const NA = "NA"

func init() {
	Register("csv", func(w io.Writer, t results.Table) error { return writeDelimited(w, t, ',') })
	Register("tsv", func(w io.Writer, t results.Table) error { return writeDelimited(w, t, '\t') })
}

func writeDelimited(w io.Writer, t results.Table, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(Header); err != nil {
		return err
	}
	row := make([]string, len(Header))
	for _, r := range t.Records {
		row[0] = r.Gene
		row[1] = FormatFloat(r.BaseMean)
		row[2] = FormatFloat(r.Log2FoldChange)
		row[3] = FormatFloat(r.LfcSE)
		row[4] = FormatFloat(r.Stat)
		row[5] = FormatFloat(r.PValue)
		row[6] = FormatFloat(r.Padj)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatFloat prints v in the shortest form that reads back exactly, or NA.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return NA
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
