package counts

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteMatrix writes m as a delimited table with a "gene" header cell.
func WriteMatrix(w io.Writer, m Matrix, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(append([]string{"gene"}, m.Samples...)); err != nil {
		return err
	}
	rec := make([]string, len(m.Samples)+1)
	for i, g := range m.Genes {
		rec[0] = g
		for j, v := range m.Values[i] {
			rec[j+1] = strconv.FormatInt(v, 10)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMetadata writes md as a delimited table with a "sample" header cell.
func WriteMetadata(w io.Writer, md Metadata, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(append([]string{"sample"}, md.Columns...)); err != nil {
		return err
	}
	rec := make([]string, len(md.Columns)+1)
	for i, s := range md.Samples {
		rec[0] = s
		for k, c := range md.Columns {
			rec[k+1] = md.Values[c][i]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
