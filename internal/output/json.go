package output

import (
	"io"

	"rnadiff/internal/jsonutil"
	"rnadiff/internal/results"
)

type jsonRecord struct {
	Gene           string   `json:"gene"`
	BaseMean       *float64 `json:"baseMean"`
	Log2FoldChange *float64 `json:"log2FoldChange"`
	LfcSE          *float64 `json:"lfcSE"`
	Stat           *float64 `json:"stat"`
	PValue         *float64 `json:"pvalue"`
	Padj           *float64 `json:"padj"`
}

type jsonTable struct {
	Contrast        string       `json:"contrast"`
	Coefficient     string       `json:"coefficient,omitempty"`
	Shrunk          bool         `json:"shrunk"`
	Alpha           float64      `json:"alpha"`
	FilterThreshold float64      `json:"filterThreshold"`
	Results         []jsonRecord `json:"results"`
}

func init() {
	Register("json", writeJSON)
}

// writeJSON emits the table with its metadata; NaN becomes null.
func writeJSON(w io.Writer, t results.Table) error {
	out := jsonTable{
		Contrast:        t.Contrast,
		Coefficient:     t.Coefficient,
		Shrunk:          t.Shrunk,
		Alpha:           t.Alpha,
		FilterThreshold: t.FilterThreshold,
		Results:         make([]jsonRecord, len(t.Records)),
	}
	for i, r := range t.Records {
		out.Results[i] = jsonRecordOf(r)
	}
	return jsonutil.EncodePretty(w, out)
}

func jsonRecordOf(r results.Record) jsonRecord {
	return jsonRecord{
		Gene:           r.Gene,
		BaseMean:       jsonutil.Float(r.BaseMean),
		Log2FoldChange: jsonutil.Float(r.Log2FoldChange),
		LfcSE:          jsonutil.Float(r.LfcSE),
		Stat:           jsonutil.Float(r.Stat),
		PValue:         jsonutil.Float(r.PValue),
		Padj:           jsonutil.Float(r.Padj),
	}
}
