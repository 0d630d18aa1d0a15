package output

import (
	"encoding/json"
	"io"

	"rnadiff/internal/jsonlutil"
	"rnadiff/internal/results"
)

func init() {
	Register("jsonl", writeJSONL)
}

// writeJSONL emits one result record per line, without table metadata.
func writeJSONL(w io.Writer, t results.Table) error {
	return jsonlutil.WriteAll(w, t.Records, func(enc *json.Encoder, r results.Record) error {
		return enc.Encode(jsonRecordOf(r))
	})
}
