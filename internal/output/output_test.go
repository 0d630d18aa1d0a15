package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnadiff/internal/results"
	"rnadiff/internal/rnaerr"
)

func table() results.Table {
	nan := math.NaN()
	return results.Table{
		Contrast:    "condition Treatment vs Control",
		Coefficient: "condition_Treatment_vs_Control",
		Alpha:       0.1,
		Records: []results.Record{
			{Gene: "g1", BaseMean: 120.5, Log2FoldChange: 2.25, LfcSE: 0.5, Stat: 4.5, PValue: 1e-5, Padj: 2e-4},
			{Gene: "g2", BaseMean: 3, Log2FoldChange: -0.5, LfcSE: 1, Stat: -0.5, PValue: 0.6, Padj: nan},
			{Gene: "g3", BaseMean: 0, Log2FoldChange: nan, LfcSE: nan, Stat: nan, PValue: nan, Padj: nan},
		},
	}
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "jsonl", "tsv"}, Formats())
	assert.True(t, HasFormat(DefaultFormat))
	err := Write("xlsx", &bytes.Buffer{}, table())
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write("csv", &buf, table()))
	want := strings.Join([]string{
		"gene,baseMean,log2FoldChange,lfcSE,stat,pvalue,padj",
		"g1,120.5,2.25,0.5,4.5,1e-05,0.0002",
		"g2,3,-0.5,1,-0.5,0.6,NA",
		"g3,0,NA,NA,NA,NA,NA",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write("tsv", &buf, table()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "g2\t3\t-0.5\t1\t-0.5\t0.6\tNA", lines[2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write("json", &buf, table()))
	var got struct {
		Contrast string
		Results  []map[string]any
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "condition Treatment vs Control", got.Contrast)
	require.Len(t, got.Results, 3)
	assert.Equal(t, 2.25, got.Results[0]["log2FoldChange"])
	assert.Nil(t, got.Results[1]["padj"])
	assert.Contains(t, got.Results[2], "pvalue")
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write("jsonl", &buf, table()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `{"gene":"g3","baseMean":0,"log2FoldChange":null,"lfcSE":null,"stat":null,"pvalue":null,"padj":null}`, lines[2])
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	require.NoError(t, ExportFile(path, "csv", table()))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "gene,baseMean"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not remain")
}

func TestExportFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "results.csv")
	err := ExportFile(path, "csv", table())
	assert.ErrorIs(t, err, rnaerr.ErrIO)
	assert.Equal(t, 3, rnaerr.ExitCode(err))
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestAtomicWriteLeavesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	boom := errors.New("boom")
	err := AtomicWrite(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestExportUnknownFormat(t *testing.T) {
	err := ExportFile(filepath.Join(t.TempDir(), "x"), "parquet", table())
	assert.ErrorIs(t, err, rnaerr.ErrSchema)
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	tbl := table()
	first := NewRun("~ condition", tbl)
	require.NoError(t, ExportSQLite(ctx, path, first, tbl))
	second := NewRun("~ batch + condition", tbl)
	require.NoError(t, ExportSQLite(ctx, path, second, tbl))
	assert.NotEqual(t, first.ID, second.ID)

	run, back, err := LoadSQLite(ctx, path, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "~ batch + condition", run.Design)
	assert.True(t, run.CreatedAt.Equal(second.CreatedAt))
	want := tbl.Records
	assert.Empty(t, cmp.Diff(want, back.Records, cmpopts.EquateNaNs()))
}

func TestSQLiteUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "runs.db")
	err := ExportSQLite(context.Background(), path, NewRun("~ condition", table()), table())
	assert.ErrorIs(t, err, rnaerr.ErrIO)
}

func TestRenderSummary(t *testing.T) {
	s := results.Summary{Total: 200, Up: 12, Down: 8, LowCount: 40, Alpha: 0.1, LowThreshold: 4.6}
	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, "condition Treatment vs Control", s, true))
	out := buf.String()
	assert.Contains(t, out, "out of 200 with nonzero total read count")
	assert.Contains(t, out, "LFC > 0 (up)       : 12, 6%")
	assert.Contains(t, out, "low counts [1]     : 40, 20%")
	assert.Contains(t, out, "(mean count < 5)")

	buf.Reset()
	require.NoError(t, RenderSummary(&buf, "c", s, false))
	assert.Contains(t, buf.String(), "LFC < 0 (down)")
}

func TestWriteNormalized(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNormalized(&buf, []string{"g1"}, []string{"A", "B"}, [][]float64{{1.5, 20}}, Delimiter("tsv")))
	assert.Equal(t, "gene\tA\tB\ng1\t1.5000\t20.0000\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteSizeFactors(&buf, []string{"A", "B"}, []float64{0.5, 2}, Delimiter("csv")))
	assert.Equal(t, "sample,sizeFactor\nA,0.5\nB,2\n", buf.String())
}
