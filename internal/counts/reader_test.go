package counts

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnadiff/internal/rnaerr"
)

const csvCounts = `gene,S1,S2,S3
g1,10,0,5
g2,0,0,0
# comment
g3,7.0,3,1
`

func TestParseMatrixCSV(t *testing.T) {
	m, err := ParseMatrix(strings.NewReader(csvCounts), "counts.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2", "S3"}, m.Samples)
	assert.Equal(t, []string{"g1", "g2", "g3"}, m.Genes)
	assert.Equal(t, []int64{7, 3, 1}, m.Values[2])
}

func TestParseMatrixTSV(t *testing.T) {
	in := "\tA\tB\ng1\t1\t2\n"
	m, err := ParseMatrix(strings.NewReader(in), "counts.tsv")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, m.Samples)
	assert.Equal(t, [][]int64{{1, 2}}, m.Values)
}

func TestParseMatrixShapeErrors(t *testing.T) {
	cases := map[string]string{
		"negative":    "gene,A,B\ng1,1,-2\n",
		"fractional":  "gene,A,B\ng1,1,2.5\n",
		"text":        "gene,A,B\ng1,1,x\n",
		"overflow":    "gene,A,B\ng1,1,1e30\n",
		"ragged":      "gene,A,B\ng1,1\n",
		"dup gene":    "gene,A,B\ng1,1,2\ng1,3,4\n",
		"dup sample":  "gene,A,A\ng1,1,2\n",
		"empty table": "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMatrix(strings.NewReader(in), "bad.csv")
			require.Error(t, err)
			assert.ErrorIs(t, err, rnaerr.ErrShape)
		})
	}
}

func TestParseCountOutOfRange(t *testing.T) {
	for _, in := range []string{"1e30", "9223372036854775808", "9.3e18"} {
		_, err := parseCount(in)
		require.Error(t, err, in)
		assert.Contains(t, err.Error(), "count out of range", in)
	}
	v, err := parseCount("1e18")
	require.NoError(t, err)
	assert.Equal(t, int64(1e18), v)

	_, err = ParseMatrix(strings.NewReader("gene,A,B\ng1,1,1e30\n"), "huge.csv")
	assert.ErrorIs(t, err, rnaerr.ErrShape)
	assert.NotContains(t, err.Error(), "negative")
}

func TestParseMatrixReportsLine(t *testing.T) {
	_, err := ParseMatrix(strings.NewReader("gene,A\n# skip\ng1,-1\n"), "c.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c.csv:3")
}

func TestReadMatrixGzipBySniffing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.txt")
	fh, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(fh)
	_, err = gw.Write([]byte(csvCounts))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, fh.Close())

	m, err := ReadMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumGenes())
}

func TestReadMatrixMissingFile(t *testing.T) {
	_, err := ReadMatrix(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, rnaerr.ErrIO)
}

func TestParseMetadata(t *testing.T) {
	in := "sample,condition,batch\nS1,Control,b1\nS2,Treatment,b2\n"
	md, err := ParseMetadata(strings.NewReader(in), "meta.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"condition", "batch"}, md.Columns)
	cond, ok := md.Column("condition")
	require.True(t, ok)
	assert.Equal(t, []string{"Control", "Treatment"}, cond)
	assert.False(t, md.Has("age"))
}

func TestWriteRoundTrip(t *testing.T) {
	m, err := ParseMatrix(strings.NewReader(csvCounts), "counts.csv")
	require.NoError(t, err)
	var sb strings.Builder
	require.NoError(t, WriteMatrix(&sb, m, '\t'))
	back, err := ParseMatrix(strings.NewReader(sb.String()), "back.tsv")
	require.NoError(t, err)
	assert.Equal(t, m, back)
}
