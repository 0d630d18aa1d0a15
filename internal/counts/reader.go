package counts

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"rnadiff/internal/rnaerr"
)

// ReadMatrix loads a count matrix from a CSV or TSV file (optionally gzipped).
// The header row names the samples; the first column holds gene ids.
func ReadMatrix(path string) (Matrix, error) {
	rc, err := openReader(path)
	if err != nil {
		return Matrix{}, rnaerr.IO(err, "open counts")
	}
	defer rc.Close()
	return ParseMatrix(rc, path)
}

// ParseMatrix reads a count matrix from r; name labels error messages.
func ParseMatrix(r io.Reader, name string) (Matrix, error) {
	var m Matrix
	seenHeader := false
	err := readTable(r, name, func(ln int, rec []string) error {
		if !seenHeader {
			seenHeader = true
			if len(rec) < 2 {
				return rnaerr.Shapef("%s:%d header needs a gene column and at least one sample", name, ln)
			}
			m.Samples = trimAll(rec[1:])
			return nil
		}
		if len(rec) != len(m.Samples)+1 {
			return rnaerr.Shapef("%s:%d bad field count %d, want %d", name, ln, len(rec), len(m.Samples)+1)
		}
		row := make([]int64, len(m.Samples))
		for j, f := range rec[1:] {
			v, err := parseCount(f)
			if err != nil {
				return rnaerr.Shapef("%s:%d column %q: %v", name, ln, m.Samples[j], err)
			}
			row[j] = v
		}
		m.Genes = append(m.Genes, strings.TrimSpace(rec[0]))
		m.Values = append(m.Values, row)
		return nil
	})
	if err != nil {
		return Matrix{}, err
	}
	if !seenHeader {
		return Matrix{}, rnaerr.Shapef("%s: empty count table", name)
	}
	if err := m.Validate(); err != nil {
		return Matrix{}, err
	}
	return m, nil
}

// ReadMetadata loads a sample table; the first column holds sample ids.
func ReadMetadata(path string) (Metadata, error) {
	rc, err := openReader(path)
	if err != nil {
		return Metadata{}, rnaerr.IO(err, "open metadata")
	}
	defer rc.Close()
	return ParseMetadata(rc, path)
}

// ParseMetadata reads a sample table from r; name labels error messages.
func ParseMetadata(r io.Reader, name string) (Metadata, error) {
	md := Metadata{Values: map[string][]string{}}
	seenHeader := false
	err := readTable(r, name, func(ln int, rec []string) error {
		if !seenHeader {
			seenHeader = true
			md.Columns = trimAll(rec[1:])
			for _, c := range md.Columns {
				if _, dup := md.Values[c]; dup || c == "" {
					return rnaerr.Shapef("%s:%d bad or duplicate column %q", name, ln, c)
				}
				md.Values[c] = nil
			}
			return nil
		}
		if len(rec) != len(md.Columns)+1 {
			return rnaerr.Shapef("%s:%d bad field count %d, want %d", name, ln, len(rec), len(md.Columns)+1)
		}
		md.Samples = append(md.Samples, strings.TrimSpace(rec[0]))
		for k, c := range md.Columns {
			md.Values[c] = append(md.Values[c], strings.TrimSpace(rec[k+1]))
		}
		return nil
	})
	if err != nil {
		return Metadata{}, err
	}
	if !seenHeader {
		return Metadata{}, rnaerr.Shapef("%s: empty metadata table", name)
	}
	if err := md.Validate(); err != nil {
		return Metadata{}, err
	}
	return md, nil
}

// readTable sniffs the delimiter from the first line (tab wins over comma) and
// feeds each non-blank, non-comment record to fn along with its line number.
func readTable(r io.Reader, name string, fn func(line int, rec []string) error) error {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return rnaerr.IO(err, "read %s", name)
	}
	delim := ','
	line := string(first)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Contains(line, "\t") {
		delim = '\t'
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return rnaerr.Shapef("%s:%d %v", name, perr.Line, perr.Err)
			}
			return rnaerr.IO(err, "read %s", name)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		line, _ := cr.FieldPos(0)
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}

// parseCount accepts non-negative integers, including integral floats such as "12.0".
func parseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0, errors.New("negative count " + s)
		}
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not a count: " + strconv.Quote(s))
	}
	if f < 0 {
		return 0, errors.New("negative count " + s)
	}
	if f != math.Trunc(f) {
		return 0, errors.New("non-integer count " + s)
	}
	if f >= math.MaxInt64 {
		return 0, errors.New("count out of range " + s)
	}
	return int64(f), nil
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
