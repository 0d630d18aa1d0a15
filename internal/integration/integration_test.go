package integration

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rnadiff/internal/app"
)

func run(t *testing.T, argv ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errBuf bytes.Buffer
	code = app.Run(argv, &out, &errBuf)
	return code, out.String(), errBuf.String()
}

func mustExist(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			t.Fatalf("expected %s: %v", p, err)
		}
		if fi.Size() == 0 {
			t.Fatalf("%s is empty", p)
		}
	}
}

func TestEndToEndReference(t *testing.T) {
	dir := t.TempDir()
	code, out, errOut := run(t, "run", "--source", "reference", "--design", "~ batch + condition",
		"--out-dir", dir, "--plot-format", "svg", "--plain", "--quiet")
	if code != 0 {
		t.Fatalf("run exit %d, err=%s", code, errOut)
	}
	if !strings.Contains(out, "condition Treatment vs Control") {
		t.Fatalf("summary missing contrast:\n%s", out)
	}
	if !strings.Contains(out, "LFC > 0 (up)") {
		t.Fatalf("summary missing counts:\n%s", out)
	}
	mustExist(t,
		filepath.Join(dir, "results.csv"),
		filepath.Join(dir, "ma.svg"),
		filepath.Join(dir, "volcano.svg"),
		filepath.Join(dir, "heatmap.svg"),
	)

	f, err := os.Open(filepath.Join(dir, "results.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse results: %v", err)
	}
	if len(rows) != 61 {
		t.Fatalf("want header + 60 genes, got %d rows", len(rows))
	}
	if got := strings.Join(rows[0], ","); got != "gene,baseMean,log2FoldChange,lfcSE,stat,pvalue,padj" {
		t.Fatalf("header %q", got)
	}
}

func TestSimulateThenRunFromFiles(t *testing.T) {
	dir := t.TempDir()
	code, _, errOut := run(t, "simulate", "--genes", "300", "--samples", "3", "--batches", "2", "--seed", "5", "--out-dir", dir)
	if code != 0 {
		t.Fatalf("simulate exit %d, err=%s", code, errOut)
	}
	mustExist(t,
		filepath.Join(dir, "counts.tsv"),
		filepath.Join(dir, "samples.tsv"),
		filepath.Join(dir, "truth.tsv"),
	)

	code, _, errOut = run(t, "run",
		"--counts", filepath.Join(dir, "counts.tsv"),
		"--metadata", filepath.Join(dir, "samples.tsv"),
		"--design", "~ batch + condition",
		"--contrast", "condition,Treatment,Control",
		"--shrink", "normal",
		"--format", "tsv",
		"--normalized",
		"--no-plots",
		"--sqlite", filepath.Join(dir, "runs.db"),
		"--out-dir", dir, "--plain", "-q")
	if code != 0 {
		t.Fatalf("run exit %d, err=%s", code, errOut)
	}
	mustExist(t,
		filepath.Join(dir, "results.tsv"),
		filepath.Join(dir, "normalized_counts.tsv"),
		filepath.Join(dir, "size_factors.tsv"),
		filepath.Join(dir, "runs.db"),
	)
	if _, err := os.Stat(filepath.Join(dir, "ma.png")); !os.IsNotExist(err) {
		t.Fatalf("--no-plots still wrote a figure (stat err %v)", err)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	results := func(threads int) string {
		dir := t.TempDir()
		code, _, errOut := run(t, "run", "--source", "simulate", "--sim-genes", "200", "--seed", "3",
			"--threads", fmt.Sprint(threads), "--format", "json", "--no-plots", "--out-dir", dir, "-q")
		if code != 0 {
			t.Fatalf("exit %d err %s", code, errOut)
		}
		b, err := os.ReadFile(filepath.Join(dir, "results.json"))
		if err != nil {
			t.Fatal(err)
		}
		return string(b)
	}
	serial := results(1)
	parallel := results(4)
	if serial != parallel {
		t.Fatalf("parallel output differs from serial")
	}
}

func TestNormalizeToStdout(t *testing.T) {
	dir := t.TempDir()
	if code, _, errOut := run(t, "simulate", "--genes", "50", "--out-dir", dir); code != 0 {
		t.Fatalf("simulate exit %d, err=%s", code, errOut)
	}
	sf := filepath.Join(dir, "sf.csv")
	code, out, errOut := run(t, "normalize", "--counts", filepath.Join(dir, "counts.tsv"), "--size-factors", sf)
	if code != 0 {
		t.Fatalf("normalize exit %d, err=%s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 51 {
		t.Fatalf("want header + 50 genes, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "gene,") {
		t.Fatalf("header %q", lines[0])
	}
	mustExist(t, sf)
}

func TestPrintConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "analysis.yaml")
	if err := os.WriteFile(cfg, []byte("source: reference\nalpha: 0.05\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := run(t, "run", "--config", cfg, "--alpha", "0.01", "--print-config")
	if code != 0 {
		t.Fatalf("exit %d, err=%s", code, errOut)
	}
	for _, want := range []string{"source: reference", "alpha: 0.01", "min_count: 10"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPrintConfigKeepsExplicitZeros(t *testing.T) {
	code, out, errOut := run(t, "run", "--source", "simulate", "--lfc", "0", "--heatmap-genes", "0", "--seed", "0", "--print-config")
	if code != 0 {
		t.Fatalf("exit %d, err=%s", code, errOut)
	}
	for _, want := range []string{"lfc: 0\n", "heatmap_genes: 0\n", "seed: 0\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "version")
	if code != 0 || !strings.HasPrefix(out, "rnadiff version ") {
		t.Fatalf("exit %d, out %q", code, out)
	}
}

func TestExitCodes(t *testing.T) {
	badCfg := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(badCfg, []byte("sourc: reference\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(t.TempDir(), "nope")

	cases := []struct {
		name string
		argv []string
		want int
	}{
		{"unknown flag", []string{"run", "--bogus"}, 2},
		{"unknown command", []string{"frobnicate"}, 2},
		{"files without inputs", []string{"run"}, 2},
		{"bad alpha", []string{"run", "--source", "reference", "--alpha", "2"}, 2},
		{"unknown config key", []string{"run", "--config", badCfg}, 2},
		{"bad contrast", []string{"run", "--source", "reference", "--contrast", "condition,Treatment"}, 2},
		{"missing config", []string{"run", "--config", missing + ".yaml"}, 3},
		{"missing counts", []string{"run", "--counts", missing + ".tsv", "--metadata", missing + ".tsv"}, 3},
		{"missing out dir", []string{"run", "--source", "reference", "--no-plots", "--out-dir", missing, "-q"}, 3},
		{"normalize needs counts", []string{"normalize"}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, errOut := run(t, tc.argv...)
			if code != tc.want {
				t.Fatalf("exit %d, want %d (stderr %q)", code, tc.want, errOut)
			}
			if !strings.HasPrefix(errOut, "rnadiff: ") && !strings.Contains(errOut, "rnadiff: ") {
				t.Fatalf("no error message on stderr: %q", errOut)
			}
		})
	}
}
