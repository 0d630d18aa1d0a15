package output

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"rnadiff/internal/results"
	"rnadiff/internal/rnaerr"
)

// Run describes one analysis stored in the sqlite sink.
type Run struct {
	ID        string
	CreatedAt time.Time
	Design    string
	Contrast  string
	Shrunk    bool
	Alpha     float64
}

// NewRun stamps a run with a fresh id and the current time.
func NewRun(design string, t results.Table) Run {
	return Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Design:    design,
		Contrast:  t.Contrast,
		Shrunk:    t.Shrunk,
		Alpha:     t.Alpha,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	design     TEXT NOT NULL,
	contrast   TEXT NOT NULL,
	shrunk     INTEGER NOT NULL,
	alpha      REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id          TEXT NOT NULL REFERENCES runs(id),
	row             INTEGER NOT NULL,
	gene            TEXT NOT NULL,
	base_mean       REAL,
	log2_fold_change REAL,
	lfc_se          REAL,
	stat            REAL,
	pvalue          REAL,
	padj            REAL,
	PRIMARY KEY (run_id, gene)
);`

// ExportSQLite appends run and its table to the database at path, creating
// the schema on first use. Undefined values are stored as NULL. The whole
// run is written in one transaction.
func ExportSQLite(ctx context.Context, path string, run Run, t results.Table) (retErr error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return rnaerr.IO(err, "open sqlite %s", path)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && retErr == nil {
			retErr = rnaerr.IO(cerr, "close sqlite %s", path)
		}
	}()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return rnaerr.IO(err, "create schema in %s", path)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return rnaerr.IO(err, "begin transaction")
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, design, contrast, shrunk, alpha) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Format(time.RFC3339Nano), run.Design, run.Contrast, run.Shrunk, run.Alpha,
	); err != nil {
		return rnaerr.IO(err, "insert run %s", run.ID)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, row, gene, base_mean, log2_fold_change, lfc_se, stat, pvalue, padj)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return rnaerr.IO(err, "prepare insert")
	}
	defer func() { _ = stmt.Close() }()
	for i, r := range t.Records {
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.Gene,
			nullable(r.BaseMean), nullable(r.Log2FoldChange), nullable(r.LfcSE),
			nullable(r.Stat), nullable(r.PValue), nullable(r.Padj),
		); err != nil {
			return rnaerr.IO(err, "insert result for %s", r.Gene)
		}
	}
	if err := tx.Commit(); err != nil {
		return rnaerr.IO(err, "commit run %s", run.ID)
	}
	return nil
}

// LoadSQLite reads back the run with id from path.
func LoadSQLite(ctx context.Context, path, id string) (Run, results.Table, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Run{}, results.Table{}, rnaerr.IO(err, "open sqlite %s", path)
	}
	defer func() { _ = db.Close() }()

	var (
		run     Run
		created string
	)
	err = db.QueryRowContext(ctx,
		`SELECT id, created_at, design, contrast, shrunk, alpha FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &created, &run.Design, &run.Contrast, &run.Shrunk, &run.Alpha)
	if err != nil {
		return Run{}, results.Table{}, rnaerr.IO(err, "load run %s", id)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Run{}, results.Table{}, fmt.Errorf("run %s: bad created_at %q: %w", id, created, err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT gene, base_mean, log2_fold_change, lfc_se, stat, pvalue, padj
		 FROM results WHERE run_id = ? ORDER BY row`, id)
	if err != nil {
		return Run{}, results.Table{}, rnaerr.IO(err, "query results for %s", id)
	}
	defer func() { _ = rows.Close() }()

	t := results.Table{Contrast: run.Contrast, Shrunk: run.Shrunk, Alpha: run.Alpha}
	for rows.Next() {
		var (
			r   results.Record
			val [6]sql.NullFloat64
		)
		if err := rows.Scan(&r.Gene, &val[0], &val[1], &val[2], &val[3], &val[4], &val[5]); err != nil {
			return Run{}, results.Table{}, rnaerr.IO(err, "scan result")
		}
		r.BaseMean, r.Log2FoldChange, r.LfcSE = orNaN(val[0]), orNaN(val[1]), orNaN(val[2])
		r.Stat, r.PValue, r.Padj = orNaN(val[3]), orNaN(val[4]), orNaN(val[5])
		t.Records = append(t.Records, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, results.Table{}, rnaerr.IO(err, "read results for %s", id)
	}
	return run, t, nil
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
