package artifact

import (
	"context"
	"database/sql"
	_ "embed"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

// ManifestFilename is the name of the manifest inside the output directory.
const ManifestFilename = "manifest.db"

// schema.sql creates the run table and the committed-triplet table.
//
//go:embed schema.sql
var schemaSQL string

// A Manifest records which triplets have all three files in place. Readers of the output
// directory should trust exactly the committed rows.
type Manifest struct {
	db    *sql.DB
	runID string
}

// OpenManifest opens or creates the manifest at path and registers a new run for outputDir.
func OpenManifest(ctx context.Context, path, outputDir string) (*Manifest, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open manifest %q", path)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, errors.Wrap(multierr.Combine(err, db.Close()), "cannot create manifest schema")
	}
	runID := uuid.NewString()
	if _, err := db.ExecContext(ctx, `INSERT INTO runs (run_id, output_dir) VALUES (?, ?)`, runID, outputDir); err != nil {
		return nil, errors.Wrap(multierr.Combine(err, db.Close()), "cannot register run")
	}
	return &Manifest{db: db, runID: runID}, nil
}

// RunID identifies this run in the manifest.
func (m *Manifest) RunID() string {
	return m.runID
}

// Commit marks the triplet stem as complete. Re-committing a stem replaces its row.
func (m *Manifest) Commit(ctx context.Context, stem string, paths Paths) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO committed (ts, run_id, rgb, pose, depth)
		VALUES (?, ?, ?, ?, ?)
	`, stem, m.runID, paths.RGB, paths.Pose, paths.Depth)
	if err != nil {
		return errors.Wrapf(err, "cannot commit %s", stem)
	}
	return nil
}

// Committed returns the committed stems in timestamp order.
func (m *Manifest) Committed(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT ts FROM committed ORDER BY CAST(ts AS REAL)`)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list committed triplets")
	}
	defer rows.Close()

	var stems []string
	for rows.Next() {
		var stem string
		if err := rows.Scan(&stem); err != nil {
			return nil, err
		}
		stems = append(stems, stem)
	}
	return stems, rows.Err()
}

// Close closes the underlying database.
func (m *Manifest) Close() error {
	return m.db.Close()
}
