package backend

import (
	"database/sql"
	"io"

	"github.com/jmoiron/sqlx"
)

// SQLXRows adapts rows to Rows, scanning each row into a slice and
// stringifying it. Errors are wrapped with classify. rows is closed when
// its columns cannot be read.
func SQLXRows(rows *sqlx.Rows, classify Classifier) (Rows, error) {
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, Wrap(err, classify)
	}
	return &sliceRows{rows: rows, cols: cols, classify: classify}, nil
}

type sliceRows struct {
	rows     *sqlx.Rows
	cols     []string
	classify Classifier
}

func (r *sliceRows) Columns() []string { return r.cols }

func (r *sliceRows) Next() ([]sql.NullString, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, Wrap(err, r.classify)
		}
		return nil, io.EOF
	}
	vals, err := r.rows.SliceScan()
	if err != nil {
		return nil, Wrap(err, r.classify)
	}
	out, err := Strings(vals)
	if err != nil {
		return nil, Wrap(err, r.classify)
	}
	return out, nil
}

func (r *sliceRows) Close() error {
	return Wrap(r.rows.Close(), r.classify)
}
