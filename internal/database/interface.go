// Package database unifies two data stores behind a single row-fetching
// interface: a remote SQL warehouse executing statements asynchronously via
// submit/poll, and a managed Postgres instance ("Lakebase") reachable with
// short-lived OAuth-derived credentials.
package database

import "context"

// SQLBackend is the stable contract shared by both backends. Callers stay
// backend-agnostic: identical signatures, identical Row shape.
type SQLBackend interface {
	// Fetch executes a query with positional bind values and returns all
	// rows. A fetch either fully succeeds or returns an error, never
	// partial results.
	Fetch(ctx context.Context, sql string, params ...any) ([]Row, error)

	// Exec executes a statement without result rows and returns the number
	// of affected rows where the backend reports one.
	Exec(ctx context.Context, sql string, params ...any) (int64, error)

	// Close releases the backend's connection state.
	Close(ctx context.Context) error
}

// FetchOne returns the first row of a query, or ok=false for an empty
// result.
func FetchOne(ctx context.Context, b SQLBackend, sql string, params ...any) (Row, bool, error) {
	rows, err := b.Fetch(ctx, sql, params...)
	if err != nil {
		return Row{}, false, err
	}
	if len(rows) == 0 {
		return Row{}, false, nil
	}
	return rows[0], true, nil
}

// FetchValue returns the first column of the first row, or nil for an empty
// result.
func FetchValue(ctx context.Context, b SQLBackend, sql string, params ...any) (any, error) {
	row, ok, err := FetchOne(ctx, b, sql, params...)
	if err != nil || !ok {
		return nil, err
	}
	if row.Len() == 0 {
		return nil, nil
	}
	return row.Value(0), nil
}
