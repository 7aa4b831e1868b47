package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lakegate/internal/logging"
)

// Credential is a short-lived database password with its expiry. Replaced
// wholesale on refresh; never shared across backend instances.
type Credential struct {
	Token  string
	Expiry time.Time
}

// Valid reports whether the credential can still be used, given a safety
// margin before the actual expiry. A zero expiry means the issuer did not
// report one and the credential is treated as valid until a forced refresh.
func (c Credential) Valid(margin time.Duration) bool {
	if c.Token == "" {
		return false
	}
	if c.Expiry.IsZero() {
		return true
	}
	return time.Until(c.Expiry) > margin
}

// DatabaseCredentialSource mints database credentials. The service variant
// exchanges the workspace identity for a fresh token; the per-request
// variant hands back the caller's own forwarded token.
type DatabaseCredentialSource interface {
	DatabaseCredential(ctx context.Context) (Credential, error)
}

// LakebaseConfig holds Lakebase connection settings.
type LakebaseConfig struct {
	Host          string
	Port          int
	Database      string
	User          string
	SSLMode       string
	RefreshMargin time.Duration // refresh this long before expiry, default 5m

	// PerRequestAuth opens a dedicated connection per fetch using the
	// caller's forwarded token instead of reusing a service connection.
	PerRequestAuth bool
}

// pgConn is the slice of *pgx.Conn the backend uses, split out so tests can
// fake the connection.
type pgConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close(ctx context.Context) error
}

type connectFunc func(ctx context.Context, dsn string) (pgConn, error)

func pgxConnect(ctx context.Context, dsn string) (pgConn, error) {
	return pgx.Connect(ctx, dsn)
}

// LakebaseBackend executes SQL against a managed Postgres instance,
// refreshing its short-lived credential before expiry and reopening the
// connection with the new token as password.
//
// The single connection and its credential are shared mutable state; all
// use, refresh, and reconnect happens under mu, so concurrent callers never
// race a half-reconnected handle and an expired credential triggers exactly
// one refresh.
type LakebaseBackend struct {
	cfg     LakebaseConfig
	source  DatabaseCredentialSource
	connect connectFunc

	mu   sync.Mutex
	conn pgConn
	cred Credential
}

// NewLakebaseBackend creates a Lakebase backend. The connection is opened
// lazily on first query.
func NewLakebaseBackend(source DatabaseCredentialSource, cfg LakebaseConfig) (*LakebaseBackend, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("lakebase host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.Database == "" {
		cfg.Database = "databricks_postgres"
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("lakebase user is required")
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "require"
	}
	if cfg.RefreshMargin == 0 {
		cfg.RefreshMargin = 5 * time.Minute
	}
	return &LakebaseBackend{
		cfg:     cfg,
		source:  source,
		connect: pgxConnect,
	}, nil
}

// Fetch executes a query with parameter binding and returns all rows.
func (b *LakebaseBackend) Fetch(ctx context.Context, sql string, params ...any) ([]Row, error) {
	var rows []Row
	err := b.withConn(ctx, func(conn pgConn) error {
		var err error
		rows, err = queryRows(ctx, conn, sql, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Exec executes a statement and returns the affected row count.
func (b *LakebaseBackend) Exec(ctx context.Context, sql string, params ...any) (int64, error) {
	var affected int64
	err := b.withConn(ctx, func(conn pgConn) error {
		tag, err := conn.Exec(ctx, sql, params...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// Close tears down the connection and drops the credential.
func (b *LakebaseBackend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cred = Credential{}
	return b.closeConnLocked(ctx)
}

// withConn runs op against a live connection, retrying exactly once after a
// forced reconnect when the first attempt fails at the connection level.
func (b *LakebaseBackend) withConn(ctx context.Context, op func(pgConn) error) error {
	if b.cfg.PerRequestAuth {
		return b.withRequestConn(ctx, op)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureConnLocked(ctx, false); err != nil {
		return err
	}

	err := op(b.conn)
	if err == nil {
		return nil
	}
	if !isConnError(err) && !isAuthError(err) {
		return &QueryError{Message: err.Error()}
	}

	// Stale handle despite a seemingly fresh token, or a credential the
	// server no longer accepts. One forced reconnect, then surface.
	logging.Warn("lakebase query failed, reconnecting",
		slog.String("host", b.cfg.Host),
		slog.Any("error", err))

	if rerr := b.ensureConnLocked(ctx, true); rerr != nil {
		return rerr
	}
	if err = op(b.conn); err != nil {
		if isConnError(err) {
			return &ConnectionError{Err: err}
		}
		return &QueryError{Message: err.Error()}
	}
	return nil
}

// withRequestConn opens a dedicated connection authenticated with the
// caller's forwarded token and closes it after the operation. No refresh
// logic: the token's lifetime is the request's.
func (b *LakebaseBackend) withRequestConn(ctx context.Context, op func(pgConn) error) error {
	cred, err := b.source.DatabaseCredential(ctx)
	if err != nil {
		return &AuthError{Err: err}
	}
	conn, err := b.connect(ctx, b.dsn(cred.Token))
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer conn.Close(ctx)

	if err := op(conn); err != nil {
		if isConnError(err) {
			return &ConnectionError{Err: err}
		}
		return &QueryError{Message: err.Error()}
	}
	return nil
}

// ensureConnLocked makes b.conn usable: refreshes the credential when
// expired (or force is set) and reopens the connection with the new token.
// Callers hold b.mu, so concurrent fetches against an expired credential
// collapse into a single refresh.
func (b *LakebaseBackend) ensureConnLocked(ctx context.Context, force bool) error {
	if !force && b.conn != nil && b.cred.Valid(b.cfg.RefreshMargin) {
		return nil
	}

	if force || !b.cred.Valid(b.cfg.RefreshMargin) {
		cred, err := b.source.DatabaseCredential(ctx)
		if err != nil {
			return &AuthError{Err: err}
		}
		b.cred = cred
		logging.Debug("lakebase credential refreshed",
			slog.String("host", b.cfg.Host),
			slog.Time("expiry", cred.Expiry))
	}

	_ = b.closeConnLocked(ctx)
	conn, err := b.connect(ctx, b.dsn(b.cred.Token))
	if err != nil {
		return &ConnectionError{Err: err}
	}
	b.conn = conn
	return nil
}

func (b *LakebaseBackend) closeConnLocked(ctx context.Context) error {
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close(ctx)
	b.conn = nil
	return err
}

// dsn builds the connection string with the token as password.
func (b *LakebaseBackend) dsn(token string) string {
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(b.cfg.User, token),
		Host:     fmt.Sprintf("%s:%d", b.cfg.Host, b.cfg.Port),
		Path:     "/" + b.cfg.Database,
		RawQuery: "sslmode=" + url.QueryEscape(b.cfg.SSLMode),
	}
	return u.String()
}

// queryRows runs the query and converts the result into the uniform Row
// representation, preserving the declared column order.
func queryRows(ctx context.Context, conn pgConn, sql string, params []any) ([]Row, error) {
	pgRows, err := conn.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer pgRows.Close()

	fields := pgRows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	var rows []Row
	for pgRows.Next() {
		values, err := pgRows.Values()
		if err != nil {
			return nil, err
		}
		converted := make([]any, len(values))
		for i, v := range values {
			converted[i] = normalizeValue(v)
		}
		row, err := NewRow(columns, converted)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := pgRows.Err(); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// isAuthError reports whether the server rejected the credential.
func isAuthError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 28: invalid authorization specification.
		return strings.HasPrefix(pgErr.Code, "28")
	}
	return false
}

// isConnError reports whether the failure is transport-level rather than a
// statement error.
func isConnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception. 57P01: admin shutdown.
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01"
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	return strings.Contains(err.Error(), "conn closed")
}

var _ SQLBackend = (*LakebaseBackend)(nil)
