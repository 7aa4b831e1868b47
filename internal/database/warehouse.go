package database

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lakegate/internal/logging"
	"github.com/lakegate/internal/platform"
)

// StatementExecutor is the slice of the platform client the warehouse
// backend needs. Kept as an interface so tests can run against a mock
// warehouse.
type StatementExecutor interface {
	ExecuteStatement(ctx context.Context, req *platform.StatementRequest) (*platform.StatementResponse, error)
	GetStatement(ctx context.Context, statementID string) (*platform.StatementResponse, error)
	GetStatementResultChunk(ctx context.Context, statementID string, chunkIndex int) (*platform.ResultData, error)
	CancelStatement(ctx context.Context, statementID string) error
}

// WarehouseConfig holds warehouse backend settings.
type WarehouseConfig struct {
	WarehouseID  string
	PollInterval time.Duration // between status checks, default 500ms
	Timeout      time.Duration // overall statement deadline, default 10m
	ByteLimit    int64         // inline result size cap, default 10MB
	Catalog      string
	Schema       string
}

// WarehouseBackend executes SQL against a remote warehouse via the
// statement execution API. Stateless between fetches; safe for concurrent
// use.
type WarehouseBackend struct {
	exec StatementExecutor
	cfg  WarehouseConfig
}

// NewWarehouseBackend creates a warehouse backend over the given executor.
func NewWarehouseBackend(exec StatementExecutor, cfg WarehouseConfig) (*WarehouseBackend, error) {
	if cfg.WarehouseID == "" {
		return nil, fmt.Errorf("warehouse id is required")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.ByteLimit == 0 {
		cfg.ByteLimit = 10 << 20
	}
	return &WarehouseBackend{exec: exec, cfg: cfg}, nil
}

// Fetch submits the statement, polls until terminal, then collects and
// converts all result chunks in order.
func (b *WarehouseBackend) Fetch(ctx context.Context, sql string, params ...any) ([]Row, error) {
	resp, err := b.run(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	if resp.Manifest == nil || len(resp.Manifest.Schema.Columns) == 0 {
		return []Row{}, nil
	}

	schema := resp.Manifest.Schema.Columns
	columns := make([]string, len(schema))
	convs := make([]Converter, len(schema))
	for i, col := range schema {
		columns[i] = col.Name
		convs[i] = ConverterFor(col.TypeName)
	}

	var rows []Row
	result := resp.Result
	for result != nil {
		for _, raw := range result.DataArray {
			row, err := ConvertRow(columns, raw, convs)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		if result.NextChunkIndex == nil {
			break
		}
		next, err := b.exec.GetStatementResultChunk(ctx, resp.StatementID, *result.NextChunkIndex)
		if err != nil {
			return nil, &QueryError{StatementID: resp.StatementID, Message: err.Error()}
		}
		result = next
	}

	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// Exec executes a statement and discards any result.
func (b *WarehouseBackend) Exec(ctx context.Context, sql string, params ...any) (int64, error) {
	resp, err := b.run(ctx, sql, params)
	if err != nil {
		return 0, err
	}
	if resp.Manifest != nil {
		return resp.Manifest.TotalRowCount, nil
	}
	return 0, nil
}

// Close is a no-op: the warehouse backend holds no connection state.
func (b *WarehouseBackend) Close(ctx context.Context) error {
	return nil
}

// run submits a statement and polls until it reaches a terminal state,
// enforcing the configured timeout with a best-effort cancel.
func (b *WarehouseBackend) run(ctx context.Context, sql string, params []any) (*platform.StatementResponse, error) {
	req := &platform.StatementRequest{
		WarehouseID:   b.cfg.WarehouseID,
		Statement:     sql,
		Parameters:    bindParameters(params),
		Catalog:       b.cfg.Catalog,
		Schema:        b.cfg.Schema,
		WaitTimeout:   "10s",
		OnWaitTimeout: "CONTINUE",
		Format:        "JSON_ARRAY",
		Disposition:   "INLINE",
		ByteLimit:     b.cfg.ByteLimit,
	}

	start := time.Now()
	deadline := start.Add(b.cfg.Timeout)

	resp, err := b.exec.ExecuteStatement(ctx, req)
	if err != nil {
		return nil, &QueryError{Message: err.Error()}
	}

	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	for !resp.Status.State.Terminal() {
		if time.Now().After(deadline) {
			b.cancel(resp.StatementID)
			return nil, &TimeoutError{StatementID: resp.StatementID, Timeout: b.cfg.Timeout.String()}
		}

		select {
		case <-ctx.Done():
			b.cancel(resp.StatementID)
			return nil, ctx.Err()
		case <-ticker.C:
		}

		resp, err = b.exec.GetStatement(ctx, resp.StatementID)
		if err != nil {
			return nil, &QueryError{Message: err.Error()}
		}
	}

	switch resp.Status.State {
	case platform.StateSucceeded:
	case platform.StateFailed:
		msg := "unknown error"
		if resp.Status.Error != nil {
			msg = resp.Status.Error.Message
		}
		return nil, &QueryError{StatementID: resp.StatementID, Message: msg}
	default:
		return nil, &QueryError{StatementID: resp.StatementID, Message: fmt.Sprintf("statement ended in state %s", resp.Status.State)}
	}

	logging.Debug("warehouse statement completed",
		slog.String("statement_id", resp.StatementID),
		slog.Duration("duration", time.Since(start)))

	return resp, nil
}

// cancel issues a best-effort cancel with its own short deadline, detached
// from the (possibly already canceled) caller context.
func (b *WarehouseBackend) cancel(statementID string) {
	if statementID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.exec.CancelStatement(ctx, statementID); err != nil {
		logging.Warn("statement cancel failed",
			slog.String("statement_id", statementID),
			slog.Any("error", err))
	}
}

// bindParameters encodes positional bind values for the wire. Values are
// never interpolated into SQL text.
func bindParameters(params []any) []platform.StatementParameter {
	if len(params) == 0 {
		return nil
	}
	out := make([]platform.StatementParameter, len(params))
	for i, p := range params {
		out[i] = bindParameter(p)
	}
	return out
}

func bindParameter(p any) platform.StatementParameter {
	str := func(s string) *string { return &s }
	switch v := p.(type) {
	case nil:
		return platform.StatementParameter{Value: nil}
	case string:
		return platform.StatementParameter{Value: str(v), Type: "STRING"}
	case bool:
		return platform.StatementParameter{Value: str(strconv.FormatBool(v)), Type: "BOOLEAN"}
	case int:
		return platform.StatementParameter{Value: str(strconv.FormatInt(int64(v), 10)), Type: "BIGINT"}
	case int32:
		return platform.StatementParameter{Value: str(strconv.FormatInt(int64(v), 10)), Type: "BIGINT"}
	case int64:
		return platform.StatementParameter{Value: str(strconv.FormatInt(v, 10)), Type: "BIGINT"}
	case float32:
		return platform.StatementParameter{Value: str(strconv.FormatFloat(float64(v), 'g', -1, 64)), Type: "DOUBLE"}
	case float64:
		return platform.StatementParameter{Value: str(strconv.FormatFloat(v, 'g', -1, 64)), Type: "DOUBLE"}
	case time.Time:
		return platform.StatementParameter{Value: str(v.UTC().Format(time.RFC3339Nano)), Type: "TIMESTAMP"}
	case decimal.Decimal:
		return platform.StatementParameter{Value: str(v.String()), Type: "DECIMAL"}
	default:
		return platform.StatementParameter{Value: str(fmt.Sprintf("%v", v)), Type: "STRING"}
	}
}

var _ SQLBackend = (*WarehouseBackend)(nil)
