package platform

import (
	"context"
	"fmt"
	"net/http"
)

// Statement execution API: a statement is submitted for asynchronous
// execution against a SQL warehouse, then polled until it reaches a
// terminal state. Results arrive as string-encoded arrays, possibly split
// across chunks.

// StatementState is the lifecycle state of a submitted statement.
type StatementState string

const (
	StatePending   StatementState = "PENDING"
	StateRunning   StatementState = "RUNNING"
	StateSucceeded StatementState = "SUCCEEDED"
	StateFailed    StatementState = "FAILED"
	StateCanceled  StatementState = "CANCELED"
	StateClosed    StatementState = "CLOSED"
)

// Terminal reports whether the state is final.
func (s StatementState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCanceled, StateClosed:
		return true
	}
	return false
}

// ColumnInfo describes one column of the result schema.
type ColumnInfo struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
	Position int    `json:"position"`
}

// ResultSchema is the declared schema of a statement result.
type ResultSchema struct {
	Columns []ColumnInfo `json:"columns"`
}

// ResultManifest describes the shape and size of a result set.
type ResultManifest struct {
	Schema          ResultSchema `json:"schema"`
	TotalChunkCount int          `json:"total_chunk_count"`
	TotalRowCount   int64        `json:"total_row_count"`
}

// ResultData is one chunk of result rows. Values are string-encoded; nil
// means SQL NULL. NextChunkIndex is nil on the last chunk.
type ResultData struct {
	ChunkIndex     int        `json:"chunk_index"`
	DataArray      [][]*string `json:"data_array"`
	RowCount       int64      `json:"row_count"`
	NextChunkIndex *int       `json:"next_chunk_index,omitempty"`
}

// StatementParameter is one positional bind value. A nil Value binds NULL.
type StatementParameter struct {
	Value *string `json:"value"`
	Type  string  `json:"type,omitempty"`
}

// StatementError carries the remote failure message.
type StatementError struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
}

// StatementStatus is the current state of a statement, with error detail
// for failed statements.
type StatementStatus struct {
	State StatementState  `json:"state"`
	Error *StatementError `json:"error,omitempty"`
}

// StatementRequest submits a statement for execution.
type StatementRequest struct {
	WarehouseID   string               `json:"warehouse_id"`
	Statement     string               `json:"statement"`
	Parameters    []StatementParameter `json:"parameters,omitempty"`
	Catalog       string               `json:"catalog,omitempty"`
	Schema        string               `json:"schema,omitempty"`
	WaitTimeout   string               `json:"wait_timeout,omitempty"`
	OnWaitTimeout string               `json:"on_wait_timeout,omitempty"`
	Format        string               `json:"format,omitempty"`
	Disposition   string               `json:"disposition,omitempty"`
	ByteLimit     int64                `json:"byte_limit,omitempty"`
}

// StatementResponse is returned by submit and status calls.
type StatementResponse struct {
	StatementID string          `json:"statement_id"`
	Status      StatementStatus `json:"status"`
	Manifest    *ResultManifest `json:"manifest,omitempty"`
	Result      *ResultData     `json:"result,omitempty"`
}

// ExecuteStatement submits a statement for asynchronous execution.
func (c *Client) ExecuteStatement(ctx context.Context, req *StatementRequest) (*StatementResponse, error) {
	var resp StatementResponse
	if err := c.do(ctx, http.MethodPost, "/api/2.0/sql/statements", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStatement fetches the current status (and inline result, once
// available) of a submitted statement.
func (c *Client) GetStatement(ctx context.Context, statementID string) (*StatementResponse, error) {
	var resp StatementResponse
	path := fmt.Sprintf("/api/2.0/sql/statements/%s", statementID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStatementResultChunk fetches chunk n of a succeeded statement's result.
func (c *Client) GetStatementResultChunk(ctx context.Context, statementID string, chunkIndex int) (*ResultData, error) {
	var resp ResultData
	path := fmt.Sprintf("/api/2.0/sql/statements/%s/result/chunks/%d", statementID, chunkIndex)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelStatement requests cancellation of an in-flight statement. Best
// effort: the remote side may already be terminal.
func (c *Client) CancelStatement(ctx context.Context, statementID string) error {
	path := fmt.Sprintf("/api/2.0/sql/statements/%s/cancel", statementID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}
