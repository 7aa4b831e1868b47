package logging

import (
	"log/slog"
	"time"
)

// Common field helpers for consistent structured logging

// Backend creates a backend kind field
func Backend(kind string) slog.Attr {
	return slog.String("backend", kind)
}

// Statement creates a statement ID field
func Statement(id string) slog.Attr {
	return slog.String("statement_id", id)
}

// Warehouse creates a warehouse ID field
func Warehouse(id string) slog.Attr {
	return slog.String("warehouse_id", id)
}

// Instance creates a database instance field
func Instance(name string) slog.Attr {
	return slog.String("instance", name)
}

// Duration logs duration in milliseconds
func Duration(name string, d time.Duration) slog.Attr {
	return slog.Int64(name+"_ms", d.Milliseconds())
}

// Err creates error field
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Count creates count field
func Count(name string, count int) slog.Attr {
	return slog.Int(name+"_count", count)
}

// HTTP creates HTTP request fields
func HTTP(method, path string, status int) []any {
	return []any{
		slog.String("http_method", method),
		slog.String("http_path", path),
		slog.Int("http_status", status),
	}
}

// User creates a user identity field
func User(name string) slog.Attr {
	return slog.String("user", name)
}
