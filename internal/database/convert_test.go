package database

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func TestConverterFor(t *testing.T) {
	tests := []struct {
		sqlType string
		hasConv bool
	}{
		{"INT", true},
		{"BIGINT", true},
		{"DOUBLE", true},
		{"BOOLEAN", true},
		{"DATE", true},
		{"TIMESTAMP", true},
		{"TIMESTAMP_NTZ", true},
		{"DECIMAL", true},
		{"DECIMAL(10,2)", true},
		{"decimal(38, 0)", true},
		{"STRING", false},
		{"BINARY", false},
		{"ARRAY<INT>", false},
	}

	for _, tt := range tests {
		t.Run(tt.sqlType, func(t *testing.T) {
			conv := ConverterFor(tt.sqlType)
			if (conv != nil) != tt.hasConv {
				t.Errorf("ConverterFor(%q) = %v, want converter: %v", tt.sqlType, conv, tt.hasConv)
			}
		})
	}
}

func TestConvertValues(t *testing.T) {
	tests := []struct {
		name    string
		sqlType string
		input   string
		want    any
	}{
		{"int", "BIGINT", "42", int64(42)},
		{"negative int", "INT", "-7", int64(-7)},
		{"float", "DOUBLE", "3.5", 3.5},
		{"bool true", "BOOLEAN", "true", true},
		{"bool false", "BOOLEAN", "false", false},
		{"date", "DATE", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := ConverterFor(tt.sqlType)
			if conv == nil {
				t.Fatalf("no converter for %s", tt.sqlType)
			}
			got, err := conv(tt.input)
			if err != nil {
				t.Fatalf("convert %q: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("convert %q = %v (%T), want %v (%T)", tt.input, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestConvertTimestamp(t *testing.T) {
	conv := ConverterFor("TIMESTAMP")

	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-03-15T10:30:00Z", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-03-15 10:30:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-03-15T10:30:00.123456", time.Date(2024, 3, 15, 10, 30, 0, 123456000, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := conv(tt.input)
			if err != nil {
				t.Fatalf("convert %q: %v", tt.input, err)
			}
			ts, ok := got.(time.Time)
			if !ok {
				t.Fatalf("convert %q = %T, want time.Time", tt.input, got)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("convert %q = %v, want %v", tt.input, ts, tt.want)
			}
		})
	}
}

func TestConvertDecimal(t *testing.T) {
	conv := ConverterFor("DECIMAL(10,2)")
	got, err := conv("12345.67")
	if err != nil {
		t.Fatalf("convert decimal: %v", err)
	}
	d, ok := got.(decimal.Decimal)
	if !ok {
		t.Fatalf("convert decimal = %T, want decimal.Decimal", got)
	}
	if want := decimal.RequireFromString("12345.67"); !d.Equal(want) {
		t.Errorf("convert decimal = %s, want %s", d, want)
	}
}

func TestConvertRow(t *testing.T) {
	columns := []string{"id", "name", "score", "active", "deleted_at"}
	convs := []Converter{
		ConverterFor("BIGINT"),
		ConverterFor("STRING"),
		ConverterFor("DOUBLE"),
		ConverterFor("BOOLEAN"),
		ConverterFor("TIMESTAMP"),
	}

	raw := []*string{strPtr("1"), strPtr("alice"), strPtr("99.5"), strPtr("true"), nil}
	row, err := ConvertRow(columns, raw, convs)
	if err != nil {
		t.Fatalf("ConvertRow: %v", err)
	}

	if got, _ := row.Get("id"); got != int64(1) {
		t.Errorf("id = %v (%T), want int64(1)", got, got)
	}
	if got, _ := row.Get("name"); got != "alice" {
		t.Errorf("name = %v, want alice", got)
	}
	if got, _ := row.Get("score"); got != 99.5 {
		t.Errorf("score = %v, want 99.5", got)
	}
	if got, _ := row.Get("active"); got != true {
		t.Errorf("active = %v, want true", got)
	}
	if got, _ := row.Get("deleted_at"); got != nil {
		t.Errorf("deleted_at = %v, want nil", got)
	}
}

func TestConvertRowFallback(t *testing.T) {
	// Unparseable values keep the raw string instead of failing the fetch.
	columns := []string{"n"}
	convs := []Converter{ConverterFor("BIGINT")}
	raw := []*string{strPtr("not-a-number")}

	row, err := ConvertRow(columns, raw, convs)
	if err != nil {
		t.Fatalf("ConvertRow: %v", err)
	}
	if got, _ := row.Get("n"); got != "not-a-number" {
		t.Errorf("n = %v, want raw string fallback", got)
	}
}

func TestConvertRowCountMismatch(t *testing.T) {
	columns := []string{"a", "b"}
	convs := []Converter{nil, nil}
	raw := []*string{strPtr("1")}

	_, err := ConvertRow(columns, raw, convs)
	if err == nil {
		t.Fatal("expected error for column/value count mismatch")
	}
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("error type = %T, want *ConversionError", err)
	}
	if convErr.Columns != 2 || convErr.Values != 1 {
		t.Errorf("ConversionError = %d/%d, want 2/1", convErr.Columns, convErr.Values)
	}
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"nil", nil, nil},
		{"bytes", []byte("abc"), "abc"},
		{"int16", int16(5), int64(5)},
		{"int32", int32(5), int64(5)},
		{"int", 5, int64(5)},
		{"float32", float32(1.5), float64(1.5)},
		{"string passthrough", "x", "x"},
		{"bool passthrough", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeValue(tt.input); got != tt.want {
				t.Errorf("normalizeValue(%v) = %v (%T), want %v (%T)", tt.input, got, got, tt.want, tt.want)
			}
		})
	}
}
