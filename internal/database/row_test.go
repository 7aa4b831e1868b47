package database

import (
	"encoding/json"
	"testing"
)

func TestNewRow(t *testing.T) {
	row, err := NewRow([]string{"x", "y"}, []any{int64(1), "two"})
	if err != nil {
		t.Fatalf("NewRow: %v", err)
	}
	if row.Len() != 2 {
		t.Errorf("Len = %d, want 2", row.Len())
	}
	if row.Value(0) != int64(1) {
		t.Errorf("Value(0) = %v, want 1", row.Value(0))
	}
	if v, ok := row.Get("y"); !ok || v != "two" {
		t.Errorf("Get(y) = %v, %v, want two, true", v, ok)
	}
	if _, ok := row.Get("missing"); ok {
		t.Error("Get(missing) should report absence")
	}

	if _, err := NewRow([]string{"x"}, []any{1, 2}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestRowAsMap(t *testing.T) {
	row, _ := NewRow([]string{"a", "b"}, []any{int64(1), nil})
	m := row.AsMap()
	if len(m) != 2 {
		t.Fatalf("AsMap size = %d, want 2", len(m))
	}
	if m["a"] != int64(1) || m["b"] != nil {
		t.Errorf("AsMap = %v", m)
	}
}

func TestRowMarshalJSON(t *testing.T) {
	row, _ := NewRow([]string{"x"}, []any{int64(1)})
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"x":1}` {
		t.Errorf("json = %s, want {\"x\":1}", data)
	}
}
