package database

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Converter parses a raw string value returned by the warehouse wire format
// into a typed Go value. Returning an error means "fall back to the raw
// string", never "fail the fetch".
type Converter func(string) (any, error)

// converters maps base SQL type names to value converters. Types without an
// entry pass through as strings.
var converters = map[string]Converter{
	"DATE":          convertDate,
	"TIMESTAMP":     convertTimestamp,
	"TIMESTAMP_NTZ": convertTimestamp,
	"DECIMAL":       convertDecimal,
	"DOUBLE":        convertFloat,
	"FLOAT":         convertFloat,
	"INT":           convertInt,
	"BIGINT":        convertInt,
	"SMALLINT":      convertInt,
	"TINYINT":       convertInt,
	"BOOLEAN":       convertBool,
}

// ConverterFor returns the converter for a SQL type name, or nil for types
// that pass through unchanged. Parameterized types resolve to their base
// type ("DECIMAL(10,2)" -> "DECIMAL").
func ConverterFor(sqlType string) Converter {
	base := sqlType
	if idx := strings.IndexByte(base, '('); idx != -1 {
		base = base[:idx]
	}
	return converters[strings.ToUpper(strings.TrimSpace(base))]
}

// ConvertRow normalizes one raw driver row against the result schema.
// Nil values stay nil; conversion failures keep the raw string.
func ConvertRow(columns []string, raw []*string, convs []Converter) (Row, error) {
	if len(raw) != len(columns) {
		return Row{}, &ConversionError{Columns: len(columns), Values: len(raw)}
	}
	values := make([]any, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		if convs[i] == nil {
			values[i] = *v
			continue
		}
		converted, err := convs[i](*v)
		if err != nil {
			values[i] = *v
			continue
		}
		values[i] = converted
	}
	return NewRow(columns, values)
}

func convertDate(s string) (any, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func convertTimestamp(s string) (any, error) {
	// The warehouse emits ISO timestamps, with or without zone offset.
	s = strings.Replace(s, " ", "T", 1)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func convertDecimal(s string) (any, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func convertFloat(s string) (any, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func convertInt(s string) (any, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func convertBool(s string) (any, error) {
	switch strings.ToLower(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// normalizeValue maps values scanned from the Postgres driver into the same
// uniform representation the warehouse side produces.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case uint32:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}
