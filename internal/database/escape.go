package database

import "strings"

// Identifier escaping for contexts where parameter binding is unavailable
// (DDL, table/column names interpolated into SQL text). Values must always
// go through parameter binding, never through these helpers.
//
// Identifiers containing the dialect quote character or a NUL byte are
// rejected outright instead of being doubled: a rejected name is a caller
// bug, not data to be smuggled into SQL text.

// EscapeName quotes a warehouse identifier with backticks.
func EscapeName(name string) (string, error) {
	if strings.ContainsRune(name, '`') {
		return "", &EscapeError{Name: name, Reason: "contains backtick"}
	}
	if strings.ContainsRune(name, 0) {
		return "", &EscapeError{Name: name, Reason: "contains NUL byte"}
	}
	return "`" + name + "`", nil
}

// EscapeFullName quotes a dotted warehouse name (catalog.schema.table),
// escaping each part.
func EscapeFullName(fullName string) (string, error) {
	parts := strings.SplitN(fullName, ".", 3)
	for i, p := range parts {
		escaped, err := EscapeName(p)
		if err != nil {
			return "", err
		}
		parts[i] = escaped
	}
	return strings.Join(parts, "."), nil
}

// EscapePgName quotes a Postgres identifier with double quotes.
func EscapePgName(name string) (string, error) {
	if strings.ContainsRune(name, '"') {
		return "", &EscapeError{Name: name, Reason: "contains double quote"}
	}
	if strings.ContainsRune(name, 0) {
		return "", &EscapeError{Name: name, Reason: "contains NUL byte"}
	}
	return `"` + name + `"`, nil
}

// EscapePgFullName quotes a dotted Postgres name (schema.table), escaping
// each part.
func EscapePgFullName(fullName string) (string, error) {
	parts := strings.SplitN(fullName, ".", 2)
	for i, p := range parts {
		escaped, err := EscapePgName(p)
		if err != nil {
			return "", err
		}
		parts[i] = escaped
	}
	return strings.Join(parts, "."), nil
}
