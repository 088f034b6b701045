package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Document is a JSON object decoded into generic values. Nested objects are
// plain map[string]any, numbers are json.Number.
type Document map[string]any

// Field names the authorization rules and locks look at.
const (
	FieldGameID            = "gameId"
	FieldAdminToken        = "adminToken"
	FieldCurrentRound      = "currentRound"
	FieldBoardsPerRound    = "boardsPerRound"
	FieldTables            = "tables"
	FieldSessionID         = "sessionId"
	FieldScores            = "scores"
	FieldManagementSession = "managementSessionId"
)

var ErrNotObject = errors.New("document must be a JSON object")

// Decode parses raw JSON into a Document. A literal null decodes to a nil
// Document without error.
func Decode(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	switch m := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return Document(m), nil
	default:
		return nil, ErrNotObject
	}
}

func (d Document) Encode() ([]byte, error) {
	return json.Marshal(map[string]any(d))
}

// Has reports whether key is present, including an explicit null.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// IsNull reports whether key is present with an explicit null value.
func (d Document) IsNull(key string) bool {
	v, ok := d[key]
	return ok && v == nil
}

// String returns the string value under key. Missing, null and non-string
// values all yield "".
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Map returns the nested object under key, or nil.
func (d Document) Map(key string) Document {
	m, _ := asMap(d[key])
	return m
}

// Int reads an integer field. JSON numbers decoded with or without UseNumber
// are both accepted.
func (d Document) Int(key string) (int64, bool) {
	switch n := d[key].(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		return int64(n), n == float64(int64(n))
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// Table returns the table record stored under tables[n], or nil.
func (d Document) Table(n string) Document {
	return d.Map(FieldTables).Map(n)
}

// TableKeys returns the keys of d.tables in a stable order.
func (d Document) TableKeys() []string {
	tables := d.Map(FieldTables)
	if len(tables) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(tables))
}

// Without returns a shallow copy of d with the given top-level keys removed.
func (d Document) Without(keys ...string) Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func asMap(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	default:
		return nil, false
	}
}
