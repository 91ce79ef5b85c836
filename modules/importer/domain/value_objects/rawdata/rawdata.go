package rawdata

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Value is one cell of a raw import row. Upstream parsing cannot guarantee
// shape, so a cell is either a string, a number, or absent.
type Value struct {
	kind kind
	str  string
	num  float64
}

type kind int

const (
	kindNull kind = iota
	kindString
	kindNumber
)

func String(s string) Value {
	return Value{kind: kindString, str: s}
}

func Number(f float64) Value {
	return Value{kind: kindNumber, num: f}
}

func Null() Value {
	return Value{}
}

func (v Value) IsNull() bool {
	return v.kind == kindNull
}

// AsString renders the value as its textual form. Numbers are rendered the
// way the upstream parser produced them (no trailing zeroes).
func (v Value) AsString() string {
	switch v.kind {
	case kindString:
		return v.str
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindString:
		return json.Marshal(v.str)
	case kindNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = Null()
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	}
	if trimmed == "true" || trimmed == "false" {
		*v = String(trimmed)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		// Objects and arrays are not valid cell values; keep their raw
		// text so the error surface stays row-local.
		*v = String(trimmed)
		return nil
	}
	*v = Number(f)
	return nil
}

// Map is the opaque key/value payload of one import row.
type Map map[string]Value

// GetString returns the trimmed textual form of a key, or "" when absent.
func (m Map) GetString(key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.AsString())
}
