package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Fragments have a stable JSON form used by the batch files:
//
//   - idents encode as strings with a ":" prefix (":artist.type/person");
//     plain strings that begin with ":" gain a second colon so the two
//     never collide
//   - lookups encode as single-pair objects ({"artist/gid": "..."})
//   - child fragments encode as arrays of objects
//   - temp ids encode as plain strings under the "db/id" key

// MarshalJSON implements json.Marshaler.
func (f Fragment) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f))
	for attr, value := range f {
		encoded, err := encodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("attr %s: %w", attr, err)
		}
		out[attr] = encoded
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Fragment) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Fragment, len(raw))
	for attr, value := range raw {
		decoded, err := decodeValue(attr, value)
		if err != nil {
			return fmt.Errorf("attr %s: %w", attr, err)
		}
		out[attr] = decoded
	}
	*f = out
	return nil
}

func encodeValue(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case Ident:
		return ":" + string(v), nil
	case TempID:
		return string(v), nil
	case Lookup:
		return map[string]any{v.Attr: v.Value}, nil
	case []Fragment:
		return v, nil
	case string:
		if strings.HasPrefix(v, ":") {
			return ":" + v, nil
		}
		return v, nil
	case bool, int, int64, float64:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", value)
	}
}

func decodeValue(attr string, raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		if attr == IDKey {
			return TempID(s), nil
		}
		switch {
		case strings.HasPrefix(s, "::"):
			return s[1:], nil
		case strings.HasPrefix(s, ":"):
			return Ident(s[1:]), nil
		default:
			return s, nil
		}
	case '{':
		var pairs map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return nil, err
		}
		if len(pairs) != 1 {
			return nil, fmt.Errorf("lookup must have exactly one field, got %d", len(pairs))
		}
		for lookupAttr, lookupValue := range pairs {
			value, err := decodeScalar(lookupValue)
			if err != nil {
				return nil, fmt.Errorf("lookup %s: %w", lookupAttr, err)
			}
			return Lookup{Attr: lookupAttr, Value: value}, nil
		}
		return nil, nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, err
		}
		children := make([]Fragment, 0, len(elems))
		for i, elem := range elems {
			var child Fragment
			if err := json.Unmarshal(elem, &child); err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
			children = append(children, child)
		}
		return children, nil
	default:
		return decodeScalar(trimmed)
	}
}

func decodeScalar(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if num, ok := v.(json.Number); ok {
		if n, err := strconv.ParseInt(num.String(), 10, 64); err == nil {
			return n, nil
		}
		f, err := num.Float64()
		if err != nil {
			return nil, fmt.Errorf("parse number %q: %w", num.String(), err)
		}
		return f, nil
	}
	return v, nil
}
