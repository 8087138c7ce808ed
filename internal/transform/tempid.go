package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/unicode/norm"

	"github.com/danjacka/mbrainz-importer/internal/entity"
)

// SyntheticID derives a deterministic temp id from the named natural-key
// fields of a record. Strings are NFC-normalized and trimmed first, so
// source rows that differ only in Unicode composition or surrounding
// whitespace still produce the same identity.
func SyntheticID(prefix string, raw entity.Raw, fields []string) (entity.TempID, error) {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		value, ok := raw[field]
		if !ok || value == nil {
			return "", fmt.Errorf("synthetic id field %q missing", field)
		}
		switch v := value.(type) {
		case string:
			parts = append(parts, norm.NFC.String(strings.TrimSpace(v)))
		case int64:
			parts = append(parts, strconv.FormatInt(v, 10))
		case float64:
			n := int64(v)
			if float64(n) != v {
				return "", fmt.Errorf("synthetic id field %q is not integral: %v", field, v)
			}
			parts = append(parts, strconv.FormatInt(n, 10))
		default:
			return "", fmt.Errorf("synthetic id field %q has unsupported type %T", field, value)
		}
	}
	// Unit separator keeps ("ab","c") distinct from ("a","bc").
	hash := xxh3.HashString(strings.Join(parts, "\x1f"))
	return entity.TempID(fmt.Sprintf("%s-%016x", prefix, hash)), nil
}
