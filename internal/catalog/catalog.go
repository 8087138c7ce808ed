// Package catalog resolves source field values against the closed
// vocabularies of the catalog schema.
//
// Two tiers exist: enumerations (small fixed sets such as artist types) and
// super-enumerations (large seeded sets such as countries, languages, and
// scripts). Both map a source value to the ident of a seeded entity. An
// attribute no table claims is not applicable and falls through; a claimed
// attribute with an unknown value is a data error, because loading it would
// dangle a reference.
package catalog

import (
	"fmt"
	"strings"

	"github.com/danjacka/mbrainz-importer/internal/entity"
)

// Table maps one attribute's source values to entity idents.
type Table struct {
	Attr   string
	Values map[string]entity.Ident
}

// UnknownValueError reports a value outside a closed vocabulary.
type UnknownValueError struct {
	Tier  string
	Attr  string
	Value string
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("%s %s: unknown value %q", e.Tier, e.Attr, e.Value)
}

// Catalog holds the resolution tables for one import run.
type Catalog struct {
	enums      map[string]map[string]entity.Ident
	superEnums map[string]map[string]entity.Ident
}

// New builds a catalog from enum and super-enum tables. Value matching is
// case-insensitive; idents keep their seeded case.
func New(enums, superEnums []Table) *Catalog {
	return &Catalog{
		enums:      indexTables(enums),
		superEnums: indexTables(superEnums),
	}
}

func indexTables(tables []Table) map[string]map[string]entity.Ident {
	out := make(map[string]map[string]entity.Ident, len(tables))
	for _, table := range tables {
		values := make(map[string]entity.Ident, len(table.Values))
		for value, ident := range table.Values {
			values[normalizeValue(value)] = ident
		}
		out[table.Attr] = values
	}
	return out
}

func normalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// ResolveEnum resolves value against the enum tier. The boolean reports
// whether the tier claimed the attribute and found the value; an attribute
// the tier does not claim returns (_, false, nil). A claimed attribute with
// an unknown value is an error.
func (c *Catalog) ResolveEnum(attr, value string) (entity.Ident, bool, error) {
	return resolveTier(c.enums, "enum", attr, value)
}

// ResolveSuperEnum resolves value against the super-enum tier with the same
// outcome contract as ResolveEnum.
func (c *Catalog) ResolveSuperEnum(attr, value string) (entity.Ident, bool, error) {
	return resolveTier(c.superEnums, "super-enum", attr, value)
}

func resolveTier(tier map[string]map[string]entity.Ident, name, attr, value string) (entity.Ident, bool, error) {
	values, ok := tier[attr]
	if !ok {
		return "", false, nil
	}
	ident, ok := values[normalizeValue(value)]
	if !ok {
		return "", false, &UnknownValueError{Tier: name, Attr: attr, Value: value}
	}
	return ident, true, nil
}

// Resolve runs the resolver chain for one field value: enum first, then
// super-enum, then identity. The first tier that claims the attribute
// decides; values of unclaimed attributes pass through unchanged.
func (c *Catalog) Resolve(attr, value string) (any, error) {
	if ident, found, err := c.ResolveEnum(attr, value); err != nil {
		return nil, err
	} else if found {
		return ident, nil
	}
	if ident, found, err := c.ResolveSuperEnum(attr, value); err != nil {
		return nil, err
	} else if found {
		return ident, nil
	}
	return value, nil
}
