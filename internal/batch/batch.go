// Package batch slices fragment streams into fixed-size units, the
// granularity at which the loader commits and the idempotency markers are
// recorded.
package batch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danjacka/mbrainz-importer/internal/entity"
)

// Unit is one commit-sized slice of a type's fragment stream.
type Unit struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Index     int               `json:"index"`
	Fragments []entity.Fragment `json:"fragments"`
}

// UnitID builds the identifier of a type's nth unit.
func UnitID(typeName string, index int) string {
	return fmt.Sprintf("%s-%d", typeName, index)
}

// ParseUnitID splits a unit identifier into its type name and index. Type
// names may themselves contain hyphens, so the index is the segment after
// the last one.
func ParseUnitID(id string) (string, int, error) {
	cut := strings.LastIndex(id, "-")
	if cut <= 0 || cut == len(id)-1 {
		return "", 0, fmt.Errorf("malformed unit id %q", id)
	}
	index, err := strconv.Atoi(id[cut+1:])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("malformed unit id %q", id)
	}
	return id[:cut], index, nil
}

// Builder accumulates fragments into units of a fixed size, preserving
// arrival order and numbering units from zero.
type Builder struct {
	typeName string
	size     int
	index    int
	pending  []entity.Fragment
}

// NewBuilder returns a builder cutting units of size fragments.
func NewBuilder(typeName string, size int) (*Builder, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	return &Builder{typeName: typeName, size: size}, nil
}

// Add appends one fragment. When the fragment fills the current unit, the
// completed unit is returned with ok true.
func (b *Builder) Add(fragment entity.Fragment) (Unit, bool) {
	if b.pending == nil {
		b.pending = make([]entity.Fragment, 0, b.size)
	}
	b.pending = append(b.pending, fragment)
	if len(b.pending) < b.size {
		return Unit{}, false
	}
	return b.cut(), true
}

// Flush returns the final partial unit, if any fragments are pending.
func (b *Builder) Flush() (Unit, bool) {
	if len(b.pending) == 0 {
		return Unit{}, false
	}
	return b.cut(), true
}

func (b *Builder) cut() Unit {
	unit := Unit{
		ID:        UnitID(b.typeName, b.index),
		Type:      b.typeName,
		Index:     b.index,
		Fragments: b.pending,
	}
	b.index++
	b.pending = nil
	return unit
}
