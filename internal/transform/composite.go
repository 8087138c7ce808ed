package transform

import (
	"fmt"
	"strings"

	"github.com/danjacka/mbrainz-importer/internal/entity"
	"github.com/danjacka/mbrainz-importer/internal/schema"
)

// Composite folds a record stream into parent fragments carrying child
// fragments. Records sharing the group key must arrive consecutively; a key
// change closes the open group.
type Composite struct {
	engine *Engine
	spec   *schema.CompositeSpec

	currentKey string
	current    entity.Fragment
}

// NewComposite builds a fold for one composite type.
func NewComposite(engine *Engine, spec *schema.CompositeSpec) *Composite {
	return &Composite{engine: engine, spec: spec}
}

// Add feeds one record. When the record opens a new group, the previous
// group's completed fragment is returned; otherwise the result is nil.
func (c *Composite) Add(raw entity.Raw) (entity.Fragment, error) {
	key, err := c.groupKey(raw)
	if err != nil {
		return nil, err
	}

	child, err := c.engine.Record(raw, c.spec.Child)
	if err != nil {
		return nil, err
	}
	childID, err := SyntheticID(c.spec.ChildIDPrefix, raw, c.spec.ChildIDFields)
	if err != nil {
		return nil, &RecordError{Field: strings.Join(c.spec.ChildIDFields, ","), Record: raw, Err: err}
	}
	child[entity.IDKey] = childID

	if c.current != nil && key == c.currentKey {
		c.appendChild(child)
		return nil, nil
	}

	completed := c.current

	parent, err := c.engine.Record(raw, c.spec.Parent)
	if err != nil {
		return nil, err
	}
	parentID, err := SyntheticID(c.spec.ParentIDPrefix, raw, c.spec.ParentIDFields)
	if err != nil {
		return nil, &RecordError{Field: strings.Join(c.spec.ParentIDFields, ","), Record: raw, Err: err}
	}
	parent[entity.IDKey] = parentID
	parent[c.spec.ChildAttr] = []entity.Fragment{child}

	c.current = parent
	c.currentKey = key
	return completed, nil
}

// Flush closes and returns the final open group, or nil when no group is
// open. The fold is ready for reuse afterwards.
func (c *Composite) Flush() entity.Fragment {
	completed := c.current
	c.current = nil
	c.currentKey = ""
	return completed
}

func (c *Composite) appendChild(child entity.Fragment) {
	children, _ := c.current[c.spec.ChildAttr].([]entity.Fragment)
	c.current[c.spec.ChildAttr] = append(children, child)
}

func (c *Composite) groupKey(raw entity.Raw) (string, error) {
	parts := make([]string, 0, len(c.spec.GroupFields))
	for _, field := range c.spec.GroupFields {
		value, ok := raw[field]
		if !ok || value == nil {
			return "", &RecordError{Field: field, Record: raw, Err: fmt.Errorf("group field missing")}
		}
		parts = append(parts, fmt.Sprint(value))
	}
	return strings.Join(parts, "\x1f"), nil
}
