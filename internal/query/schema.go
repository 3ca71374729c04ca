package query

import "fmt"

// Kind is the value type of a queryable field. It decides how raw parameter
// values are coerced and how stored values compare.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindNumber
	KindTime
	// KindSet is an array of identifiers. Equality on a set means membership.
	KindSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	case KindSet:
		return "set"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Operator is a filter comparator.
type Operator string

const (
	OpEq  Operator = "eq"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
)

func parseOperator(s string) (Operator, bool) {
	switch op := Operator(s); op {
	case OpGt, OpGte, OpLt, OpLte:
		return op, true
	}
	return "", false
}

// Field describes one allow-listed document field.
type Field struct {
	Name       string
	Kind       Kind
	Filterable bool
	Sortable   bool
	// Hidden fields are never filtered, sorted or returned.
	Hidden bool
}

// Allows reports whether op may be applied to the field.
func (f Field) Allows(op Operator) bool {
	if !f.Filterable || f.Hidden {
		return false
	}
	if f.Kind == KindSet {
		return op == OpEq
	}
	return true
}

// Schema is the allow-list for one collection.
type Schema struct {
	name        string
	defaultSort string
	fields      map[string]Field
	order       []string
}

// NewSchema builds a schema. defaultSort uses the same syntax as the sort parameter.
func NewSchema(name, defaultSort string, fields ...Field) *Schema {
	s := &Schema{
		name:        name,
		defaultSort: defaultSort,
		fields:      make(map[string]Field, len(fields)),
		order:       make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		if _, dup := s.fields[f.Name]; !dup {
			s.order = append(s.order, f.Name)
		}
		s.fields[f.Name] = f
	}
	return s
}

// Name returns the collection name.
func (s *Schema) Name() string { return s.name }

// DefaultSort returns the sort expression used when a request gives none.
func (s *Schema) DefaultSort() string { return s.defaultSort }

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Fields returns every field in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}
