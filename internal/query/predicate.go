package query

// Condition constrains one field. Values hold coerced operands: string for
// string and set fields, float64 for numbers, time.Time for times. More than
// one value on an equality condition means any of them may match.
type Condition struct {
	Field  string
	Kind   Kind
	Op     Operator
	Values []any
}

// Predicate is a conjunction of conditions. The empty predicate matches everything.
type Predicate []Condition

// Eq builds an equality condition for trusted callers such as services scoping a
// list to one author. The kind is resolved against the schema when planned.
func Eq(field string, values ...string) Condition {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return Condition{Field: field, Op: OpEq, Values: vals}
}

// Where starts a predicate from conditions.
func Where(conds ...Condition) Predicate {
	return Predicate(conds)
}

// And returns a new predicate with conds appended.
func (p Predicate) And(conds ...Condition) Predicate {
	out := make(Predicate, 0, len(p)+len(conds))
	out = append(out, p...)
	return append(out, conds...)
}
