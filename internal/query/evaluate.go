package query

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Match reports whether doc satisfies every condition in filter.
func Match(doc Document, filter Predicate) bool {
	for _, c := range filter {
		if !matchCondition(doc, c) {
			return false
		}
	}
	return true
}

func matchCondition(doc Document, c Condition) bool {
	raw, ok := doc[c.Field]
	if !ok || raw == nil {
		return false
	}

	if c.Kind == KindSet {
		members, ok := raw.([]any)
		if !ok {
			return false
		}
		for _, m := range members {
			s, ok := m.(string)
			if !ok {
				continue
			}
			if slices.ContainsFunc(c.Values, func(v any) bool { return v == s }) {
				return true
			}
		}
		return false
	}

	have, ok := normalize(c.Kind, raw)
	if !ok {
		return false
	}

	if c.Op == OpEq {
		return slices.ContainsFunc(c.Values, func(v any) bool {
			want, ok := normalize(c.Kind, v)
			return ok && compareScalars(have, want) == 0
		})
	}

	if len(c.Values) != 1 {
		return false
	}
	want, ok := normalize(c.Kind, c.Values[0])
	if !ok {
		return false
	}
	r := compareScalars(have, want)
	switch c.Op {
	case OpGt:
		return r > 0
	case OpGte:
		return r >= 0
	case OpLt:
		return r < 0
	case OpLte:
		return r <= 0
	}
	return false
}

// Compare orders a and b by keys. Missing values sort before present ones.
func Compare(a, b Document, keys []SortKey) int {
	for _, k := range keys {
		av, aok := normalize(k.Kind, a[k.Field])
		bv, bok := normalize(k.Kind, b[k.Field])

		var r int
		switch {
		case !aok && !bok:
			r = 0
		case !aok:
			r = -1
		case !bok:
			r = 1
		default:
			r = compareScalars(av, bv)
		}
		if k.Desc {
			r = -r
		}
		if r != 0 {
			return r
		}
	}
	return 0
}

// normalize converts a stored or coerced value into its comparable form.
func normalize(kind Kind, v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch kind {
	case KindNumber:
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			f, err := n.Float64()
			return f, err == nil
		}
	case KindTime:
		switch t := v.(type) {
		case time.Time:
			return t, true
		case string:
			parsed, err := parseTime(t)
			return parsed, err == nil
		}
	default:
		switch s := v.(type) {
		case string:
			return s, true
		case []any:
			return nil, false
		default:
			return fmt.Sprint(s), true
		}
	}
	return nil, false
}

func compareScalars(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case float64:
		bv, _ := b.(float64)
		return cmp.Compare(av, bv)
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	}
	return 0
}

// Project returns the fields of doc selected by the plan. Hidden fields are
// always dropped and id is always kept.
func (p *Plan) Project(doc Document) Document {
	out := make(Document, len(doc))
	hidden := func(name string) bool {
		f, ok := p.schema.Field(name)
		return !ok || f.Hidden
	}

	switch p.Projection.Mode {
	case ProjectInclude:
		if id, ok := doc["id"]; ok {
			out["id"] = id
		}
		for _, name := range p.Projection.Fields {
			if v, ok := doc[name]; ok && !hidden(name) {
				out[name] = v
			}
		}
	default:
		for name, v := range doc {
			if hidden(name) {
				continue
			}
			if p.Projection.Mode == ProjectExclude && name != "id" && slices.Contains(p.Projection.Fields, name) {
				continue
			}
			out[name] = v
		}
	}
	return out
}

// Execute runs plan over docs in memory: filter, sort, paginate, project.
func Execute(plan *Plan, docs []Document) []Document {
	matched := make([]Document, 0, len(docs))
	for _, d := range docs {
		if Match(d, plan.Filter) {
			matched = append(matched, d)
		}
	}
	slices.SortStableFunc(matched, func(a, b Document) int { return Compare(a, b, plan.Sort) })

	if plan.Skip >= len(matched) {
		return []Document{}
	}
	end := min(plan.Skip+plan.Limit, len(matched))

	out := make([]Document, 0, end-plan.Skip)
	for _, d := range matched[plan.Skip:end] {
		out = append(out, plan.Project(d))
	}
	return out
}

// CountMatches counts docs that satisfy filter.
func CountMatches(filter Predicate, docs []Document) int {
	n := 0
	for _, d := range docs {
		if Match(d, filter) {
			n++
		}
	}
	return n
}

// MemorySource serves plans from a fixed slice of documents.
type MemorySource struct {
	Docs []Document
}

// Find implements Source.
func (m *MemorySource) Find(ctx context.Context, plan *Plan) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Execute(plan, m.Docs), nil
}

// Count implements Source.
func (m *MemorySource) Count(ctx context.Context, filter Predicate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return CountMatches(filter, m.Docs), nil
}

// FindWithCount implements Source.
func (m *MemorySource) FindWithCount(ctx context.Context, plan *Plan) ([]Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return Execute(plan, m.Docs), CountMatches(plan.Filter, m.Docs), nil
}
