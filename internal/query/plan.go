package query

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
)

// SortKey orders results by one field.
type SortKey struct {
	Field string
	Kind  Kind
	Desc  bool
}

// ProjectionMode selects how Projection.Fields is read.
type ProjectionMode uint8

const (
	// ProjectAll returns every visible field.
	ProjectAll ProjectionMode = iota
	// ProjectInclude returns id plus the listed fields.
	ProjectInclude
	// ProjectExclude returns every visible field except the listed ones.
	ProjectExclude
)

// Projection selects the fields returned for each record.
type Projection struct {
	Mode   ProjectionMode
	Fields []string
}

// Plan is a validated read: filter, then sort, then projection, then pagination.
type Plan struct {
	Collection string
	Filter     Predicate
	Sort       []SortKey
	Projection Projection
	Page       int
	Skip       int
	Limit      int

	schema *Schema
}

// Schema returns the schema the plan was built against.
func (p *Plan) Schema() *Schema { return p.schema }

type planner struct {
	schema       *Schema
	defaultLimit int
	maxLimit     int
}

// maxSkip bounds the offset so huge page numbers cannot overflow it.
const maxSkip = math.MaxInt32

func (pl planner) plan(base Predicate, params Params) (*Plan, error) {
	filter, err := pl.resolveBase(base)
	if err != nil {
		return nil, err
	}

	userFilter, err := pl.parseFilter(params)
	if err != nil {
		return nil, err
	}
	filter = append(filter, userFilter...)

	// A sort made only of separators counts as absent.
	sortExpr := params.Get(KeySort)
	if strings.Trim(sortExpr, ", \t") == "" {
		sortExpr = pl.schema.DefaultSort()
	}
	sortKeys, err := pl.parseSort(sortExpr)
	if err != nil {
		return nil, err
	}

	projection, err := pl.parseProjection(params.Get(KeyFields))
	if err != nil {
		return nil, err
	}

	limit := min(positiveInt(params.Get(KeyLimit), pl.defaultLimit), pl.maxLimit)
	page := min(positiveInt(params.Get(KeyPage), 1), maxSkip/limit+1)

	return &Plan{
		Collection: pl.schema.Name(),
		Filter:     filter,
		Sort:       sortKeys,
		Projection: projection,
		Page:       page,
		Skip:       (page - 1) * limit,
		Limit:      limit,
		schema:     pl.schema,
	}, nil
}

// resolveBase fills in kinds and coerces values of caller-supplied conditions.
func (pl planner) resolveBase(base Predicate) (Predicate, error) {
	out := make(Predicate, 0, len(base))
	for _, c := range base {
		f, ok := pl.schema.Field(c.Field)
		if !ok {
			return nil, domainerrors.Queryf("unknown field %q in %s scope", c.Field, pl.schema.Name())
		}
		if c.Op == "" {
			c.Op = OpEq
		}
		vals := make([]any, len(c.Values))
		for i, v := range c.Values {
			s, isString := v.(string)
			if !isString {
				vals[i] = v
				continue
			}
			coerced, err := coerce(f, s)
			if err != nil {
				return nil, err
			}
			vals[i] = coerced
		}
		out = append(out, Condition{Field: f.Name, Kind: f.Kind, Op: c.Op, Values: vals})
	}
	return out, nil
}

func (pl planner) parseFilter(params Params) (Predicate, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		if !isReserved(k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var out Predicate
	for _, key := range keys {
		name, op, err := splitFilterKey(key)
		if err != nil {
			return nil, err
		}
		f, ok := pl.schema.Field(name)
		if !ok || f.Hidden {
			return nil, domainerrors.Queryf("unknown filter field %q", name)
		}
		if !f.Allows(op) {
			return nil, domainerrors.Queryf("operator %q is not allowed on field %q", op, name)
		}

		raw := params[key]
		if len(raw) == 0 {
			continue
		}
		if op != OpEq && len(raw) > 1 {
			return nil, domainerrors.Queryf("operator %q on field %q takes a single value", op, name)
		}

		vals := make([]any, 0, len(raw))
		for _, r := range raw {
			v, err := coerce(f, r)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		out = append(out, Condition{Field: f.Name, Kind: f.Kind, Op: op, Values: vals})
	}
	return out, nil
}

// splitFilterKey splits "likeCount[gte]" into field and operator.
func splitFilterKey(key string) (string, Operator, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		if strings.ContainsRune(key, ']') {
			return "", "", domainerrors.Queryf("malformed filter key %q", key)
		}
		return key, OpEq, nil
	}
	if !strings.HasSuffix(key, "]") || open == 0 {
		return "", "", domainerrors.Queryf("malformed filter key %q", key)
	}
	op, ok := parseOperator(key[open+1 : len(key)-1])
	if !ok {
		return "", "", domainerrors.Queryf("unknown operator in filter key %q", key)
	}
	return key[:open], op, nil
}

func (pl planner) parseSort(expr string) ([]SortKey, error) {
	var keys []SortKey
	seen := make(map[string]bool)
	for token := range strings.SplitSeq(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		desc := strings.HasPrefix(token, "-")
		name := strings.TrimPrefix(token, "-")
		f, ok := pl.schema.Field(name)
		if !ok || f.Hidden || !f.Sortable {
			return nil, domainerrors.Queryf("cannot sort by %q", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		keys = append(keys, SortKey{Field: name, Kind: f.Kind, Desc: desc})
	}
	if !seen["id"] {
		keys = append(keys, SortKey{Field: "id", Kind: KindString})
	}
	return keys, nil
}

// parseProjection reads the fields parameter. The first token decides the
// mode and a token of the other mode is rejected.
func (pl planner) parseProjection(expr string) (Projection, error) {
	var p Projection
	for token := range strings.SplitSeq(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		mode := ProjectInclude
		if strings.HasPrefix(token, "-") {
			mode = ProjectExclude
		}
		if p.Mode == ProjectAll {
			p.Mode = mode
		} else if p.Mode != mode {
			return Projection{}, domainerrors.Queryf("fields %q mixes included and excluded fields", expr)
		}

		name := strings.TrimPrefix(token, "-")
		f, ok := pl.schema.Field(name)
		if !ok || f.Hidden {
			return Projection{}, domainerrors.Queryf("unknown field %q in fields", name)
		}
		if name == "id" || slices.Contains(p.Fields, name) {
			continue
		}
		p.Fields = append(p.Fields, name)
	}
	return p, nil
}

func coerce(f Field, raw string) (any, error) {
	switch f.Kind {
	case KindNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, domainerrors.Queryf("field %q expects a number, got %q", f.Name, raw)
		}
		return n, nil
	case KindTime:
		t, err := parseTime(raw)
		if err != nil {
			return nil, domainerrors.Queryf("field %q expects a timestamp, got %q", f.Name, raw)
		}
		return t, nil
	default:
		return raw, nil
	}
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
