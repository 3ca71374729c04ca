package sqlite

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
	"github.com/murmurapp/murmur-server/internal/query"
)

// Field names are schema-checked before they get here; this keeps them out
// of the SQL text if one ever is not.
var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func jsonPath(field string) (string, error) {
	if !fieldName.MatchString(field) {
		return "", domainerrors.Queryf("invalid field name %q", field)
	}
	return "'$." + field + "'", nil
}

// valueExpr returns the SQL expression reading field from the body, in a form
// that compares correctly for kind.
func valueExpr(field string, kind query.Kind) (string, error) {
	if field == "id" {
		return "id", nil
	}
	path, err := jsonPath(field)
	if err != nil {
		return "", err
	}
	expr := "json_extract(body, " + path + ")"
	if kind == query.KindTime {
		expr = "julianday(" + expr + ")"
	}
	return expr, nil
}

func bindValue(kind query.Kind, v any) (string, any) {
	if kind == query.KindTime {
		if t, ok := v.(time.Time); ok {
			return "julianday(?)", t.UTC().Format(time.RFC3339Nano)
		}
		return "julianday(?)", v
	}
	return "?", v
}

var comparators = map[query.Operator]string{
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

func compileCondition(c query.Condition) (string, []any, error) {
	if len(c.Values) == 0 {
		return "", nil, domainerrors.Queryf("condition on %q has no values", c.Field)
	}

	if c.Kind == query.KindSet {
		path, err := jsonPath(c.Field)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(body, %s) WHERE json_each.value IN (%s))",
			path, placeholders(len(c.Values))), c.Values, nil
	}

	lhs, err := valueExpr(c.Field, c.Kind)
	if err != nil {
		return "", nil, err
	}

	if c.Op == query.OpEq {
		binds := make([]string, len(c.Values))
		args := make([]any, len(c.Values))
		for i, v := range c.Values {
			binds[i], args[i] = bindValue(c.Kind, v)
		}
		if len(binds) == 1 {
			return lhs + " = " + binds[0], args, nil
		}
		return lhs + " IN (" + strings.Join(binds, ", ") + ")", args, nil
	}

	op, ok := comparators[c.Op]
	if !ok {
		return "", nil, domainerrors.Queryf("unsupported operator %q", c.Op)
	}
	if len(c.Values) != 1 {
		return "", nil, domainerrors.Queryf("operator %q on field %q takes a single value", c.Op, c.Field)
	}
	bind, arg := bindValue(c.Kind, c.Values[0])
	return lhs + " " + op + " " + bind, []any{arg}, nil
}

func compileWhere(filter query.Predicate) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(filter))
	var args []any
	for _, c := range filter {
		clause, condArgs, err := compileCondition(c)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, condArgs...)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func compileOrder(keys []query.SortKey) (string, error) {
	if len(keys) == 0 {
		return " ORDER BY id ASC", nil
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		expr, err := valueExpr(k.Field, k.Kind)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, expr+" "+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func compileFind(table string, plan *query.Plan) (string, []any, error) {
	where, args, err := compileWhere(plan.Filter)
	if err != nil {
		return "", nil, err
	}
	order, err := compileOrder(plan.Sort)
	if err != nil {
		return "", nil, err
	}
	stmt := "SELECT body FROM " + table + where + order + " LIMIT ? OFFSET ?"
	return stmt, append(args, plan.Limit, plan.Skip), nil
}

func compileCount(table string, filter query.Predicate) (string, []any, error) {
	where, args, err := compileWhere(filter)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + table + where, args, nil
}
