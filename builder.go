package orm

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// The builders below are pure: same input, same statement text and the same
// ordered values. Identifiers are always quoted and values are always bound.

// params collects bound values and hands out $N placeholders.
type params struct {
	values []interface{}
}

func (p *params) bind(v interface{}) string {
	p.values = append(p.values, v)
	return "$" + strconv.Itoa(len(p.values))
}

// QuoteIdentifier quotes a column or table name. A dotted name is treated as
// schema.table and each part is quoted on its own.
func QuoteIdentifier(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrQuery)
	}
	parts := strings.Split(name, ".")
	for i, part := range parts {
		if part == "" {
			return "", fmt.Errorf("%w: malformed identifier %q", ErrQuery, name)
		}
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, "."), nil
}

func quoteField(name string) (string, error) {
	if name == "*" {
		return name, nil
	}
	return QuoteIdentifier(name)
}

// BuildSelect generates SELECT <fields> FROM <table> [WHERE] [ORDER BY] [LIMIT $n] [OFFSET $m].
// A zero Limit leaves the result unbounded; there is no way to ask for LIMIT 0.
// Usage:
//
//	stmt, err := orm.BuildSelect(orm.SelectQuery{
//	  Table:  "products",
//	  Fields: []string{"id", "name"},
//	  Filters: orm.Where(orm.Eq("name", "Widget")),
//	  Limit:  10,
//	  TenantScoped: true, TenantID: 7,
//	})
//	// SELECT "id", "name" FROM "products" WHERE "name" = $1 AND "tenant_id" = $2 LIMIT $3
func BuildSelect(q SelectQuery) (ParameterizedSQL, error) {
	table, err := QuoteIdentifier(q.Table)
	if err != nil {
		return ParameterizedSQL{}, err
	}
	if len(q.Fields) == 0 {
		return ParameterizedSQL{}, fmt.Errorf("%w: no fields selected from %s", ErrQuery, q.Table)
	}
	if q.Limit < 0 || q.Offset < 0 {
		return ParameterizedSQL{}, fmt.Errorf("%w: negative limit or offset", ErrInvalidData)
	}
	filters, err := scopeSelect(q)
	if err != nil {
		return ParameterizedSQL{}, err
	}

	fields := make([]string, len(q.Fields))
	for i, f := range q.Fields {
		if fields[i], err = quoteField(f); err != nil {
			return ParameterizedSQL{}, err
		}
	}

	var p params
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(fields, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(table)

	where, err := buildWhere(&p, filters)
	if err != nil {
		return ParameterizedSQL{}, err
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	if len(q.OrderBy) > 0 {
		terms := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			col, err := QuoteIdentifier(o.Column)
			if err != nil {
				return ParameterizedSQL{}, err
			}
			if o.Desc {
				col += " DESC"
			}
			terms[i] = col
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(p.bind(q.Limit))
	}
	if q.Offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(p.bind(q.Offset))
	}

	return ParameterizedSQL{Query: sb.String(), Values: p.values}, nil
}

// BuildInsert generates INSERT INTO <table> (<cols>) VALUES (<$..>) RETURNING "id".
func BuildInsert(table string, data Row) (ParameterizedSQL, error) {
	qt, err := QuoteIdentifier(table)
	if err != nil {
		return ParameterizedSQL{}, err
	}
	if len(data) == 0 {
		return ParameterizedSQL{}, fmt.Errorf("%w: insert into %s", ErrEmptyPayload, table)
	}

	var p params
	cols := make([]string, len(data))
	placeholders := make([]string, len(data))
	for i, c := range data {
		if cols[i], err = QuoteIdentifier(c.Name); err != nil {
			return ParameterizedSQL{}, err
		}
		placeholders[i] = p.bind(c.Value)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		qt,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		pq.QuoteIdentifier(IDColumn),
	)
	return ParameterizedSQL{Query: query, Values: p.values}, nil
}

// BuildUpdate generates UPDATE <table> SET <col = $i, ...> WHERE <preds> RETURNING "id".
// An update without filters is refused.
func BuildUpdate(q UpdateQuery) (ParameterizedSQL, error) {
	table, err := QuoteIdentifier(q.Table)
	if err != nil {
		return ParameterizedSQL{}, err
	}
	if len(q.Data) == 0 {
		return ParameterizedSQL{}, fmt.Errorf("%w: update %s", ErrEmptyPayload, q.Table)
	}
	filters, err := scopeUpdate(q)
	if err != nil {
		return ParameterizedSQL{}, err
	}
	if len(filters) == 0 {
		return ParameterizedSQL{}, fmt.Errorf("%w: update %s", ErrEmptyFilters, q.Table)
	}

	var p params
	sets := make([]string, len(q.Data))
	for i, c := range q.Data {
		col, err := QuoteIdentifier(c.Name)
		if err != nil {
			return ParameterizedSQL{}, err
		}
		sets[i] = col + " = " + p.bind(c.Value)
	}

	where, err := buildWhere(&p, filters)
	if err != nil {
		return ParameterizedSQL{}, err
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING %s",
		table, strings.Join(sets, ", "), where, pq.QuoteIdentifier(IDColumn))
	return ParameterizedSQL{Query: query, Values: p.values}, nil
}

// BuildDelete generates DELETE FROM <table> WHERE <preds> RETURNING "id".
// A delete without filters is refused.
func BuildDelete(q DeleteQuery) (ParameterizedSQL, error) {
	table, err := QuoteIdentifier(q.Table)
	if err != nil {
		return ParameterizedSQL{}, err
	}
	filters, err := scopeDelete(q)
	if err != nil {
		return ParameterizedSQL{}, err
	}
	if len(filters) == 0 {
		return ParameterizedSQL{}, fmt.Errorf("%w: delete from %s", ErrEmptyFilters, q.Table)
	}

	var p params
	where, err := buildWhere(&p, filters)
	if err != nil {
		return ParameterizedSQL{}, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s RETURNING %s", table, where, pq.QuoteIdentifier(IDColumn))
	return ParameterizedSQL{Query: query, Values: p.values}, nil
}

// BuildCount generates SELECT COUNT(*) FROM <table> WHERE "tenant_id" = $1.
func BuildCount(table string, tenantID int64) (ParameterizedSQL, error) {
	qt, err := QuoteIdentifier(table)
	if err != nil {
		return ParameterizedSQL{}, err
	}
	if tenantID <= 0 {
		return ParameterizedSQL{}, fmt.Errorf("%w: count on %s", ErrMissingTenantID, table)
	}
	return ParameterizedSQL{
		Query:  fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", qt, pq.QuoteIdentifier(TenantColumn)),
		Values: []interface{}{tenantID},
	}, nil
}

// buildWhere renders filters ANDed in order, binding values on p.
func buildWhere(p *params, filters Filters) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(filters))
	for _, pred := range filters {
		if !pred.Operator.IsValid() {
			return "", fmt.Errorf("%w: %q on column %s", ErrInvalidFilterOperator, string(pred.Operator), pred.Column)
		}
		col, err := QuoteIdentifier(pred.Column)
		if err != nil {
			return "", err
		}

		if !pred.Operator.IsList() {
			clauses = append(clauses, fmt.Sprintf("%s %s %s", col, pred.Operator, p.bind(pred.Value)))
			continue
		}

		items, err := listValues(pred.Value)
		if err != nil {
			return "", fmt.Errorf("%w: %s %s: %v", ErrInvalidData, pred.Column, pred.Operator, err)
		}
		placeholders := make([]string, len(items))
		for i, item := range items {
			placeholders[i] = p.bind(item)
		}
		clauses = append(clauses, fmt.Sprintf("%s %s (%s)", col, pred.Operator, strings.Join(placeholders, ", ")))
	}
	return strings.Join(clauses, " AND "), nil
}

// listValues flattens the value of an IN / NOT IN predicate.
func listValues(v interface{}) ([]interface{}, error) {
	if v == nil {
		return nil, fmt.Errorf("list value is nil")
	}
	if items, ok := v.([]interface{}); ok {
		if len(items) == 0 {
			return nil, fmt.Errorf("list value is empty")
		}
		return items, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	if rv.Len() == 0 {
		return nil, fmt.Errorf("list value is empty")
	}
	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}
