package orm

const (
	DEFAULT_PAGINATION_LIMIT = 10
	MAX_PAGINATION_LIMIT     = 100

	// TenantColumn is the column every tenant-owned table carries.
	TenantColumn = "tenant_id"
	// IDColumn is returned by every write through RETURNING.
	IDColumn = "id"
)

// ParameterizedSQL is a statement with PostgreSQL $N placeholders and the
// values bound to them, in placeholder order.
type ParameterizedSQL struct {
	Query  string        `json:"query"`
	Values []interface{} `json:"values,omitempty"`
}

// Predicate is one "column operator value" test. Predicates in a Filters
// sequence are ANDed together in order.
// Sample usage:
//
//	orm.Filters{
//	  orm.Eq("name", "Widget"),
//	  {Column: "price", Operator: orm.OpGreater, Value: 10},
//	  {Column: "id", Operator: orm.OpIn, Value: []int64{1, 2, 3}},
//	}
//	// Output: WHERE "name" = $1 AND "price" > $2 AND "id" IN ($3, $4, $5)
type Predicate struct {
	Column   string      `json:"column"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
}

// Filters is an ordered list of predicates.
type Filters []Predicate

// Eq is shorthand for an equality predicate.
func Eq(column string, value interface{}) Predicate {
	return Predicate{Column: column, Operator: OpEqual, Value: value}
}

// Where starts a Filters sequence from the given predicates.
func Where(preds ...Predicate) Filters {
	return Filters(preds)
}

// And returns a new sequence with p appended. The receiver is not modified.
func (f Filters) And(p Predicate) Filters {
	out := make(Filters, 0, len(f)+1)
	out = append(out, f...)
	return append(out, p)
}

// Find returns the first predicate on column, if any.
func (f Filters) Find(column string) (Predicate, bool) {
	for _, p := range f {
		if p.Column == column {
			return p, true
		}
	}
	return Predicate{}, false
}

// Without returns a copy of f with every predicate on column removed.
func (f Filters) Without(column string) Filters {
	out := make(Filters, 0, len(f))
	for _, p := range f {
		if p.Column != column {
			out = append(out, p)
		}
	}
	return out
}

// Column is one column/value pair of a Row.
type Column struct {
	Name  string
	Value interface{}
}

// Row is an ordered column -> value payload used for INSERT and UPDATE.
// Column order is kept so that generated statements are deterministic.
type Row []Column

// NewRow builds a Row from alternating name/value pairs.
// Usage:
//
//	row := orm.NewRow("name", "Widget", "price", "9.99")
func NewRow(pairs ...interface{}) Row {
	row := make(Row, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		name, _ := pairs[i].(string)
		row = row.Set(name, pairs[i+1])
	}
	return row
}

// Set returns a Row with name set to value, replacing an existing column in
// place or appending a new one. The receiver is never modified.
func (r Row) Set(name string, value interface{}) Row {
	out := r.Clone()
	for i := range out {
		if out[i].Name == name {
			out[i].Value = value
			return out
		}
	}
	return append(out, Column{Name: name, Value: value})
}

// Get returns the value of column name.
func (r Row) Get(name string) (interface{}, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// Clone returns an independent copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r), len(r)+1)
	copy(out, r)
	return out
}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// SelectQuery describes a read. Fields is the projection, in output order.
// When TenantScoped is set the builder appends "tenant_id" = TenantID as the
// last predicate, replacing any caller predicate on tenant_id.
type SelectQuery struct {
	Table        string
	Fields       []string
	Filters      Filters
	OrderBy      []Order
	Limit        int // 0 means unlimited, no LIMIT clause is emitted
	Offset       int // 0 means no OFFSET
	TenantScoped bool
	TenantID     int64
}

// UpdateQuery describes an UPDATE ... RETURNING id. When TenantScoped is set,
// Data must carry tenant_id and that value is also required in WHERE.
type UpdateQuery struct {
	Table        string
	Data         Row
	Filters      Filters
	TenantScoped bool
}

// DeleteQuery describes a DELETE ... RETURNING id. When TenantScoped is set,
// Filters must carry an equality predicate on tenant_id.
type DeleteQuery struct {
	Table        string
	Filters      Filters
	TenantScoped bool
}

// Page converts 1-based page/pageSize into limit and offset, clamping bad
// input to the defaults.
// Usage:
//
//	limit, offset := orm.Page(2, 20) // 20, 20
func Page(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DEFAULT_PAGINATION_LIMIT
	}
	if pageSize > MAX_PAGINATION_LIMIT {
		pageSize = MAX_PAGINATION_LIMIT
	}
	return pageSize, (page - 1) * pageSize
}

// TotalPages returns ceil(total/pageSize), 0 when pageSize is not positive.
func TotalPages(total int64, pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	return (total + int64(pageSize) - 1) / int64(pageSize)
}
