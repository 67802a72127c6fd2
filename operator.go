package orm

import "fmt"

// Operator is a comparison operator allowed in a filter predicate.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpGreater      Operator = ">"
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
	OpLike         Operator = "LIKE"
	OpNotLike      Operator = "NOT LIKE"
	OpIn           Operator = "IN"
	OpNotIn        Operator = "NOT IN"
)

var allowedOperators = map[Operator]struct{}{
	OpEqual:        {},
	OpNotEqual:     {},
	OpLess:         {},
	OpGreater:      {},
	OpLessEqual:    {},
	OpGreaterEqual: {},
	OpLike:         {},
	OpNotLike:      {},
	OpIn:           {},
	OpNotIn:        {},
}

// ValidateOperator checks op against the allow-list and returns it typed.
// Matching is exact: "like" or " = " are rejected.
// Usage:
//
//	op, err := orm.ValidateOperator(r.URL.Query().Get("op"))
//
// Returns: ErrInvalidFilterOperator (wrapped with the offending value) when op is not allowed
func ValidateOperator(op string) (Operator, error) {
	o := Operator(op)
	if !o.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilterOperator, op)
	}
	return o, nil
}

// IsValid reports whether o is in the allow-list.
func (o Operator) IsValid() bool {
	_, ok := allowedOperators[o]
	return ok
}

// IsList reports whether o takes a list of values (IN, NOT IN).
func (o Operator) IsList() bool {
	return o == OpIn || o == OpNotIn
}

// AllowedOperators returns the allow-list, used in error messages and docs.
func AllowedOperators() []string {
	return []string{
		string(OpEqual), string(OpNotEqual), string(OpLess), string(OpGreater),
		string(OpLessEqual), string(OpGreaterEqual), string(OpLike), string(OpNotLike),
		string(OpIn), string(OpNotIn),
	}
}

func (o Operator) String() string {
	return string(o)
}
