package types

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ErrInvalidSort is returned when a sort specification is malformed.
var ErrInvalidSort = errors.New("invalid sort specification")

// Order represents sorting direction.
type Order string

const (
	Ascending  Order = "asc"  // Ascending order
	Descending Order = "desc" // Descending order
)

// Direction returns the signed store direction, 1 or -1.
func (o Order) Direction() int {
	if o == Descending {
		return -1
	}
	return 1
}

// OrderOf maps a signed direction to an Order. Zero maps to Ascending.
func OrderOf(direction int) Order {
	if direction < 0 {
		return Descending
	}
	return Ascending
}

// Criterion represents a single sorting criterion.
type Criterion struct {
	Field     string `json:"field"`     // Field to sort by, dotted paths allowed
	Direction int    `json:"direction"` // Positive ascending, negative descending
}

// Order returns the criterion direction as an Order.
func (c Criterion) Order() Order {
	return OrderOf(c.Direction)
}

// Sort is an ordering specification. It is built with By, Pair or List only.
type Sort interface {
	sealed()
}

// Field sorts by a single field ascending.
type Field string

// FieldPair sorts by a single field in the given direction.
type FieldPair Criterion

// MultiCriteria supports multi-field sorting. The first criterion has the
// highest tie-break priority.
type MultiCriteria struct {
	Criteria []Criterion `json:"criteria"`
}

func (Field) sealed()         {}
func (FieldPair) sealed()     {}
func (MultiCriteria) sealed() {}

// By sorts by field ascending.
func By(field string) Sort { return Field(field) }

// Pair sorts by field in direction.
func Pair(field string, direction int) Sort {
	return FieldPair{Field: field, Direction: direction}
}

// List sorts by several criteria in priority order.
func List(criteria ...Criterion) Sort {
	return MultiCriteria{Criteria: append([]Criterion(nil), criteria...)}
}

// Asc is shorthand for an ascending criterion.
func Asc(field string) Criterion { return Criterion{Field: field, Direction: 1} }

// Desc is shorthand for a descending criterion.
func Desc(field string) Criterion { return Criterion{Field: field, Direction: -1} }

// Criteria resolves a Sort into its ordered criteria.
// A nil Sort yields nil criteria and no error.
func Criteria(s Sort) ([]Criterion, error) {
	var out []Criterion
	switch v := s.(type) {
	case nil:
		return nil, nil
	case Field:
		out = []Criterion{{Field: string(v), Direction: 1}}
	case FieldPair:
		out = []Criterion{Criterion(v)}
	case MultiCriteria:
		if len(v.Criteria) == 0 {
			return nil, fmt.Errorf("%w: empty criteria list", ErrInvalidSort)
		}
		out = append(out, v.Criteria...)
	default:
		return nil, fmt.Errorf("%w: unsupported shape %T", ErrInvalidSort, s)
	}

	for _, c := range out {
		if strings.TrimSpace(c.Field) == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrInvalidSort)
		}
		if c.Direction == 0 {
			return nil, fmt.Errorf("%w: zero direction for field %q", ErrInvalidSort, c.Field)
		}
	}
	return out, nil
}

// ParseSort parses "field,-other,+third" into a Sort. A leading '-' sorts
// descending. An empty string yields a nil Sort.
func ParseSort(expr string) (Sort, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	parts := strings.Split(expr, ",")
	criteria := make([]Criterion, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		direction := 1
		switch {
		case strings.HasPrefix(p, "-"):
			direction = -1
			p = p[1:]
		case strings.HasPrefix(p, "+"):
			p = p[1:]
		}
		if p == "" {
			return nil, fmt.Errorf("%w: empty field in %q", ErrInvalidSort, expr)
		}
		criteria = append(criteria, Criterion{Field: p, Direction: direction})
	}

	if len(criteria) == 1 {
		return Pair(criteria[0].Field, criteria[0].Direction), nil
	}
	return List(criteria...), nil
}

// Sortable represents a sortable dataset interface.
type Sortable interface {
	Sort(criteria []Criterion) error
}

// DynamicSorter provides a generic implementation for sorting based on criteria.
type DynamicSorter struct {
	Data    []map[string]any                                     // Dataset to be sorted
	Getter  func(item map[string]any, field string) (any, error) // Field value getter
	Compare func(a, b any) int                                   // Optional, defaults to CompareValues
}

// Sort sorts the dataset based on the given criteria.
func (ds *DynamicSorter) Sort(criteria []Criterion) error {
	if ds.Getter == nil {
		return errors.New("getter function is not defined")
	}
	compare := ds.Compare
	if compare == nil {
		compare = CompareValues
	}

	sort.SliceStable(ds.Data, func(i, j int) bool {
		for _, c := range criteria {
			val1, err1 := ds.Getter(ds.Data[i], c.Field)
			val2, err2 := ds.Getter(ds.Data[j], c.Field)
			if err1 != nil || err2 != nil {
				continue // Skip this field if there's an error
			}

			comparison := compare(val1, val2)
			if c.Direction < 0 {
				comparison = -comparison
			}

			if comparison != 0 {
				return comparison < 0
			}
		}
		return false
	})

	return nil
}

// CompareValues compares two values and returns -1, 0, or 1.
// Numbers of any width compare by value, strings lexicographically, times
// chronologically, byte slices bytewise and false before true. nil sorts
// before everything. Values of unrelated types are considered equal.
func CompareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return CompareFloat(af, bf)
		}
		return 0
	}

	switch aVal := a.(type) {
	case string:
		if bVal, ok := b.(string); ok {
			return CompareString(aVal, bVal)
		}
	case time.Time:
		if bVal, ok := b.(time.Time); ok {
			return aVal.Compare(bVal)
		}
	case []byte:
		if bVal, ok := b.([]byte); ok {
			return bytes.Compare(aVal, bVal)
		}
	case bool:
		if bVal, ok := b.(bool); ok {
			return CompareInt(boolToInt(aVal), boolToInt(bVal))
		}
	}
	return 0
}

// CompareInt compares two integers.
// Returns -1 if a < b.
// Returns 1 if a > b.
// Returns 0 if a == b.
func CompareInt(a, b int) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// CompareFloat compares two floats. NaN sorts before every number.
func CompareFloat(a, b float64) int {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return -1
	case math.IsNaN(b):
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CompareString compares two strings lexicographically.
// Returns -1 if a < b.
// Returns 1 if a > b.
// Returns 0 if a == b.
func CompareString(a, b string) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
