package paging

import (
	"github.com/ncobase/docmapper/types"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	// IDField is the logical identity key exposed to callers.
	IDField = "id"
	// StoreIDField is the store's physical identity key.
	StoreIDField = "_id"
)

// DefaultSort orders by the physical identity ascending.
var DefaultSort = types.Pair(StoreIDField, 1)

// MapField translates the logical identity name to the physical one.
func MapField(field string) string {
	if field == IDField {
		return StoreIDField
	}
	return field
}

// MapID returns a copy of m with a top-level "id" key renamed to "_id".
// Nested keys and operators are left untouched.
func MapID(m bson.M) bson.M {
	if m == nil {
		return nil
	}
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = v
	}
	if v, ok := out[IDField]; ok {
		delete(out, IDField)
		out[StoreIDField] = v
	}
	return out
}

// NormalizeSort converts a Sort into the store-native ordered sort document,
// mapping "id" to "_id". Directions are normalized to 1 or -1.
func NormalizeSort(s types.Sort) (bson.D, error) {
	criteria, err := types.Criteria(s)
	if err != nil {
		return nil, err
	}
	if criteria == nil {
		return nil, nil
	}

	out := make(bson.D, 0, len(criteria))
	for _, c := range criteria {
		out = append(out, bson.E{Key: MapField(c.Field), Value: c.Order().Direction()})
	}
	return out, nil
}

// SortKeys lists the field names of a Sort as given by the caller.
func SortKeys(s types.Sort) ([]string, error) {
	criteria, err := types.Criteria(s)
	if err != nil {
		return nil, err
	}
	return lo.Map(criteria, func(c types.Criterion, _ int) string { return c.Field }), nil
}

// direction reads the sign of a sort document value.
func direction(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		if n < 0 {
			return -1
		}
		return 1
	case string:
		return types.Order(n).Direction()
	}
	return 1
}
