package paging

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Comparison operators used by boundary clauses.
const (
	OpGreaterThan = "$gt"
	OpLessThan    = "$lt"
)

// CompareOperator picks the boundary operator for a sort key.
// Forward pages move past the cursor in sort order, backward pages before it.
func CompareOperator(direction int, forward bool) string {
	ascending := direction > 0
	if ascending == forward {
		return OpGreaterThan
	}
	return OpLessThan
}

// BuildQuery restricts query to the correct side of a cursor.
//
// after wins over before when both are set. Without a cursor or without a
// sort the query is returned as-is, or as an empty filter when nil. The
// boundary is one clause holding a comparison per sort key, joined to query
// with $and.
func BuildQuery(query bson.M, after, before string, sort bson.D) (bson.M, error) {
	selected, forward := after, true
	if selected == "" {
		selected, forward = before, false
	}

	if selected == "" || len(sort) == 0 {
		if len(query) == 0 {
			return bson.M{}, nil
		}
		return query, nil
	}

	values, err := DecodeCursor(selected)
	if err != nil {
		return nil, err
	}
	if len(values) != len(sort) {
		return nil, &PaginationError{
			Stage: "payload",
			Err:   fmt.Errorf("cursor holds %d values for %d sort keys", len(values), len(sort)),
		}
	}

	boundary := make(bson.D, 0, len(sort))
	for i, e := range sort {
		op := CompareOperator(direction(e.Value), forward)
		boundary = append(boundary, bson.E{Key: e.Key, Value: bson.D{{Key: op, Value: values[i]}}})
	}

	base := query
	if base == nil {
		base = bson.M{}
	}
	return bson.M{"$and": bson.A{base, boundary}}, nil
}
