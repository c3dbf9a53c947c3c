package mongotest

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// canonical round-trips v through BSON so values carry the driver's types.
func canonical(v any) (bson.D, error) {
	if v == nil {
		return bson.D{}, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// resolve returns every value at path. Arrays fan out unless the segment
// is an index.
func resolve(v any, parts []string) []any {
	if len(parts) == 0 {
		return []any{v}
	}
	switch t := v.(type) {
	case bson.D:
		for _, e := range t {
			if e.Key == parts[0] {
				return resolve(e.Value, parts[1:])
			}
		}
	case bson.A:
		if i, err := strconv.Atoi(parts[0]); err == nil {
			if i >= 0 && i < len(t) {
				return resolve(t[i], parts[1:])
			}
			return nil
		}
		var out []any
		for _, el := range t {
			out = append(out, resolve(el, parts)...)
		}
		return out
	}
	return nil
}

func get(doc bson.D, path string) (any, bool) {
	vals := resolve(doc, strings.Split(path, "."))
	if len(vals) == 0 {
		return nil, false
	}
	return vals[0], true
}

// match reports whether doc satisfies filter.
func match(doc bson.D, filter bson.D) (bool, error) {
	for _, e := range filter {
		ok, err := matchElement(doc, e)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchElement(doc bson.D, e bson.E) (bool, error) {
	switch e.Key {
	case "$and", "$or", "$nor":
		clauses, ok := e.Value.(bson.A)
		if !ok || len(clauses) == 0 {
			return false, fmt.Errorf("%s must be a nonempty array", e.Key)
		}
		for _, c := range clauses {
			sub, ok := c.(bson.D)
			if !ok {
				return false, fmt.Errorf("%s entries must be documents", e.Key)
			}
			hit, err := match(doc, sub)
			if err != nil {
				return false, err
			}
			switch {
			case e.Key == "$and" && !hit:
				return false, nil
			case e.Key == "$or" && hit:
				return true, nil
			case e.Key == "$nor" && hit:
				return false, nil
			}
		}
		return e.Key != "$or", nil
	}
	if strings.HasPrefix(e.Key, "$") {
		return false, fmt.Errorf("unknown top level operator: %s", e.Key)
	}

	values := resolve(doc, strings.Split(e.Key, "."))
	if ops, ok := operators(e.Value); ok {
		for _, op := range ops {
			hit, err := matchOperator(values, op)
			if err != nil || !hit {
				return false, err
			}
		}
		return true, nil
	}
	return matchEqual(values, e.Value), nil
}

// operators returns cond when it is an operator document.
func operators(cond any) (bson.D, bool) {
	d, ok := cond.(bson.D)
	if !ok || len(d) == 0 {
		return nil, false
	}
	return d, strings.HasPrefix(d[0].Key, "$")
}

// candidates adds the elements of array values, which match on their own.
func candidates(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
		if arr, ok := v.(bson.A); ok {
			out = append(out, arr...)
		}
	}
	return out
}

func matchEqual(values []any, want any) bool {
	if len(values) == 0 {
		return want == nil
	}
	for _, v := range candidates(values) {
		if equal(v, want) {
			return true
		}
	}
	return false
}

func matchOperator(values []any, op bson.E) (bool, error) {
	switch op.Key {
	case "$eq":
		return matchEqual(values, op.Value), nil
	case "$ne":
		return !matchEqual(values, op.Value), nil
	case "$gt", "$gte", "$lt", "$lte":
		for _, v := range candidates(values) {
			c, ok := compare(v, op.Value)
			if !ok {
				continue
			}
			if (op.Key == "$gt" && c > 0) || (op.Key == "$gte" && c >= 0) ||
				(op.Key == "$lt" && c < 0) || (op.Key == "$lte" && c <= 0) {
				return true, nil
			}
		}
		return false, nil
	case "$in", "$nin":
		list, ok := op.Value.(bson.A)
		if !ok {
			return false, fmt.Errorf("%s needs an array", op.Key)
		}
		in := false
		for _, want := range list {
			if matchEqual(values, want) {
				in = true
				break
			}
		}
		return in == (op.Key == "$in"), nil
	case "$exists":
		want := truthy(op.Value)
		return (len(values) > 0) == want, nil
	}
	return false, fmt.Errorf("unknown operator: %s", op.Key)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	}
	n := number(v)
	return n == n && n != 0
}
