package mongotest

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// project applies an inclusion or exclusion projection. "_id" is kept unless
// it is excluded explicitly.
func project(doc bson.D, projection bson.D) bson.D {
	if len(projection) == 0 {
		return doc
	}

	keepID := true
	inclusive := false
	var paths []string
	for _, e := range projection {
		on := truthy(e.Value)
		if e.Key == "_id" {
			keepID = on
			continue
		}
		inclusive = inclusive || on
		paths = append(paths, e.Key)
	}

	var out bson.D
	if inclusive {
		out = bson.D{}
		for _, p := range paths {
			if v, ok := get(doc, p); ok {
				out, _ = set(out, p, v)
			}
		}
		if id, ok := get(doc, "_id"); ok && keepID {
			out = append(bson.D{{Key: "_id", Value: id}}, out...)
		}
		return out
	}

	out = clone(doc)
	for _, p := range paths {
		out = unset(out, p)
	}
	if !keepID {
		out = unset(out, "_id")
	}
	return out
}

// sortSpec reads a sort document into ordered keys and signs.
type sortKey struct {
	path      string
	direction int
}

func sortSpec(sort bson.D) []sortKey {
	keys := make([]sortKey, 0, len(sort))
	for _, e := range sort {
		dir := 1
		if n := number(e.Value); n < 0 {
			dir = -1
		} else if s, ok := e.Value.(string); ok && strings.EqualFold(s, "desc") {
			dir = -1
		}
		keys = append(keys, sortKey{path: e.Key, direction: dir})
	}
	return keys
}
