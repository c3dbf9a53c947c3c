package paging

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrPathNotFound is returned when a sort-key path does not resolve in a
// document.
var ErrPathNotFound = errors.New("path not found")

// Edge pairs a result with the cursor pointing at it.
type Edge[T any] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor"`
}

// NewEdge builds the edge of node, reading the cursor values from doc, the
// document form of node.
func NewEdge[T any](node T, doc any, keys []string) (Edge[T], error) {
	values, err := CursorPayload(doc, keys)
	if err != nil {
		return Edge[T]{}, err
	}
	cursor, err := EncodeCursor(values)
	if err != nil {
		return Edge[T]{}, err
	}
	return Edge[T]{Node: node, Cursor: cursor}, nil
}

// Nodes returns the nodes of edges in order.
func Nodes[T any](edges []Edge[T]) []T {
	nodes := make([]T, len(edges))
	for i, e := range edges {
		nodes[i] = e.Node
	}
	return nodes
}

// CursorPayload extracts one value per key from doc, in key order.
func CursorPayload(doc any, keys []string) ([]any, error) {
	values := make([]any, 0, len(keys))
	for _, key := range keys {
		v, err := Lookup(doc, key)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// Lookup resolves a dot-separated path in doc. Numeric segments index
// arrays, so "bars.0.apple" reads field apple of the first element of bars.
// A path without dots is a plain key lookup.
func Lookup(doc any, path string) (any, error) {
	if !strings.Contains(path, ".") {
		v, ok := field(doc, path)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrPathNotFound, path)
		}
		return v, nil
	}

	current := doc
	for _, piece := range strings.Split(path, ".") {
		if items, ok := sequence(current); ok {
			idx, err := strconv.Atoi(piece)
			if err != nil || idx < 0 || idx >= len(items) {
				return nil, fmt.Errorf("%w: %q at segment %q", ErrPathNotFound, path, piece)
			}
			current = items[idx]
			continue
		}
		v, ok := field(current, piece)
		if !ok {
			return nil, fmt.Errorf("%w: %q at segment %q", ErrPathNotFound, path, piece)
		}
		current = v
	}
	return current, nil
}

func field(doc any, key string) (any, bool) {
	switch d := doc.(type) {
	case bson.D:
		for _, e := range d {
			if e.Key == key {
				return e.Value, true
			}
		}
		return nil, false
	case bson.M:
		v, ok := d[key]
		return v, ok
	case map[string]any:
		v, ok := d[key]
		return v, ok
	case bson.Raw:
		rv, err := d.LookupErr(key)
		if err != nil {
			return nil, false
		}
		var v any
		if err := rv.Unmarshal(&v); err != nil {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

func sequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case bson.A:
		return s, true
	case []any:
		return s, true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
