package mongotest

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

var errNoOperator = errors.New("update document must contain key beginning with '$'")

// set stores v at a dotted path, creating documents on the way.
func set(doc bson.D, path string, v any) (bson.D, error) {
	head, rest, nested := strings.Cut(path, ".")
	for i, e := range doc {
		if e.Key != head {
			continue
		}
		if !nested {
			doc[i].Value = v
			return doc, nil
		}
		sub, ok := e.Value.(bson.D)
		if !ok {
			return nil, fmt.Errorf("cannot create field %q in element {%s: %v}", rest, head, e.Value)
		}
		sub, err := set(sub, rest, v)
		if err != nil {
			return nil, err
		}
		doc[i].Value = sub
		return doc, nil
	}
	if !nested {
		return append(doc, bson.E{Key: head, Value: v}), nil
	}
	sub, err := set(bson.D{}, rest, v)
	if err != nil {
		return nil, err
	}
	return append(doc, bson.E{Key: head, Value: sub}), nil
}

// unset removes a dotted path.
func unset(doc bson.D, path string) bson.D {
	head, rest, nested := strings.Cut(path, ".")
	for i, e := range doc {
		if e.Key != head {
			continue
		}
		if !nested {
			return append(doc[:i:i], doc[i+1:]...)
		}
		if sub, ok := e.Value.(bson.D); ok {
			doc[i].Value = unset(sub, rest)
		}
		return doc
	}
	return doc
}

// apply runs the update operators on a copy of doc.
func apply(doc bson.D, update bson.D, inserting bool) (bson.D, error) {
	if len(update) == 0 {
		return nil, errors.New("update document must not be empty")
	}
	out := clone(doc)
	for _, op := range update {
		fields, ok := op.Value.(bson.D)
		if !strings.HasPrefix(op.Key, "$") {
			return nil, errNoOperator
		}
		if !ok {
			return nil, fmt.Errorf("%s needs a document", op.Key)
		}
		switch op.Key {
		case "$set", "$setOnInsert":
			if op.Key == "$setOnInsert" && !inserting {
				continue
			}
			for _, f := range fields {
				if f.Key == "_id" {
					if cur, ok := get(out, "_id"); ok && !equal(cur, f.Value) {
						return nil, errors.New("performing an update on the path '_id' would modify the immutable field '_id'")
					}
				}
				var err error
				if out, err = set(out, f.Key, f.Value); err != nil {
					return nil, err
				}
			}
		case "$unset":
			for _, f := range fields {
				out = unset(out, f.Key)
			}
		default:
			return nil, fmt.Errorf("unknown modifier: %s", op.Key)
		}
	}
	return out, nil
}

// seed builds the document an upsert starts from: the equality fields of
// the filter.
func seed(filter bson.D) bson.D {
	doc := bson.D{}
	for _, e := range filter {
		if strings.HasPrefix(e.Key, "$") {
			continue
		}
		v := e.Value
		if ops, ok := operators(v); ok {
			if len(ops) != 1 || ops[0].Key != "$eq" {
				continue
			}
			v = ops[0].Value
		}
		doc, _ = set(doc, e.Key, v)
	}
	return doc
}

func clone(doc bson.D) bson.D {
	out, err := canonical(doc)
	if err != nil {
		return append(bson.D{}, doc...)
	}
	return out
}
