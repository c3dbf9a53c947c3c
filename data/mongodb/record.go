package mongodb

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ncobase/docmapper/paging"
	"github.com/ncobase/docmapper/validator"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// recordInfo locates the identity field of a record type.
type recordInfo struct {
	typ   reflect.Type
	index []int
	// stringID is set when the identity is a string kind. Such records get
	// their id generated before insert.
	stringID bool
}

// inspect resolves the identity field of t, which must be a struct.
func inspect(t reflect.Type) (*recordInfo, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidRecordType, t)
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if bsonKey(f) == paging.IDField {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			return &recordInfo{typ: t, index: f.Index, stringID: ft.Kind() == reflect.String}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingIDField, t)
}

// bsonKey returns the key the driver stores a field under.
func bsonKey(f reflect.StructField) string {
	tag, ok := f.Tag.Lookup("bson")
	if ok {
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

// id returns the record's identity, or nil when unset.
func (ri *recordInfo) id(rec any) any {
	v := reflect.ValueOf(rec)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	f := v.FieldByIndex(ri.index)
	if f.IsZero() {
		return nil
	}
	if f.Kind() == reflect.Pointer {
		f = f.Elem()
	}
	return f.Interface()
}

// setID stores a store-generated id in the record.
func (ri *recordInfo) setID(rec any, id any) error {
	v := reflect.ValueOf(rec)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return ErrNilRecord
	}
	return assign(v.Elem().FieldByIndex(ri.index), id)
}

func assign(f reflect.Value, id any) error {
	if f.Kind() == reflect.Pointer {
		elem := reflect.New(f.Type().Elem())
		if err := assign(elem.Elem(), id); err != nil {
			return err
		}
		f.Set(elem)
		return nil
	}

	iv := reflect.ValueOf(id)
	switch {
	case !iv.IsValid():
		return fmt.Errorf("%w: nil id", ErrIDType)
	case iv.Type().AssignableTo(f.Type()):
		f.Set(iv)
	case f.Kind() == reflect.String:
		if oid, ok := id.(primitive.ObjectID); ok {
			f.SetString(oid.Hex())
			return nil
		}
		if !iv.Type().ConvertibleTo(f.Type()) || iv.Kind() != reflect.String {
			return fmt.Errorf("%w: cannot store %T in %s", ErrIDType, id, f.Type())
		}
		f.Set(iv.Convert(f.Type()))
	case iv.Type().ConvertibleTo(f.Type()):
		f.Set(iv.Convert(f.Type()))
	default:
		return fmt.Errorf("%w: cannot store %T in %s", ErrIDType, id, f.Type())
	}
	return nil
}

// toDocument encodes rec and moves its identity from "id" to "_id". The id
// is omitted when unset.
func (ri *recordInfo) toDocument(rec any) (bson.D, any, error) {
	raw, err := bson.Marshal(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("encode record: %w", err)
	}
	var fields bson.D
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, nil, fmt.Errorf("encode record: %w", err)
	}

	id := ri.id(rec)
	doc := make(bson.D, 0, len(fields)+1)
	if id != nil {
		doc = append(doc, bson.E{Key: paging.StoreIDField, Value: id})
	}
	for _, e := range fields {
		if e.Key == paging.IDField || e.Key == paging.StoreIDField {
			continue
		}
		doc = append(doc, e)
	}
	return doc, id, nil
}

// withNewID prepends a generated "_id" to the insert document of a record
// with a string identity, so the stored id is the string the record gets
// back. Other identities are left to the store.
func (ri *recordInfo) withNewID(doc bson.D) bson.D {
	if !ri.stringID {
		return doc
	}
	out := make(bson.D, 0, len(doc)+1)
	out = append(out, bson.E{Key: paging.StoreIDField, Value: primitive.NewObjectID().Hex()})
	return append(out, doc...)
}

// decode materializes a stored document as an O, moving "_id" back to "id",
// and validates the result.
func decode[O any](doc bson.D) (*O, error) {
	fields := make(bson.D, 0, len(doc))
	for _, e := range doc {
		switch e.Key {
		case paging.StoreIDField:
			fields = append(fields, bson.E{Key: paging.IDField, Value: e.Value})
		case paging.IDField:
			// a stored "id" field would collide with the identity
		default:
			fields = append(fields, e)
		}
	}

	raw, err := bson.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	out := new(O)
	if err := bson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := validator.Validate(out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return out, nil
}
