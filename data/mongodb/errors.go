package mongodb

import "errors"

var (
	// ErrInvalidRecordType is returned when a repository is built for a
	// type that is not a struct.
	ErrInvalidRecordType = errors.New("record type must be a struct")
	// ErrMissingIDField is returned when the record type has no field
	// stored under the "id" key.
	ErrMissingIDField = errors.New("record type has no id field")
	// ErrMissingCollection is returned when no collection name is configured.
	ErrMissingCollection = errors.New("collection name is required")
	// ErrNilRecord is returned when a nil record is passed to a write.
	ErrNilRecord = errors.New("record is nil")
	// ErrNoIdentity is returned when deleting a record whose id is unset.
	ErrNoIdentity = errors.New("record has no id")
	// ErrIDType is returned when a generated id cannot be stored in the
	// record's id field.
	ErrIDType = errors.New("id type mismatch")
	// ErrInvalidRecord wraps validation failures of materialized records.
	ErrInvalidRecord = errors.New("invalid record")
)
