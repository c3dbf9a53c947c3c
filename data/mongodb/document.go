package mongodb

import (
	"encoding/json"
	"fmt"

	"github.com/ncobase/docmapper/paging"
	"go.mongodb.org/mongo-driver/bson"
)

// Document is a record without a schema, for collections that have no Go
// type.
type Document struct {
	ID     any    `bson:"id,omitempty"`
	Fields bson.M `bson:",inline"`
}

// MarshalJSON flattens the fields next to the id.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+1)
	for k, v := range d.Fields {
		out[k] = v
	}
	if d.ID != nil {
		out[paging.IDField] = d.ID
	}
	return json.Marshal(out)
}

// ParseFilter reads a filter written in relaxed extended JSON, such as
// {"_id": {"$oid": "611b158adec89d18984b7d90"}}. Empty input is an empty
// filter.
func ParseFilter(s string) (bson.M, error) {
	if s == "" {
		return bson.M{}, nil
	}
	var m bson.M
	if err := bson.UnmarshalExtJSON([]byte(s), false, &m); err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	return m, nil
}
