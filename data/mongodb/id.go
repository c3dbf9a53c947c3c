package mongodb

import "go.mongodb.org/mongo-driver/bson/primitive"

// ParseID turns an id read from text into a store id: valid ObjectID hex
// becomes an ObjectID, anything else stays a string.
func ParseID(s string) any {
	if oid, err := primitive.ObjectIDFromHex(s); err == nil {
		return oid
	}
	return s
}
