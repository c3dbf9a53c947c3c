// Package paging implements cursor-based pagination over ordered document
// queries.
//
// A cursor is an opaque, URL-safe token holding the sort-key values of one
// document, in sort order. Given a cursor and the same sort, BuildQuery
// derives a filter that resumes right after (or right before) that document.
//
// # Cursor Encoding
//
// Tokens are base64url(zlib(bson({"v": [values...]}))). BSON keeps exact
// types, so ObjectIDs, dates and decimals survive the round trip:
//
//	cursor, err := paging.EncodeCursor([]any{oid, "a", 1})
//
//	values, err := paging.DecodeCursor(cursor)
//	if errors.Is(err, paging.ErrInvalidCursor) {
//	    // discard the cursor and restart from the first page
//	}
//
// # Sorting
//
// Sorts are built with types.By, types.Pair or types.List and normalized to
// the store's sort document. The logical "id" field becomes "_id":
//
//	sort, _ := paging.NormalizeSort(types.List(types.Desc("created_at"), types.Asc("id")))
//	// bson.D{{"created_at", -1}, {"_id", 1}}
//
// # Building Queries
//
//	filter, err := paging.BuildQuery(bson.M{"status": "active"}, after, "", sort)
//	// {"$and": [{"status": "active"}, {"created_at": {"$lt": v0}, "_id": {"$gt": v1}}]}
//
// # Edges
//
// Each result is paired with its own cursor:
//
//	edge, err := paging.NewEdge(node, doc, []string{"created_at", "id"})
//
// Paths may be dotted and index arrays: "bars.0.apple".
//
// # Response Structure
//
// Paginate wraps a fetch function and detects whether another page exists by
// asking for one extra edge:
//
//	{
//	  "edges": [{"node": {...}, "cursor": "..."}],
//	  "next": "...",
//	  "has_next": true
//	}
package paging
