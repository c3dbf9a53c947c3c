// Package types holds the sort specification shared by the paging and
// storage packages.
//
// A Sort is one of three shapes:
//
//	types.By("name")                                 // name ascending
//	types.Pair("created_at", -1)                     // created_at descending
//	types.List(types.Desc("foo.count"), types.Asc("id")) // ordered keys
//
// ParseSort reads the "field,-other" form used by the CLI and the HTTP
// listing. DynamicSorter orders in-memory rows by the same criteria.
package types
