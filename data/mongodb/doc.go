// Package mongodb maps Go structs to MongoDB documents.
//
// A Repository binds a struct type with an "id" field to one collection. The
// id is stored as "_id"; filters, projections and sort keys may use either
// name. Paginate returns edges carrying opaque cursors built by package
// paging, and Page wraps it with limit normalization and a look-ahead.
//
// Connections come from Open, which routes reads to slaves and writes to the
// master. Collections can be wrapped with NewBreakerCollection to fail fast
// while the store is down. Package mongotest provides an in-memory Database
// for tests.
package mongodb
