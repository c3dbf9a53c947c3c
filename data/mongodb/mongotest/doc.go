// Package mongotest provides an in-memory mongodb.Database for tests.
//
// It understands the query subset the repository sends: $and, $or, $nor,
// $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin and $exists over dotted paths,
// sort, skip, limit, projections, $set, $unset and $setOnInsert updates with
// upserts, and bulk insert, update and delete models. Duplicate _id values
// fail with the server's duplicate key code.
package mongotest
