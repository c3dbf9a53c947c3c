// Package cache keeps collection counts in Redis so that paged listings do
// not count the whole result set on every request.
package cache
