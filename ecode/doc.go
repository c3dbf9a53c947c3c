// Package ecode defines business error codes for API responses.
//
// Codes are negative integers; 0 is success. Codes in the -1000 range belong
// to the document store:
//
//	ecode.InvalidCursor // -1001: cursor failed to decode
//	ecode.InvalidSort   // -1002: malformed sort
//	ecode.InvalidRecord // -1003: stored document failed validation
//	ecode.StoreErr      // -1004: store request failed
//
// Text returns the message of a code and ToHTTPStatus its HTTP status:
//
//	resp.Fail(w, &resp.Exception{
//	    Status:  ecode.ToHTTPStatus(ecode.InvalidCursor),
//	    Code:    ecode.InvalidCursor,
//	    Message: ecode.Text(ecode.InvalidCursor),
//	})
//
// The message helpers in errors.go build short field messages such as
// "collection required".
package ecode
