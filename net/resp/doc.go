// Package resp writes JSON response envelopes.
//
// Success writes the payload as-is; failures are wrapped in an Exception
// carrying a business code from the ecode package:
//
//	resp.Success(w, page)
//	resp.Fail(w, resp.FromCode(ecode.InvalidCursor, err.Error()))
//
// A failure body looks like:
//
//	{"code": -1001, "message": "Invalid pagination cursor", "errors": "..."}
package resp
