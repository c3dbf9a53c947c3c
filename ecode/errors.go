package ecode

import "fmt"

// Detail messages returned in place of a code's generic text.
const (
	requiredMsg    = "required"
	invalidMsg     = "invalid"
	notExistMsg    = "does not exist"
	unavailableMsg = "unavailable"
)

func subject(msg string, k []string) string {
	if len(k) > 0 && k[0] != "" {
		return fmt.Sprintf("%s %s", k[0], msg)
	}
	return msg
}

// FieldIsRequired reports a missing request field, e.g. "collection required".
func FieldIsRequired(k ...string) string { return subject(requiredMsg, k) }

// FieldIsInvalid reports a request field that could not be used, e.g.
// "cursor invalid".
func FieldIsInvalid(k ...string) string { return subject(invalidMsg, k) }

// NotExist reports a missing resource, e.g. "document does not exist".
func NotExist(k ...string) string { return subject(notExistMsg, k) }

// Unavailable reports a dependency that cannot serve, e.g. "mongodb unavailable".
func Unavailable(k ...string) string { return subject(unavailableMsg, k) }
