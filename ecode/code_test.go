package ecode

import (
	"net/http"
	"testing"
)

func TestText(t *testing.T) {
	if got := Text(InvalidCursor); got != "Invalid pagination cursor" {
		t.Errorf("Text(InvalidCursor) = %q", got)
	}
	if got := Text(-99999); got != Text(ServerErr) {
		t.Errorf("Text(unknown) = %q, want server error text", got)
	}
}

func TestToHTTPStatus(t *testing.T) {
	tests := map[int]int{
		OK:            http.StatusOK,
		InvalidCursor: http.StatusBadRequest,
		NotFound:      http.StatusNotFound,
		StoreErr:      http.StatusBadGateway,
		-99999:        http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := ToHTTPStatus(code); got != want {
			t.Errorf("ToHTTPStatus(%d) = %d, want %d", code, got, want)
		}
	}
}

func TestRegister(t *testing.T) {
	const custom = -2001
	Register(custom, "Quota exceeded", http.StatusTooManyRequests)
	if Text(custom) != "Quota exceeded" || ToHTTPStatus(custom) != http.StatusTooManyRequests {
		t.Errorf("Register() not applied: %q %d", Text(custom), ToHTTPStatus(custom))
	}
}

func TestFieldMessages(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FieldIsRequired("collection"), "collection required"},
		{FieldIsInvalid("cursor"), "cursor invalid"},
		{FieldIsInvalid(), "invalid"},
		{NotExist("document"), "document does not exist"},
		{NotExist(""), "does not exist"},
		{Unavailable("store"), "store unavailable"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("message = %q, want %q", tt.got, tt.want)
		}
	}
}
