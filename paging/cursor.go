package paging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	// cursorKey wraps the value list inside the BSON payload.
	cursorKey = "v"
	// maxCursorPayload bounds the decompressed payload size.
	maxCursorPayload = 1 << 20
)

// ErrInvalidCursor matches every cursor decoding failure via errors.Is.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationError reports a cursor that could not be decoded. Stage names
// the decoding step that failed.
type PaginationError struct {
	Stage string
	Err   error
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("invalid cursor: %s: %v", e.Stage, e.Err)
}

func (e *PaginationError) Unwrap() error { return e.Err }

// Is reports ErrInvalidCursor as a match.
func (e *PaginationError) Is(target error) bool { return target == ErrInvalidCursor }

// EncodeCursor encodes an ordered list of sort-key values into an opaque,
// URL-safe token: base64url(zlib9(bson({"v": values}))).
//
// Values come back from DecodeCursor in their canonical BSON form, not the
// Go type they were encoded from: int becomes int32 (int64 when it does not
// fit), time.Time becomes primitive.DateTime truncated to milliseconds,
// slices become bson.A and maps or structs become bson.D.
func EncodeCursor(values []any) (string, error) {
	arr := bson.A{}
	arr = append(arr, values...)

	payload, err := bson.Marshal(bson.D{{Key: cursorKey, Value: arr}})
	if err != nil {
		return "", fmt.Errorf("paging: marshal cursor: %w", err)
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("paging: compress cursor: %w", err)
	}
	if _, err := zw.Write(payload); err != nil {
		return "", fmt.Errorf("paging: compress cursor: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("paging: compress cursor: %w", err)
	}

	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeCursor decodes a token produced by EncodeCursor back into its value
// list. Every failure is a *PaginationError.
func DecodeCursor(token string) ([]any, error) {
	compressed, err := decodeBase64(token)
	if err != nil {
		return nil, &PaginationError{Stage: "base64", Err: err}
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, &PaginationError{Stage: "zlib", Err: err}
	}
	defer zr.Close()

	data, err := io.ReadAll(io.LimitReader(zr, maxCursorPayload+1))
	if err != nil {
		return nil, &PaginationError{Stage: "zlib", Err: err}
	}
	if len(data) > maxCursorPayload {
		return nil, &PaginationError{Stage: "zlib", Err: errors.New("payload too large")}
	}

	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return nil, &PaginationError{Stage: "bson", Err: err}
	}

	value, err := raw.LookupErr(cursorKey)
	if err != nil {
		return nil, &PaginationError{Stage: "bson", Err: fmt.Errorf("missing %q key: %w", cursorKey, err)}
	}
	if _, ok := value.ArrayOK(); !ok {
		return nil, &PaginationError{Stage: "bson", Err: fmt.Errorf("%q is %s, not an array", cursorKey, value.Type)}
	}

	var values bson.A
	if err := value.Unmarshal(&values); err != nil {
		return nil, &PaginationError{Stage: "bson", Err: err}
	}
	return []any(values), nil
}

// decodeBase64 accepts the URL-safe and the standard alphabet, padded or not.
func decodeBase64(token string) ([]byte, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	trimmed := strings.TrimRight(token, "=")
	if b, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(trimmed)
}
