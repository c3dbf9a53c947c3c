package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ncobase/docmapper/paging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestCursorEncodeDecode(t *testing.T) {
	token, err := run(t, "cursor", "encode", `{"$oid": "611b158adec89d18984b7d90"}`, "2", `"name"`)
	require.NoError(t, err)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	values, err := paging.DecodeCursor(token)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, int32(2), values[1])
	assert.Equal(t, "name", values[2])

	out, err := run(t, "cursor", "decode", token)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "["), out)
	assert.Contains(t, out, `"$oid":"611b158adec89d18984b7d90"`)
	assert.Contains(t, out, `"name"`)
}

func TestCursorDecodeLegacy(t *testing.T) {
	out, err := run(t, "cursor", "decode", "eNqTYWBgYCljEAFS7AYMidKiXfdOzJWY4V07gYEBAD7HBkg=")
	require.NoError(t, err)
	assert.Contains(t, out, "611b158adec89d18984b7d90")
}

func TestCursorDecodeInvalid(t *testing.T) {
	_, err := run(t, "cursor", "decode", "invalid string")
	assert.ErrorIs(t, err, paging.ErrInvalidCursor)

	_, err = run(t, "cursor", "decode")
	assert.Error(t, err)
}

func TestCursorEncodeInvalidJSON(t *testing.T) {
	_, err := run(t, "cursor", "encode", "{not json")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
}
