package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriteria(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sort    Sort
		want    []Criterion
		wantErr bool
	}{
		{name: "nil sort", sort: nil, want: nil},
		{name: "bare field", sort: By("name"), want: []Criterion{{Field: "name", Direction: 1}}},
		{name: "pair", sort: Pair("age", -1), want: []Criterion{{Field: "age", Direction: -1}}},
		{
			name: "list keeps order",
			sort: List(Desc("foo.count"), Asc("id")),
			want: []Criterion{{Field: "foo.count", Direction: -1}, {Field: "id", Direction: 1}},
		},
		{name: "empty list", sort: List(), wantErr: true},
		{name: "empty field", sort: By(""), wantErr: true},
		{name: "zero direction", sort: Pair("x", 0), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Criteria(tt.sort)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidSort))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListIsImmutable(t *testing.T) {
	criteria := []Criterion{Asc("a"), Asc("b")}
	s := List(criteria...)
	criteria[0].Field = "changed"

	got, err := Criteria(s)
	require.NoError(t, err)
	assert.Equal(t, "a", got[0].Field)
}

func TestParseSort(t *testing.T) {
	t.Parallel()

	s, err := ParseSort("")
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = ParseSort("-created_at")
	require.NoError(t, err)
	assert.Equal(t, Pair("created_at", -1), s)

	s, err = ParseSort("foo.count, +id")
	require.NoError(t, err)
	assert.Equal(t, List(Asc("foo.count"), Asc("id")), s)

	_, err = ParseSort("a,,b")
	assert.ErrorIs(t, err, ErrInvalidSort)
}

func TestOrder(t *testing.T) {
	assert.Equal(t, 1, Ascending.Direction())
	assert.Equal(t, -1, Descending.Direction())
	assert.Equal(t, Descending, OrderOf(-5))
	assert.Equal(t, Ascending, Criterion{Field: "x", Direction: 3}.Order())
}

func TestCompareValues(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"ints", 1, 2, -1},
		{"mixed width numbers", int32(5), int64(5), 0},
		{"int vs float", 3, 2.5, 1},
		{"strings", "b", "a", 1},
		{"times", now, now.Add(time.Second), -1},
		{"bytes", []byte{1}, []byte{1, 0}, -1},
		{"bools", false, true, -1},
		{"nil first", nil, 0, -1},
		{"unrelated types", "a", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CompareValues(tt.a, tt.b))
		})
	}
}

func TestDynamicSorter(t *testing.T) {
	ds := &DynamicSorter{
		Data: []map[string]any{
			{"name": "b", "age": 2},
			{"name": "a", "age": 2},
			{"name": "c", "age": 1},
		},
		Getter: func(item map[string]any, field string) (any, error) {
			return item[field], nil
		},
	}

	require.NoError(t, ds.Sort([]Criterion{Desc("age"), Asc("name")}))
	names := []string{}
	for _, item := range ds.Data {
		names = append(names, item["name"].(string))
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	err := (&DynamicSorter{}).Sort(nil)
	assert.Error(t, err)
}
