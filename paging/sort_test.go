package paging

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ncobase/docmapper/types"
	"go.mongodb.org/mongo-driver/bson"
)

// TestNormalizeSort verifies every sort shape resolves to an ordered document
func TestNormalizeSort(t *testing.T) {
	tests := []struct {
		name string
		in   types.Sort
		want bson.D
	}{
		{"nil", nil, nil},
		{"by field", types.By("name"), bson.D{{Key: "name", Value: 1}}},
		{"pair desc", types.Pair("name", -1), bson.D{{Key: "name", Value: -1}}},
		{"pair large direction", types.Pair("name", 5), bson.D{{Key: "name", Value: 1}}},
		{"id mapped", types.Pair("id", -1), bson.D{{Key: "_id", Value: -1}}},
		{
			"list keeps order",
			types.List(types.Desc("foo.count"), types.Asc("id")),
			bson.D{{Key: "foo.count", Value: -1}, {Key: "_id", Value: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSort(tt.in)
			if err != nil {
				t.Fatalf("NormalizeSort() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("NormalizeSort() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestNormalizeSort_Invalid verifies malformed sorts are rejected
func TestNormalizeSort_Invalid(t *testing.T) {
	for _, s := range []types.Sort{types.List(), types.Pair("", 1), types.Pair("x", 0)} {
		if _, err := NormalizeSort(s); !errors.Is(err, types.ErrInvalidSort) {
			t.Errorf("NormalizeSort(%v) error = %v, want ErrInvalidSort", s, err)
		}
	}
}

// TestSortKeys verifies keys keep the caller's names
func TestSortKeys(t *testing.T) {
	keys, err := SortKeys(types.List(types.Asc("id"), types.Desc("bars.0.apple")))
	if err != nil {
		t.Fatalf("SortKeys() error = %v", err)
	}
	if diff := cmp.Diff([]string{"id", "bars.0.apple"}, keys); diff != "" {
		t.Errorf("SortKeys() mismatch (-want +got):\n%s", diff)
	}
}

// TestMapID verifies only a top-level id is renamed
func TestMapID(t *testing.T) {
	in := bson.M{"id": 1, "name": "x", "nested": bson.M{"id": 2}}
	got := MapID(in)

	want := bson.M{"_id": 1, "name": "x", "nested": bson.M{"id": 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MapID() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := in["id"]; !ok {
		t.Error("MapID() modified its input")
	}
	if MapID(nil) != nil {
		t.Error("MapID(nil) should be nil")
	}
}
