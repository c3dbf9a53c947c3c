package mongotest

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/ncobase/docmapper/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// canonical type order of the server
const (
	rankMinKey = iota
	rankNull
	rankNumber
	rankString
	rankObject
	rankArray
	rankBinary
	rankObjectID
	rankBool
	rankDate
	rankTimestamp
	rankRegex
	rankMaxKey
	rankOther
)

func rank(v any) int {
	switch v.(type) {
	case primitive.MinKey:
		return rankMinKey
	case nil, primitive.Null, primitive.Undefined:
		return rankNull
	case int, int32, int64, float64, primitive.Decimal128:
		return rankNumber
	case string, primitive.Symbol:
		return rankString
	case bson.D, bson.M:
		return rankObject
	case bson.A:
		return rankArray
	case primitive.Binary, []byte:
		return rankBinary
	case primitive.ObjectID:
		return rankObjectID
	case bool:
		return rankBool
	case primitive.DateTime:
		return rankDate
	case primitive.Timestamp:
		return rankTimestamp
	case primitive.Regex:
		return rankRegex
	case primitive.MaxKey:
		return rankMaxKey
	}
	return rankOther
}

func number(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

// compare orders a and b. Values of different type classes compare by class
// and report comparable as false.
func compare(a, b any) (c int, comparable bool) {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return types.CompareInt(ra, rb), false
	}

	switch ra {
	case rankNumber:
		return types.CompareFloat(number(a), number(b)), true
	case rankString:
		return strings.Compare(text(a), text(b)), true
	case rankObjectID:
		x, y := a.(primitive.ObjectID), b.(primitive.ObjectID)
		return bytes.Compare(x[:], y[:]), true
	case rankBool:
		return types.CompareValues(a, b), true
	case rankDate:
		return types.CompareInt(int(a.(primitive.DateTime)), int(b.(primitive.DateTime))), true
	case rankTimestamp:
		x, y := a.(primitive.Timestamp), b.(primitive.Timestamp)
		return primitive.CompareTimestamp(x, y), true
	case rankBinary:
		return bytes.Compare(binary(a), binary(b)), true
	case rankArray:
		x, y := a.(bson.A), b.(bson.A)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c, _ := compare(x[i], y[i]); c != 0 {
				return c, true
			}
		}
		return types.CompareInt(len(x), len(y)), true
	case rankObject:
		x, _ := bson.Marshal(a)
		y, _ := bson.Marshal(b)
		return bytes.Compare(x, y), true
	case rankNull, rankMinKey, rankMaxKey:
		return 0, true
	}
	return 0, false
}

// sortCompare is compare for ordering, where classes never tie.
func sortCompare(a, b any) int {
	c, _ := compare(a, b)
	return c
}

func equal(a, b any) bool {
	c, ok := compare(a, b)
	return ok && c == 0
}

func text(v any) string {
	if s, ok := v.(primitive.Symbol); ok {
		return string(s)
	}
	return v.(string)
}

func binary(v any) []byte {
	if b, ok := v.(primitive.Binary); ok {
		return b.Data
	}
	return v.([]byte)
}
