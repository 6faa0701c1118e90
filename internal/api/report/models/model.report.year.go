package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// FlexYear is a year stored as a 4-digit string. Older documents hold a
// number; both decode, and writes always produce the string form.
type FlexYear string

// YearOf formats y as a FlexYear.
func YearOf(y int) FlexYear {
	return FlexYear(strconv.Itoa(y))
}

// Int returns the numeric year, or 0 when it does not parse.
func (y FlexYear) Int() int {
	n, err := strconv.Atoi(strings.TrimSpace(string(y)))
	if err != nil {
		return 0
	}
	return n
}

func (y FlexYear) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(string(y))
}

func (y *FlexYear) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*y = FlexYear(strings.TrimSpace(rv.StringValue()))
	case bsontype.Int32:
		*y = YearOf(int(rv.Int32()))
	case bsontype.Int64:
		*y = YearOf(int(rv.Int64()))
	case bsontype.Double:
		f := rv.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			*y = ""
			return nil
		}
		*y = YearOf(int(f))
	case bsontype.Null, bsontype.Undefined:
		*y = ""
	default:
		return fmt.Errorf("cannot decode year from BSON %s", t)
	}
	return nil
}

func (y *FlexYear) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*y = FlexYear(strings.TrimSpace(s))
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("year must be a string or number: %w", err)
	}
	*y = YearOf(int(n))
	return nil
}
