package answer

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotKeyAndIndex(t *testing.T) {
	assert.Equal(t, "q1", SlotKey(0))
	assert.Equal(t, "q84", SlotKey(83))

	i, ok := SlotIndex("q42")
	require.True(t, ok)
	assert.Equal(t, 41, i)

	for _, bad := range []string{"q0", "q85", "q01", "x1", "q", "q-1"} {
		_, ok := SlotIndex(bad)
		assert.False(t, ok, bad)
	}
}

func TestFromMap_CoercesValues(t *testing.T) {
	v := FromMap(map[string]any{
		"q1":  3,
		"q2":  "7",
		"q3":  " 2.5 ",
		"q4":  "abc",
		"q5":  math.NaN(),
		"q6":  math.Inf(1),
		"q7":  int64(11),
		"q8":  json.Number("4"),
		"q9":  nil,
		"q10": true,
		"q85": 99,
		"foo": 1,
	})

	assert.Equal(t, 3.0, v[0])
	assert.Equal(t, 7.0, v[1])
	assert.Equal(t, 2.5, v[2])
	assert.Zero(t, v[3])
	assert.Zero(t, v[4])
	assert.Zero(t, v[5])
	assert.Equal(t, 11.0, v[6])
	assert.Equal(t, 4.0, v[7])
	assert.Zero(t, v[8])
	assert.Zero(t, v[9])
	for i := 10; i < Slots; i++ {
		assert.Zero(t, v[i])
	}
}

func TestFromMap_NilMapIsZero(t *testing.T) {
	assert.True(t, FromMap(nil).IsZero())
}

func TestAdd_IsPureAndElementwise(t *testing.T) {
	a := FromMap(map[string]any{"q1": 1, "q84": 2})
	b := FromMap(map[string]any{"q1": 10, "q2": 5})
	aBefore, bBefore := a, b

	sum := a.Add(b)

	assert.Equal(t, 11.0, sum[0])
	assert.Equal(t, 5.0, sum[1])
	assert.Equal(t, 2.0, sum[83])
	assert.Equal(t, aBefore, a)
	assert.Equal(t, bBefore, b)
}

func TestSum_FoldsIntoZero(t *testing.T) {
	assert.True(t, Sum().IsZero())

	a := FromMap(map[string]any{"q3": 1})
	got := Sum(a, a, a)
	assert.Equal(t, 3.0, got[2])
}

func TestToMapRoundTrip(t *testing.T) {
	v := FromMap(map[string]any{"q5": 9})
	m := v.ToMap()
	require.Len(t, m, Slots)
	assert.Equal(t, 9.0, m["q5"])
	assert.Equal(t, v, FromFloatMap(m))
}
