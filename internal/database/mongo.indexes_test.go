package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestParseIndexTag(t *testing.T) {
	got := parseIndexTag("single,order:-1;compound:report_lookup")
	require.Len(t, got, 2)
	assert.Equal(t, map[string]string{"single": "", "order": "-1"}, got[0])
	assert.Equal(t, map[string]string{"compound": "report_lookup"}, got[1])

	assert.Empty(t, parseIndexTag(""))
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, -1, parseOrder(map[string]string{"order": "-1"}))
	assert.Equal(t, 1, parseOrder(map[string]string{"single": ""}))
}

func TestCompareIndex(t *testing.T) {
	keys := bson.D{{Key: "districtKey", Value: 1}, {Key: "year", Value: 1}}
	existing := bson.M{"key": bson.M{"districtKey": int32(1), "year": int32(1)}}

	assert.True(t, compareIndex(existing, keys, options.Index()))
	assert.False(t, compareIndex(existing, keys, options.Index().SetUnique(true)), "unique requested on non-unique index")
	assert.False(t, compareIndex(existing, bson.D{{Key: "districtKey", Value: -1}, {Key: "year", Value: 1}}, options.Index()))
	assert.False(t, compareIndex(existing, bson.D{{Key: "districtKey", Value: 1}}, options.Index()), "key count differs")

	unique := bson.M{"key": bson.M{"districtKey": int32(1), "year": int32(1)}, "unique": true}
	assert.True(t, compareIndex(unique, keys, options.Index().SetUnique(true)))
}

func TestReportSlotIndexModel(t *testing.T) {
	m := reportSlotIndexModel()
	keys, ok := m.Keys.(bson.D)
	require.True(t, ok)

	var names []string
	for _, k := range keys {
		names = append(names, k.Key)
	}
	assert.Equal(t, []string{"districtKey", "institutionKey", "month", "year"}, names)
	require.NotNil(t, m.Options.Unique)
	assert.True(t, *m.Options.Unique)
	assert.Equal(t, ReportSlotIndex, *m.Options.Name)
	assert.NotNil(t, m.Options.PartialFilterExpression)
}

func TestIsIndexExistsError(t *testing.T) {
	assert.False(t, isIndexExistsError(nil))
	assert.True(t, isIndexExistsError(mongo.CommandError{Code: 85, Message: "Index with name: x already exists with different options"}))
	assert.True(t, isIndexExistsError(errors.New("collection already exists")))
	assert.False(t, isIndexExistsError(errors.New("connection refused")))
}
