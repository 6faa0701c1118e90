package reportsvc

import (
	"context"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/common"
)

// DirtyStore queues fiscal years whose stored snapshots must be rebuilt.
type DirtyStore interface {
	MarkDirty(ctx context.Context, d reportmodels.ReportDirtyPeriod) error
	GetUnprocessed(ctx context.Context, limit int) ([]reportmodels.ReportDirtyPeriod, error)
	SetProcessed(ctx context.Context, d reportmodels.ReportDirtyPeriod) error
}

// MongoDirtyStore keeps the queue in report_dirty_periods.
type MongoDirtyStore struct {
	coll *mongo.Collection
}

func NewMongoDirtyStore(coll *mongo.Collection) *MongoDirtyStore {
	return &MongoDirtyStore{coll: coll}
}

func dirtySlotFilter(d reportmodels.ReportDirtyPeriod) bson.M {
	return bson.M{
		"districtKey":     d.DistrictKey,
		"institutionKey":  d.InstitutionKey,
		"fiscalStartYear": d.FiscalStartYear,
	}
}

var lastMark atomic.Int64

// nextMark returns a UnixNano stamp strictly greater than any earlier one from
// this process, so two marks of one slot never share a markedAt.
func nextMark(now time.Time) int64 {
	n := now.UnixNano()
	for {
		last := lastMark.Load()
		if n <= last {
			n = last + 1
		}
		if lastMark.CompareAndSwap(last, n) {
			return n
		}
		n = now.UnixNano()
	}
}

// markedEntry is the pending document stored for d.
func markedEntry(d reportmodels.ReportDirtyPeriod, now time.Time) reportmodels.ReportDirtyPeriod {
	d.ID = primitive.NilObjectID
	d.MarkedAt = nextMark(now)
	d.ProcessedAt = nil
	return d
}

// processedFilter matches the slot only while it still carries the stamp d was
// read with.
func processedFilter(d reportmodels.ReportDirtyPeriod) bson.M {
	filter := dirtySlotFilter(d)
	filter["markedAt"] = d.MarkedAt
	return filter
}

// MarkDirty upserts the slot with processedAt cleared.
func (s *MongoDirtyStore) MarkDirty(ctx context.Context, d reportmodels.ReportDirtyPeriod) error {
	d = markedEntry(d, time.Now())
	opts := options.Replace().SetUpsert(true)
	_, err := s.coll.ReplaceOne(ctx, dirtySlotFilter(d), d, opts)
	return common.ConvertMongoError(err)
}

// GetUnprocessed returns up to limit pending slots, oldest first.
func (s *MongoDirtyStore) GetUnprocessed(ctx context.Context, limit int) ([]reportmodels.ReportDirtyPeriod, error) {
	if limit <= 0 {
		limit = 50
	}
	filter := bson.M{"processedAt": nil}
	opts := options.Find().SetSort(bson.D{{Key: "markedAt", Value: 1}}).SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var list []reportmodels.ReportDirtyPeriod
	if err := cursor.All(ctx, &list); err != nil {
		return nil, common.ConvertMongoError(err)
	}
	if list == nil {
		list = []reportmodels.ReportDirtyPeriod{}
	}
	return list, nil
}

// SetProcessed marks the slot done unless it was marked again after d was read.
func (s *MongoDirtyStore) SetProcessed(ctx context.Context, d reportmodels.ReportDirtyPeriod) error {
	update := bson.M{"$set": bson.M{"processedAt": time.Now().UnixNano()}}
	_, err := s.coll.UpdateOne(ctx, processedFilter(d), update)
	return common.ConvertMongoError(err)
}
