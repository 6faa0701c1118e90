package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"optometry_report/internal/answer"
	"optometry_report/internal/fiscal"
)

const (
	mirrorPrefix   = "report_mirror:"
	mirrorIndexKey = "report_mirror_index" // report id -> district key
	snapshotPrefix = "cumulative:"
)

// Snapshot is a stored cumulative vector for one institution and period.
type Snapshot struct {
	Vector     answer.Vector
	ComputedAt time.Time
}

type snapshotPayload struct {
	Answers    map[string]float64 `json:"answers"`
	ComputedAt int64              `json:"computedAt"`
}

// ReportCache stores the district mirrors and cumulative snapshots.
// A nil *ReportCache is valid and behaves as an always-missing cache.
type ReportCache struct {
	kv          KVStore
	mirrorTTL   time.Duration
	snapshotTTL time.Duration
}

func NewReportCache(kv KVStore, mirrorTTL, snapshotTTL time.Duration) *ReportCache {
	return &ReportCache{kv: kv, mirrorTTL: mirrorTTL, snapshotTTL: snapshotTTL}
}

// MirrorKey is the hash holding every mirrored report of a district.
func MirrorKey(districtKey string) string {
	return mirrorPrefix + districtKey
}

// SnapshotKey addresses the cumulative snapshot of one institution at period p.
func SnapshotKey(districtKey, institutionKey string, p fiscal.Period) string {
	return fmt.Sprintf("%s%s:%s:%s", snapshotPrefix, districtKey, institutionKey, p.Key())
}

// Enabled reports whether a backing store is configured.
func (c *ReportCache) Enabled() bool {
	return c != nil && c.kv != nil
}

// PutMirror stores encoded reports, keyed by report id, in the district mirror.
func (c *ReportCache) PutMirror(ctx context.Context, districtKey string, entries map[string][]byte) error {
	if !c.Enabled() || len(entries) == 0 {
		return nil
	}
	values := make(map[string]string, len(entries))
	index := make(map[string]string, len(entries))
	for id, payload := range entries {
		values[id] = string(payload)
		index[id] = districtKey
	}
	if err := c.kv.HSet(ctx, MirrorKey(districtKey), values, c.mirrorTTL); err != nil {
		return err
	}
	return c.kv.HSet(ctx, mirrorIndexKey, index, c.mirrorTTL)
}

// MirrorEntry returns one mirrored report by id.
func (c *ReportCache) MirrorEntry(ctx context.Context, reportID string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrCacheMiss
	}
	districtKey, err := c.kv.HGet(ctx, mirrorIndexKey, reportID)
	if err != nil {
		return nil, err
	}
	v, err := c.kv.HGet(ctx, MirrorKey(districtKey), reportID)
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

// DeleteMirror drops one report from the district mirror.
func (c *ReportCache) DeleteMirror(ctx context.Context, districtKey, reportID string) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.kv.HDel(ctx, MirrorKey(districtKey), reportID); err != nil {
		return err
	}
	return c.kv.HDel(ctx, mirrorIndexKey, reportID)
}

// Mirror returns the encoded reports of a district keyed by report id.
func (c *ReportCache) Mirror(ctx context.Context, districtKey string) (map[string][]byte, error) {
	if !c.Enabled() {
		return nil, ErrCacheMiss
	}
	vals, err := c.kv.HGetAll(ctx, MirrorKey(districtKey))
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(vals))
	for id, v := range vals {
		out[id] = []byte(v)
	}
	return out, nil
}

// PutSnapshot stores v as the cumulative for the institution at p.
func (c *ReportCache) PutSnapshot(ctx context.Context, districtKey, institutionKey string, p fiscal.Period, v answer.Vector, computedAt time.Time) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(snapshotPayload{Answers: v.ToMap(), ComputedAt: computedAt.Unix()})
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, SnapshotKey(districtKey, institutionKey, p), string(b), c.snapshotTTL)
}

// Snapshot loads the cumulative stored for the institution at p.
func (c *ReportCache) Snapshot(ctx context.Context, districtKey, institutionKey string, p fiscal.Period) (Snapshot, error) {
	if !c.Enabled() {
		return Snapshot{}, ErrCacheMiss
	}
	raw, err := c.kv.Get(ctx, SnapshotKey(districtKey, institutionKey, p))
	if err != nil {
		return Snapshot{}, err
	}
	var payload snapshotPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return Snapshot{
		Vector:     answer.FromFloatMap(payload.Answers),
		ComputedAt: time.Unix(payload.ComputedAt, 0),
	}, nil
}

// Ping checks the backing store.
func (c *ReportCache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return errors.New("cache disabled")
	}
	return c.kv.Ping(ctx)
}

// IsMiss reports whether err is ErrCacheMiss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
