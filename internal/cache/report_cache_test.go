package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optometry_report/internal/answer"
	"optometry_report/internal/fiscal"
)

func newTestCache(t *testing.T) (*ReportCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewReportCache(NewRedisKVStore(client), time.Hour, 2*time.Hour), mr
}

func TestReportCache_MirrorRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.PutMirror(ctx, "kozhikode", map[string][]byte{"r1": []byte(`{"a":1}`)}))
	require.NoError(t, c.PutMirror(ctx, "kozhikode", map[string][]byte{"r2": []byte(`{"a":2}`)}))

	got, err := c.Mirror(ctx, "kozhikode")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"r1": []byte(`{"a":1}`), "r2": []byte(`{"a":2}`)}, got)
	assert.Equal(t, time.Hour, mr.TTL(MirrorKey("kozhikode")))

	entry, err := c.MirrorEntry(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":2}`), entry)

	require.NoError(t, c.DeleteMirror(ctx, "kozhikode", "r1"))
	_, err = c.MirrorEntry(ctx, "r1")
	assert.True(t, IsMiss(err))
	got, err = c.Mirror(ctx, "kozhikode")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReportCache_MirrorMiss(t *testing.T) {
	c, _ := newTestCache(t)
	_, err := c.Mirror(context.Background(), "wayanad")
	assert.True(t, IsMiss(err))
}

func TestReportCache_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	p := fiscal.Period{Month: fiscal.June, Year: 2025}

	var v answer.Vector
	v[0], v[83] = 12, 3.5
	at := time.Unix(1750000000, 0)
	require.NoError(t, c.PutSnapshot(ctx, "kozhikode", "chc narikkuni", p, v, at))

	snap, err := c.Snapshot(ctx, "kozhikode", "chc narikkuni", p)
	require.NoError(t, err)
	assert.Equal(t, v, snap.Vector)
	assert.True(t, at.Equal(snap.ComputedAt))
	assert.Equal(t, 2*time.Hour, mr.TTL(SnapshotKey("kozhikode", "chc narikkuni", p)))

	_, err = c.Snapshot(ctx, "kozhikode", "chc narikkuni", fiscal.Period{Month: fiscal.July, Year: 2025})
	assert.True(t, IsMiss(err))
}

func TestReportCache_NilIsAlwaysMissing(t *testing.T) {
	var c *ReportCache
	ctx := context.Background()

	assert.False(t, c.Enabled())
	assert.NoError(t, c.PutMirror(ctx, "d", map[string][]byte{"r": nil}))
	_, err := c.Mirror(ctx, "d")
	assert.True(t, IsMiss(err))
	_, err = c.Snapshot(ctx, "d", "i", fiscal.Period{Month: fiscal.April, Year: 2025})
	assert.True(t, IsMiss(err))
	assert.Error(t, c.Ping(ctx))
}

func TestReportCache_StoreDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	c := NewReportCache(NewRedisKVStore(client), time.Hour, time.Hour)

	_, err := c.Mirror(context.Background(), "kozhikode")
	require.Error(t, err)
	assert.False(t, IsMiss(err))
}

func TestSnapshotKey(t *testing.T) {
	p := fiscal.Period{Month: fiscal.March, Year: 2026}
	assert.Equal(t, "cumulative:kozhikode:gh kozhikode:2026-March", SnapshotKey("kozhikode", "gh kozhikode", p))
}
