package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/autowriter/internal/models"
)

func newTestLog(t *testing.T, max int) (*RedisLog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLog(client, "aw:", max), mr
}

func TestRedisLogRecordAndRecent(t *testing.T) {
	l, mr := newTestLog(t, 10)
	fixed := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }
	ctx := context.Background()

	l.Record(ctx, models.Activity{SiteID: "s1", Type: models.ActivityArticleGenerated, Message: "first"})
	l.Record(ctx, models.Activity{SiteID: "s1", Type: models.ActivityArticlePublished, Message: "second"})
	l.Record(ctx, models.Activity{SiteID: "s2", Type: models.ActivityGenerationFailed, Message: "other"})

	items, err := mr.List("aw:activity:s1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	var latest models.Activity
	require.NoError(t, json.Unmarshal([]byte(items[0]), &latest))
	assert.Equal(t, "second", latest.Message)
	assert.True(t, latest.CreatedAt.Equal(fixed))

	got, err := l.Recent(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Message)
	assert.Equal(t, "first", got[1].Message)
}

func TestRedisLogTrims(t *testing.T) {
	l, mr := newTestLog(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.Record(ctx, models.Activity{SiteID: "s1", Type: models.ActivityArticleGenerated, Message: fmt.Sprint(i)})
	}

	items, err := mr.List("aw:activity:s1")
	require.NoError(t, err)
	assert.Len(t, items, 3)

	got, err := l.Recent(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "4", got[0].Message)
}

func TestRedisLogRecordSurvivesOutage(t *testing.T) {
	l, mr := newTestLog(t, 3)
	mr.Close()

	assert.NotPanics(t, func() {
		l.Record(context.Background(), models.Activity{SiteID: "s1", Type: models.ActivityKeywordStuck})
	})
}

func TestRedisLogRecordWithCancelledContext(t *testing.T) {
	l, mr := newTestLog(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l.Record(ctx, models.Activity{SiteID: "s1", Type: models.ActivityArticleGenerated})

	items, err := mr.List("aw:activity:s1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRedisLogClear(t *testing.T) {
	l, mr := newTestLog(t, 3)
	ctx := context.Background()
	l.Record(ctx, models.Activity{SiteID: "s1", Type: models.ActivityArticleGenerated})
	l.Record(ctx, models.Activity{SiteID: "s2", Type: models.ActivityArticleGenerated})
	require.NoError(t, mr.Set("aw:other", "keep"))

	require.NoError(t, l.Clear(ctx))
	assert.False(t, mr.Exists("aw:activity:s1"))
	assert.False(t, mr.Exists("aw:activity:s2"))
	assert.True(t, mr.Exists("aw:other"))
}
