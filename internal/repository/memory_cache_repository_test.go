package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

func TestMemoryCacheRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryCacheRepository(time.Minute)
	ctx := context.Background()

	var out map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "timetable:master", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "timetable:master", map[string]int{"entries": 3}, time.Minute))
	require.NoError(t, repo.Get(ctx, "timetable:master", &out))
	assert.Equal(t, 3, out["entries"])
}

func TestMemoryCacheRepositoryDeleteByPattern(t *testing.T) {
	repo := NewMemoryCacheRepository(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "timetable:master:all", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "timetable:legend:all", 2, time.Minute))
	require.NoError(t, repo.Set(ctx, "dashboard:summary", 3, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "timetable:*"))

	var v int
	assert.ErrorIs(t, repo.Get(ctx, "timetable:master:all", &v), appErrors.ErrCacheMiss)
	assert.ErrorIs(t, repo.Get(ctx, "timetable:legend:all", &v), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Get(ctx, "dashboard:summary", &v))
	assert.Equal(t, 3, v)
}

func TestMemoryCacheRepositoryDeleteByPatternCrossesSlashes(t *testing.T) {
	repo := NewMemoryCacheRepository(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "timetable:master:MM/F4", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "timetable:master:MMF4", 2, time.Minute))
	require.NoError(t, repo.Set(ctx, "dashboard:a/b", 3, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "timetable:*"))

	var v int
	assert.ErrorIs(t, repo.Get(ctx, "timetable:master:MM/F4", &v), appErrors.ErrCacheMiss)
	assert.ErrorIs(t, repo.Get(ctx, "timetable:master:MMF4", &v), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Get(ctx, "dashboard:a/b", &v))
	assert.Equal(t, 3, v)
}
