package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/learning-insights-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "insights", zap.NewNop())
	ctx := context.Background()

	var dest []string
	assert.ErrorIs(t, repo.Get(ctx, "catalog", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "catalog", []string{"a"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "catalog:*"))
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryKeyNamespace(t *testing.T) {
	assert.Equal(t, "insights:catalog:t1", NewCacheRepository(nil, "insights", nil).key("catalog:t1"))
	assert.Equal(t, "catalog:t1", NewCacheRepository(nil, "", nil).key("catalog:t1"))
}
