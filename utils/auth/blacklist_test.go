package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/utils/auth"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// database imports auth for seeding, so DB-backed tests live outside the package.
func TestBlacklist(t *testing.T) {
	store, err := database.OpenSQLite("file:"+uuid.NewString()+"?mode=memory&cache=shared", logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	svc := auth.NewBlacklistService(store.DB())
	require.NoError(t, svc.RevokeToken(ctx, "jti-1", 1, time.Now().Add(time.Hour), "sign_out"))
	require.NoError(t, svc.RevokeToken(ctx, "jti-1", 1, time.Now().Add(time.Hour), "sign_out"))
	require.NoError(t, svc.RevokeToken(ctx, "jti-old", 1, time.Now().Add(-time.Hour), "sign_out"))

	revoked, err := svc.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = svc.IsTokenRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)

	n, err := svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
