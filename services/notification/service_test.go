package notification

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goreal-engine/services/reward"
	"goreal-engine/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Notification{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node})
}

func TestTierUpgradedAndActivitySynced(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.ActivitySynced(ctx, "user-1", reward.Ride, 120, 36)
	svc.TierUpgraded(ctx, "user-1", 0, 1, 75, 111)

	items, err := svc.List(ctx, "user-1", false)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// newest first
	require.Equal(t, CategoryTierUpgraded, items[0].Category)
	require.Equal(t, CategoryActivitySynced, items[1].Category)

	// tier notifications outlive activity ones
	require.True(t, items[0].ExpiresAt.After(items[1].ExpiresAt))
}

func TestListUnreadOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.ActivitySynced(ctx, "user-1", reward.Run, 10, 10)
	svc.ActivitySynced(ctx, "user-1", reward.Run, 12, 12)

	all, err := svc.List(ctx, "user-1", false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, svc.MarkRead(ctx, all[0].ID))

	unread, err := svc.List(ctx, "user-1", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, all[1].ID, unread[0].ID)
}

func TestHandleCleanupTask(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.db.Create(&Notification{
		ID:        "old",
		UserID:    "user-1",
		Category:  CategoryActivitySynced,
		ExpiresAt: time.Now().Add(-time.Hour),
	}).Error)
	require.NoError(t, svc.db.Create(&Notification{
		ID:        "live",
		UserID:    "user-1",
		Category:  CategoryActivitySynced,
		ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	require.NoError(t, svc.HandleCleanupTask(ctx, NewCleanupTask()))

	items, err := svc.List(ctx, "user-1", false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "live", items[0].ID)
}
