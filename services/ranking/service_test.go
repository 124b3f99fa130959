package ranking

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"goreal-engine/pkg/config"
	"goreal-engine/pkg/repository"
	"goreal-engine/services/account"
	"goreal-engine/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T, topN int) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &account.UserAccount{}, &Snapshot{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Ranking.TopN = topN

	svc := NewService(ServiceParams{DB: db, Node: node, Config: cfg})
	return svc, db
}

func seedAccount(t *testing.T, db *gorm.DB, id, guild string, total, weekly, monthly int64, tier int) {
	t.Helper()

	now := time.Now()
	require.NoError(t, db.Create(&account.UserAccount{
		ID:            id,
		GuildID:       guild,
		DisplayName:   "player " + id,
		TotalPoints:   total,
		CurrentTier:   tier,
		WeeklyPoints:  weekly,
		MonthlyPoints: monthly,
		WeekAnchor:    now,
		MonthAnchor:   now,
	}).Error)
}

func TestRecomputeOrderingAndDenseRanks(t *testing.T) {
	svc, db := newTestService(t, 50)
	ctx := context.Background()

	seedAccount(t, db, "a", "", 500, 0, 0, 2)
	seedAccount(t, db, "b", "", 800, 0, 0, 3)
	seedAccount(t, db, "c", "", 500, 0, 0, 2)
	seedAccount(t, db, "d", "", 100, 0, 0, 1)

	require.NoError(t, svc.Recompute(ctx, ScopeGlobal))

	_, entries, err := svc.Leaderboard(ctx, ScopeGlobal, WindowAllTime)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	// ties share a rank, next distinct score takes the following one
	require.Equal(t, []string{"b", "a", "c", "d"}, userIDs(entries))
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, 2, entries[1].Rank)
	require.Equal(t, 2, entries[2].Rank)
	require.Equal(t, 3, entries[3].Rank)
}

func TestRecomputeIsByteStable(t *testing.T) {
	svc, db := newTestService(t, 50)
	ctx := context.Background()

	seedAccount(t, db, "a", "", 500, 40, 90, 2)
	seedAccount(t, db, "b", "", 800, 10, 20, 3)

	require.NoError(t, svc.Recompute(ctx, ScopeGlobal))
	first, _, err := svc.Leaderboard(ctx, ScopeGlobal, WindowWeekly)
	require.NoError(t, err)

	require.NoError(t, svc.Recompute(ctx, ScopeGlobal))
	second, _, err := svc.Leaderboard(ctx, ScopeGlobal, WindowWeekly)
	require.NoError(t, err)

	require.Equal(t, []byte(first.Entries), []byte(second.Entries))
	require.NotEqual(t, first.ID, second.ID)
}

func TestRecomputeTruncatesToTopN(t *testing.T) {
	svc, db := newTestService(t, 2)
	ctx := context.Background()

	seedAccount(t, db, "a", "", 300, 0, 0, 2)
	seedAccount(t, db, "b", "", 200, 0, 0, 1)
	seedAccount(t, db, "c", "", 100, 0, 0, 1)

	require.NoError(t, svc.Recompute(ctx, ScopeGlobal))

	_, entries, err := svc.Leaderboard(ctx, ScopeGlobal, WindowAllTime)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, userIDs(entries))
}

func TestGuildScopePartitions(t *testing.T) {
	svc, db := newTestService(t, 50)
	ctx := context.Background()

	seedAccount(t, db, "a", "guild-1", 300, 0, 0, 2)
	seedAccount(t, db, "b", "guild-2", 900, 0, 0, 3)
	seedAccount(t, db, "c", "guild-1", 100, 0, 0, 1)

	require.NoError(t, svc.RecomputeAll(ctx))

	_, entries, err := svc.Leaderboard(ctx, GuildScope("guild-1"), WindowAllTime)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, userIDs(entries))

	_, global, err := svc.Leaderboard(ctx, ScopeGlobal, WindowAllTime)
	require.NoError(t, err)
	require.Len(t, global, 3)
}

// One window failing to publish must not take the other windows of the
// same scope down with it.
func TestRecomputeWindowFailureIsIsolated(t *testing.T) {
	svc, db := newTestService(t, 50)
	ctx := context.Background()

	seedAccount(t, db, "a", "", 300, 10, 20, 2)

	require.NoError(t, db.Exec(`
		CREATE TRIGGER reject_monthly_snapshots
		BEFORE INSERT ON ranking_snapshots
		WHEN NEW.time_window = 'monthly'
		BEGIN
			SELECT RAISE(ABORT, 'monthly snapshots rejected');
		END`).Error)

	require.Error(t, svc.Recompute(ctx, ScopeGlobal))

	_, weekly, err := svc.Leaderboard(ctx, ScopeGlobal, WindowWeekly)
	require.NoError(t, err)
	require.Len(t, weekly, 1)

	_, allTime, err := svc.Leaderboard(ctx, ScopeGlobal, WindowAllTime)
	require.NoError(t, err)
	require.Len(t, allTime, 1)

	_, _, err = svc.Leaderboard(ctx, ScopeGlobal, WindowMonthly)
	require.Error(t, err)
}

func TestScopesListsGlobalFirst(t *testing.T) {
	svc, db := newTestService(t, 50)

	seedAccount(t, db, "a", "guild-2", 0, 0, 0, 0)
	seedAccount(t, db, "b", "guild-1", 0, 0, 0, 0)
	seedAccount(t, db, "c", "", 0, 0, 0, 0)

	scopes, err := svc.Scopes(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{ScopeGlobal, "guild:guild-1", "guild:guild-2"}, scopes)
}

func TestRolloverResetsStaleWindows(t *testing.T) {
	svc, db := newTestService(t, 50)
	ctx := context.Background()

	stale := time.Now().AddDate(0, -2, 0)
	require.NoError(t, db.Create(&account.UserAccount{
		ID:            "stale",
		TotalPoints:   500,
		WeeklyPoints:  40,
		MonthlyPoints: 90,
		WeekAnchor:    stale,
		MonthAnchor:   stale,
	}).Error)
	seedAccount(t, db, "fresh", "", 300, 25, 60, 2)

	require.NoError(t, svc.RolloverWindows(ctx))

	accounts := repository.ProvideStore[account.UserAccount](db)

	reset, err := accounts.FindOne(ctx, &account.UserAccount{ID: "stale"})
	require.NoError(t, err)
	require.Zero(t, reset.WeeklyPoints)
	require.Zero(t, reset.MonthlyPoints)
	require.Equal(t, int64(500), reset.TotalPoints)
	require.WithinDuration(t, weekStart(time.Now()), reset.WeekAnchor, time.Second)

	kept, err := accounts.FindOne(ctx, &account.UserAccount{ID: "fresh"})
	require.NoError(t, err)
	require.Equal(t, int64(25), kept.WeeklyPoints)
	require.Equal(t, int64(60), kept.MonthlyPoints)
}

func TestLeaderboardValidation(t *testing.T) {
	svc, _ := newTestService(t, 50)
	ctx := context.Background()

	_, _, err := svc.Leaderboard(ctx, ScopeGlobal, "daily")
	require.Error(t, err)

	_, _, err = svc.Leaderboard(ctx, ScopeGlobal, WindowWeekly)
	require.Error(t, err)
}

func TestHandleRecomputeTask(t *testing.T) {
	svc, db := newTestService(t, 50)

	seedAccount(t, db, "a", "", 300, 10, 20, 2)

	task, err := NewRecomputeTask(ScopeGlobal)
	require.NoError(t, err)
	require.NoError(t, svc.HandleRecomputeTask(context.Background(), task))

	_, entries, err := svc.Leaderboard(context.Background(), ScopeGlobal, WindowAllTime)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func userIDs(entries []Entry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	return ids
}
