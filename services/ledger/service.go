package ledger

import (
	"context"
	"errors"
	"time"

	"goreal-engine/pkg/db/option"
	"goreal-engine/pkg/db/pagination"
	"goreal-engine/pkg/errutil"
	"goreal-engine/pkg/repository"
	"goreal-engine/services/account"
	"goreal-engine/services/reward"
	"goreal-engine/services/strava"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier receives progression events as activities are applied. Calls are
// made after each unit commits, never inside the transaction.
type Notifier interface {
	TierUpgraded(ctx context.Context, userID string, fromTier, toTier int, pointsGained, newTotal int64)
	ActivitySynced(ctx context.Context, userID string, activityType reward.ActivityType, distanceKm float64, points int64)
}

type Service struct {
	db         *gorm.DB
	node       *snowflake.Node
	activities repository.Repository[ActivityRecord]
	accounts   repository.Repository[account.UserAccount]
	notifier   Notifier
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Notifier Notifier
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		node:       p.Node,
		activities: repository.ProvideStore[ActivityRecord](p.DB),
		accounts:   repository.ProvideStore[account.UserAccount](p.DB),
		notifier:   p.Notifier,
	}
}

type appliedUnit struct {
	record   *ActivityRecord
	newTotal int64
}

// Ingest applies a batch of fetched activities, oldest first. Each activity
// is its own transaction, so a failure mid-batch keeps every unit already
// committed and reports what landed. Duplicates are skipped, not errors.
func (s *Service) Ingest(ctx context.Context, userID string, acts []strava.Activity) (*IngestResult, error) {
	span := trace.SpanFromContext(ctx)
	result := &IngestResult{}

	for _, act := range acts {
		unit, duplicate, err := s.ingestOne(ctx, userID, act)
		if err != nil {
			zap.L().Error("ingest aborted, keeping committed activities",
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
				zap.String("user_id", userID),
				zap.Int64("external_id", act.ExternalID),
				zap.Int("processed", result.Processed),
				zap.Error(err),
			)
			return result, err
		}
		if duplicate {
			result.Duplicates++
			continue
		}

		rec := unit.record
		if result.Processed == 0 {
			result.TierBefore = rec.TierBefore
		}
		result.Processed++
		result.PointsGained += rec.Points
		result.TierAfter = rec.TierAfter

		s.notifier.ActivitySynced(ctx, userID, reward.ActivityType(rec.Type), rec.DistanceKm, rec.Points)
		if rec.TierAfter > rec.TierBefore {
			s.notifier.TierUpgraded(ctx, userID, rec.TierBefore, rec.TierAfter, rec.Points, unit.newTotal)
		}
	}

	return result, nil
}

// ingestOne commits one activity atomically with the account update. The
// account row is locked for the duration so concurrent ingests for the same
// user serialize instead of losing increments.
func (s *Service) ingestOne(ctx context.Context, userID string, act strava.Activity) (*appliedUnit, bool, error) {
	var unit *appliedUnit
	duplicate := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		activities := s.activities.WithTrx(tx)
		accounts := s.accounts.WithTrx(tx)

		existing, err := activities.FindOne(ctx, &ActivityRecord{UserID: userID, ExternalID: act.ExternalID})
		if err != nil {
			return err
		}
		if existing != nil {
			duplicate = true
			return nil
		}

		acct, err := accounts.FindOne(ctx, &account.UserAccount{ID: userID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if acct == nil {
			return errutil.NotFound("user account not found")
		}

		activityType := reward.ParseActivityType(act.Type)
		distanceKm := act.DistanceKm()
		points := reward.PointsFor(activityType, distanceKm)

		tierBefore := reward.TierFor(acct.TotalPoints)
		newTotal := acct.TotalPoints + points
		tierAfter := reward.TierFor(newTotal)

		record := &ActivityRecord{
			ID:          s.node.Generate().String(),
			UserID:      userID,
			ExternalID:  act.ExternalID,
			Type:        string(activityType),
			DistanceKm:  distanceKm,
			StartTime:   act.StartTime,
			Points:      points,
			TierBefore:  tierBefore,
			TierAfter:   tierAfter,
			ProcessedAt: time.Now(),
		}
		if err := activities.Create(ctx, record); err != nil {
			// A concurrent sync may have inserted the same external id
			// between the lookup and the insert. The unique index makes
			// that a duplicate, not a failure.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				duplicate = true
				return gorm.ErrDuplicatedKey
			}
			return err
		}

		totals := acct.DistanceByType()
		totals[string(activityType)] += distanceKm

		if err := accounts.Update(ctx, acct.ID, map[string]any{
			"total_points":    newTotal,
			"current_tier":    tierAfter,
			"weekly_points":   gorm.Expr("weekly_points + ?", points),
			"monthly_points":  gorm.Expr("monthly_points + ?", points),
			"distance_totals": account.EncodeDistanceTotals(totals),
		}); err != nil {
			return err
		}

		unit = &appliedUnit{record: record, newTotal: newTotal}
		return nil
	})

	if duplicate {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return unit, false, nil
}

// History returns one page of the user's processed activities, newest start
// time first, with a cursor for the next page.
func (s *Service) History(ctx context.Context, userID string, p pagination.Pagination) ([]*ActivityRecord, *pagination.PageInfo, error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}

	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_time DESC, id DESC").
		Limit(p.Limit + 1)

	if p.Cursor != "" {
		cursor, err := pagination.DecodeCursor(p.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("malformed cursor", errutil.WithErr(err))
		}
		startTime, err := time.Parse(time.RFC3339Nano, cursor.Timestamp)
		if err != nil {
			return nil, nil, errutil.BadRequest("malformed cursor", errutil.WithErr(err))
		}
		q = q.Where("(start_time, id) < (?, ?)", startTime, cursor.ID)
	}

	var records []*ActivityRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(records, p.Limit, func(rec *ActivityRecord) string {
		encoded, _ := pagination.EncodeCursor(pagination.Cursor{
			Timestamp: rec.StartTime.Format(time.RFC3339Nano),
			ID:        rec.ID,
		})
		return encoded
	})
	if len(records) > p.Limit {
		records = records[:p.Limit]
	}

	return records, pageInfo, nil
}
