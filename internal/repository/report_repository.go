package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// GormReportRepository answers the aggregate count queries behind the admin
// reports. Date bounds are optional; a nil bound leaves that side open.
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a report repository.
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// CountMembershipsByStatus counts memberships created in the window, grouped
// by status.
func (r *GormReportRepository) CountMembershipsByStatus(ctx context.Context, from, to *time.Time) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	q := r.db.WithContext(ctx).Model(&MembershipModel{})
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}

	var rows []statusCount
	if err := q.Select("status, count(*) as count").Group("status").Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountRedeemedByType counts stamps redeemed in the window, grouped by reward
// type. Stamps with no reward never appear.
func (r *GormReportRepository) CountRedeemedByType(ctx context.Context, from, to *time.Time) (map[string]int64, error) {
	return r.countStamps(ctx, true, from, to)
}

// CountUnredeemedByType counts outstanding rewards created in the window,
// grouped by reward type.
func (r *GormReportRepository) CountUnredeemedByType(ctx context.Context, from, to *time.Time) (map[string]int64, error) {
	return r.countStamps(ctx, false, from, to)
}

func (r *GormReportRepository) countStamps(ctx context.Context, redeemed bool, from, to *time.Time) (map[string]int64, error) {
	type typeCount struct {
		RewardType string
		Count      int64
	}

	q := r.db.WithContext(ctx).Model(&StampModel{}).Where("reward_type <> 'none'")
	// Redeemed rewards are bounded by redemption time, outstanding ones by
	// when they were earned.
	if redeemed {
		q = q.Where("redeemed_at IS NOT NULL")
		if from != nil {
			q = q.Where("redeemed_at >= ?", *from)
		}
		if to != nil {
			q = q.Where("redeemed_at <= ?", *to)
		}
	} else {
		q = q.Where("redeemed_at IS NULL")
		if from != nil {
			q = q.Where("created_at >= ?", *from)
		}
		if to != nil {
			q = q.Where("created_at <= ?", *to)
		}
	}

	var rows []typeCount
	if err := q.Select("reward_type, count(*) as count").Group("reward_type").Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.RewardType] = row.Count
	}
	return counts, nil
}
