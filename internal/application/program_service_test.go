package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kopitetangga/service-loyalty/internal/domain/program"
	"github.com/kopitetangga/service-loyalty/internal/domain/reward"
	"github.com/kopitetangga/service-loyalty/internal/repository"
)

type fakeReportRepo struct {
	byStatus    map[string]int64
	redeemed    map[string]int64
	outstanding map[string]int64
}

func (r *fakeReportRepo) CountMembershipsByStatus(ctx context.Context, from, to *time.Time) (map[string]int64, error) {
	return r.byStatus, nil
}

func (r *fakeReportRepo) CountRedeemedByType(ctx context.Context, from, to *time.Time) (map[string]int64, error) {
	return r.redeemed, nil
}

func (r *fakeReportRepo) CountUnredeemedByType(ctx context.Context, from, to *time.Time) (map[string]int64, error) {
	return r.outstanding, nil
}

func newProgramFixture() (*ProgramService, *fakeReportRepo) {
	settings := repository.NewMemorySettingsRepository(10, program.Settings{
		MembershipFee:            25000,
		MembershipDurationMonths: 3,
		DiscountPercent:          10,
		MinAmountForStamp:        50000,
		RewardMilestones: map[int]reward.Type{
			5:  reward.TypeFreeDrink,
			10: reward.TypeVoucher50K,
		},
	})
	reports := &fakeReportRepo{
		byStatus:    map[string]int64{"active": 12, "expired": 3},
		redeemed:    map[string]int64{"free_drink": 7},
		outstanding: map[string]int64{"free_drink": 2, "voucher_50k": 1},
	}
	return NewProgramService(settings, reports, 10, zap.NewNop()), reports
}

func TestGetSettings_ReturnsSeededDefaults(t *testing.T) {
	svc, _ := newProgramFixture()

	dto, err := svc.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(25000), dto.MembershipFee)
	assert.Equal(t, int64(50000), dto.MinAmountForStamp)
	assert.Equal(t, map[int]string{5: "free_drink", 10: "voucher_50k"}, dto.RewardMilestones)
}

func TestUpdateSettings_PersistsNewValues(t *testing.T) {
	svc, _ := newProgramFixture()
	ctx := context.Background()

	dto, err := svc.UpdateSettings(ctx, UpdateSettingsRequest{
		MembershipFee:            30000,
		MembershipDurationMonths: 6,
		DiscountPercent:          15,
		MinAmountForStamp:        40000,
		RewardMilestones:         map[int]string{3: "free_drink", 10: "voucher_50k"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(40000), dto.MinAmountForStamp)

	reread, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, reread.MembershipDurationMonths)
	assert.Equal(t, map[int]string{3: "free_drink", 10: "voucher_50k"}, reread.RewardMilestones)
}

func TestUpdateSettings_RejectsInvalidMilestones(t *testing.T) {
	svc, _ := newProgramFixture()
	ctx := context.Background()

	// Position beyond the cycle size.
	_, err := svc.UpdateSettings(ctx, UpdateSettingsRequest{
		MembershipFee:            25000,
		MembershipDurationMonths: 3,
		MinAmountForStamp:        50000,
		RewardMilestones:         map[int]string{11: "free_drink"},
	})
	assert.Error(t, err)

	// Unknown reward type.
	_, err = svc.UpdateSettings(ctx, UpdateSettingsRequest{
		MembershipFee:            25000,
		MembershipDurationMonths: 3,
		MinAmountForStamp:        50000,
		RewardMilestones:         map[int]string{5: "gold_star"},
	})
	assert.Error(t, err)
}

func TestSummaryReport(t *testing.T) {
	svc, _ := newProgramFixture()

	dto, err := svc.SummaryReport(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(15), dto.TotalMembers)
	assert.Equal(t, int64(12), dto.ByStatus["active"])
}

func TestSummaryReport_RejectsInvertedPeriod(t *testing.T) {
	svc, _ := newProgramFixture()
	from := time.Now()
	to := from.AddDate(0, 0, -7)

	_, err := svc.SummaryReport(context.Background(), &from, &to)
	assert.Error(t, err)
}

func TestRewardReport(t *testing.T) {
	svc, _ := newProgramFixture()

	dto, err := svc.RewardReport(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), dto.Redeemed["free_drink"])
	assert.Equal(t, int64(1), dto.Outstanding["voucher_50k"])
}
