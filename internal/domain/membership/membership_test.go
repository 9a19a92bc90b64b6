package membership

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopitetangga/service-loyalty/internal/domain/reward"
)

func testPolicy(t *testing.T) *reward.Policy {
	t.Helper()
	p, err := reward.NewPolicy(10, map[int]reward.Type{
		5:  reward.TypeFreeDrink,
		10: reward.TypeVoucher50K,
	})
	require.NoError(t, err)
	return p
}

func newTestMembership(t *testing.T) *Membership {
	t.Helper()
	start := time.Now().UTC().AddDate(0, 0, -1)
	m, err := NewMembership(
		Customer{ID: uuid.New(), Name: "Budi", Phone: "+628111111111"},
		"CARD-TEST0001",
		uuid.New(),
		start,
		start.AddDate(0, 3, 0),
	)
	require.NoError(t, err)
	return m
}

func TestNewMembership_StartsWithNoCycles(t *testing.T) {
	m := newTestMembership(t)
	assert.Equal(t, StatusActive, m.Status())
	assert.Empty(t, m.Cycles())
	assert.Nil(t, m.OpenCycle())
}

func TestNewMembership_Validation(t *testing.T) {
	start := time.Now().UTC()

	_, err := NewMembership(Customer{}, "", uuid.New(), start, start.AddDate(0, 3, 0))
	assert.Error(t, err)

	_, err = NewMembership(Customer{}, "CARD-X", uuid.Nil, start, start.AddDate(0, 3, 0))
	assert.Error(t, err)

	_, err = NewMembership(Customer{}, "CARD-X", uuid.New(), start, start.AddDate(0, -1, 0))
	assert.Error(t, err)
}

func TestAppendStamp_FirstStampOpensCycleOne(t *testing.T) {
	m := newTestMembership(t)
	policy := testPolicy(t)

	stamp, err := m.AppendStamp(60000, nil, policy)
	require.NoError(t, err)

	assert.Equal(t, 1, stamp.Number())
	assert.Equal(t, reward.TypeNone, stamp.RewardType())
	require.Len(t, m.Cycles(), 1)
	assert.Equal(t, 1, m.Cycles()[0].Number())
	assert.False(t, m.Cycles()[0].Closed())
}

func TestAppendStamp_ContiguousNumbering(t *testing.T) {
	m := newTestMembership(t)
	policy := testPolicy(t)

	for i := 1; i <= 7; i++ {
		stamp, err := m.AppendStamp(60000, nil, policy)
		require.NoError(t, err)
		assert.Equal(t, i, stamp.Number())
	}

	cycle := m.OpenCycle()
	require.NotNil(t, cycle)
	assert.Equal(t, 7, cycle.StampCount())
}

func TestAppendStamp_MilestonePositionsCarryRewards(t *testing.T) {
	m := newTestMembership(t)
	policy := testPolicy(t)

	var fifth, tenth *Stamp
	for i := 1; i <= 10; i++ {
		stamp, err := m.AppendStamp(60000, nil, policy)
		require.NoError(t, err)
		switch i {
		case 5:
			fifth = stamp
		case 10:
			tenth = stamp
		}
	}

	assert.Equal(t, reward.TypeFreeDrink, fifth.RewardType())
	assert.Equal(t, reward.TypeVoucher50K, tenth.RewardType())
}

func TestAppendStamp_TenthStampClosesCycle(t *testing.T) {
	m := newTestMembership(t)
	policy := testPolicy(t)

	for i := 1; i <= 10; i++ {
		_, err := m.AppendStamp(60000, nil, policy)
		require.NoError(t, err)
	}

	require.Len(t, m.Cycles(), 1)
	assert.True(t, m.Cycles()[0].Closed())
	assert.Nil(t, m.OpenCycle())
}

func TestAppendStamp_EleventhStampOpensCycleTwo(t *testing.T) {
	m := newTestMembership(t)
	policy := testPolicy(t)

	for i := 1; i <= 10; i++ {
		_, err := m.AppendStamp(60000, nil, policy)
		require.NoError(t, err)
	}

	stamp, err := m.AppendStamp(60000, nil, policy)
	require.NoError(t, err)

	assert.Equal(t, 1, stamp.Number())
	require.Len(t, m.Cycles(), 2)
	assert.Equal(t, 2, m.Cycles()[1].Number())
	assert.False(t, m.Cycles()[1].Closed())
}

func TestRedeemReward_FIFOAcrossCycles(t *testing.T) {
	m := newTestMembership(t)
	policy := testPolicy(t)

	// Fill two cycles: two free_drink stamps at positions 5 of each cycle.
	for i := 0; i < 20; i++ {
		_, err := m.AppendStamp(60000, nil, policy)
		require.NoError(t, err)
	}

	first, ok := m.RedeemReward(reward.TypeFreeDrink, time.Now().UTC())
	require.True(t, ok)
	assert.Equal(t, 1, m.CycleForStamp(first).Number())
	assert.True(t, first.IsRedeemed())

	second, ok := m.RedeemReward(reward.TypeFreeDrink, time.Now().UTC())
	require.True(t, ok)
	assert.Equal(t, 2, m.CycleForStamp(second).Number())

	_, ok = m.RedeemReward(reward.TypeFreeDrink, time.Now().UTC())
	assert.False(t, ok, "both free drinks already redeemed")
}

func TestRedeemReward_NoMatchingStamp(t *testing.T) {
	m := newTestMembership(t)
	policy := testPolicy(t)

	for i := 0; i < 4; i++ {
		_, err := m.AppendStamp(60000, nil, policy)
		require.NoError(t, err)
	}

	_, ok := m.RedeemReward(reward.TypeFreeDrink, time.Now().UTC())
	assert.False(t, ok)
}

func TestRedeemReward_NoneIsNeverRedeemable(t *testing.T) {
	m := newTestMembership(t)
	policy := testPolicy(t)

	_, err := m.AppendStamp(60000, nil, policy)
	require.NoError(t, err)

	_, ok := m.RedeemReward(reward.TypeNone, time.Now().UTC())
	assert.False(t, ok)
}

func TestEvaluateEligibility(t *testing.T) {
	m := newTestMembership(t)
	policy := testPolicy(t)
	now := time.Now().UTC()
	receipt := "R-001"

	tests := []struct {
		name    string
		prepare func(m *Membership)
		amount  int64
		receipt *string
		wantOK  bool
		reason  IneligibleReason
	}{
		{name: "qualifying amount", amount: 50000, wantOK: true},
		{name: "above threshold", amount: 75000, wantOK: true},
		{name: "below threshold", amount: 49999, wantOK: false, reason: ReasonBelowMinimumAmount},
		{name: "zero amount", amount: 0, wantOK: false, reason: ReasonInvalidAmount},
		{name: "negative amount", amount: -100, wantOK: false, reason: ReasonInvalidAmount},
		{
			name:    "duplicate receipt",
			prepare: func(m *Membership) { _, _ = m.AppendStamp(60000, &receipt, policy) },
			amount:  60000,
			receipt: &receipt,
			wantOK:  false,
			reason:  ReasonDuplicateReceipt,
		},
		{
			name:    "suspended membership",
			prepare: func(m *Membership) { _ = m.Suspend() },
			amount:  60000,
			wantOK:  false,
			reason:  ReasonMembershipInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject := m.Clone()
			if tt.prepare != nil {
				tt.prepare(subject)
			}
			ok, reason := EvaluateEligibility(subject, tt.amount, tt.receipt, 50000, now)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestEvaluateEligibility_ExpiredMembership(t *testing.T) {
	start := time.Now().UTC().AddDate(0, -6, 0)
	m, err := NewMembership(
		Customer{ID: uuid.New(), Name: "Sari", Phone: "+628222222222"},
		"CARD-TEST0002",
		uuid.New(),
		start,
		start.AddDate(0, 3, 0),
	)
	require.NoError(t, err)

	now := time.Now().UTC()
	assert.True(t, m.RefreshStatus(now))
	assert.Equal(t, StatusExpired, m.Status())

	ok, reason := EvaluateEligibility(m, 60000, nil, 50000, now)
	assert.False(t, ok)
	assert.Equal(t, ReasonMembershipInactive, reason)
}

func TestRefreshStatus_KeepsSuspended(t *testing.T) {
	m := newTestMembership(t)
	require.NoError(t, m.Suspend())

	assert.False(t, m.RefreshStatus(time.Now().UTC().AddDate(1, 0, 0)))
	assert.Equal(t, StatusSuspended, m.Status())
}

func TestRefreshStatus_ReportsTransitionOnce(t *testing.T) {
	m := newTestMembership(t)
	assert.False(t, m.RefreshStatus(time.Now().UTC()), "within the validity window")

	lapsed := m.EndDate().AddDate(0, 0, 2)
	assert.True(t, m.RefreshStatus(lapsed))
	assert.Equal(t, StatusExpired, m.Status())
	assert.False(t, m.RefreshStatus(lapsed), "already expired")
}

func TestHasReceipt(t *testing.T) {
	m := newTestMembership(t)
	policy := testPolicy(t)
	receipt := "R-77"

	_, err := m.AppendStamp(60000, &receipt, policy)
	require.NoError(t, err)

	assert.True(t, m.HasReceipt("R-77"))
	assert.False(t, m.HasReceipt("R-78"))
}

func TestClone_IsDeep(t *testing.T) {
	m := newTestMembership(t)
	policy := testPolicy(t)

	for i := 0; i < 5; i++ {
		receipt := fmt.Sprintf("R-%d", i)
		_, err := m.AppendStamp(60000, &receipt, policy)
		require.NoError(t, err)
	}

	cp := m.Clone()
	_, ok := cp.RedeemReward(reward.TypeFreeDrink, time.Now().UTC())
	require.True(t, ok)

	// Original must be untouched.
	stamp := m.Cycles()[0].Stamps()[4]
	assert.False(t, stamp.IsRedeemed())
}
