package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy_Valid(t *testing.T) {
	p, err := NewPolicy(10, map[int]Type{5: TypeFreeDrink, 10: TypeVoucher50K})
	require.NoError(t, err)
	assert.Equal(t, 10, p.CycleSize())
}

func TestNewPolicy_RejectsOutOfRangeMilestone(t *testing.T) {
	_, err := NewPolicy(10, map[int]Type{11: TypeFreeDrink})
	assert.Error(t, err)

	_, err = NewPolicy(10, map[int]Type{0: TypeFreeDrink})
	assert.Error(t, err)
}

func TestNewPolicy_RejectsNoneMilestone(t *testing.T) {
	_, err := NewPolicy(10, map[int]Type{5: TypeNone})
	assert.Error(t, err)
}

func TestNewPolicy_RejectsUnknownType(t *testing.T) {
	_, err := NewPolicy(10, map[int]Type{5: Type("gold_star")})
	assert.Error(t, err)
}

func TestRewardFor_MilestoneAndDefault(t *testing.T) {
	p, err := NewPolicy(10, map[int]Type{5: TypeFreeDrink, 10: TypeVoucher50K})
	require.NoError(t, err)

	got, err := p.RewardFor(1)
	require.NoError(t, err)
	assert.Equal(t, TypeNone, got)

	got, err = p.RewardFor(5)
	require.NoError(t, err)
	assert.Equal(t, TypeFreeDrink, got)

	got, err = p.RewardFor(10)
	require.NoError(t, err)
	assert.Equal(t, TypeVoucher50K, got)
}

func TestRewardFor_OutOfRangeIsError(t *testing.T) {
	p, err := NewPolicy(10, map[int]Type{10: TypeVoucher50K})
	require.NoError(t, err)

	_, err = p.RewardFor(0)
	assert.Error(t, err)
	_, err = p.RewardFor(11)
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	got, err := ParseType("free_drink")
	require.NoError(t, err)
	assert.Equal(t, TypeFreeDrink, got)

	_, err = ParseType("coffee")
	assert.Error(t, err)
}

func TestParseMilestones_RoundTrip(t *testing.T) {
	milestones, err := ParseMilestones("5:free_drink,10:voucher_50k")
	require.NoError(t, err)
	assert.Equal(t, map[int]Type{5: TypeFreeDrink, 10: TypeVoucher50K}, milestones)

	p, err := NewPolicy(10, milestones)
	require.NoError(t, err)
	assert.Equal(t, "5:free_drink,10:voucher_50k", p.MilestoneString())
}

func TestParseMilestones_Malformed(t *testing.T) {
	_, err := ParseMilestones("5")
	assert.Error(t, err)

	_, err = ParseMilestones("x:free_drink")
	assert.Error(t, err)

	_, err = ParseMilestones("5:unknown")
	assert.Error(t, err)
}

func TestParseMilestones_Empty(t *testing.T) {
	milestones, err := ParseMilestones("")
	require.NoError(t, err)
	assert.Empty(t, milestones)
}
