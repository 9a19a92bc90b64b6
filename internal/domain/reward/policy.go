package reward

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kopitetangga/service-loyalty/pkg/domain"
)

// Type identifies the benefit attached to a stamp position.
type Type string

const (
	TypeNone       Type = "none"
	TypeFreeDrink  Type = "free_drink"
	TypeVoucher50K Type = "voucher_50k"
)

// KnownTypes lists every reward type a stamp can carry.
func KnownTypes() []Type {
	return []Type{TypeNone, TypeFreeDrink, TypeVoucher50K}
}

// ParseType validates a reward type string from the outside world.
func ParseType(s string) (Type, error) {
	for _, t := range KnownTypes() {
		if Type(s) == t {
			return t, nil
		}
	}
	return "", domain.NewValidationError(fmt.Sprintf("unknown reward type '%s'", s))
}

// Policy maps stamp positions within a cycle to reward types. The milestone
// map is deployment configuration; positions without a milestone earn none.
// The mapping is total over 1..CycleSize.
type Policy struct {
	cycleSize  int
	milestones map[int]Type
}

// NewPolicy builds a Policy after validating that every milestone position
// falls within 1..cycleSize and names a known reward type.
func NewPolicy(cycleSize int, milestones map[int]Type) (*Policy, error) {
	if cycleSize < 1 {
		return nil, domain.NewValidationError("cycle size must be at least 1")
	}
	for pos, t := range milestones {
		if pos < 1 || pos > cycleSize {
			return nil, domain.NewValidationError(
				fmt.Sprintf("milestone position %d outside cycle of size %d", pos, cycleSize))
		}
		if _, err := ParseType(string(t)); err != nil {
			return nil, err
		}
		if t == TypeNone {
			return nil, domain.NewValidationError(
				fmt.Sprintf("milestone position %d maps to 'none'; omit it instead", pos))
		}
	}

	m := make(map[int]Type, len(milestones))
	for pos, t := range milestones {
		m[pos] = t
	}
	return &Policy{cycleSize: cycleSize, milestones: m}, nil
}

// CycleSize returns the number of stamps that completes a cycle.
func (p *Policy) CycleSize() int { return p.cycleSize }

// RewardFor returns the reward type for a 1-based position within a cycle.
// A position outside 1..CycleSize is a programming error, not a business
// outcome, and surfaces as an internal error.
func (p *Policy) RewardFor(position int) (Type, error) {
	if position < 1 || position > p.cycleSize {
		return "", domain.NewInternalError(
			fmt.Sprintf("stamp position %d outside cycle of size %d", position, p.cycleSize))
	}
	if t, ok := p.milestones[position]; ok {
		return t, nil
	}
	return TypeNone, nil
}

// MilestoneString renders the milestone map in "pos:type,pos:type" form,
// the same format ParseMilestones accepts.
func (p *Policy) MilestoneString() string {
	positions := make([]int, 0, len(p.milestones))
	for pos := range p.milestones {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	parts := make([]string, 0, len(positions))
	for _, pos := range positions {
		parts = append(parts, fmt.Sprintf("%d:%s", pos, p.milestones[pos]))
	}
	return strings.Join(parts, ",")
}

// ParseMilestones parses a "5:free_drink,10:voucher_50k" configuration string.
func ParseMilestones(s string) (map[int]Type, error) {
	milestones := make(map[int]Type)
	if strings.TrimSpace(s) == "" {
		return milestones, nil
	}

	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) != 2 {
			return nil, domain.NewValidationError(
				fmt.Sprintf("malformed milestone entry '%s'", part))
		}
		pos, err := strconv.Atoi(kv[0])
		if err != nil {
			return nil, domain.NewValidationError(
				fmt.Sprintf("malformed milestone position '%s'", kv[0]))
		}
		t, err := ParseType(kv[1])
		if err != nil {
			return nil, err
		}
		milestones[pos] = t
	}
	return milestones, nil
}
