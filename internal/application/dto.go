package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/kopitetangga/service-loyalty/internal/domain/membership"
)

// CustomerDTO is the API representation of a referenced customer.
type CustomerDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
	Email string    `json:"email,omitempty"`
}

// StampDTO is the API representation of one stamp.
type StampDTO struct {
	ID            uuid.UUID  `json:"id"`
	CycleID       uuid.UUID  `json:"cycle_id"`
	Number        int        `json:"number"`
	RewardType    string     `json:"reward_type"`
	RedeemedAt    *time.Time `json:"redeemed_at,omitempty"`
	Amount        int64      `json:"transaction_amount"`
	ReceiptNumber *string    `json:"pos_receipt_number,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CycleDTO is the API representation of one stamp cycle.
type CycleDTO struct {
	ID         uuid.UUID  `json:"id"`
	Number     int        `json:"cycle_number"`
	Closed     bool       `json:"closed"`
	StampCount int        `json:"stamp_count"`
	Stamps     []StampDTO `json:"stamps"`
}

// MembershipDTO is the full aggregate returned by lookup and scan.
type MembershipDTO struct {
	ID         uuid.UUID   `json:"id"`
	Customer   CustomerDTO `json:"customer"`
	CardNumber string      `json:"card_number"`
	PublicID   uuid.UUID   `json:"public_id"`
	Status     string      `json:"status"`
	StartDate  string      `json:"start_date"`
	EndDate    string      `json:"end_date"`
	Cycles     []CycleDTO  `json:"cycles"`
	CreatedAt  time.Time   `json:"created_at"`
}

// HistorySummaryDTO condenses the active (or latest) cycle for the frontend.
type HistorySummaryDTO struct {
	MembershipID uuid.UUID `json:"membership_id"`
	CycleNumber  *int      `json:"cycle_number"`
	StampCount   int       `json:"stamp_count"`
	IsFull       bool      `json:"is_full"`
}

// AddStampResult is the tagged outcome of an add-stamp call. Awarded=false
// with a reason is a normal business outcome, not an error.
type AddStampResult struct {
	Awarded     bool      `json:"awarded"`
	Reason      string    `json:"reason,omitempty"`
	Stamp       *StampDTO `json:"stamp,omitempty"`
	CycleNumber int       `json:"cycle_number,omitempty"`
	CycleClosed bool      `json:"cycle_closed,omitempty"`
}

// RedeemResult is the tagged outcome of a redeem call.
type RedeemResult struct {
	Redeemed    bool      `json:"redeemed"`
	Reason      string    `json:"reason,omitempty"`
	Stamp       *StampDTO `json:"stamp,omitempty"`
	CycleNumber int       `json:"cycle_number,omitempty"`
}

const dateLayout = "2006-01-02"

func toStampDTO(s *membership.Stamp) StampDTO {
	return StampDTO{
		ID:            s.ID(),
		CycleID:       s.CycleID(),
		Number:        s.Number(),
		RewardType:    string(s.RewardType()),
		RedeemedAt:    s.RedeemedAt(),
		Amount:        s.Amount(),
		ReceiptNumber: s.ReceiptNumber(),
		CreatedAt:     s.CreatedAt(),
	}
}

func toCycleDTO(c *membership.Cycle) CycleDTO {
	stamps := make([]StampDTO, len(c.Stamps()))
	for i, s := range c.Stamps() {
		stamps[i] = toStampDTO(s)
	}
	return CycleDTO{
		ID:         c.ID(),
		Number:     c.Number(),
		Closed:     c.Closed(),
		StampCount: c.StampCount(),
		Stamps:     stamps,
	}
}

func toMembershipDTO(m *membership.Membership) MembershipDTO {
	cycles := make([]CycleDTO, len(m.Cycles()))
	for i, c := range m.Cycles() {
		cycles[i] = toCycleDTO(c)
	}
	return MembershipDTO{
		ID: m.ID(),
		Customer: CustomerDTO{
			ID:    m.Customer().ID,
			Name:  m.Customer().Name,
			Phone: m.Customer().Phone,
			Email: m.Customer().Email,
		},
		CardNumber: m.CardNumber(),
		PublicID:   m.PublicID(),
		Status:     string(m.Status()),
		StartDate:  m.StartDate().Format(dateLayout),
		EndDate:    m.EndDate().Format(dateLayout),
		Cycles:     cycles,
		CreatedAt:  m.CreatedAt(),
	}
}
