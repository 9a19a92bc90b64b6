package events

import (
	"time"

	"github.com/google/uuid"
)

// Kafka topics.
const (
	TopicLoyaltyEvents = "loyalty.events"
	TopicPOSEvents     = "pos.transactions"
)

// Event types, in CloudEvents type naming.
const (
	LoyaltyStampAwarded    = "loyalty.stamp.awarded"
	LoyaltyCycleClosed     = "loyalty.cycle.closed"
	LoyaltyRewardRedeemed  = "loyalty.reward.redeemed"
	LoyaltyMemberActivated = "loyalty.member.activated"
	POSTransactionRecorded = "pos.transaction.recorded"
)

// StampAwardedEvent is published after a stamp is committed.
type StampAwardedEvent struct {
	MembershipID  uuid.UUID `json:"membership_id"`
	CardNumber    string    `json:"card_number"`
	CycleNumber   int       `json:"cycle_number"`
	StampNumber   int       `json:"stamp_number"`
	RewardType    string    `json:"reward_type"`
	Amount        int64     `json:"amount"`
	ReceiptNumber string    `json:"receipt_number,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// CycleClosedEvent is published when the stamp that fills a cycle commits.
type CycleClosedEvent struct {
	MembershipID uuid.UUID `json:"membership_id"`
	CardNumber   string    `json:"card_number"`
	CycleNumber  int       `json:"cycle_number"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// RewardRedeemedEvent is published after a redemption is committed.
type RewardRedeemedEvent struct {
	MembershipID uuid.UUID `json:"membership_id"`
	CardNumber   string    `json:"card_number"`
	CycleNumber  int       `json:"cycle_number"`
	StampNumber  int       `json:"stamp_number"`
	RewardType   string    `json:"reward_type"`
	RedeemedAt   time.Time `json:"redeemed_at"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// MemberActivatedEvent is published when a card is activated into a membership.
type MemberActivatedEvent struct {
	MembershipID uuid.UUID `json:"membership_id"`
	CardNumber   string    `json:"card_number"`
	CustomerName string    `json:"customer_name"`
	Phone        string    `json:"phone"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// TransactionRecordedEvent arrives from the POS when a member's purchase is
// rung up with their card scanned.
type TransactionRecordedEvent struct {
	CardNumber    string    `json:"card_number"`
	Amount        int64     `json:"amount"`
	ReceiptNumber string    `json:"receipt_number,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
