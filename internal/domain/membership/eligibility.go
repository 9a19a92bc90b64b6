package membership

import "time"

// IneligibleReason explains why a well-formed transaction earned no stamp.
// These are business outcomes, not errors.
type IneligibleReason string

const (
	ReasonInvalidAmount      IneligibleReason = "invalid_amount"
	ReasonBelowMinimumAmount IneligibleReason = "below_minimum_amount"
	ReasonMembershipInactive IneligibleReason = "membership_inactive"
	ReasonDuplicateReceipt   IneligibleReason = "duplicate_receipt"
)

// EvaluateEligibility decides whether a transaction qualifies for a stamp.
// minAmount is deployment configuration. The duplicate-receipt guard makes
// retried POS submissions idempotent: the same receipt never earns twice.
func EvaluateEligibility(m *Membership, amount int64, receiptNumber *string, minAmount int64, today time.Time) (bool, IneligibleReason) {
	if amount <= 0 {
		return false, ReasonInvalidAmount
	}
	if !m.IsActive(today) {
		return false, ReasonMembershipInactive
	}
	if amount < minAmount {
		return false, ReasonBelowMinimumAmount
	}
	if receiptNumber != nil && *receiptNumber != "" && m.HasReceipt(*receiptNumber) {
		return false, ReasonDuplicateReceipt
	}
	return true, ""
}
