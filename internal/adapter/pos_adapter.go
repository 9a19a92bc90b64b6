package adapter

import (
	"context"

	"go.uber.org/zap"
)

// POSAdapter is the Anti-Corruption Layer for the point-of-sale backend. The
// engine optionally asks the POS to confirm a receipt exists before counting
// it toward a stamp; the duplicate-receipt guard still applies either way.
type POSAdapter interface {
	// VerifyReceipt checks that the receipt exists in the POS with the given
	// amount. A nil error means the receipt is genuine.
	VerifyReceipt(ctx context.Context, receiptNumber string, amount int64) error
}

// MockPOSAdapter is the development/testing implementation. It accepts every
// receipt and logs the call.
type MockPOSAdapter struct {
	logger *zap.Logger
}

// NewMockPOSAdapter creates a mock POS adapter for development.
func NewMockPOSAdapter(logger *zap.Logger) *MockPOSAdapter {
	return &MockPOSAdapter{logger: logger}
}

// VerifyReceipt accepts every receipt.
func (m *MockPOSAdapter) VerifyReceipt(ctx context.Context, receiptNumber string, amount int64) error {
	m.logger.Info("[MOCK POS] receipt verified",
		zap.String("receipt_number", receiptNumber),
		zap.Int64("amount", amount),
	)
	return nil
}
