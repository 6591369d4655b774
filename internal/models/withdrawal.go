package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

// Withdrawal keeps the fee, the net amount and the destination account
// as computed at request time. The funds are reserved (deducted from the
// withdrawable bucket) when the request is created, not when it is approved.
type Withdrawal struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	RequestedAmount decimal.Decimal
	Fee             decimal.Decimal
	NetAmount       decimal.Decimal
	Status          string
	AccountNumber   string
	CreatedAt       time.Time
}
