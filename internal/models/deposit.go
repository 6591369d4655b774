package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DepositPending  = "pending"
	DepositApproved = "approved"
	DepositRejected = "rejected"
)

type Deposit struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Amount     decimal.Decimal
	Status     string
	ReceiptRef string
	CreatedAt  time.Time
}
