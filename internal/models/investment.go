package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PackageShortTerm = "curto"
	PackageLongTerm  = "longo"

	PackageActive   = "active"
	PackageInactive = "inactive"

	InvestmentActive    = "active"
	InvestmentCompleted = "completed"
)

// Admin managed catalog entry. Open positions snapshot the rate and the
// daily earning at purchase time, so later edits never affect them.
type Package struct {
	ID           uuid.UUID
	Name         string
	Description  string
	Category     string
	MinAmount    decimal.Decimal
	MaxAmount    decimal.Decimal
	DailyRate    decimal.Decimal // percent of principal per day
	DurationDays int
	Status       string
	CreatedAt    time.Time
}

// BaseName strips the VIP qualifier suffix from the package name.
// A short-term package "Ouro VIP" requires an active long-term "Ouro".
func (p Package) BaseName() string {
	return strings.TrimSpace(strings.TrimSuffix(p.Name, "VIP"))
}

type Investment struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	PackageID     uuid.UUID
	Amount        decimal.Decimal
	DailyEarning  decimal.Decimal // amount × rate, rounded at creation
	DurationDays  int
	DaysRemaining int
	Status        string
	CreatedAt     time.Time
	LastAccrualAt *time.Time // nil until the first accrual

	// Filled on listing queries only
	PackageName string
}

// Earning is the audit row for one credited day of one investment.
// DayNumber is 1-based; (InvestmentID, DayNumber) is unique, which is
// what makes the accrual job idempotent under overlapping runs.
type Earning struct {
	ID           uuid.UUID
	InvestmentID uuid.UUID
	DayNumber    int
	Amount       decimal.Decimal
	CreditedAt   time.Time
}
