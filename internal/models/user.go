package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LinkedAccount is the payout destination a user binds to their profile.
// All three fields are set together or not at all.
type LinkedAccount struct {
	BankName      string
	AccountNumber string
	Holder        string
}

type User struct {
	ID              uuid.UUID
	CreatedAt       time.Time
	Username        string
	PasswordHash    string
	TxPasswordHash  string
	ReferralCode    string
	ReferrerID      *uuid.UUID // set once at registration, never mutated
	IsAdmin         bool
	PostCredits     int
	Balance         decimal.Decimal
	BalanceRecharge decimal.Decimal
	BalanceWithdraw decimal.Decimal
	LinkedAccount   *LinkedAccount
}

func (u *User) HasLinkedAccount() bool {
	return u.LinkedAccount != nil && u.LinkedAccount.AccountNumber != ""
}
