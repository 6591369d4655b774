package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lsoares/investa/internal/models"
)

// Storage aggregates all repositories and gives transactional access to them.
// InTx runs fn against a Storage bound to a single database transaction:
// everything fn does commits or rolls back as a whole.
type Storage interface {
	User() UserRepo
	Ledger() LedgerRepo
	Deposit() DepositRepo
	Withdrawal() WithdrawalRepo
	Investment() InvestmentRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateUserParams struct {
	Username       string
	PasswordHash   string
	TxPasswordHash string
	ReferralCode   string
	ReferrerID     *uuid.UUID
}

// User repository interface
type UserRepo interface {
	// Create user with zero balances
	// If user with the username exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id, username or referral code
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (models.User, error)

	// Replace the user's payout account
	SetLinkedAccount(ctx context.Context, userID uuid.UUID, account models.LinkedAccount) error

	// Grant one more blog post entitlement (approved withdrawal reward)
	AddPostCredit(ctx context.Context, userID uuid.UUID) error

	ListUsers(ctx context.Context) ([]models.User, error)
}

// Ledger owns every mutation of the three balance buckets. No other code
// may touch the balance columns. All operations must be called inside a
// transaction (Storage.InTx) and lock the user row before updating it;
// flows touching several users must call LockUsers first so locks are
// always taken in ascending id order.
type LedgerRepo interface {
	// Acquire row locks on the given users in ascending id order
	// Returns apperrors.ErrUserNotFound if any user does not exist
	LockUsers(ctx context.Context, userIDs ...uuid.UUID) error

	// Decrement balance_withdraw and balance by amount.
	// Returns apperrors.ErrInsufficientFunds if balance_withdraw < amount
	ReserveForWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error

	// Increment balance_withdraw and balance by amount (withdrawal rejected).
	// The caller must guarantee at most one call per withdrawal
	ReleaseWithdrawalReservation(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error

	// Increment balance_recharge and balance by amount (deposit approved)
	CreditRecharge(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error

	// Decrement balance_recharge only: the principal moves into an
	// investment position, it does not leave the account.
	// Returns apperrors.ErrInsufficientFunds if balance_recharge < amount
	DebitRecharge(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error

	// Increment balance_withdraw and balance by amount (daily earning)
	CreditEarning(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error

	// Increment balance_withdraw and balance by amount (referral commission,
	// commissions are withdrawable)
	CreditCommission(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
}

type CreateDepositParams struct {
	UserID     uuid.UUID
	Amount     decimal.Decimal
	ReceiptRef string
}

type DepositRepo interface {
	CreateDeposit(ctx context.Context, arg CreateDepositParams) (models.Deposit, error)

	// If deposit not found must return apperrors.ErrDepositNotFound
	GetDeposit(ctx context.Context, id uuid.UUID) (models.Deposit, error)

	// Flip status from pending to the given terminal status.
	// Must return apperrors.ErrAlreadyProcessed if the deposit is not
	// pending anymore: the conditional update is the idempotency guard
	SetDecided(ctx context.Context, id uuid.UUID, status string) error

	ListUserDeposits(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error)
	ListPending(ctx context.Context) ([]models.Deposit, error)
}

type CreateWithdrawalParams struct {
	UserID          uuid.UUID
	RequestedAmount decimal.Decimal
	Fee             decimal.Decimal
	NetAmount       decimal.Decimal
	AccountNumber   string
}

type WithdrawalRepo interface {
	CreateWithdrawal(ctx context.Context, arg CreateWithdrawalParams) (models.Withdrawal, error)

	// If withdrawal not found must return apperrors.ErrWithdrawalNotFound
	GetWithdrawal(ctx context.Context, id uuid.UUID) (models.Withdrawal, error)

	// Same one-shot semantics as DepositRepo.SetDecided
	SetDecided(ctx context.Context, id uuid.UUID, status string) error

	ListUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error)
	ListPending(ctx context.Context) ([]models.Withdrawal, error)
}

type CreatePackageParams struct {
	Name         string
	Description  string
	Category     string
	MinAmount    decimal.Decimal
	MaxAmount    decimal.Decimal
	DailyRate    decimal.Decimal
	DurationDays int
	Status       string
}

type CreateInvestmentParams struct {
	UserID       uuid.UUID
	PackageID    uuid.UUID
	Amount       decimal.Decimal
	DailyEarning decimal.Decimal
	DurationDays int
}

type InvestmentRepo interface {
	// Package catalog (admin managed)
	CreatePackage(ctx context.Context, arg CreatePackageParams) (models.Package, error)
	// If package not found must return apperrors.ErrPackageNotFound
	GetPackage(ctx context.Context, id uuid.UUID) (models.Package, error)
	UpdatePackage(ctx context.Context, pkg models.Package) error
	// Must return apperrors.ErrPackageInUse when any position references it
	DeletePackage(ctx context.Context, id uuid.UUID) error
	ListPackages(ctx context.Context, onlyActive bool) ([]models.Package, error)

	// Positions
	CreateInvestment(ctx context.Context, arg CreateInvestmentParams) (models.Investment, error)

	// If investment not found must return apperrors.ErrInvestmentNotFound
	GetInvestment(ctx context.Context, id uuid.UUID) (models.Investment, error)

	// Load the position and lock its row for the rest of the transaction.
	// The accrual job serializes on this lock
	GetInvestmentForUpdate(ctx context.Context, id uuid.UUID) (models.Investment, error)

	ListUserInvestments(ctx context.Context, userID uuid.UUID, onlyActive bool) ([]models.Investment, error)

	// Short-term package eligibility checks
	HasPurchased(ctx context.Context, userID uuid.UUID, packageID uuid.UUID) (bool, error)
	HasActiveLongPosition(ctx context.Context, userID uuid.UUID, packageName string) (bool, error)

	// Accrual plumbing
	// ListDueInvestments returns ids of active positions whose last accrual
	// (or creation, if never accrued) is not after the given instant
	ListDueInvestments(ctx context.Context, dueBefore time.Time, limit int) ([]uuid.UUID, error)

	// Count earning rows: the authoritative "days already credited" value
	CountEarnings(ctx context.Context, investmentID uuid.UUID) (int, error)

	// Insert one earning row. Returns false without error when the day is
	// already credited: a concurrent run got there first
	InsertEarning(ctx context.Context, earning models.Earning) (bool, error)

	ListEarnings(ctx context.Context, investmentID uuid.UUID) ([]models.Earning, error)

	// Record the result of one accrual pass over a position
	SetAccrualState(ctx context.Context, id uuid.UUID, daysRemaining int, lastAccrualAt time.Time, status string) error
}
