package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/lsoares/investa/internal/apperrors"
)

// LedgerRepo implements the balance mutation primitives. Debits are
// conditional updates: the balance check sits in the WHERE clause, so a
// failed precondition simply affects zero rows and nothing is applied.
type LedgerRepo struct {
	DB DBTX
}

// Ordered by id so two transactions locking the same set of users can
// never deadlock against each other
const lockUsers = `-- name: LockUsers
SELECT id FROM users
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE`

func (r *LedgerRepo) LockUsers(ctx context.Context, userIDs ...uuid.UUID) error {
	rows, _ := r.DB.Query(ctx, lockUsers, userIDs)
	locked, err := pgxCollectIDs(rows)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if len(locked) != len(dedupe(userIDs)) {
		return apperrors.ErrUserNotFound
	}

	return nil
}

const reserveForWithdrawal = `-- name: ReserveForWithdrawal
UPDATE users
SET balance_withdraw = balance_withdraw - $1, balance = balance - $1
WHERE id = $2 AND balance_withdraw >= $1`

func (r *LedgerRepo) ReserveForWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return r.debit(ctx, reserveForWithdrawal, userID, amount)
}

const releaseWithdrawalReservation = `-- name: ReleaseWithdrawalReservation
UPDATE users
SET balance_withdraw = balance_withdraw + $1, balance = balance + $1
WHERE id = $2`

func (r *LedgerRepo) ReleaseWithdrawalReservation(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return r.credit(ctx, releaseWithdrawalReservation, userID, amount)
}

const creditRecharge = `-- name: CreditRecharge
UPDATE users
SET balance_recharge = balance_recharge + $1, balance = balance + $1
WHERE id = $2`

func (r *LedgerRepo) CreditRecharge(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return r.credit(ctx, creditRecharge, userID, amount)
}

// The principal becomes an investment position, it does not leave the
// account: balance stays untouched
const debitRecharge = `-- name: DebitRecharge
UPDATE users
SET balance_recharge = balance_recharge - $1
WHERE id = $2 AND balance_recharge >= $1`

func (r *LedgerRepo) DebitRecharge(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return r.debit(ctx, debitRecharge, userID, amount)
}

const creditEarning = `-- name: CreditEarning
UPDATE users
SET balance_withdraw = balance_withdraw + $1, balance = balance + $1
WHERE id = $2`

func (r *LedgerRepo) CreditEarning(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return r.credit(ctx, creditEarning, userID, amount)
}

// Commissions are withdrawable, so they land in the same buckets as earnings
const creditCommission = `-- name: CreditCommission
UPDATE users
SET balance_withdraw = balance_withdraw + $1, balance = balance + $1
WHERE id = $2`

func (r *LedgerRepo) CreditCommission(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return r.credit(ctx, creditCommission, userID, amount)
}

func (r *LedgerRepo) credit(ctx context.Context, sql string, userID uuid.UUID, amount decimal.Decimal) error {
	tag, err := r.DB.Exec(ctx, sql, amount, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

func (r *LedgerRepo) debit(ctx context.Context, sql string, userID uuid.UUID, amount decimal.Decimal) error {
	tag, err := r.DB.Exec(ctx, sql, amount, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() != 0 {
		return nil
	}

	// Zero rows: either no such user or the balance check failed
	var exists bool
	err = r.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return apperrors.ErrUserNotFound
	}

	return apperrors.ErrInsufficientFunds
}

func pgxCollectIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (uuid.UUID, error) {
		var id uuid.UUID
		err := row.Scan(&id)
		return id, err
	})
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
