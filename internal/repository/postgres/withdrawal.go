package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
)

type WithdrawalRepo struct {
	DB DBTX
}

const withdrawalColumns = `id, user_id, requested_amount, fee, net_amount, status, account_number, created_at`

const createWithdrawal = `-- name: CreateWithdrawal
INSERT INTO withdrawals (id, user_id, requested_amount, fee, net_amount, status, account_number)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + withdrawalColumns

func (r *WithdrawalRepo) CreateWithdrawal(ctx context.Context, arg repository.CreateWithdrawalParams) (models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, createWithdrawal,
		uuid.New(), arg.UserID, arg.RequestedAmount, arg.Fee, arg.NetAmount,
		models.WithdrawalPending, arg.AccountNumber)
	withdrawal, err := pgx.CollectOneRow(rows, rowToWithdrawal)
	if err != nil {
		return withdrawal, fmt.Errorf("db error: %w", err)
	}

	return withdrawal, nil
}

const getWithdrawal = `-- name: GetWithdrawal
SELECT ` + withdrawalColumns + ` FROM withdrawals
WHERE id = $1`

func (r *WithdrawalRepo) GetWithdrawal(ctx context.Context, id uuid.UUID) (models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, getWithdrawal, id)
	withdrawal, err := pgx.CollectOneRow(rows, rowToWithdrawal)

	switch {
	case err == nil:
		return withdrawal, nil
	case errors.Is(err, pgx.ErrNoRows):
		return withdrawal, apperrors.ErrWithdrawalNotFound
	default:
		return withdrawal, fmt.Errorf("db error: %w", err)
	}
}

// One-shot status flip, same guard as deposits
const decideWithdrawal = `-- name: DecideWithdrawal
UPDATE withdrawals SET status = $1
WHERE id = $2 AND status = $3`

func (r *WithdrawalRepo) SetDecided(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.DB.Exec(ctx, decideWithdrawal, status, id, models.WithdrawalPending)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() != 0 {
		return nil
	}

	_, err = r.GetWithdrawal(ctx, id)
	if err != nil {
		return err
	}

	return apperrors.ErrAlreadyProcessed
}

const listUserWithdrawals = `-- name: ListUserWithdrawals
SELECT ` + withdrawalColumns + ` FROM withdrawals
WHERE user_id = $1
ORDER BY created_at DESC`

func (r *WithdrawalRepo) ListUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, listUserWithdrawals, userID)
	withdrawals, err := pgx.CollectRows(rows, rowToWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return withdrawals, nil
}

const listPendingWithdrawals = `-- name: ListPendingWithdrawals
SELECT ` + withdrawalColumns + ` FROM withdrawals
WHERE status = $1
ORDER BY created_at ASC`

func (r *WithdrawalRepo) ListPending(ctx context.Context) ([]models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, listPendingWithdrawals, models.WithdrawalPending)
	withdrawals, err := pgx.CollectRows(rows, rowToWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return withdrawals, nil
}

func rowToWithdrawal(row pgx.CollectableRow) (models.Withdrawal, error) {
	var w models.Withdrawal
	err := row.Scan(&w.ID, &w.UserID, &w.RequestedAmount, &w.Fee, &w.NetAmount, &w.Status, &w.AccountNumber, &w.CreatedAt)
	return w, err
}
