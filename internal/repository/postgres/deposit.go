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

type DepositRepo struct {
	DB DBTX
}

const createDeposit = `-- name: CreateDeposit
INSERT INTO deposits (id, user_id, amount, status, receipt_ref)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, amount, status, receipt_ref, created_at`

func (r *DepositRepo) CreateDeposit(ctx context.Context, arg repository.CreateDepositParams) (models.Deposit, error) {
	rows, _ := r.DB.Query(ctx, createDeposit,
		uuid.New(), arg.UserID, arg.Amount, models.DepositPending, arg.ReceiptRef)
	deposit, err := pgx.CollectOneRow(rows, rowToDeposit)
	if err != nil {
		return deposit, fmt.Errorf("db error: %w", err)
	}

	return deposit, nil
}

const getDeposit = `-- name: GetDeposit
SELECT id, user_id, amount, status, receipt_ref, created_at FROM deposits
WHERE id = $1`

func (r *DepositRepo) GetDeposit(ctx context.Context, id uuid.UUID) (models.Deposit, error) {
	rows, _ := r.DB.Query(ctx, getDeposit, id)
	deposit, err := pgx.CollectOneRow(rows, rowToDeposit)

	switch {
	case err == nil:
		return deposit, nil
	case errors.Is(err, pgx.ErrNoRows):
		return deposit, apperrors.ErrDepositNotFound
	default:
		return deposit, fmt.Errorf("db error: %w", err)
	}
}

// The WHERE status = 'pending' clause makes the transition one-shot: a
// repeated decision affects zero rows and must not reapply any effect
const decideDeposit = `-- name: DecideDeposit
UPDATE deposits SET status = $1
WHERE id = $2 AND status = $3`

func (r *DepositRepo) SetDecided(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.DB.Exec(ctx, decideDeposit, status, id, models.DepositPending)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() != 0 {
		return nil
	}

	_, err = r.GetDeposit(ctx, id)
	if err != nil {
		return err
	}

	return apperrors.ErrAlreadyProcessed
}

const listUserDeposits = `-- name: ListUserDeposits
SELECT id, user_id, amount, status, receipt_ref, created_at FROM deposits
WHERE user_id = $1
ORDER BY created_at DESC`

func (r *DepositRepo) ListUserDeposits(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error) {
	rows, _ := r.DB.Query(ctx, listUserDeposits, userID)
	deposits, err := pgx.CollectRows(rows, rowToDeposit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return deposits, nil
}

const listPendingDeposits = `-- name: ListPendingDeposits
SELECT id, user_id, amount, status, receipt_ref, created_at FROM deposits
WHERE status = $1
ORDER BY created_at ASC`

func (r *DepositRepo) ListPending(ctx context.Context) ([]models.Deposit, error) {
	rows, _ := r.DB.Query(ctx, listPendingDeposits, models.DepositPending)
	deposits, err := pgx.CollectRows(rows, rowToDeposit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return deposits, nil
}

func rowToDeposit(row pgx.CollectableRow) (models.Deposit, error) {
	var d models.Deposit
	err := row.Scan(&d.ID, &d.UserID, &d.Amount, &d.Status, &d.ReceiptRef, &d.CreatedAt)
	return d, err
}
