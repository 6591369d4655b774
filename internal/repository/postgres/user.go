package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, created_at, username, password_hash, tx_password_hash,
	referral_code, referrer_id, is_admin, post_credits,
	balance, balance_recharge, balance_withdraw,
	linked_account_bank_name, linked_account_number, linked_account_holder`

const createUser = `-- name: CreateUser
INSERT INTO users (id, username, password_hash, tx_password_hash, referral_code, referrer_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser,
		uuid.New(), arg.Username, arg.PasswordHash, arg.TxPasswordHash, arg.ReferralCode, arg.ReferrerID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return user, apperrors.ErrUserAlreadyExists
		}
		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	return collectUser(rows)
}

const getUserByUsername = `-- name: GetUserByUsername
SELECT ` + userColumns + ` FROM users
WHERE username = $1`

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByUsername, username)
	return collectUser(rows)
}

const getUserByReferralCode = `-- name: GetUserByReferralCode
SELECT ` + userColumns + ` FROM users
WHERE referral_code = $1`

func (r *UserRepo) GetUserByReferralCode(ctx context.Context, code string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByReferralCode, code)
	return collectUser(rows)
}

const setLinkedAccount = `-- name: SetLinkedAccount
UPDATE users SET
	linked_account_bank_name = $1,
	linked_account_number = $2,
	linked_account_holder = $3
WHERE id = $4`

func (r *UserRepo) SetLinkedAccount(ctx context.Context, userID uuid.UUID, account models.LinkedAccount) error {
	tag, err := r.DB.Exec(ctx, setLinkedAccount, account.BankName, account.AccountNumber, account.Holder, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

const addPostCredit = `-- name: AddPostCredit
UPDATE users SET post_credits = post_credits + 1
WHERE id = $1`

func (r *UserRepo) AddPostCredit(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, addPostCredit, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

const listUsers = `-- name: ListUsers
SELECT ` + userColumns + ` FROM users
ORDER BY username ASC`

func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listUsers)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	var bankName, accountNumber, holder *string

	err := row.Scan(
		&u.ID, &u.CreatedAt, &u.Username, &u.PasswordHash, &u.TxPasswordHash,
		&u.ReferralCode, &u.ReferrerID, &u.IsAdmin, &u.PostCredits,
		&u.Balance, &u.BalanceRecharge, &u.BalanceWithdraw,
		&bankName, &accountNumber, &holder,
	)
	if err != nil {
		return u, err
	}

	if accountNumber != nil {
		u.LinkedAccount = &models.LinkedAccount{
			BankName:      deref(bankName),
			AccountNumber: *accountNumber,
			Holder:        deref(holder),
		}
	}

	return u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
