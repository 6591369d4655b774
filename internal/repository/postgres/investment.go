package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
)

type InvestmentRepo struct {
	DB DBTX
}

const packageColumns = `id, name, description, category, min_amount, max_amount, daily_rate, duration_days, status, created_at`

const createPackage = `-- name: CreatePackage
INSERT INTO investment_packages (id, name, description, category, min_amount, max_amount, daily_rate, duration_days, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + packageColumns

func (r *InvestmentRepo) CreatePackage(ctx context.Context, arg repository.CreatePackageParams) (models.Package, error) {
	rows, _ := r.DB.Query(ctx, createPackage,
		uuid.New(), arg.Name, arg.Description, arg.Category,
		arg.MinAmount, arg.MaxAmount, arg.DailyRate, arg.DurationDays, arg.Status)
	pkg, err := pgx.CollectOneRow(rows, rowToPackage)
	if err != nil {
		return pkg, fmt.Errorf("db error: %w", err)
	}

	return pkg, nil
}

const getPackage = `-- name: GetPackage
SELECT ` + packageColumns + ` FROM investment_packages
WHERE id = $1`

func (r *InvestmentRepo) GetPackage(ctx context.Context, id uuid.UUID) (models.Package, error) {
	rows, _ := r.DB.Query(ctx, getPackage, id)
	pkg, err := pgx.CollectOneRow(rows, rowToPackage)

	switch {
	case err == nil:
		return pkg, nil
	case errors.Is(err, pgx.ErrNoRows):
		return pkg, apperrors.ErrPackageNotFound
	default:
		return pkg, fmt.Errorf("db error: %w", err)
	}
}

// Open positions keep their snapshotted rate and earning, so catalog
// edits never reach them
const updatePackage = `-- name: UpdatePackage
UPDATE investment_packages
SET name = $1, description = $2, min_amount = $3, max_amount = $4,
	daily_rate = $5, duration_days = $6, status = $7
WHERE id = $8`

func (r *InvestmentRepo) UpdatePackage(ctx context.Context, pkg models.Package) error {
	tag, err := r.DB.Exec(ctx, updatePackage,
		pkg.Name, pkg.Description, pkg.MinAmount, pkg.MaxAmount,
		pkg.DailyRate, pkg.DurationDays, pkg.Status, pkg.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPackageNotFound
	}

	return nil
}

const deletePackage = `-- name: DeletePackage
DELETE FROM investment_packages
WHERE id = $1`

// DeletePackage removes a catalog entry. Packages referenced by any
// position (open or completed, the earnings history must stay auditable)
// are refused, deactivate those instead
func (r *InvestmentRepo) DeletePackage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deletePackage, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return apperrors.ErrPackageInUse
		}
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPackageNotFound
	}

	return nil
}

const listPackages = `-- name: ListPackages
SELECT ` + packageColumns + ` FROM investment_packages
WHERE ($1 = FALSE OR status = 'active')
ORDER BY created_at DESC`

func (r *InvestmentRepo) ListPackages(ctx context.Context, onlyActive bool) ([]models.Package, error) {
	rows, _ := r.DB.Query(ctx, listPackages, onlyActive)
	packages, err := pgx.CollectRows(rows, rowToPackage)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return packages, nil
}

const investmentColumns = `i.id, i.user_id, i.package_id, i.amount, i.daily_earning,
	i.duration_days, i.days_remaining, i.status, i.created_at, i.last_accrual_at`

const createInvestment = `-- name: CreateInvestment
INSERT INTO investments (id, user_id, package_id, amount, daily_earning, duration_days, days_remaining, status)
VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
RETURNING id, user_id, package_id, amount, daily_earning, duration_days, days_remaining, status, created_at, last_accrual_at`

func (r *InvestmentRepo) CreateInvestment(ctx context.Context, arg repository.CreateInvestmentParams) (models.Investment, error) {
	rows, _ := r.DB.Query(ctx, createInvestment,
		uuid.New(), arg.UserID, arg.PackageID, arg.Amount, arg.DailyEarning,
		arg.DurationDays, models.InvestmentActive)
	investment, err := pgx.CollectOneRow(rows, rowToInvestment)
	if err != nil {
		return investment, fmt.Errorf("db error: %w", err)
	}

	return investment, nil
}

const getInvestment = `-- name: GetInvestment
SELECT ` + investmentColumns + ` FROM investments i
WHERE i.id = $1`

func (r *InvestmentRepo) GetInvestment(ctx context.Context, id uuid.UUID) (models.Investment, error) {
	rows, _ := r.DB.Query(ctx, getInvestment, id)
	investment, err := pgx.CollectOneRow(rows, rowToInvestment)

	switch {
	case err == nil:
		return investment, nil
	case errors.Is(err, pgx.ErrNoRows):
		return investment, apperrors.ErrInvestmentNotFound
	default:
		return investment, fmt.Errorf("db error: %w", err)
	}
}

const getInvestmentForUpdate = `-- name: GetInvestmentForUpdate
SELECT ` + investmentColumns + ` FROM investments i
WHERE i.id = $1
FOR UPDATE`

func (r *InvestmentRepo) GetInvestmentForUpdate(ctx context.Context, id uuid.UUID) (models.Investment, error) {
	rows, _ := r.DB.Query(ctx, getInvestmentForUpdate, id)
	investment, err := pgx.CollectOneRow(rows, rowToInvestment)

	switch {
	case err == nil:
		return investment, nil
	case errors.Is(err, pgx.ErrNoRows):
		return investment, apperrors.ErrInvestmentNotFound
	default:
		return investment, fmt.Errorf("db error: %w", err)
	}
}

const listUserInvestments = `-- name: ListUserInvestments
SELECT ` + investmentColumns + `, p.name FROM investments i
JOIN investment_packages p ON p.id = i.package_id
WHERE i.user_id = $1 AND ($2 = FALSE OR i.status = 'active')
ORDER BY i.created_at DESC`

func (r *InvestmentRepo) ListUserInvestments(ctx context.Context, userID uuid.UUID, onlyActive bool) ([]models.Investment, error) {
	rows, _ := r.DB.Query(ctx, listUserInvestments, userID, onlyActive)
	investments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Investment, error) {
		var i models.Investment
		err := row.Scan(
			&i.ID, &i.UserID, &i.PackageID, &i.Amount, &i.DailyEarning,
			&i.DurationDays, &i.DaysRemaining, &i.Status, &i.CreatedAt, &i.LastAccrualAt,
			&i.PackageName,
		)
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return investments, nil
}

const hasPurchased = `-- name: HasPurchased
SELECT EXISTS (
	SELECT 1 FROM investments
	WHERE user_id = $1 AND package_id = $2
)`

func (r *InvestmentRepo) HasPurchased(ctx context.Context, userID uuid.UUID, packageID uuid.UUID) (bool, error) {
	var purchased bool
	err := r.DB.QueryRow(ctx, hasPurchased, userID, packageID).Scan(&purchased)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return purchased, nil
}

const hasActiveLongPosition = `-- name: HasActiveLongPosition
SELECT EXISTS (
	SELECT 1 FROM investments i
	JOIN investment_packages p ON p.id = i.package_id
	WHERE i.user_id = $1 AND i.status = 'active'
		AND p.category = 'longo' AND p.name = $2
)`

func (r *InvestmentRepo) HasActiveLongPosition(ctx context.Context, userID uuid.UUID, packageName string) (bool, error) {
	var held bool
	err := r.DB.QueryRow(ctx, hasActiveLongPosition, userID, packageName).Scan(&held)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return held, nil
}

const listDueInvestments = `-- name: ListDueInvestments
SELECT id FROM investments
WHERE status = 'active' AND COALESCE(last_accrual_at, created_at) <= $1
ORDER BY COALESCE(last_accrual_at, created_at) ASC
LIMIT $2`

func (r *InvestmentRepo) ListDueInvestments(ctx context.Context, dueBefore time.Time, limit int) ([]uuid.UUID, error) {
	rows, _ := r.DB.Query(ctx, listDueInvestments, dueBefore, limit)
	ids, err := pgxCollectIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ids, nil
}

const countEarnings = `-- name: CountEarnings
SELECT COUNT(*) FROM investment_earnings
WHERE investment_id = $1`

func (r *InvestmentRepo) CountEarnings(ctx context.Context, investmentID uuid.UUID) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, countEarnings, investmentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

const insertEarning = `-- name: InsertEarning
INSERT INTO investment_earnings (id, investment_id, day_number, amount, credited_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (investment_id, day_number) DO NOTHING`

// InsertEarning reports whether the row was actually inserted. A false
// return means another run already credited this day, the caller must not
// credit the balance
func (r *InvestmentRepo) InsertEarning(ctx context.Context, earning models.Earning) (bool, error) {
	id := earning.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	tag, err := r.DB.Exec(ctx, insertEarning,
		id, earning.InvestmentID, earning.DayNumber, earning.Amount, earning.CreditedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return false, apperrors.ErrInvestmentNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected() != 0, nil
}

const listEarnings = `-- name: ListEarnings
SELECT id, investment_id, day_number, amount, credited_at FROM investment_earnings
WHERE investment_id = $1
ORDER BY day_number ASC`

func (r *InvestmentRepo) ListEarnings(ctx context.Context, investmentID uuid.UUID) ([]models.Earning, error) {
	rows, _ := r.DB.Query(ctx, listEarnings, investmentID)
	earnings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Earning, error) {
		var e models.Earning
		err := row.Scan(&e.ID, &e.InvestmentID, &e.DayNumber, &e.Amount, &e.CreditedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return earnings, nil
}

const setAccrualState = `-- name: SetAccrualState
UPDATE investments
SET days_remaining = $1, last_accrual_at = $2, status = $3
WHERE id = $4`

func (r *InvestmentRepo) SetAccrualState(ctx context.Context, id uuid.UUID, daysRemaining int, lastAccrualAt time.Time, status string) error {
	tag, err := r.DB.Exec(ctx, setAccrualState, daysRemaining, lastAccrualAt, status, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvestmentNotFound
	}

	return nil
}

func rowToPackage(row pgx.CollectableRow) (models.Package, error) {
	var p models.Package
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category,
		&p.MinAmount, &p.MaxAmount, &p.DailyRate, &p.DurationDays,
		&p.Status, &p.CreatedAt,
	)
	return p, err
}

func rowToInvestment(row pgx.CollectableRow) (models.Investment, error) {
	var i models.Investment
	err := row.Scan(
		&i.ID, &i.UserID, &i.PackageID, &i.Amount, &i.DailyEarning,
		&i.DurationDays, &i.DaysRemaining, &i.Status, &i.CreatedAt, &i.LastAccrualAt,
	)
	return i, err
}
