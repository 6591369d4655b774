package investment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/logger"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
)

var hundred = decimal.NewFromInt(100)

type InvestmentService struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewService(storage repository.Storage, l logger.Logger) *InvestmentService {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &InvestmentService{
		storage: storage,
		logger:  l,
	}
}

// Open purchases a package position. The daily earning is snapshotted
// here (principal × rate, rounded to cents) so later package edits never
// change what an open position pays.
//
// Short-term packages carry two extra rules: a user may buy a given
// short-term package only once ever, and must currently hold an active
// long-term position of the matching base package (name with the VIP
// suffix stripped)
func (s *InvestmentService) Open(ctx context.Context, userID uuid.UUID, packageID uuid.UUID, amount decimal.Decimal) (models.Investment, error) {
	var investment models.Investment

	if !amount.IsPositive() {
		return investment, apperrors.ErrInvalidAmount
	}

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		pkg, err := st.Investment().GetPackage(ctx, packageID)
		if err != nil {
			return err
		}

		if pkg.Status != models.PackageActive {
			return apperrors.ErrPackageInactive
		}
		if amount.LessThan(pkg.MinAmount) || amount.GreaterThan(pkg.MaxAmount) {
			return apperrors.ErrAmountOutOfRange
		}

		// The eligibility reads below must run under the user row lock:
		// a concurrent open by the same user commits its position before
		// this transaction gets to read, so the once-ever check holds
		if err := st.Ledger().LockUsers(ctx, userID); err != nil {
			return err
		}

		if pkg.Category == models.PackageShortTerm {
			purchased, err := st.Investment().HasPurchased(ctx, userID, packageID)
			if err != nil {
				return err
			}
			if purchased {
				return apperrors.ErrAlreadyPurchased
			}

			held, err := st.Investment().HasActiveLongPosition(ctx, userID, pkg.BaseName())
			if err != nil {
				return err
			}
			if !held {
				return apperrors.ErrMissingPrerequisite
			}
		}

		if err := st.Ledger().DebitRecharge(ctx, userID, amount); err != nil {
			return err
		}

		dailyEarning := amount.Mul(pkg.DailyRate).Div(hundred).Round(2)

		investment, err = st.Investment().CreateInvestment(ctx, repository.CreateInvestmentParams{
			UserID:       userID,
			PackageID:    packageID,
			Amount:       amount,
			DailyEarning: dailyEarning,
			DurationDays: pkg.DurationDays,
		})
		return err
	})
	if err != nil {
		return models.Investment{}, err
	}

	s.logger.Info("investment opened",
		"investment_id", investment.ID, "user_id", userID, "package_id", packageID, "amount", amount)
	return investment, nil
}

func (s *InvestmentService) ListActive(ctx context.Context, userID uuid.UUID) ([]models.Investment, error) {
	return s.storage.Investment().ListUserInvestments(ctx, userID, true)
}

func (s *InvestmentService) History(ctx context.Context, userID uuid.UUID) ([]models.Investment, error) {
	return s.storage.Investment().ListUserInvestments(ctx, userID, false)
}

// ListEarnings returns the credited days of one position. Other users'
// positions are reported as not found
func (s *InvestmentService) ListEarnings(ctx context.Context, userID uuid.UUID, investmentID uuid.UUID) ([]models.Earning, error) {
	inv, err := s.storage.Investment().GetInvestment(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, apperrors.ErrInvestmentNotFound
	}

	return s.storage.Investment().ListEarnings(ctx, investmentID)
}

// Catalog management, admin only. Updates never reach open positions
func (s *InvestmentService) CreatePackage(ctx context.Context, arg repository.CreatePackageParams) (models.Package, error) {
	if arg.Status == "" {
		arg.Status = models.PackageActive
	}
	return s.storage.Investment().CreatePackage(ctx, arg)
}

func (s *InvestmentService) UpdatePackage(ctx context.Context, pkg models.Package) error {
	return s.storage.Investment().UpdatePackage(ctx, pkg)
}

// DeletePackage removes a catalog entry nobody ever invested in.
// Referenced packages are refused, deactivate them instead
func (s *InvestmentService) DeletePackage(ctx context.Context, packageID uuid.UUID) error {
	return s.storage.Investment().DeletePackage(ctx, packageID)
}

func (s *InvestmentService) ListPackages(ctx context.Context, onlyActive bool) ([]models.Package, error) {
	return s.storage.Investment().ListPackages(ctx, onlyActive)
}
