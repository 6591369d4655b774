package withdrawal

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/logger"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
	"github.com/lsoares/investa/internal/service/auth"
)

var defaultFeeRate = decimal.NewFromFloat(0.05)

type Config struct {
	// Fee charged on every withdrawal, share of the requested amount.
	// Default 5%
	FeeRate decimal.Decimal

	// Smallest withdrawal a user may request, zero disables the check
	MinAmount decimal.Decimal

	Hasher auth.PasswordHasher
}

type WithdrawalService struct {
	storage   repository.Storage
	hasher    auth.PasswordHasher
	feeRate   decimal.Decimal
	minAmount decimal.Decimal
	logger    logger.Logger
}

func NewService(cfg Config, storage repository.Storage, l logger.Logger) *WithdrawalService {
	if cfg.Hasher == nil {
		cfg.Hasher = auth.DefaultHasher
	}
	if cfg.FeeRate.IsZero() {
		cfg.FeeRate = defaultFeeRate
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &WithdrawalService{
		storage:   storage,
		hasher:    cfg.Hasher,
		feeRate:   cfg.FeeRate,
		minAmount: cfg.MinAmount,
		logger:    l,
	}
}

// Request reserves the requested amount right away: the withdrawable
// bucket is debited before any admin looks at the request. Rejection is
// the only path that puts the money back
func (s *WithdrawalService) Request(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txPassword string) (models.Withdrawal, error) {
	var withdrawal models.Withdrawal

	if !amount.IsPositive() {
		return withdrawal, apperrors.ErrInvalidAmount
	}
	if amount.LessThan(s.minAmount) {
		return withdrawal, apperrors.ErrAmountBelowMinimum
	}

	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return withdrawal, err
	}

	// bcrypt comparison stays outside the transaction, it is slow on purpose
	if err := s.hasher.Compare(user.TxPasswordHash, txPassword); err != nil {
		return withdrawal, apperrors.ErrBadCredentials
	}

	if !user.HasLinkedAccount() {
		return withdrawal, apperrors.ErrNoLinkedAccount
	}

	fee := amount.Mul(s.feeRate).Round(2)
	net := amount.Sub(fee)

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		if err := st.Ledger().LockUsers(ctx, userID); err != nil {
			return err
		}

		if err := st.Ledger().ReserveForWithdrawal(ctx, userID, amount); err != nil {
			return err
		}

		var err error
		withdrawal, err = st.Withdrawal().CreateWithdrawal(ctx, repository.CreateWithdrawalParams{
			UserID:          userID,
			RequestedAmount: amount,
			Fee:             fee,
			NetAmount:       net,
			AccountNumber:   user.LinkedAccount.AccountNumber,
		})
		return err
	})
	if err != nil {
		return models.Withdrawal{}, err
	}

	s.logger.Info("withdrawal requested",
		"withdrawal_id", withdrawal.ID, "user_id", userID, "amount", amount, "fee", fee)
	return withdrawal, nil
}

// Decide settles a pending withdrawal. Approval has no balance effect
// (the reservation already happened at request time) and grants the
// one-post blog entitlement. Rejection releases exactly the requested
// amount back. One-shot: a second decision fails with ErrAlreadyProcessed
func (s *WithdrawalService) Decide(ctx context.Context, withdrawalID uuid.UUID, approve bool) (models.Withdrawal, error) {
	var withdrawal models.Withdrawal

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error
		withdrawal, err = st.Withdrawal().GetWithdrawal(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal.Status != models.WithdrawalPending {
			return apperrors.ErrAlreadyProcessed
		}

		if err := st.Ledger().LockUsers(ctx, withdrawal.UserID); err != nil {
			return err
		}

		status := models.WithdrawalRejected
		if approve {
			status = models.WithdrawalApproved
		}
		if err := st.Withdrawal().SetDecided(ctx, withdrawalID, status); err != nil {
			return err
		}
		withdrawal.Status = status

		if approve {
			return st.User().AddPostCredit(ctx, withdrawal.UserID)
		}

		return st.Ledger().ReleaseWithdrawalReservation(ctx, withdrawal.UserID, withdrawal.RequestedAmount)
	})
	if err != nil {
		return models.Withdrawal{}, err
	}

	s.logger.Info("withdrawal decided", "withdrawal_id", withdrawal.ID, "status", withdrawal.Status)
	return withdrawal, nil
}

func (s *WithdrawalService) History(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	return s.storage.Withdrawal().ListUserWithdrawals(ctx, userID)
}

func (s *WithdrawalService) ListPending(ctx context.Context) ([]models.Withdrawal, error) {
	return s.storage.Withdrawal().ListPending(ctx)
}
