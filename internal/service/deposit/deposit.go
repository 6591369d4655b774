package deposit

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/logger"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
)

// Share of an approved deposit paid to the depositor's referrer
var defaultCommissionRate = decimal.NewFromFloat(0.10)

type DepositService struct {
	storage        repository.Storage
	commissionRate decimal.Decimal
	logger         logger.Logger
}

func NewService(storage repository.Storage, commissionRate decimal.Decimal, l logger.Logger) *DepositService {
	if commissionRate.IsZero() {
		commissionRate = defaultCommissionRate
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &DepositService{
		storage:        storage,
		commissionRate: commissionRate,
		logger:         l,
	}
}

// Submit creates a pending deposit. No balance is touched until an admin
// approves it
func (s *DepositService) Submit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, receiptRef string) (models.Deposit, error) {
	var deposit models.Deposit

	if !amount.IsPositive() {
		return deposit, apperrors.ErrInvalidAmount
	}

	if _, err := s.storage.User().GetUserByID(ctx, userID); err != nil {
		return deposit, err
	}

	return s.storage.Deposit().CreateDeposit(ctx, repository.CreateDepositParams{
		UserID:     userID,
		Amount:     amount,
		ReceiptRef: receiptRef,
	})
}

// Decide settles a pending deposit. Approval credits the rechargeable
// bucket and, when the owner was referred, pays the referrer commission.
// The status flip is conditional on the deposit still being pending, so a
// duplicate decision returns apperrors.ErrAlreadyProcessed and changes
// nothing
func (s *DepositService) Decide(ctx context.Context, depositID uuid.UUID, approve bool) (models.Deposit, error) {
	var deposit models.Deposit

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error
		deposit, err = st.Deposit().GetDeposit(ctx, depositID)
		if err != nil {
			return err
		}
		if deposit.Status != models.DepositPending {
			return apperrors.ErrAlreadyProcessed
		}

		owner, err := st.User().GetUserByID(ctx, deposit.UserID)
		if err != nil {
			return err
		}

		// Lock every account this decision touches up front, in one
		// ordered acquisition
		userIDs := []uuid.UUID{owner.ID}
		if approve && owner.ReferrerID != nil {
			userIDs = append(userIDs, *owner.ReferrerID)
		}
		if err := st.Ledger().LockUsers(ctx, userIDs...); err != nil {
			return err
		}

		status := models.DepositRejected
		if approve {
			status = models.DepositApproved
		}
		if err := st.Deposit().SetDecided(ctx, depositID, status); err != nil {
			return err
		}
		deposit.Status = status

		if !approve {
			// Funds were never held, nothing to revert
			return nil
		}

		if err := st.Ledger().CreditRecharge(ctx, owner.ID, deposit.Amount); err != nil {
			return err
		}

		if owner.ReferrerID != nil {
			commission := deposit.Amount.Mul(s.commissionRate).Round(2)
			if err := st.Ledger().CreditCommission(ctx, *owner.ReferrerID, commission); err != nil {
				return err
			}
			s.logger.Info("referral commission paid",
				"deposit_id", deposit.ID, "referrer_id", *owner.ReferrerID, "amount", commission)
		}

		return nil
	})
	if err != nil {
		return models.Deposit{}, err
	}

	s.logger.Info("deposit decided", "deposit_id", deposit.ID, "status", deposit.Status)
	return deposit, nil
}

func (s *DepositService) History(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error) {
	return s.storage.Deposit().ListUserDeposits(ctx, userID)
}

func (s *DepositService) ListPending(ctx context.Context) ([]models.Deposit, error) {
	return s.storage.Deposit().ListPending(ctx)
}
