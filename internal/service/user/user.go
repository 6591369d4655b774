package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
	"github.com/lsoares/investa/internal/service/auth"
)

type UserService struct {
	hasher  auth.PasswordHasher
	storage repository.Storage
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &UserService{
		hasher:  hasher,
		storage: storage,
	}
}

func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

// LinkAccount binds the payout destination to the user profile.
// The transaction password must match before the account is stored
func (s *UserService) LinkAccount(ctx context.Context, userID uuid.UUID, account models.LinkedAccount, txPassword string) error {
	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.TxPasswordHash, txPassword); err != nil {
		return apperrors.ErrBadCredentials
	}

	return s.storage.User().SetLinkedAccount(ctx, userID, account)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.storage.User().ListUsers(ctx)
}
