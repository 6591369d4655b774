package auth

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
)

// How many times to retry a colliding referral code before giving up.
// With 90000 possible codes collisions stay rare for a long while
const maxReferralCodeAttempts = 10

type Config struct {
	// Secret key to sign user access token payload
	SecretKey string

	// Hasher used during registration and login
	// Defaults to bcrypt
	Hasher PasswordHasher

	// Access token lifetime, default 24h
	AccessTTL time.Duration
}

type AuthService struct {
	token   *TokenManager
	hasher  PasswordHasher
	storage repository.Storage
}

func NewService(cfg Config, storage repository.Storage) (*AuthService, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	token, err := NewTokenManager(TokenConfig{SecretKey: cfg.SecretKey, AccessTTL: cfg.AccessTTL})
	if err != nil {
		return nil, err
	}

	return &AuthService{
		token:   token,
		hasher:  hasher,
		storage: storage,
	}, nil
}

type RegisterParams struct {
	Username   string
	Password   string
	TxPassword string

	// Referral code of the referring user, optional.
	// Resolved once here and never mutated afterwards
	ReferredBy string
}

func (s *AuthService) Register(ctx context.Context, arg RegisterParams) (models.User, string, error) {
	var user models.User

	passwordHash, err := s.hasher.Hash(arg.Password)
	if err != nil {
		return user, "", fmt.Errorf("can't use this as password. Err: %w", err)
	}

	txPasswordHash, err := s.hasher.Hash(arg.TxPassword)
	if err != nil {
		return user, "", fmt.Errorf("can't use this as transaction password. Err: %w", err)
	}

	var referrer *models.User
	if arg.ReferredBy != "" {
		found, err := s.storage.User().GetUserByReferralCode(ctx, arg.ReferredBy)
		if err != nil {
			return user, "", fmt.Errorf("referral code lookup failed: %w", err)
		}
		referrer = &found
	}

	code, err := s.freeReferralCode(ctx)
	if err != nil {
		return user, "", err
	}

	params := repository.CreateUserParams{
		Username:       arg.Username,
		PasswordHash:   passwordHash,
		TxPasswordHash: txPasswordHash,
		ReferralCode:   code,
	}
	if referrer != nil {
		params.ReferrerID = &referrer.ID
	}

	user, err = s.storage.User().CreateUser(ctx, params)
	if err != nil {
		return user, "", err
	}

	access, err := s.token.Issue(user.ID)
	if err != nil {
		return user, "", err
	}

	return user, access, nil
}

func (s *AuthService) Login(ctx context.Context, username string, password string) (models.User, string, error) {
	user, err := s.storage.User().GetUserByUsername(ctx, username)
	if err != nil {
		return user, "", apperrors.ErrUserNotFound
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return user, "", apperrors.ErrUserNotFound
	}

	access, err := s.token.Issue(user.ID)
	if err != nil {
		return user, "", err
	}

	return user, access, nil
}

// Auth resolves the user from the request's bearer token
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	header := r.Header.Get("Authorization")
	access, found := strings.CutPrefix(header, "Bearer ")
	if !found || access == "" {
		return user, apperrors.ErrBadCredentials
	}

	userID, err := s.token.Parse(access)
	if err != nil {
		return user, apperrors.ErrBadCredentials
	}

	return s.storage.User().GetUserByID(ctx, userID)
}

// Five digit code like the ones users share with each other.
// Uniqueness is rechecked by the db constraint on insert anyway
func (s *AuthService) freeReferralCode(ctx context.Context) (string, error) {
	for range maxReferralCodeAttempts {
		code := fmt.Sprintf("%05d", 10000+rand.IntN(90000))

		_, err := s.storage.User().GetUserByReferralCode(ctx, code)
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			return code, nil
		case err != nil:
			return "", err
		}
	}

	return "", errors.New("could not pick a free referral code")
}
