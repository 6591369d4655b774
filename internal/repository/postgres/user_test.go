package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
	"github.com/lsoares/investa/internal/testutil"
)

func TestUser(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			fn(NewStorage(tx))
		})
	}

	t.Run("CreateUser", func(t *testing.T) {
		t.Run("create ok", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
					Username:       "alice",
					PasswordHash:   "pwd-hash",
					TxPasswordHash: "tx-hash",
					ReferralCode:   "10042",
				})

				require.NoError(t, err)
				require.NotEmpty(t, user.ID)
				require.Equal(t, "alice", user.Username)
				require.Equal(t, "10042", user.ReferralCode)
				require.Nil(t, user.ReferrerID)
				require.False(t, user.IsAdmin)
				require.Zero(t, user.PostCredits)
				require.True(t, user.Balance.IsZero(), "balances should start at zero")
				require.True(t, user.BalanceRecharge.IsZero())
				require.True(t, user.BalanceWithdraw.IsZero())
				require.Nil(t, user.LinkedAccount, "no linked account at registration")
				require.NotZero(t, user.CreatedAt)
			})
		})

		t.Run("create with referrer", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				referrer := createTestUser(t, storage, "referrer")

				user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
					Username:       "referred",
					PasswordHash:   "pwd-hash",
					TxPasswordHash: "tx-hash",
					ReferralCode:   "20042",
					ReferrerID:     &referrer.ID,
				})

				require.NoError(t, err)
				require.NotNil(t, user.ReferrerID)
				require.Equal(t, referrer.ID, *user.ReferrerID)
			})
		})

		t.Run("duplicate username", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				createTestUser(t, storage, "duplicated")

				_, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
					Username:       "duplicated",
					PasswordHash:   "other-hash",
					TxPasswordHash: "other-tx",
					ReferralCode:   "30042",
				})

				require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
			})
		})

		t.Run("duplicate referral code", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				_, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
					Username:       "first",
					PasswordHash:   "h",
					TxPasswordHash: "h",
					ReferralCode:   "77777",
				})
				require.NoError(t, err)

				_, err = storage.User().CreateUser(t.Context(), repository.CreateUserParams{
					Username:       "second",
					PasswordHash:   "h",
					TxPasswordHash: "h",
					ReferralCode:   "77777",
				})

				require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
			})
		})
	})

	t.Run("GetUser", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			user := createTestUser(t, storage, "findme")

			t.Run("by id", func(t *testing.T) {
				got, err := storage.User().GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.Equal(t, user.ID, got.ID)
			})

			t.Run("by username", func(t *testing.T) {
				got, err := storage.User().GetUserByUsername(t.Context(), "findme")
				require.NoError(t, err)
				require.Equal(t, user.ID, got.ID)
			})

			t.Run("by referral code", func(t *testing.T) {
				got, err := storage.User().GetUserByReferralCode(t.Context(), user.ReferralCode)
				require.NoError(t, err)
				require.Equal(t, user.ID, got.ID)
			})

			t.Run("not found", func(t *testing.T) {
				_, err := storage.User().GetUserByID(t.Context(), uuid.New())
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)

				_, err = storage.User().GetUserByUsername(t.Context(), "nobody")
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)

				_, err = storage.User().GetUserByReferralCode(t.Context(), "00000")
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("SetLinkedAccount", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			user := createTestUser(t, storage, "linker")

			account := models.LinkedAccount{BankName: "Banco do Teste", AccountNumber: "0001-7", Holder: "Linker"}
			err := storage.User().SetLinkedAccount(t.Context(), user.ID, account)
			require.NoError(t, err)

			got, err := storage.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			require.NotNil(t, got.LinkedAccount)
			require.Equal(t, account, *got.LinkedAccount)
			require.True(t, got.HasLinkedAccount())

			t.Run("replace existing", func(t *testing.T) {
				err := storage.User().SetLinkedAccount(t.Context(), user.ID, models.LinkedAccount{
					BankName: "Outro Banco", AccountNumber: "9999-1", Holder: "Linker",
				})
				require.NoError(t, err)

				got, err := storage.User().GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.Equal(t, "9999-1", got.LinkedAccount.AccountNumber)
			})

			t.Run("unknown user", func(t *testing.T) {
				err := storage.User().SetLinkedAccount(t.Context(), uuid.New(), account)
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("AddPostCredit", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			user := createTestUser(t, storage, "blogger")

			require.NoError(t, storage.User().AddPostCredit(t.Context(), user.ID))
			require.NoError(t, storage.User().AddPostCredit(t.Context(), user.ID))

			got, err := storage.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			require.Equal(t, 2, got.PostCredits)

			err = storage.User().AddPostCredit(t.Context(), uuid.New())
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("ListUsers", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			createTestUser(t, storage, "list-user-1")
			createTestUser(t, storage, "list-user-2")

			users, err := storage.User().ListUsers(t.Context())
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(users), 2)
		})
	})
}
