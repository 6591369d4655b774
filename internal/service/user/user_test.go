package user

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository/postgres"
	"github.com/lsoares/investa/internal/service/auth"
	"github.com/lsoares/investa/internal/testutil"
)

func Test_User(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(s *UserService, authSvc *auth.AuthService)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			authSvc, err := auth.NewService(auth.Config{SecretKey: "test-secret-key"}, storage)
			require.NoError(t, err, "auth service couldn't be started")

			fn(NewService(nil, storage), authSvc)
		})
	}

	account := models.LinkedAccount{
		BankName:      "Banco do Brasil",
		AccountNumber: "12345-6",
		Holder:        "Maria Silva",
	}

	t.Run("LinkAccount", func(t *testing.T) {
		t.Run("link ok", func(t *testing.T) {
			inTx(t, func(s *UserService, authSvc *auth.AuthService) {
				created, _, err := authSvc.Register(t.Context(), auth.RegisterParams{
					Username: "linker", Password: "password123", TxPassword: "tx-secret",
				})
				require.NoError(t, err)

				err = s.LinkAccount(t.Context(), created.ID, account, "tx-secret")
				require.NoError(t, err)

				user, err := s.GetUser(t.Context(), created.ID)
				require.NoError(t, err)
				require.NotNil(t, user.LinkedAccount)
				require.Equal(t, account, *user.LinkedAccount)
			})
		})

		t.Run("wrong transaction password", func(t *testing.T) {
			inTx(t, func(s *UserService, authSvc *auth.AuthService) {
				created, _, err := authSvc.Register(t.Context(), auth.RegisterParams{
					Username: "linker", Password: "password123", TxPassword: "tx-secret",
				})
				require.NoError(t, err)

				err = s.LinkAccount(t.Context(), created.ID, account, "wrong")
				require.ErrorIs(t, err, apperrors.ErrBadCredentials)

				user, err := s.GetUser(t.Context(), created.ID)
				require.NoError(t, err)
				require.Nil(t, user.LinkedAccount, "account must not be stored")
			})
		})

		t.Run("unknown user", func(t *testing.T) {
			inTx(t, func(s *UserService, _ *auth.AuthService) {
				err := s.LinkAccount(t.Context(), uuid.New(), account, "tx-secret")
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("ListUsers", func(t *testing.T) {
		inTx(t, func(s *UserService, authSvc *auth.AuthService) {
			for _, name := range []string{"first", "second"} {
				_, _, err := authSvc.Register(t.Context(), auth.RegisterParams{
					Username: name, Password: "password123", TxPassword: "tx-secret",
				})
				require.NoError(t, err)
			}

			users, err := s.ListUsers(t.Context())
			require.NoError(t, err)
			require.Len(t, users, 2)
		})
	})
}
