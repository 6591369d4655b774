package withdrawal

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
	"github.com/lsoares/investa/internal/repository/postgres"
	"github.com/lsoares/investa/internal/service/auth"
	"github.com/lsoares/investa/internal/testutil"
)

func Test_Withdrawal(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	cfg := Config{
		FeeRate:   decimal.NewFromFloat(0.05),
		MinAmount: decimal.NewFromInt(50),
	}

	inTx := func(t *testing.T, fn func(s *WithdrawalService, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(NewService(cfg, storage, nil), storage)
		})
	}

	// Registered user with a linked account and the given withdrawable funds
	fundedUser := func(t *testing.T, storage repository.Storage, funds decimal.Decimal) models.User {
		t.Helper()

		authSvc, err := auth.NewService(auth.Config{SecretKey: "test-secret-key"}, storage)
		require.NoError(t, err)

		user, _, err := authSvc.Register(t.Context(), auth.RegisterParams{
			Username: "withdrawer", Password: "password123", TxPassword: "tx-secret",
		})
		require.NoError(t, err)

		err = storage.User().SetLinkedAccount(t.Context(), user.ID, models.LinkedAccount{
			BankName: "Banco do Brasil", AccountNumber: "12345-6", Holder: "Maria Silva",
		})
		require.NoError(t, err)

		if funds.IsPositive() {
			require.NoError(t, storage.Ledger().CreditEarning(t.Context(), user.ID, funds))
		}
		return user
	}

	balances := func(t *testing.T, storage repository.Storage, userID uuid.UUID) models.User {
		t.Helper()
		user, err := storage.User().GetUserByID(t.Context(), userID)
		require.NoError(t, err)
		return user
	}

	t.Run("Request", func(t *testing.T) {
		t.Run("reserves the amount right away", func(t *testing.T) {
			inTx(t, func(s *WithdrawalService, storage repository.Storage) {
				user := fundedUser(t, storage, decimal.NewFromInt(500))

				withdrawal, err := s.Request(t.Context(), user.ID, decimal.NewFromInt(100), "tx-secret")

				require.NoError(t, err)
				require.Equal(t, models.WithdrawalPending, withdrawal.Status)
				require.True(t, withdrawal.RequestedAmount.Equal(decimal.NewFromInt(100)))
				require.True(t, withdrawal.Fee.Equal(decimal.NewFromInt(5)), "5 percent fee")
				require.True(t, withdrawal.NetAmount.Equal(decimal.NewFromInt(95)))
				require.Equal(t, "12345-6", withdrawal.AccountNumber)

				fresh := balances(t, storage, user.ID)
				require.True(t, fresh.Balance.Equal(decimal.NewFromInt(400)))
				require.True(t, fresh.BalanceWithdraw.Equal(decimal.NewFromInt(400)))
			})
		})

		t.Run("validations", func(t *testing.T) {
			inTx(t, func(s *WithdrawalService, storage repository.Storage) {
				user := fundedUser(t, storage, decimal.NewFromInt(500))

				tests := []struct {
					name       string
					amount     decimal.Decimal
					txPassword string
					wantErr    error
				}{
					{"negative amount", decimal.NewFromInt(-10), "tx-secret", apperrors.ErrInvalidAmount},
					{"zero amount", decimal.Zero, "tx-secret", apperrors.ErrInvalidAmount},
					{"below minimum", decimal.NewFromInt(49), "tx-secret", apperrors.ErrAmountBelowMinimum},
					{"wrong tx password", decimal.NewFromInt(100), "wrong", apperrors.ErrBadCredentials},
					{"more than available", decimal.NewFromInt(501), "tx-secret", apperrors.ErrInsufficientFunds},
				}

				for _, tc := range tests {
					t.Run(tc.name, func(t *testing.T) {
						_, err := s.Request(t.Context(), user.ID, tc.amount, tc.txPassword)
						require.ErrorIs(t, err, tc.wantErr)
					})
				}

				fresh := balances(t, storage, user.ID)
				require.True(t, fresh.Balance.Equal(decimal.NewFromInt(500)), "failed requests hold nothing")
			})
		})

		t.Run("linked account required", func(t *testing.T) {
			inTx(t, func(s *WithdrawalService, storage repository.Storage) {
				authSvc, err := auth.NewService(auth.Config{SecretKey: "test-secret-key"}, storage)
				require.NoError(t, err)
				user, _, err := authSvc.Register(t.Context(), auth.RegisterParams{
					Username: "unlinked", Password: "password123", TxPassword: "tx-secret",
				})
				require.NoError(t, err)
				require.NoError(t, storage.Ledger().CreditEarning(t.Context(), user.ID, decimal.NewFromInt(500)))

				_, err = s.Request(t.Context(), user.ID, decimal.NewFromInt(100), "tx-secret")
				require.ErrorIs(t, err, apperrors.ErrNoLinkedAccount)
			})
		})
	})

	t.Run("concurrent requests never over-reserve", func(t *testing.T) {
		// Racing transactions have to be real separate transactions, so
		// this subtest commits over the pool and cleans up after itself
		storage := postgres.NewStorage(pg.Pool)
		s := NewService(cfg, storage, nil)
		t.Cleanup(func() { testutil.TruncateAll(t, pg.Pool) })

		user := fundedUser(t, storage, decimal.NewFromInt(500))

		const attempts = 4
		results := make(chan error, attempts)

		var wg sync.WaitGroup
		for range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Request(t.Context(), user.ID, decimal.NewFromInt(200), "tx-secret")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var granted, refused int
		for err := range results {
			switch {
			case err == nil:
				granted++
			case errors.Is(err, apperrors.ErrInsufficientFunds):
				refused++
			default:
				require.NoError(t, err, "unexpected error from racing request")
			}
		}
		require.Equal(t, 2, granted, "only two 200 reservations fit in 500")
		require.Equal(t, attempts-2, refused)

		fresh := balances(t, storage, user.ID)
		require.True(t, fresh.Balance.Equal(decimal.NewFromInt(100)))
		require.True(t, fresh.BalanceWithdraw.Equal(decimal.NewFromInt(100)))

		pending, err := s.ListPending(t.Context())
		require.NoError(t, err)
		require.Len(t, pending, 2)
	})

	t.Run("Decide", func(t *testing.T) {
		t.Run("approval keeps the debit and grants a post credit", func(t *testing.T) {
			inTx(t, func(s *WithdrawalService, storage repository.Storage) {
				user := fundedUser(t, storage, decimal.NewFromInt(500))
				withdrawal, err := s.Request(t.Context(), user.ID, decimal.NewFromInt(100), "tx-secret")
				require.NoError(t, err)

				decided, err := s.Decide(t.Context(), withdrawal.ID, true)

				require.NoError(t, err)
				require.Equal(t, models.WithdrawalApproved, decided.Status)

				fresh := balances(t, storage, user.ID)
				require.True(t, fresh.Balance.Equal(decimal.NewFromInt(400)))
				require.Equal(t, 1, fresh.PostCredits)
			})
		})

		t.Run("rejection releases exactly the requested amount", func(t *testing.T) {
			inTx(t, func(s *WithdrawalService, storage repository.Storage) {
				user := fundedUser(t, storage, decimal.NewFromInt(500))
				withdrawal, err := s.Request(t.Context(), user.ID, decimal.NewFromInt(100), "tx-secret")
				require.NoError(t, err)

				decided, err := s.Decide(t.Context(), withdrawal.ID, false)

				require.NoError(t, err)
				require.Equal(t, models.WithdrawalRejected, decided.Status)

				fresh := balances(t, storage, user.ID)
				require.True(t, fresh.Balance.Equal(decimal.NewFromInt(500)), "back to where it started")
				require.True(t, fresh.BalanceWithdraw.Equal(decimal.NewFromInt(500)))
				require.Equal(t, 0, fresh.PostCredits)
			})
		})

		t.Run("second decision fails and changes nothing", func(t *testing.T) {
			inTx(t, func(s *WithdrawalService, storage repository.Storage) {
				user := fundedUser(t, storage, decimal.NewFromInt(500))
				withdrawal, err := s.Request(t.Context(), user.ID, decimal.NewFromInt(100), "tx-secret")
				require.NoError(t, err)

				_, err = s.Decide(t.Context(), withdrawal.ID, false)
				require.NoError(t, err)

				_, err = s.Decide(t.Context(), withdrawal.ID, true)
				require.ErrorIs(t, err, apperrors.ErrAlreadyProcessed)

				fresh := balances(t, storage, user.ID)
				require.True(t, fresh.Balance.Equal(decimal.NewFromInt(500)), "rejection stands")
				require.Equal(t, 0, fresh.PostCredits)
			})
		})

		t.Run("unknown withdrawal", func(t *testing.T) {
			inTx(t, func(s *WithdrawalService, _ repository.Storage) {
				_, err := s.Decide(t.Context(), uuid.New(), true)
				require.ErrorIs(t, err, apperrors.ErrWithdrawalNotFound)
			})
		})
	})

	t.Run("History and pending queue", func(t *testing.T) {
		inTx(t, func(s *WithdrawalService, storage repository.Storage) {
			user := fundedUser(t, storage, decimal.NewFromInt(500))

			first, err := s.Request(t.Context(), user.ID, decimal.NewFromInt(100), "tx-secret")
			require.NoError(t, err)
			_, err = s.Request(t.Context(), user.ID, decimal.NewFromInt(100), "tx-secret")
			require.NoError(t, err)

			_, err = s.Decide(t.Context(), first.ID, true)
			require.NoError(t, err)

			history, err := s.History(t.Context(), user.ID)
			require.NoError(t, err)
			require.Len(t, history, 2)

			pending, err := s.ListPending(t.Context())
			require.NoError(t, err)
			require.Len(t, pending, 1)
		})
	})
}
