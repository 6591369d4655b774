package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lsoares/investa/internal/handlers/middleware"
	"github.com/lsoares/investa/internal/logger"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
	"github.com/lsoares/investa/internal/service/auth"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	userService userService,
	depositService depositService,
	withdrawalService withdrawalService,
	investmentService investmentService,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	adminMiddleware := middleware.AdminMiddleware()

	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}
	withAdmin := func(h http.Handler) http.Handler {
		return chain(h, authMiddleware, adminMiddleware)
	}

	apiuser := http.NewServeMux()

	apiuser.Handle("POST /register", handleRegister(authService, logger))
	apiuser.Handle("POST /login", handleLogin(authService, logger))

	apiuser.Handle("GET /dashboard", withAuth(handleDashboard()))
	apiuser.Handle("POST /account", withAuth(handleLinkAccount(userService, logger)))

	apiuser.Handle("POST /deposits", withAuth(handleSubmitDeposit(depositService, logger)))
	apiuser.Handle("GET /deposits", withAuth(handleDepositHistory(depositService, logger)))

	apiuser.Handle("POST /withdrawals", withAuth(handleRequestWithdrawal(withdrawalService, logger)))
	apiuser.Handle("GET /withdrawals", withAuth(handleWithdrawalHistory(withdrawalService, logger)))

	apiuser.Handle("GET /packages", withAuth(handleListPackages(investmentService, logger)))
	apiuser.Handle("POST /investments", withAuth(handleOpenInvestment(investmentService, logger)))
	apiuser.Handle("GET /investments", withAuth(handleActiveInvestments(investmentService, logger)))
	apiuser.Handle("GET /investments/history", withAuth(handleInvestmentHistory(investmentService, logger)))
	apiuser.Handle("GET /investments/{id}/earnings", withAuth(handleInvestmentEarnings(investmentService, logger)))

	apiadmin := http.NewServeMux()

	apiadmin.Handle("GET /users", withAdmin(handleListUsers(userService, logger)))
	apiadmin.Handle("GET /deposits", withAdmin(handlePendingDeposits(depositService, logger)))
	apiadmin.Handle("POST /deposits/{id}/decision", withAdmin(handleDecideDeposit(depositService, logger)))
	apiadmin.Handle("GET /withdrawals", withAdmin(handlePendingWithdrawals(withdrawalService, logger)))
	apiadmin.Handle("POST /withdrawals/{id}/decision", withAdmin(handleDecideWithdrawal(withdrawalService, logger)))
	apiadmin.Handle("GET /packages", withAdmin(handleAllPackages(investmentService, logger)))
	apiadmin.Handle("POST /packages", withAdmin(handleCreatePackage(investmentService, logger)))
	apiadmin.Handle("PUT /packages/{id}", withAdmin(handleUpdatePackage(investmentService, logger)))
	apiadmin.Handle("DELETE /packages/{id}", withAdmin(handleDeletePackage(investmentService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))
	root.Handle("/api/admin/", http.StripPrefix("/api/admin", apiadmin))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with username, password, transaction password and
	// optional referral code of the referring user
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, arg auth.RegisterParams) (models.User, string, error)

	// Login user with username and password
	// Has to return apperrors.ErrUserNotFound if user not found or password wrong
	Login(ctx context.Context, username string, password string) (models.User, string, error)

	// Get request and return user if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (models.User, error)
}

type userService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (models.User, error)
	LinkAccount(ctx context.Context, userID uuid.UUID, account models.LinkedAccount, txPassword string) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

type depositService interface {
	Submit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, receiptRef string) (models.Deposit, error)
	Decide(ctx context.Context, depositID uuid.UUID, approve bool) (models.Deposit, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error)
	ListPending(ctx context.Context) ([]models.Deposit, error)
}

type withdrawalService interface {
	Request(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txPassword string) (models.Withdrawal, error)
	Decide(ctx context.Context, withdrawalID uuid.UUID, approve bool) (models.Withdrawal, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error)
	ListPending(ctx context.Context) ([]models.Withdrawal, error)
}

type investmentService interface {
	Open(ctx context.Context, userID uuid.UUID, packageID uuid.UUID, amount decimal.Decimal) (models.Investment, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]models.Investment, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.Investment, error)
	ListEarnings(ctx context.Context, userID uuid.UUID, investmentID uuid.UUID) ([]models.Earning, error)
	CreatePackage(ctx context.Context, arg repository.CreatePackageParams) (models.Package, error)
	UpdatePackage(ctx context.Context, pkg models.Package) error
	DeletePackage(ctx context.Context, packageID uuid.UUID) error
	ListPackages(ctx context.Context, onlyActive bool) ([]models.Package, error)
}
