package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/handlers/render"
	"github.com/lsoares/investa/internal/handlers/userctx"
	"github.com/lsoares/investa/internal/logger"
	"github.com/lsoares/investa/internal/models"
)

type packageResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category"`
	MinAmount    float64   `json:"min_amount"`
	MaxAmount    float64   `json:"max_amount"`
	DailyRate    float64   `json:"daily_rate"`
	DurationDays int       `json:"duration_days"`
	Status       string    `json:"status"`
}

func packageToResponse(p models.Package) packageResponse {
	minAmount, _ := p.MinAmount.Float64()
	maxAmount, _ := p.MaxAmount.Float64()
	rate, _ := p.DailyRate.Float64()
	return packageResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		MinAmount:    minAmount,
		MaxAmount:    maxAmount,
		DailyRate:    rate,
		DurationDays: p.DurationDays,
		Status:       p.Status,
	}
}

type investmentResponse struct {
	ID            uuid.UUID  `json:"id"`
	PackageID     uuid.UUID  `json:"package_id"`
	PackageName   string     `json:"package_name,omitempty"`
	Amount        float64    `json:"amount"`
	DailyEarning  float64    `json:"daily_earning"`
	DurationDays  int        `json:"duration_days"`
	DaysRemaining int        `json:"days_remaining"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	LastAccrualAt *time.Time `json:"last_accrual_at,omitempty"`
}

func investmentToResponse(inv models.Investment) investmentResponse {
	amount, _ := inv.Amount.Float64()
	daily, _ := inv.DailyEarning.Float64()
	return investmentResponse{
		ID:            inv.ID,
		PackageID:     inv.PackageID,
		PackageName:   inv.PackageName,
		Amount:        amount,
		DailyEarning:  daily,
		DurationDays:  inv.DurationDays,
		DaysRemaining: inv.DaysRemaining,
		Status:        inv.Status,
		CreatedAt:     inv.CreatedAt,
		LastAccrualAt: inv.LastAccrualAt,
	}
}

func handleListPackages(investmentService investmentService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		packages, err := investmentService.ListPackages(r.Context(), true)
		if err != nil {
			l.Error("Failed to list packages", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]packageResponse, 0, len(packages))
		for _, p := range packages {
			out = append(out, packageToResponse(p))
		}
		render.JSON(w, out)
	})
}

func handleOpenInvestment(investmentService investmentService, l logger.Logger) http.Handler {
	type request struct {
		PackageID uuid.UUID       `json:"package_id" validate:"required"`
		Amount    decimal.Decimal `json:"amount" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		investment, err := investmentService.Open(r.Context(), user.ID, data.PackageID, data.Amount)

		switch {
		case err == nil:
			render.JSONWithStatus(w, investmentToResponse(investment), http.StatusCreated)
		case errors.Is(err, apperrors.ErrPackageNotFound):
			render.ServiceError(w, "Package not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrPackageInactive):
			render.ServiceError(w, "Package is not available", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrInvalidAmount), errors.Is(err, apperrors.ErrAmountOutOfRange):
			render.ServiceError(w, "Amount outside package limits", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrAlreadyPurchased):
			render.ServiceError(w, "Package already purchased", http.StatusConflict)
		case errors.Is(err, apperrors.ErrMissingPrerequisite):
			render.ServiceError(w, "Requires an active long term position", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrInsufficientFunds):
			render.ServiceError(w, "Insufficient balance", http.StatusPaymentRequired)
		default:
			l.Error("Failed to open investment", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleActiveInvestments(investmentService investmentService, l logger.Logger) http.Handler {
	return listInvestments(investmentService.ListActive, l)
}

func handleInvestmentHistory(investmentService investmentService, l logger.Logger) http.Handler {
	return listInvestments(investmentService.History, l)
}

func listInvestments(list func(ctx context.Context, userID uuid.UUID) ([]models.Investment, error), l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		investments, err := list(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to list investments", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]investmentResponse, 0, len(investments))
		for _, inv := range investments {
			out = append(out, investmentToResponse(inv))
		}
		render.JSON(w, out)
	})
}

func handleInvestmentEarnings(investmentService investmentService, l logger.Logger) http.Handler {
	type earningResponse struct {
		DayNumber  int       `json:"day_number"`
		Amount     float64   `json:"amount"`
		CreditedAt time.Time `json:"credited_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid investment id", http.StatusBadRequest)
			return
		}

		earnings, err := investmentService.ListEarnings(r.Context(), user.ID, id)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrInvestmentNotFound):
			render.ServiceError(w, "Investment not found", http.StatusNotFound)
			return
		default:
			l.Error("Failed to list earnings", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]earningResponse, 0, len(earnings))
		for _, e := range earnings {
			amount, _ := e.Amount.Float64()
			out = append(out, earningResponse{
				DayNumber:  e.DayNumber,
				Amount:     amount,
				CreditedAt: e.CreditedAt,
			})
		}
		render.JSON(w, out)
	})
}
