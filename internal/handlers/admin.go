package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/handlers/render"
	"github.com/lsoares/investa/internal/logger"
	"github.com/lsoares/investa/internal/models"
	"github.com/lsoares/investa/internal/repository"
)

func handleListUsers(userService userService, l logger.Logger) http.Handler {
	type response struct {
		ID              uuid.UUID              `json:"id"`
		Username        string                 `json:"username"`
		ReferralCode    string                 `json:"referral_code"`
		ReferrerID      *uuid.UUID             `json:"referrer_id,omitempty"`
		Balance         float64                `json:"balance"`
		BalanceRecharge float64                `json:"balance_recharge"`
		BalanceWithdraw float64                `json:"balance_withdraw"`
		PostCredits     int                    `json:"post_credits"`
		IsAdmin         bool                   `json:"is_admin"`
		CreatedAt       time.Time              `json:"created_at"`
		LinkedAccount   *linkedAccountResponse `json:"linked_account,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		users, err := userService.ListUsers(r.Context())
		if err != nil {
			l.Error("Failed to list users", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]response, 0, len(users))
		for _, u := range users {
			balance, _ := u.Balance.Float64()
			recharge, _ := u.BalanceRecharge.Float64()
			withdraw, _ := u.BalanceWithdraw.Float64()
			out = append(out, response{
				ID:              u.ID,
				Username:        u.Username,
				ReferralCode:    u.ReferralCode,
				ReferrerID:      u.ReferrerID,
				Balance:         balance,
				BalanceRecharge: recharge,
				BalanceWithdraw: withdraw,
				PostCredits:     u.PostCredits,
				IsAdmin:         u.IsAdmin,
				CreatedAt:       u.CreatedAt,
				LinkedAccount:   linkedAccount(u.LinkedAccount),
			})
		}
		render.JSON(w, out)
	})
}

type decisionRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

func handlePendingDeposits(depositService depositService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deposits, err := depositService.ListPending(r.Context())
		if err != nil {
			l.Error("Failed to list pending deposits", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]depositResponse, 0, len(deposits))
		for _, d := range deposits {
			out = append(out, depositToResponse(d))
		}
		render.JSON(w, out)
	})
}

func handleDecideDeposit(depositService depositService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid deposit id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[decisionRequest](w, r)
		if err != nil {
			return
		}

		deposit, err := depositService.Decide(r.Context(), id, *data.Approve)

		switch {
		case err == nil:
			render.JSON(w, depositToResponse(deposit))
		case errors.Is(err, apperrors.ErrDepositNotFound):
			render.ServiceError(w, "Deposit not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrAlreadyProcessed):
			render.ServiceError(w, "Deposit already processed", http.StatusConflict)
		default:
			l.Error("Failed to decide deposit", "error", err, "deposit_id", id)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handlePendingWithdrawals(withdrawalService withdrawalService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		withdrawals, err := withdrawalService.ListPending(r.Context())
		if err != nil {
			l.Error("Failed to list pending withdrawals", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]withdrawalResponse, 0, len(withdrawals))
		for _, wd := range withdrawals {
			out = append(out, withdrawalToResponse(wd))
		}
		render.JSON(w, out)
	})
}

func handleDecideWithdrawal(withdrawalService withdrawalService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid withdrawal id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[decisionRequest](w, r)
		if err != nil {
			return
		}

		withdrawal, err := withdrawalService.Decide(r.Context(), id, *data.Approve)

		switch {
		case err == nil:
			render.JSON(w, withdrawalToResponse(withdrawal))
		case errors.Is(err, apperrors.ErrWithdrawalNotFound):
			render.ServiceError(w, "Withdrawal not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrAlreadyProcessed):
			render.ServiceError(w, "Withdrawal already processed", http.StatusConflict)
		default:
			l.Error("Failed to decide withdrawal", "error", err, "withdrawal_id", id)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleAllPackages(investmentService investmentService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		packages, err := investmentService.ListPackages(r.Context(), false)
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

type packageRequest struct {
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	Category     string          `json:"category" validate:"required,oneof=curto longo"`
	MinAmount    decimal.Decimal `json:"min_amount" validate:"required"`
	MaxAmount    decimal.Decimal `json:"max_amount" validate:"required"`
	DailyRate    decimal.Decimal `json:"daily_rate" validate:"required"`
	DurationDays int             `json:"duration_days" validate:"required,min=1"`
	Status       string          `json:"status" validate:"omitempty,oneof=active inactive"`
}

func handleCreatePackage(investmentService investmentService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[packageRequest](w, r)
		if err != nil {
			return
		}

		pkg, err := investmentService.CreatePackage(r.Context(), repository.CreatePackageParams{
			Name:         data.Name,
			Description:  data.Description,
			Category:     data.Category,
			MinAmount:    data.MinAmount,
			MaxAmount:    data.MaxAmount,
			DailyRate:    data.DailyRate,
			DurationDays: data.DurationDays,
			Status:       data.Status,
		})
		if err != nil {
			l.Error("Failed to create package", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSONWithStatus(w, packageToResponse(pkg), http.StatusCreated)
	})
}

func handleUpdatePackage(investmentService investmentService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid package id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[packageRequest](w, r)
		if err != nil {
			return
		}

		status := data.Status
		if status == "" {
			status = models.PackageActive
		}

		err = investmentService.UpdatePackage(r.Context(), models.Package{
			ID:           id,
			Name:         data.Name,
			Description:  data.Description,
			Category:     data.Category,
			MinAmount:    data.MinAmount,
			MaxAmount:    data.MaxAmount,
			DailyRate:    data.DailyRate,
			DurationDays: data.DurationDays,
			Status:       status,
		})

		switch {
		case err == nil:
			render.JSON(w, map[string]string{"message": "Package updated"})
		case errors.Is(err, apperrors.ErrPackageNotFound):
			render.ServiceError(w, "Package not found", http.StatusNotFound)
		default:
			l.Error("Failed to update package", "error", err, "package_id", id)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleDeletePackage(investmentService investmentService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid package id", http.StatusBadRequest)
			return
		}

		err = investmentService.DeletePackage(r.Context(), id)

		switch {
		case err == nil:
			render.JSON(w, map[string]string{"message": "Package deleted"})
		case errors.Is(err, apperrors.ErrPackageNotFound):
			render.ServiceError(w, "Package not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrPackageInUse):
			render.ServiceError(w, "Package has investments, deactivate it instead", http.StatusConflict)
		default:
			l.Error("Failed to delete package", "error", err, "package_id", id)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
