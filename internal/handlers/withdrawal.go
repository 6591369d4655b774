package handlers

import (
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

type withdrawalResponse struct {
	ID              uuid.UUID `json:"id"`
	RequestedAmount float64   `json:"requested_amount"`
	Fee             float64   `json:"fee"`
	NetAmount       float64   `json:"net_amount"`
	Status          string    `json:"status"`
	AccountNumber   string    `json:"account_number"`
	CreatedAt       time.Time `json:"created_at"`
}

func withdrawalToResponse(wd models.Withdrawal) withdrawalResponse {
	requested, _ := wd.RequestedAmount.Float64()
	fee, _ := wd.Fee.Float64()
	net, _ := wd.NetAmount.Float64()
	return withdrawalResponse{
		ID:              wd.ID,
		RequestedAmount: requested,
		Fee:             fee,
		NetAmount:       net,
		Status:          wd.Status,
		AccountNumber:   wd.AccountNumber,
		CreatedAt:       wd.CreatedAt,
	}
}

func handleRequestWithdrawal(withdrawalService withdrawalService, l logger.Logger) http.Handler {
	type request struct {
		Amount     decimal.Decimal `json:"amount" validate:"required"`
		TxPassword string          `json:"tx_password" validate:"required"`
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

		withdrawal, err := withdrawalService.Request(r.Context(), user.ID, data.Amount, data.TxPassword)

		switch {
		case err == nil:
			render.JSONWithStatus(w, withdrawalToResponse(withdrawal), http.StatusCreated)
		case errors.Is(err, apperrors.ErrInvalidAmount):
			render.ServiceError(w, "Amount must be positive", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrAmountBelowMinimum):
			render.ServiceError(w, "Amount below minimum", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrBadCredentials):
			render.ServiceError(w, "Wrong transaction password", http.StatusForbidden)
		case errors.Is(err, apperrors.ErrNoLinkedAccount):
			render.ServiceError(w, "No linked payout account", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrInsufficientFunds):
			render.ServiceError(w, "Insufficient balance", http.StatusPaymentRequired)
		default:
			l.Error("Failed to request withdrawal", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleWithdrawalHistory(withdrawalService withdrawalService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		withdrawals, err := withdrawalService.History(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to list withdrawals", "error", err)
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
