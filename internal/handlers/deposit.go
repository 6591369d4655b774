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

type depositResponse struct {
	ID         uuid.UUID `json:"id"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"`
	ReceiptRef string    `json:"receipt_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func depositToResponse(d models.Deposit) depositResponse {
	amount, _ := d.Amount.Float64()
	return depositResponse{
		ID:         d.ID,
		Amount:     amount,
		Status:     d.Status,
		ReceiptRef: d.ReceiptRef,
		CreatedAt:  d.CreatedAt,
	}
}

func handleSubmitDeposit(depositService depositService, l logger.Logger) http.Handler {
	type request struct {
		Amount     decimal.Decimal `json:"amount" validate:"required"`
		ReceiptRef string          `json:"receipt_ref"`
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

		deposit, err := depositService.Submit(r.Context(), user.ID, data.Amount, data.ReceiptRef)

		switch {
		case err == nil:
			render.JSONWithStatus(w, depositToResponse(deposit), http.StatusCreated)
		case errors.Is(err, apperrors.ErrInvalidAmount):
			render.ServiceError(w, "Amount must be positive", http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to submit deposit", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleDepositHistory(depositService depositService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		deposits, err := depositService.History(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to list deposits", "error", err)
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
