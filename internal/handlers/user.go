package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/handlers/render"
	"github.com/lsoares/investa/internal/handlers/userctx"
	"github.com/lsoares/investa/internal/logger"
	"github.com/lsoares/investa/internal/models"
)

type linkedAccountResponse struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	Holder        string `json:"holder"`
}

func linkedAccount(a *models.LinkedAccount) *linkedAccountResponse {
	if a == nil {
		return nil
	}
	return &linkedAccountResponse{
		BankName:      a.BankName,
		AccountNumber: a.AccountNumber,
		Holder:        a.Holder,
	}
}

// handleDashboard reports the user's balances and profile. The user is
// already loaded by the auth middleware, no extra query needed
func handleDashboard() http.Handler {
	type response struct {
		ID              uuid.UUID              `json:"id"`
		Username        string                 `json:"username"`
		ReferralCode    string                 `json:"referral_code"`
		Balance         float64                `json:"balance"`
		BalanceRecharge float64                `json:"balance_recharge"`
		BalanceWithdraw float64                `json:"balance_withdraw"`
		PostCredits     int                    `json:"post_credits"`
		LinkedAccount   *linkedAccountResponse `json:"linked_account,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		balance, _ := user.Balance.Float64()
		recharge, _ := user.BalanceRecharge.Float64()
		withdraw, _ := user.BalanceWithdraw.Float64()

		render.JSON(w, response{
			ID:              user.ID,
			Username:        user.Username,
			ReferralCode:    user.ReferralCode,
			Balance:         balance,
			BalanceRecharge: recharge,
			BalanceWithdraw: withdraw,
			PostCredits:     user.PostCredits,
			LinkedAccount:   linkedAccount(user.LinkedAccount),
		})
	})
}

func handleLinkAccount(userService userService, l logger.Logger) http.Handler {
	type request struct {
		BankName      string `json:"bank_name" validate:"required"`
		AccountNumber string `json:"account_number" validate:"required"`
		Holder        string `json:"holder" validate:"required"`
		TxPassword    string `json:"tx_password" validate:"required"`
	}
	type response struct {
		Message string `json:"message"`
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

		account := models.LinkedAccount{
			BankName:      data.BankName,
			AccountNumber: data.AccountNumber,
			Holder:        data.Holder,
		}
		err = userService.LinkAccount(r.Context(), user.ID, account, data.TxPassword)

		switch {
		case err == nil:
			render.JSON(w, response{Message: "Account linked"})
		case errors.Is(err, apperrors.ErrBadCredentials):
			render.ServiceError(w, "Wrong transaction password", http.StatusForbidden)
		default:
			l.Error("Failed to link account", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
