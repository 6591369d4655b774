package handlers

import (
	"errors"
	"net/http"

	"github.com/lsoares/investa/internal/apperrors"
	"github.com/lsoares/investa/internal/handlers/render"
	"github.com/lsoares/investa/internal/logger"
	"github.com/lsoares/investa/internal/service/auth"
)

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Username   string `json:"username" validate:"required,min=2,max=50"`
		Password   string `json:"password" validate:"required,min=8"`
		TxPassword string `json:"tx_password" validate:"required,min=6"`
		ReferredBy string `json:"referred_by" validate:"omitempty,len=5"`
	}
	type response struct {
		Token        string `json:"token"`
		ReferralCode string `json:"referral_code"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, token, err := authService.Register(r.Context(), auth.RegisterParams{
			Username:   data.Username,
			Password:   data.Password,
			TxPassword: data.TxPassword,
			ReferredBy: data.ReferredBy,
		})

		switch {
		case err == nil:
			render.JSONWithStatus(w, response{Token: token, ReferralCode: user.ReferralCode}, http.StatusCreated)
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUserNotFound):
			// Referral code did not resolve to a user
			render.ServiceError(w, "Unknown referral code", http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to register user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		Token string `json:"token"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		_, token, err := authService.Login(r.Context(), data.Username, data.Password)

		switch {
		case err == nil:
			render.JSON(w, response{Token: token})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Invalid username or password", http.StatusUnauthorized)
		default:
			l.Error("Failed to login user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
