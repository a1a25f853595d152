package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ndmitriev/coinvault/internal/apperrors"
	"github.com/ndmitriev/coinvault/internal/handlers/render"
	"github.com/ndmitriev/coinvault/internal/logger"
)

func handleAdminLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Password string `json:"password" validate:"required"`
	}

	type response struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		token, expiresAt, err := authService.Login(data.Password)

		switch {
		case err == nil:
			render.JSON(w, response{Token: token, ExpiresAt: expiresAt})
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
		default:
			l.Error("Failed to login operator", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
