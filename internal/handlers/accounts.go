package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndmitriev/coinvault/internal/apperrors"
	"github.com/ndmitriev/coinvault/internal/handlers/render"
	"github.com/ndmitriev/coinvault/internal/logger"
	"github.com/ndmitriev/coinvault/internal/models"
)

type balanceResponse struct {
	Key              string    `json:"key"`
	Asset            string    `json:"asset"`
	SavingsType      string    `json:"savingsType"`
	Amount           float64   `json:"amount"`
	USDValue         float64   `json:"usdValue"`
	TotalEarned      float64   `json:"totalEarned"`
	LastInterestDate *string   `json:"lastInterestDate"`
	LastUpdated      time.Time `json:"lastUpdated"`
	StartDate        time.Time `json:"startDate"`
}

func toBalanceResponse(b models.Balance) balanceResponse {
	amount, _ := b.Amount.Float64()
	usdValue, _ := b.USDValue.Float64()
	totalEarned, _ := b.TotalEarned.Float64()

	return balanceResponse{
		Key:              b.Key().String(),
		Asset:            b.Asset,
		SavingsType:      string(b.SavingsType),
		Amount:           amount,
		USDValue:         usdValue,
		TotalEarned:      totalEarned,
		LastInterestDate: b.LastInterestDate,
		LastUpdated:      b.LastUpdated,
		StartDate:        b.StartDate,
	}
}

func handleCreateAccount(accountService accountService, l logger.Logger) http.Handler {
	type request struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name" validate:"max=100"`
	}

	type response struct {
		ID        uuid.UUID `json:"id"`
		Email     string    `json:"email"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		account, err := accountService.CreateAccount(r.Context(), data.Email, data.Name)

		switch {
		case err == nil:
			render.JSON(w, response{
				ID:        account.ID,
				Email:     account.Email,
				Name:      account.Name,
				CreatedAt: account.CreatedAt,
			})
		case errors.Is(err, apperrors.ErrAccountAlreadyExists):
			render.ServiceError(w, "Account already exists", http.StatusConflict)
		default:
			l.Error("Failed to create account", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListBalances(accountService accountService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid account id", http.StatusBadRequest)
			return
		}

		balances, err := accountService.GetBalances(r.Context(), accountID)
		if err != nil {
			l.Error("Failed to list balances", "error", err, "account_id", accountID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		out := make([]balanceResponse, 0, len(balances))
		for _, b := range balances {
			out = append(out, toBalanceResponse(b))
		}
		render.JSON(w, out)
	})
}

func handleDeposit(accountService accountService, l logger.Logger) http.Handler {
	type request struct {
		Asset       string          `json:"asset" validate:"required,min=2,max=20"`
		SavingsType string          `json:"savingsType" validate:"required,oneof=flexible fixed-term"`
		Amount      decimal.Decimal `json:"amount" validate:"required"`
		USDValue    decimal.Decimal `json:"usdValue" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid account id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		key := models.NewBalanceKey(data.Asset, models.SavingsType(data.SavingsType))
		balance, err := accountService.Deposit(r.Context(), accountID, key, data.Amount, data.USDValue)

		switch {
		case err == nil:
			render.JSON(w, toBalanceResponse(balance))
		case errors.Is(err, apperrors.ErrAccountNotFound):
			render.ServiceError(w, "Account not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrDepositNotPositive):
			render.ServiceError(w, "Deposit amounts must be positive", http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to deposit", "error", err, "account_id", accountID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
