package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ndmitriev/coinvault/internal/handlers/render"
	"github.com/ndmitriev/coinvault/internal/logger"
	"github.com/ndmitriev/coinvault/internal/service/interest"
)

// Wire shape of one accrual run, field names shared by the cron response
// and the admin trigger
type runResults struct {
	TotalUsers         int64    `json:"totalUsers"`
	UsersProcessed     int      `json:"usersProcessed"`
	SkippedAlreadyRan  int      `json:"skippedAlreadyRan"`
	TotalInterestAdded float64  `json:"totalInterestAdded"`
	Errors             []string `json:"errors"`
}

func toRunResults(res interest.RunResult) runResults {
	interestAdded, _ := res.TotalInterestAdded.Float64()

	errs := res.Errors
	if errs == nil {
		errs = []string{}
	}

	return runResults{
		TotalUsers:         res.TotalAccounts,
		UsersProcessed:     res.AccountsProcessed,
		SkippedAlreadyRan:  res.SkippedAlreadyRan,
		TotalInterestAdded: interestAdded,
		Errors:             errs,
	}
}

func runWithTimeout(ctx context.Context, engine engineService, timeout time.Duration) (interest.RunResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return engine.ApplyDailyInterestToAllUsers(ctx)
}

// The scheduler-facing trigger. Idempotence lives in the engine, so the
// external cron may retry freely on non-2xx.
func handleCronDailyInterest(engine engineService, runTimeout time.Duration, l logger.Logger) http.Handler {
	type response struct {
		OK      bool       `json:"ok"`
		Date    string     `json:"date"`
		Success bool       `json:"success"`
		Results runResults `json:"results"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := runWithTimeout(r.Context(), engine, runTimeout)
		if err != nil {
			l.Error("Accrual run failed", "error", err)
			render.ServiceError(w, "Accrual run failed: "+err.Error(), http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{
			OK:      true,
			Date:    res.Date,
			Success: true,
			Results: toRunResults(res),
		})
	})
}

// Manual trigger for the admin console; same engine, same idempotence
func handleRunInterest(engine engineService, runTimeout time.Duration, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := runWithTimeout(r.Context(), engine, runTimeout)
		if err != nil {
			l.Error("Accrual run failed", "error", err)
			render.ServiceError(w, "Accrual run failed: "+err.Error(), http.StatusInternalServerError)
			return
		}

		render.JSON(w, toRunResults(res))
	})
}

func handleTotalInterest(ledgerService ledgerService, l logger.Logger) http.Handler {
	type response struct {
		TotalInterestAdded float64 `json:"totalInterestAdded"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		total, err := ledgerService.TotalPlatformInterest(r.Context())
		if err != nil {
			l.Error("Failed to sum platform interest", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		totalFloat, _ := total.Float64()
		render.JSON(w, response{TotalInterestAdded: totalFloat})
	})
}

func handleInterestHistory(ledgerService ledgerService, l logger.Logger) http.Handler {
	type entry struct {
		Date               string         `json:"date"`
		TotalInterestAdded float64        `json:"totalInterestAdded"`
		Type               string         `json:"type"`
		BalanceSnapshot    map[string]any `json:"balanceSnapshot"`
		Timestamp          time.Time      `json:"timestamp"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid account id", http.StatusBadRequest)
			return
		}

		history, err := ledgerService.AccountHistory(r.Context(), accountID)
		if err != nil {
			l.Error("Failed to list interest history", "error", err, "account_id", accountID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		entries := make([]entry, 0, len(history))
		for _, e := range history {
			interestAdded, _ := e.TotalInterestAdded.Float64()

			snapshot := make(map[string]any, len(e.BalanceSnapshot))
			for key, b := range e.BalanceSnapshot {
				amount, _ := b.Amount.Float64()
				usdValue, _ := b.USDValue.Float64()
				totalEarned, _ := b.TotalEarned.Float64()
				snapshot[key] = map[string]any{
					"amount":           amount,
					"usdValue":         usdValue,
					"totalEarned":      totalEarned,
					"lastInterestDate": b.LastInterestDate,
				}
			}

			entries = append(entries, entry{
				Date:               e.AccrualDate,
				TotalInterestAdded: interestAdded,
				Type:               e.Type,
				BalanceSnapshot:    snapshot,
				Timestamp:          e.CreatedAt,
			})
		}

		render.JSON(w, entries)
	})
}
