package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/auth"
	"github.com/fremancer/fremancer/internal/handlers"
	"github.com/fremancer/fremancer/internal/httpx"
	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/payments"
	"github.com/fremancer/fremancer/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares
// applied.
func New(db *gorm.DB, processor payments.Processor) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth checks the session user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSONError(w, http.StatusServiceUnavailable, "degraded", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authed := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h)
	}

	ah := handlers.NewAuthHandler(db)
	mux.HandleFunc("POST /api/users", ah.Signup)
	mux.HandleFunc("POST /api/users/login", ah.Login)
	mux.HandleFunc("POST /api/users/logout", ah.Logout)
	mux.Handle("GET /api/users", authed(ah.Current))

	ch := handlers.NewContractHandler(services.NewContractService(db))
	mux.Handle("POST /api/contracts", authed(ch.Create))
	mux.Handle("GET /api/contracts", authed(ch.List))
	mux.Handle("GET /api/contracts/{id}", authed(ch.Get))
	mux.Handle("POST /api/contracts/{id}/accept", authed(ch.Accept))

	th := handlers.NewTimeSheetHandler(services.NewTimeSheetService(db))
	mux.Handle("POST /api/timesheets", authed(th.Create))
	mux.Handle("GET /api/timesheets", authed(th.List))
	mux.Handle("GET /api/timesheets/unpaid", authed(th.Unpaid))
	mux.Handle("GET /api/timesheets/{id}", authed(th.Get))
	mux.Handle("PUT /api/timesheets/{id}", authed(th.Update))
	mux.Handle("DELETE /api/timesheets/{id}", authed(th.Delete))
	mux.Handle("POST /api/dailysheets", authed(th.SaveDaily))
	mux.Handle("GET /api/dailysheets", authed(th.ListDaily))

	invoiceSvc := services.NewInvoiceService(db, processor)
	ih := handlers.NewInvoiceHandler(invoiceSvc)
	mux.Handle("POST /api/invoices", authed(ih.Create))
	mux.Handle("GET /api/invoices", authed(ih.List))
	mux.Handle("GET /api/invoices/balance", authed(ih.Balance))
	mux.Handle("GET /api/invoices/{id}", authed(ih.Get))
	mux.Handle("PUT /api/invoices/{id}", authed(ih.Reject))
	mux.Handle("PATCH /api/invoices/{id}", authed(ih.Reject))
	mux.Handle("DELETE /api/invoices/{id}", authed(ih.Reject))
	mux.Handle("POST /api/invoices/{id}/pay", authed(ih.Pay))

	ph := handlers.NewPaymentHandler(services.NewPaymentService(db, processor))
	mux.Handle("POST /api/payments", authed(ph.Attach))
	mux.Handle("GET /api/payments", authed(ph.List))
	mux.Handle("DELETE /api/payments/{id}", authed(ph.Delete))
	mux.Handle("POST /api/payments/{id}/verify", authed(ph.Verify))

	wh := handlers.NewWithdrawalHandler(services.NewWithdrawalService(db), services.NewBalanceService(db))
	mux.Handle("POST /api/withdrawals", authed(wh.Create))
	mux.Handle("GET /api/withdrawals", authed(wh.List))
	mux.Handle("GET /api/withdrawals/total", authed(wh.Total))
	mux.Handle("GET /api/withdrawals/balance", authed(wh.BalanceSummary))
	mux.Handle("PUT /api/withdrawals/{id}", authed(wh.Reject))
	mux.Handle("PATCH /api/withdrawals/{id}", authed(wh.Reject))
	mux.Handle("DELETE /api/withdrawals/{id}", authed(wh.Reject))

	// Processor callback. Unauthenticated: identified by charge id.
	webhook := handlers.NewWebhookHandler(invoiceSvc)
	mux.HandleFunc("POST /webhook", webhook.Handle)

	return auth.Middleware(withRecover(withAccessLog(mux)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
			"request_id", requestID,
		)
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered", "panic", rec, "path", r.URL.Path)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
