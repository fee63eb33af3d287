package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fremancer/fremancer/internal/httpx"
	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/money"
	"github.com/fremancer/fremancer/internal/services"
)

type WithdrawalHandler struct {
	Svc     *services.WithdrawalService
	Balance *services.BalanceService
}

func NewWithdrawalHandler(svc *services.WithdrawalService, balance *services.BalanceService) *WithdrawalHandler {
	return &WithdrawalHandler{Svc: svc, Balance: balance}
}

type withdrawalRequest struct {
	Receive       money.Amount `json:"receive"`
	Fee           money.Amount `json:"fee"`
	TotalAmount   money.Amount `json:"total_amount"`
	Method        string       `json:"method"`
	ReceiveMethod string       `json:"receive_method"`
	FirstName     string       `json:"first_name"`
	LastName      string       `json:"last_name"`
	Email         string       `json:"email"`
	PhoneNumber   string       `json:"phone_number"`
	Country       string       `json:"country"`
	Region        string       `json:"region"`
	BankNumber    string       `json:"bank_number"`
	BankIBAN      string       `json:"bank_iban"`
	BankSwift     string       `json:"bank_swift"`
}

type withdrawalResponse struct {
	models.Withdrawal
	MethodName  string `json:"method_name"`
	StatusTitle string `json:"status_title"`
}

func toWithdrawalResponse(wd *models.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		Withdrawal:  *wd,
		MethodName:  wd.MethodName(),
		StatusTitle: wd.StatusTitle(),
	}
}

// Create: POST /api/withdrawals
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	wd, err := h.Svc.Create(r.Context(), caller(r), services.WithdrawalInput{
		Receive:       req.Receive,
		Fee:           req.Fee,
		TotalAmount:   req.TotalAmount,
		Method:        req.Method,
		ReceiveMethod: req.ReceiveMethod,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		Country:       req.Country,
		Region:        req.Region,
		BankNumber:    req.BankNumber,
		BankIBAN:      req.BankIBAN,
		BankSwift:     req.BankSwift,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toWithdrawalResponse(wd))
}

// List: GET /api/withdrawals
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := h.Svc.List(r.Context(), caller(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	out := make([]withdrawalResponse, 0, len(withdrawals))
	for n := range withdrawals {
		out = append(out, toWithdrawalResponse(&withdrawals[n]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Total: GET /api/withdrawals/total – sum of non-cancelled withdrawals.
func (h *WithdrawalHandler) Total(w http.ResponseWriter, r *http.Request) {
	total, err := h.Svc.Total(r.Context(), caller(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]money.Amount{"total": total})
}

// BalanceSummary: GET /api/withdrawals/balance – the full freelancer
// balance breakdown, refreshed on read.
func (h *WithdrawalHandler) BalanceSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Balance.Compute(r.Context(), caller(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

// Reject answers withdrawal mutation attempts. Submitted withdrawals are
// handled out of band.
func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	httpx.JSONError(w, http.StatusBadRequest, "withdrawals cannot be modified", nil)
}
