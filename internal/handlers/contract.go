package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fremancer/fremancer/internal/httpx"
	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/money"
	"github.com/fremancer/fremancer/internal/services"
)

type ContractHandler struct {
	Svc *services.ContractService
}

func NewContractHandler(svc *services.ContractService) *ContractHandler {
	return &ContractHandler{Svc: svc}
}

type contractCreateRequest struct {
	Freelancer      *uint        `json:"freelancer"`
	DefaultPayment  string       `json:"default_payment"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	TotalBudget     *uint        `json:"total_budget"`
	Duration        string       `json:"duration"`
	ContractType    string       `json:"contract_type"`
	HourlyRate      money.Amount `json:"hourly_rate"`
	MaxWeeklyHours  uint         `json:"max_weekly_hours"`
	FixedAmount     money.Amount `json:"fixed_amount"`
	WageAmount      money.Amount `json:"wage_amount"`
	ApplicationType string       `json:"application_type"`
}

type contractResponse struct {
	models.Contract
	FreelancerName string `json:"freelancer_name"`
	HirerName      string `json:"hirer_name"`
	IsHourly       bool   `json:"is_hourly"`
}

func toContractResponse(c *models.Contract) contractResponse {
	return contractResponse{
		Contract:       *c,
		FreelancerName: c.FreelancerName(),
		HirerName:      c.HirerName(),
		IsHourly:       c.IsHourly(),
	}
}

// Create: POST /api/contracts – owner is the caller.
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contractCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	contract, err := h.Svc.Create(r.Context(), caller(r), services.ContractInput{
		FreelancerID:    req.Freelancer,
		DefaultPayment:  req.DefaultPayment,
		Title:           req.Title,
		Description:     req.Description,
		TotalBudget:     req.TotalBudget,
		Duration:        req.Duration,
		ContractType:    req.ContractType,
		HourlyRate:      req.HourlyRate,
		MaxWeeklyHours:  req.MaxWeeklyHours,
		FixedAmount:     req.FixedAmount,
		WageAmount:      req.WageAmount,
		ApplicationType: req.ApplicationType,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toContractResponse(contract))
}

// List: GET /api/contracts
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Svc.List(r.Context(), caller(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	out := make([]contractResponse, 0, len(contracts))
	for n := range contracts {
		out = append(out, toContractResponse(&contracts[n]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Get: GET /api/contracts/{id}
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	contract, err := h.Svc.Get(r.Context(), caller(r), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toContractResponse(contract))
}

// Accept: POST /api/contracts/{id}/accept – assigned freelancer only.
func (h *ContractHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if _, err := h.Svc.Accept(r.Context(), caller(r), id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
