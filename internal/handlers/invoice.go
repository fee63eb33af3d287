package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/fremancer/fremancer/internal/httpx"
	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/money"
	"github.com/fremancer/fremancer/internal/services"
)

type InvoiceHandler struct {
	Svc *services.InvoiceService
}

func NewInvoiceHandler(svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc}
}

type invoiceCreateRequest struct {
	Contract   uint            `json:"contract"`
	Timesheets []uint          `json:"timesheets"`
	TotalHours decimal.Decimal `json:"total_hours"`
	Amount     money.Amount    `json:"amount"`
}

type invoiceResponse struct {
	models.Invoice
	ContractTitle  string `json:"contract_title"`
	FreelancerName string `json:"freelancer_name"`
	HirerName      string `json:"hirer_name"`
	Status         string `json:"status"`
}

func toInvoiceResponse(inv *models.Invoice) invoiceResponse {
	return invoiceResponse{
		Invoice:        *inv,
		ContractTitle:  inv.Contract.Title,
		FreelancerName: inv.Contract.FreelancerName(),
		HirerName:      inv.Contract.HirerName(),
		Status:         inv.Status(),
	}
}

// Create: POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	invoice, err := h.Svc.Create(r.Context(), caller(r), services.InvoiceInput{
		ContractID:   req.Contract,
		TimesheetIDs: req.Timesheets,
		TotalHours:   req.TotalHours,
		Amount:       req.Amount,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toInvoiceResponse(invoice))
}

// List: GET /api/invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Svc.List(r.Context(), caller(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	out := make([]invoiceResponse, 0, len(invoices))
	for n := range invoices {
		out = append(out, toInvoiceResponse(&invoices[n]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Get: GET /api/invoices/{id} – refreshes a stale charge status before
// responding.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	invoice, err := h.Svc.Retrieve(r.Context(), caller(r), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(invoice))
}

// Pay: POST /api/invoices/{id}/pay – collects the invoice total from the
// hirer's default payment source.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	invoice, err := h.Svc.Pay(r.Context(), caller(r), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(invoice))
}

// Balance: GET /api/invoices/balance
func (h *InvoiceHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Svc.Balance(r.Context(), caller(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

// Reject answers invoice mutation attempts. Invoices are immutable once
// issued; only the pay action may change them.
func (h *InvoiceHandler) Reject(w http.ResponseWriter, r *http.Request) {
	httpx.JSONError(w, http.StatusBadRequest, "invoices cannot be modified", nil)
}
