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

type TimeSheetHandler struct {
	Svc *services.TimeSheetService
}

func NewTimeSheetHandler(svc *services.TimeSheetService) *TimeSheetHandler {
	return &TimeSheetHandler{Svc: svc}
}

type timesheetRequest struct {
	Contract    uint            `json:"contract"`
	StartDate   string          `json:"start_date"`
	Summary     string          `json:"summary"`
	TotalHours  decimal.Decimal `json:"total_hours"`
	TotalAmount money.Amount    `json:"total_amount"`
}

type timesheetResponse struct {
	models.TimeSheet
	ContractTitle string `json:"contract_title"`
	Status        string `json:"status"`
	StartDateISO  string `json:"start_date"`
}

func (h *TimeSheetHandler) toResponse(r *http.Request, ts *models.TimeSheet) timesheetResponse {
	status, err := h.Svc.Status(r.Context(), ts.ID)
	if err != nil {
		status = models.TimeSheetInProgress
	}
	return timesheetResponse{
		TimeSheet:     *ts,
		ContractTitle: ts.Contract.Title,
		Status:        status,
		StartDateISO:  ts.StartDate.Format(dateLayout),
	}
}

func (req *timesheetRequest) toInput() (services.TimeSheetInput, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return services.TimeSheetInput{}, err
	}
	return services.TimeSheetInput{
		ContractID:  req.Contract,
		StartDate:   start,
		Summary:     req.Summary,
		TotalHours:  req.TotalHours,
		TotalAmount: req.TotalAmount,
	}, nil
}

// Create: POST /api/timesheets – creates the weekly sheet plus its seven
// daily sheets.
func (h *TimeSheetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req timesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	in, err := req.toInput()
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"start_date": "expected YYYY-MM-DD"})
		return
	}
	sheet, err := h.Svc.Create(r.Context(), caller(r), in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.toResponse(r, sheet))
}

// List: GET /api/timesheets
func (h *TimeSheetHandler) List(w http.ResponseWriter, r *http.Request) {
	sheets, err := h.Svc.List(r.Context(), caller(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	out := make([]timesheetResponse, 0, len(sheets))
	for n := range sheets {
		out = append(out, h.toResponse(r, &sheets[n]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Get: GET /api/timesheets/{id} – sheet + contract + daily sheets +
// adjacent week ids.
func (h *TimeSheetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	detail, err := h.Svc.Retrieve(r.Context(), caller(r), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	resp := map[string]any{
		"timesheet":      h.toResponse(r, &detail.TimeSheet),
		"contract":       toContractResponse(&detail.Contract),
		"daily_sheets":   detail.DailySheets,
		"prev_timesheet": detail.PrevID,
		"next_timesheet": detail.NextID,
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Update: PUT /api/timesheets/{id} – rejected once invoiced or paid.
func (h *TimeSheetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req timesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	in, err := req.toInput()
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"start_date": "expected YYYY-MM-DD"})
		return
	}
	sheet, err := h.Svc.Update(r.Context(), caller(r), id, in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toResponse(r, sheet))
}

// Delete: DELETE /api/timesheets/{id}
func (h *TimeSheetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), caller(r), id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Unpaid: GET /api/timesheets/unpaid?contract= – sheets with no invoice.
func (h *TimeSheetHandler) Unpaid(w http.ResponseWriter, r *http.Request) {
	sheets, err := h.Svc.Unpaid(r.Context(), queryUint(r, "contract"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	out := make([]timesheetResponse, 0, len(sheets))
	for n := range sheets {
		out = append(out, h.toResponse(r, &sheets[n]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type dailySheetRequest struct {
	TimeSheet  uint            `json:"timesheet"`
	ReportDate string          `json:"report_date"`
	Summary    string          `json:"summary"`
	Hours      decimal.Decimal `json:"hours"`
}

// SaveDaily: POST /api/dailysheets – create or update one day's entry.
func (h *TimeSheetHandler) SaveDaily(w http.ResponseWriter, r *http.Request) {
	var req dailySheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	date, err := parseDate(req.ReportDate)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"report_date": "expected YYYY-MM-DD"})
		return
	}
	day, err := h.Svc.SaveDaily(r.Context(), caller(r), services.DailySheetInput{
		TimeSheetID: req.TimeSheet,
		ReportDate:  date,
		Summary:     req.Summary,
		Hours:       req.Hours,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, day)
}

// ListDaily: GET /api/dailysheets?timesheet=
func (h *TimeSheetHandler) ListDaily(w http.ResponseWriter, r *http.Request) {
	days, err := h.Svc.ListDaily(r.Context(), caller(r), queryUint(r, "timesheet"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, days)
}
