package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/auth"
	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/payments"
)

func setupServerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbi, err := gorm.Open(sqlite.Open("file:srv_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = dbi.AutoMigrate(
		&models.User{}, &models.Profile{}, &models.BankRecord{},
		&models.Contract{}, &models.TimeSheet{}, &models.DailySheet{},
		&models.Invoice{}, &models.Withdrawal{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return dbi
}

// stubProcessor answers every processor call successfully.
type stubProcessor struct {
	chargeSeq int
}

func (s *stubProcessor) CreateCustomer(_ context.Context, token, email, _ string) (*payments.Customer, error) {
	c := &payments.Customer{ID: "cus_stub", Email: email}
	if token != "" {
		c.Sources = []payments.Source{{ID: token, Object: "card", Brand: "Visa", Last4: "4242"}}
	}
	return c, nil
}

func (s *stubProcessor) RetrieveCustomer(_ context.Context, id string) (*payments.Customer, error) {
	return &payments.Customer{ID: id}, nil
}

func (s *stubProcessor) CreateSource(_ context.Context, _, token string) (*payments.Source, error) {
	return &payments.Source{ID: token, Object: "card", Brand: "Visa", Last4: "4242"}, nil
}

func (s *stubProcessor) RetrieveSource(_ context.Context, id string) (*payments.Source, error) {
	return &payments.Source{ID: id, Object: "card"}, nil
}

func (s *stubProcessor) ListSources(_ context.Context, _ string) ([]payments.Source, error) {
	return []payments.Source{{ID: "card_tok_visa", Object: "card", Brand: "Visa", Last4: "4242"}}, nil
}

func (s *stubProcessor) DeleteSource(_ context.Context, _, _ string) error { return nil }

func (s *stubProcessor) VerifySource(_ context.Context, _, _ string, _ []int64) error { return nil }

func (s *stubProcessor) CreateCharge(_ context.Context, _ payments.ChargeParams) (*payments.Charge, error) {
	s.chargeSeq++
	return &payments.Charge{ID: "ch_" + strconv.Itoa(s.chargeSeq), Paid: true, Status: "succeeded"}, nil
}

func (s *stubProcessor) RetrieveCharge(_ context.Context, id string) (*payments.Charge, error) {
	return &payments.Charge{ID: id, Paid: true, Status: "succeeded"}, nil
}

func sessionFor(t *testing.T, userID uint) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	auth.CreateSession(rec, userID)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatalf("no session cookie")
	return nil
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, sess *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req.AddCookie(sess)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	dbi := setupServerDB(t)
	h := New(dbi, &stubProcessor{})
	rr := doJSON(t, h, http.MethodGet, "/healthz", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	dbi := setupServerDB(t)
	h := New(dbi, &stubProcessor{})
	rr := doJSON(t, h, http.MethodGet, "/api/contracts", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSignupLoginFlow(t *testing.T) {
	dbi := setupServerDB(t)
	h := New(dbi, &stubProcessor{})

	rr := doJSON(t, h, http.MethodPost, "/api/users", map[string]any{
		"email": "new@example.com", "password": "secret123",
		"first_name": "New", "last_name": "User", "membership": "freelancer",
	}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201 got %d body=%s", rr.Code, rr.Body.String())
	}

	// Duplicate email is a conflict.
	rr = doJSON(t, h, http.MethodPost, "/api/users", map[string]any{
		"email": "new@example.com", "password": "secret123", "membership": "freelancer",
	}, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409 got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, "/api/users/login", map[string]any{
		"email": "new@example.com", "password": "secret123",
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPost, "/api/users/login", map[string]any{
		"email": "new@example.com", "password": "wrong",
	}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401 got %d", rr.Code)
	}
}

// TestInvoiceLifecycleE2E walks the whole marketplace flow over HTTP:
// contract, timesheet, invoice, payment, balance, withdrawal.
func TestInvoiceLifecycleE2E(t *testing.T) {
	dbi := setupServerDB(t)
	h := New(dbi, &stubProcessor{})

	signup := func(email, membership string) *http.Cookie {
		rr := doJSON(t, h, http.MethodPost, "/api/users", map[string]any{
			"email": email, "password": "secret123", "membership": membership,
			"first_name": "A", "last_name": "B",
		}, nil)
		if rr.Code != http.StatusCreated {
			t.Fatalf("signup %s: %d body=%s", email, rr.Code, rr.Body.String())
		}
		var user models.User
		if err := dbi.Where("email = ?", email).First(&user).Error; err != nil {
			t.Fatalf("load %s: %v", email, err)
		}
		return sessionFor(t, user.ID)
	}
	hirerSess := signup("hirer@example.com", models.MembershipHirer)
	freeSess := signup("free@example.com", models.MembershipFreelancer)

	var freelancer models.User
	if err := dbi.Where("email = ?", "free@example.com").First(&freelancer).Error; err != nil {
		t.Fatalf("load freelancer: %v", err)
	}

	// Hirer attaches a card, which becomes the contract's default source.
	rr := doJSON(t, h, http.MethodPost, "/api/payments", map[string]any{"token": "card_tok_visa"}, hirerSess)
	if rr.Code != http.StatusCreated {
		t.Fatalf("attach source: %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPost, "/api/contracts", map[string]any{
		"title": "Site build", "contract_type": "hourly", "duration": "short",
		"hourly_rate": "20.00", "freelancer": freelancer.ID,
		"default_payment": "card_tok_visa",
	}, hirerSess)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create contract: %d body=%s", rr.Code, rr.Body.String())
	}
	var contract struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &contract); err != nil {
		t.Fatalf("decode contract: %v", err)
	}

	rr = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/contracts/%d/accept", contract.ID), nil, freeSess)
	if rr.Code != http.StatusOK {
		t.Fatalf("accept contract: %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPost, "/api/timesheets", map[string]any{
		"contract": contract.ID, "start_date": "2025-03-03",
		"total_hours": "20", "total_amount": "400.00",
	}, freeSess)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create timesheet: %d body=%s", rr.Code, rr.Body.String())
	}
	var sheet struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &sheet); err != nil {
		t.Fatalf("decode timesheet: %v", err)
	}

	rr = doJSON(t, h, http.MethodPost, "/api/invoices", map[string]any{
		"contract": contract.ID, "timesheets": []uint{sheet.ID},
		"total_hours": "20", "amount": "400.00",
	}, freeSess)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create invoice: %d body=%s", rr.Code, rr.Body.String())
	}
	var invoice struct {
		ID          uint   `json:"id"`
		Fee         string `json:"fee"`
		TotalAmount string `json:"total_amount"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &invoice); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}
	if invoice.Fee != "11.9" && invoice.Fee != "11.90" {
		t.Fatalf("fee = %q, want 11.90", invoice.Fee) // 400 * 2.9% + 0.30
	}

	// The invoiced timesheet can no longer be edited.
	rr = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/timesheets/%d", sheet.ID), map[string]any{
		"contract": contract.ID, "start_date": "2025-03-03",
		"total_hours": "25", "total_amount": "500.00",
	}, freeSess)
	if rr.Code != http.StatusConflict {
		t.Fatalf("edit invoiced timesheet: expected 409 got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/invoices/%d/pay", invoice.ID), nil, hirerSess)
	if rr.Code != http.StatusOK {
		t.Fatalf("pay invoice: %d body=%s", rr.Code, rr.Body.String())
	}

	// Funds have settled: the freelancer withdraws part of them.
	rr = doJSON(t, h, http.MethodGet, "/api/withdrawals/balance", nil, freeSess)
	if rr.Code != http.StatusOK {
		t.Fatalf("balance: %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, h, http.MethodPost, "/api/withdrawals", map[string]any{
		"total_amount": "100.00", "receive": "95.00", "fee": "5.00",
		"method": "paypal", "first_name": "Fran", "last_name": "Lancer",
		"email": "free@example.com",
	}, freeSess)
	if rr.Code != http.StatusCreated {
		t.Fatalf("withdrawal: %d body=%s", rr.Code, rr.Body.String())
	}

	// Mutating an issued invoice is rejected.
	rr = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/invoices/%d", invoice.ID), map[string]any{}, freeSess)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invoice update: expected 400 got %d", rr.Code)
	}
}

func TestWebhookUpdatesInvoice(t *testing.T) {
	dbi := setupServerDB(t)
	h := New(dbi, &stubProcessor{})

	hirer := models.User{Email: "h@example.com", Password: "x"}
	free := models.User{Email: "f@example.com", Password: "x"}
	if err := dbi.Create(&hirer).Error; err != nil {
		t.Fatalf("seed hirer: %v", err)
	}
	if err := dbi.Create(&free).Error; err != nil {
		t.Fatalf("seed freelancer: %v", err)
	}
	contract := models.Contract{HirerID: hirer.ID, FreelancerID: &free.ID, Title: "W", ContractType: models.ContractHourly}
	if err := dbi.Create(&contract).Error; err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	invoice := models.Invoice{HirerID: hirer.ID, FreelancerID: free.ID, ContractID: contract.ID,
		ChargeID: "ch_evt", ChargeStatus: models.ChargeStatusPending}
	if err := dbi.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	rr := doJSON(t, h, http.MethodPost, "/webhook", map[string]any{
		"object": map[string]any{"object": "charge", "id": "ch_evt", "paid": true, "status": "succeeded"},
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("webhook: %d body=%s", rr.Code, rr.Body.String())
	}
	var got models.Invoice
	if err := dbi.First(&got, invoice.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.Paid || got.ChargeStatus != "succeeded" {
		t.Fatalf("webhook not applied: %+v", got)
	}

	// Unknown charges are acknowledged without error.
	rr = doJSON(t, h, http.MethodPost, "/webhook", map[string]any{
		"object": map[string]any{"object": "charge", "id": "ch_missing", "paid": true, "status": "succeeded"},
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("unmatched webhook: %d", rr.Code)
	}
}
