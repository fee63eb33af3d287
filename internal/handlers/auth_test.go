package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/models"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Profile{}, &models.BankRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSignupCreatesProfileAndBankRecord(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewAuthHandler(db)

	body := `{"email":"a@example.com","password":"secret123","first_name":"A","last_name":"B","membership":"freelancer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Signup(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", rr.Code, rr.Body.String())
	}
	// A session is established right away.
	var hasSession bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			hasSession = true
		}
	}
	if !hasSession {
		t.Fatalf("no session cookie after signup")
	}

	var user models.User
	if err := db.Where("email = ?", "a@example.com").First(&user).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Password == "secret123" {
		t.Fatalf("password stored in clear")
	}
	var profile models.Profile
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.Membership != models.MembershipFreelancer {
		t.Fatalf("membership = %q", profile.Membership)
	}
	var bank models.BankRecord
	if err := db.Where("user_id = ?", user.ID).First(&bank).Error; err != nil {
		t.Fatalf("load bank record: %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewAuthHandler(db)

	cases := []string{
		`{"email":"","password":"secret123","membership":"freelancer"}`,
		`{"email":"a@example.com","password":"short","membership":"freelancer"}`,
		`{"email":"a@example.com","password":"secret123","membership":"admin"}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
		rr := httptest.NewRecorder()
		h.Signup(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400 got %d", body, rr.Code)
		}
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewAuthHandler(db)

	signup := `{"email":"a@example.com","password":"secret123","membership":"hirer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(signup))
	h.Signup(httptest.NewRecorder(), req)

	login := `{"email":"a@example.com","password":"nope"}`
	req = httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(login))
	rr := httptest.NewRecorder()
	h.Login(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}
