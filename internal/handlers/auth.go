package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/auth"
	"github.com/fremancer/fremancer/internal/httpx"
	"github.com/fremancer/fremancer/internal/models"
)

type AuthHandler struct{ DB *gorm.DB }

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

type signupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Membership string `json:"membership"`
}

type userResponse struct {
	ID         uint   `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Membership string `json:"membership"`
	Phone      string `json:"phone"`
	Country    string `json:"country"`
	Region     string `json:"region"`
}

func toUserResponse(user *models.User, profile *models.Profile) userResponse {
	resp := userResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
	if profile != nil {
		resp.Membership = profile.Membership
		resp.Phone = profile.Phone
		resp.Country = profile.Country
		resp.Region = profile.Region
	}
	return resp
}

// Signup: POST /api/users
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	fields := map[string]string{}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		fields["email"] = "required"
	}
	if len(req.Password) < 6 {
		fields["password"] = "minimum 6 characters"
	}
	if req.Membership != models.MembershipFreelancer && req.Membership != models.MembershipHirer {
		fields["membership"] = "must be freelancer or hirer"
	}
	if len(fields) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fields)
		return
	}
	var count int64
	if err := h.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err == nil && count > 0 {
		httpx.JSONError(w, http.StatusConflict, "email_taken", nil)
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	user := models.User{Email: req.Email, Password: string(hash), FirstName: req.FirstName, LastName: req.LastName}
	profile := models.Profile{Membership: req.Membership}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		return tx.Create(&models.BankRecord{UserID: user.ID}).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_user", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, toUserResponse(&user, &profile))
}

// Login: POST /api/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var user models.User
	if err := h.DB.Where("email = ?", strings.TrimSpace(req.Email)).First(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	profile := h.profileFor(user.ID)
	httpx.JSON(w, http.StatusOK, toUserResponse(&user, profile))
}

// Logout: POST /api/users/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Current: GET /api/users – the caller's combined user+profile record.
func (h *AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_user", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(&user, h.profileFor(uid)))
}

func (h *AuthHandler) profileFor(userID uint) *models.Profile {
	var profile models.Profile
	if err := h.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil
	}
	return &profile
}
