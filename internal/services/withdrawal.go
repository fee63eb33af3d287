package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/apperr"
	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/money"
)

var withdrawalMethods = map[string]bool{
	"wu": true, "moneygram": true, "paypal": true, "payoneer": true,
}

// WithdrawalService validates withdrawal requests against the current
// available balance and records them.
type WithdrawalService struct {
	db *gorm.DB
}

func NewWithdrawalService(db *gorm.DB) *WithdrawalService { return &WithdrawalService{db: db} }

type WithdrawalInput struct {
	Receive       money.Amount
	Fee           money.Amount
	TotalAmount   money.Amount
	Method        string
	ReceiveMethod string
	FirstName     string
	LastName      string
	Email         string
	PhoneNumber   string
	Country       string
	Region        string
	BankNumber    string
	BankIBAN      string
	BankSwift     string
}

func (in *WithdrawalInput) validate() error {
	fields := map[string]string{}
	if !withdrawalMethods[in.Method] {
		fields["method"] = "must be one of wu, moneygram, paypal, payoneer"
	}
	if in.ReceiveMethod != "" && in.ReceiveMethod != "cash" && in.ReceiveMethod != "bank" {
		fields["receive_method"] = "must be one of cash, bank"
	}
	if len(strings.TrimSpace(in.FirstName)) < 2 {
		fields["first_name"] = "too short"
	}
	if len(strings.TrimSpace(in.LastName)) < 2 {
		fields["last_name"] = "too short"
	}
	if !strings.Contains(in.Email, "@") {
		fields["email"] = "invalid email"
	}
	if !in.TotalAmount.Within(models.MinWithdrawalAmount, models.MaxWithdrawalAmount) {
		fields["total_amount"] = fmt.Sprintf("must be within [%s, %s]",
			models.MinWithdrawalAmount, models.MaxWithdrawalAmount)
	}
	if len(fields) > 0 {
		return apperr.FieldValidation(fields)
	}
	return nil
}

// Create records a withdrawal. The available-balance check and the insert
// run in one transaction: the balance is recomputed there, so a
// concurrent invoice status change or second withdrawal cannot leave this
// one validated against a stale snapshot.
func (s *WithdrawalService) Create(ctx context.Context, freelancerID uint, in WithdrawalInput) (*models.Withdrawal, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	withdrawal := models.Withdrawal{
		FreelancerID:  freelancerID,
		Receive:       in.Receive,
		Fee:           in.Fee,
		TotalAmount:   in.TotalAmount,
		Method:        in.Method,
		ReceiveMethod: in.ReceiveMethod,
		Status:        models.WithdrawalSubmitted,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		PhoneNumber:   in.PhoneNumber,
		Country:       in.Country,
		Region:        in.Region,
		BankNumber:    in.BankNumber,
		BankIBAN:      in.BankIBAN,
		BankSwift:     in.BankSwift,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		summary, err := computeBalance(tx, freelancerID)
		if err != nil {
			return err
		}
		if in.TotalAmount.GreaterThan(summary.Available) {
			return apperr.FieldValidation(map[string]string{
				"total_amount": fmt.Sprintf("invalid total amount %s, available %s",
					in.TotalAmount, summary.Available),
			})
		}
		if err := tx.Create(&withdrawal).Error; err != nil {
			return fmt.Errorf("create withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// List returns the caller's withdrawals, newest first.
func (s *WithdrawalService) List(ctx context.Context, freelancerID uint) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := s.db.WithContext(ctx).
		Where("freelancer_id = ?", freelancerID).
		Order("created_at desc").
		Find(&withdrawals).Error
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	return withdrawals, nil
}

// Total sums total_amount over the caller's non-cancelled withdrawals.
func (s *WithdrawalService) Total(ctx context.Context, freelancerID uint) (money.Amount, error) {
	return withdrawnTotal(s.db.WithContext(ctx), freelancerID)
}
