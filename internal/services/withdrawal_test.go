package services

import (
	"context"
	"testing"

	"github.com/fremancer/fremancer/internal/apperr"
	"github.com/fremancer/fremancer/internal/models"
)

func validWithdrawal(total string) WithdrawalInput {
	return WithdrawalInput{
		Receive:     mustAmount(total),
		TotalAmount: mustAmount(total),
		Method:      "paypal",
		FirstName:   "Fran",
		LastName:    "Lancer",
		Email:       "free@example.com",
	}
}

func TestWithdrawalBounds(t *testing.T) {
	db := setupTestDB(t)
	p := seedParties(t, db)
	svc := NewWithdrawalService(db)

	for _, total := range []string{"4.99", "5000.01"} {
		if _, err := svc.Create(context.Background(), p.freelancer.ID, validWithdrawal(total)); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("total %s: expected validation error, got %v", total, err)
		}
	}
}

func TestWithdrawalBoundaryAmountsSucceed(t *testing.T) {
	db := setupTestDB(t)
	p := seedParties(t, db)
	svc := NewWithdrawalService(db)

	invoice := models.Invoice{HirerID: p.hirer.ID, FreelancerID: p.freelancer.ID,
		ContractID: p.contract.ID, Amount: mustAmount("6000.00"), Paid: true, ChargeStatus: "succeeded"}
	if err := db.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	for _, total := range []string{"5.00", "5000.00"} {
		if _, err := svc.Create(context.Background(), p.freelancer.ID, validWithdrawal(total)); err != nil {
			t.Fatalf("total %s: %v", total, err)
		}
	}
}

func TestWithdrawalValidatesContactFields(t *testing.T) {
	db := setupTestDB(t)
	p := seedParties(t, db)
	svc := NewWithdrawalService(db)

	in := validWithdrawal("50.00")
	in.Method = "bitcoin"
	in.FirstName = "F"
	in.Email = "nope"
	_, err := svc.Create(context.Background(), p.freelancer.ID, in)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWithdrawalChecksAvailableBalance(t *testing.T) {
	db := setupTestDB(t)
	p := seedParties(t, db)
	svc := NewWithdrawalService(db)

	// 40.00 settled.
	invoice := models.Invoice{HirerID: p.hirer.ID, FreelancerID: p.freelancer.ID,
		ContractID: p.contract.ID, Amount: mustAmount("40.00"), Paid: true, ChargeStatus: "succeeded"}
	if err := db.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	// First two requests fit, the third exceeds what is left.
	if _, err := svc.Create(context.Background(), p.freelancer.ID, validWithdrawal("15.00")); err != nil {
		t.Fatalf("first withdrawal: %v", err)
	}
	if _, err := svc.Create(context.Background(), p.freelancer.ID, validWithdrawal("15.00")); err != nil {
		t.Fatalf("second withdrawal: %v", err)
	}
	_, err := svc.Create(context.Background(), p.freelancer.ID, validWithdrawal("17.00"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error past available balance, got %v", err)
	}

	total, err := svc.Total(context.Background(), p.freelancer.ID)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	amountEq(t, total, "30.00")
}

func TestWithdrawalIgnoresPendingFunds(t *testing.T) {
	db := setupTestDB(t)
	p := seedParties(t, db)
	svc := NewWithdrawalService(db)

	// Paid but still pending at the processor: not withdrawable.
	invoice := models.Invoice{HirerID: p.hirer.ID, FreelancerID: p.freelancer.ID,
		ContractID: p.contract.ID, Amount: mustAmount("100.00"), Paid: true,
		ChargeStatus: models.ChargeStatusPending}
	if err := db.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	_, err := svc.Create(context.Background(), p.freelancer.ID, validWithdrawal("10.00"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error with only pending funds, got %v", err)
	}
}

func TestWithdrawalDefaultsAndDisplay(t *testing.T) {
	db := setupTestDB(t)
	p := seedParties(t, db)
	svc := NewWithdrawalService(db)

	invoice := models.Invoice{HirerID: p.hirer.ID, FreelancerID: p.freelancer.ID,
		ContractID: p.contract.ID, Amount: mustAmount("100.00"), Paid: true, ChargeStatus: "succeeded"}
	if err := db.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	in := validWithdrawal("50.00")
	in.Method = "wu"
	in.Receive = mustAmount("48.00")
	in.Fee = mustAmount("2.00")
	wd, err := svc.Create(context.Background(), p.freelancer.ID, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if wd.Status != models.WithdrawalSubmitted {
		t.Fatalf("status = %q, want submitted", wd.Status)
	}
	if wd.MethodName() != "Western Union" {
		t.Fatalf("method name = %q", wd.MethodName())
	}
	if !wd.Receive.Add(wd.Fee).Equal(wd.TotalAmount) {
		t.Fatalf("receive + fee != total: %+v", wd)
	}
}
