package services

import (
	"context"
	"testing"

	"github.com/fremancer/fremancer/internal/apperr"
	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/payments"
)

func TestAttachSourceCreatesCustomerOnce(t *testing.T) {
	db := setupTestDB(t)
	p := seedParties(t, db)
	proc := newFakeProcessor()
	svc := NewPaymentService(db, proc)

	first, err := svc.AttachSource(context.Background(), p.hirer.ID, "card_tok_visa")
	if err != nil {
		t.Fatalf("attach first: %v", err)
	}
	if first.Object != "card" {
		t.Fatalf("source object = %q, want card", first.Object)
	}
	var bank models.BankRecord
	if err := db.Where("user_id = ?", p.hirer.ID).First(&bank).Error; err != nil {
		t.Fatalf("load bank record: %v", err)
	}
	if bank.CustomerID == "" {
		t.Fatalf("customer id not stored")
	}

	if _, err := svc.AttachSource(context.Background(), p.hirer.ID, "ba_tok_checking"); err != nil {
		t.Fatalf("attach second: %v", err)
	}
	if proc.customerSeq != 1 {
		t.Fatalf("created %d customers, want 1", proc.customerSeq)
	}
	sources, err := svc.ListSources(context.Background(), p.hirer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("listed %d sources, want 2", len(sources))
	}
}

func TestListSourcesWithoutCustomer(t *testing.T) {
	db := setupTestDB(t)
	p := seedParties(t, db)
	svc := NewPaymentService(db, newFakeProcessor())

	sources, err := svc.ListSources(context.Background(), p.hirer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(sources))
	}
	if err := svc.DeleteSource(context.Background(), p.hirer.ID, "card_x"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("delete without customer should be not found, got %v", err)
	}
}

func TestVerifySourceRequiresTwoAmounts(t *testing.T) {
	db := setupTestDB(t)
	p := seedParties(t, db)
	svc := NewPaymentService(db, newFakeProcessor())

	err := svc.VerifySource(context.Background(), p.hirer.ID, "ba_1", []int64{32})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDisplaySource(t *testing.T) {
	card := DisplaySource(payments.Source{ID: "card_1", Object: "card", Brand: "Visa", Last4: "4242"})
	if card.Name != "Visa" || card.Type != "card" {
		t.Fatalf("card display = %+v", card)
	}
	bank := DisplaySource(payments.Source{ID: "ba_1", Object: "bank_account", BankName: "Test Bank", Last4: "6789"})
	if bank.Name != "Test Bank" {
		t.Fatalf("bank display = %+v", bank)
	}
}
