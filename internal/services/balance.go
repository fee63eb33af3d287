package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/money"
)

// BalanceSummary is the freelancer's account position, recomputed fresh
// from invoices and withdrawals on every call.
type BalanceSummary struct {
	Total      money.Amount `json:"total"`
	Balance    money.Amount `json:"balance"`
	Withdrawal money.Amount `json:"withdrawal"`
	Available  money.Amount `json:"available"`
	Pending    money.Amount `json:"pending"`
}

// BalanceService recomputes a freelancer's balance figures. Nothing is
// incrementally maintained; the BankRecord cache is overwritten as a side
// effect of every read.
type BalanceService struct {
	db *gorm.DB
}

func NewBalanceService(db *gorm.DB) *BalanceService { return &BalanceService{db: db} }

// withdrawnTotal sums total_amount over non-cancelled withdrawals.
func withdrawnTotal(tx *gorm.DB, freelancerID uint) (money.Amount, error) {
	var withdrawals []models.Withdrawal
	err := tx.Where("freelancer_id = ? AND cancel = ?", freelancerID, false).Find(&withdrawals).Error
	if err != nil {
		return money.Zero, fmt.Errorf("load withdrawals: %w", err)
	}
	total := money.Zero
	for _, w := range withdrawals {
		total = total.Add(w.TotalAmount)
	}
	return total, nil
}

// computeBalance derives all five figures and writes the balance and
// available amounts back to the freelancer's bank record. Callers that
// need the figures to stay valid for a subsequent write (withdrawal
// creation) must pass their own transaction handle.
func computeBalance(tx *gorm.DB, freelancerID uint) (*BalanceSummary, error) {
	var invoices []models.Invoice
	if err := tx.Where("freelancer_id = ?", freelancerID).Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	total := money.Zero
	pending := money.Zero
	for _, invoice := range invoices {
		total = total.Add(invoice.Amount)
		// Paid and pending are independent flags: a paid invoice whose
		// charge still reports pending keeps withholding funds.
		if !invoice.Paid || invoice.Pending() {
			pending = pending.Add(invoice.Amount)
		}
	}
	withdrawal, err := withdrawnTotal(tx, freelancerID)
	if err != nil {
		return nil, err
	}
	balance := total.Sub(withdrawal)
	available := balance.Sub(pending)

	bank, err := bankOf(tx, freelancerID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"balance": balance, "available": available}
	if err := tx.Model(bank).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("write back bank record: %w", err)
	}

	return &BalanceSummary{
		Total:      total,
		Balance:    balance,
		Withdrawal: withdrawal,
		Available:  available,
		Pending:    pending,
	}, nil
}

// Compute runs the aggregation in its own transaction.
func (s *BalanceService) Compute(ctx context.Context, freelancerID uint) (*BalanceSummary, error) {
	var summary *BalanceSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		summary, err = computeBalance(tx, freelancerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
