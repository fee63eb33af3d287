package models

import (
	"time"

	"github.com/fremancer/fremancer/internal/money"
)

// Withdrawal amount bounds in whole currency units.
var (
	MinWithdrawalAmount = money.FromInt(5)
	MaxWithdrawalAmount = money.FromInt(5000)
)

const (
	WithdrawalSubmitted = "submitted"
	WithdrawalProcessed = "processed"
	WithdrawalFinished  = "finished"
	WithdrawalCancelled = "cancelled"
)

var withdrawalMethodNames = map[string]string{
	"wu":        "Western Union",
	"moneygram": "Money Gram",
	"paypal":    "PayPal",
	"payoneer":  "Payoneer",
}

var withdrawalStatusTitles = map[string]string{
	WithdrawalSubmitted: "Submitted",
	WithdrawalProcessed: "Processed",
	WithdrawalFinished:  "Finished",
	WithdrawalCancelled: "Cancelled",
}

// Withdrawal is a freelancer's request to move available balance off the
// platform. Status is advanced by an operational process outside this API.
type Withdrawal struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	FreelancerID uint `gorm:"not null;index" json:"freelancer"`
	Freelancer   User `gorm:"foreignKey:FreelancerID" json:"-"`

	Receive     money.Amount `gorm:"type:numeric(10,2)" json:"receive"`
	Fee         money.Amount `gorm:"type:numeric(10,2)" json:"fee"`
	TotalAmount money.Amount `gorm:"type:numeric(10,2)" json:"total_amount"`

	Method        string `gorm:"size:25" json:"method"`         // wu | moneygram | paypal | payoneer
	ReceiveMethod string `gorm:"size:25" json:"receive_method"` // cash | bank
	Status        string `gorm:"size:25;default:submitted" json:"status"`
	Cancel        bool   `gorm:"default:false" json:"cancel"`

	FirstName   string `gorm:"size:255" json:"first_name"`
	LastName    string `gorm:"size:255" json:"last_name"`
	Email       string `gorm:"size:255" json:"email"`
	PhoneNumber string `gorm:"size:255" json:"phone_number"`
	Country     string `gorm:"size:255" json:"country"`
	Region      string `gorm:"size:255" json:"region"`

	BankNumber string `gorm:"size:255" json:"bank_number"`
	BankIBAN   string `gorm:"size:255" json:"bank_iban"`
	BankSwift  string `gorm:"size:255" json:"bank_swift"`

	CreatedAt time.Time `json:"date_created"`
	UpdatedAt time.Time `json:"date_changed"`
}

// MethodName returns the display name for the payout method.
func (w *Withdrawal) MethodName() string {
	if name, ok := withdrawalMethodNames[w.Method]; ok {
		return name
	}
	return w.Method
}

// StatusTitle returns the display title for the status.
func (w *Withdrawal) StatusTitle() string {
	if title, ok := withdrawalStatusTitles[w.Status]; ok {
		return title
	}
	return w.Status
}
