package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fremancer/fremancer/internal/money"
)

// Invoice amount bounds in whole currency units.
var (
	MinInvoiceAmount = money.FromInt(5)
	MaxInvoiceAmount = money.FromInt(10000)
)

const ChargeStatusPending = "pending"

// Invoice bills one or more timesheets of a contract. Once created it is
// never updated through the API; only payment state advances.
type Invoice struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	HirerID      uint     `gorm:"not null;index" json:"hirer"`
	Hirer        User     `gorm:"foreignKey:HirerID" json:"-"`
	FreelancerID uint     `gorm:"not null;index" json:"freelancer"`
	Freelancer   User     `gorm:"foreignKey:FreelancerID" json:"-"`
	ContractID   uint     `gorm:"not null;index" json:"contract"`
	Contract     Contract `gorm:"foreignKey:ContractID" json:"-"`

	Timesheets []TimeSheet `gorm:"many2many:invoice_timesheets" json:"-"`

	Paid        bool            `gorm:"default:false" json:"paid"`
	TotalHours  decimal.Decimal `gorm:"type:numeric(7,2)" json:"total_hours"`
	Amount      money.Amount    `gorm:"type:numeric(10,2)" json:"amount"`
	Fee         money.Amount    `gorm:"type:numeric(10,2)" json:"fee"`
	TotalAmount money.Amount    `gorm:"type:numeric(10,2)" json:"total_amount"`

	ChargeID     string `gorm:"size:100;index" json:"charge_id"`
	ChargeStatus string `gorm:"size:100" json:"charge_status"`

	CreatedAt time.Time `json:"date_created"`
	UpdatedAt time.Time `json:"date_changed"`
}

// Pending reports whether the processor still classifies the charge as
// pending. Independent of Paid: a paid invoice with a pending charge
// still withholds funds from the available balance.
func (i *Invoice) Pending() bool { return i.ChargeStatus == ChargeStatusPending }

// Status derives the display status from the charge state.
func (i *Invoice) Status() string {
	if i.ChargeStatus != "" {
		return titleCase(i.ChargeStatus + " payment")
	}
	return "Invoiced"
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for n, w := range words {
		words[n] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
