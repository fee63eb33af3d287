package models

import "github.com/fremancer/fremancer/internal/money"

// BankRecord holds a user's payment-processor customer id plus cached
// balance figures. The cache is derived data: every balance read
// recomputes it (see services.BalanceService), never the other way round.
type BankRecord struct {
	UserID     uint         `gorm:"primaryKey" json:"user"`
	User       User         `gorm:"foreignKey:UserID" json:"-"`
	Balance    money.Amount `gorm:"type:numeric(10,2)" json:"balance"`
	Available  money.Amount `gorm:"type:numeric(10,2)" json:"available"`
	CustomerID string       `gorm:"size:100" json:"-"` // processor customer id
	Number     string       `json:"number"`
	IBAN       string       `json:"iban"`
	Swift      string       `json:"swift"`
}

func (BankRecord) TableName() string { return "bank_records" }
