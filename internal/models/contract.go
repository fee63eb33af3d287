package models

import (
	"time"

	"github.com/fremancer/fremancer/internal/money"
)

const (
	ContractHourly = "hourly"
	ContractFixed  = "fixed"
	ContractWage   = "wage"

	DurationShort = "short"
	DurationLong  = "long"

	ApplicationInvitation = "invitation"
	ApplicationPublic     = "public"
)

// Contract is the agreement between a hirer and a freelancer.
// Exactly one of the rate fields is meaningful per contract type.
type Contract struct {
	ID           uint  `gorm:"primaryKey" json:"id"`
	HirerID      uint  `gorm:"not null;index" json:"hirer"`
	Hirer        User  `gorm:"foreignKey:HirerID" json:"-"`
	FreelancerID *uint `gorm:"index" json:"freelancer"`
	Freelancer   *User `gorm:"foreignKey:FreelancerID" json:"-"`

	// Default payment source token at the processor, e.g. "card_...".
	DefaultPayment string `gorm:"size:100" json:"default_payment"`

	Title       string `gorm:"size:255" json:"title"`
	Description string `json:"description"`
	TotalBudget *uint  `json:"total_budget"`
	Duration    string `gorm:"size:25" json:"duration"`      // short | long
	ContractType string `gorm:"size:25" json:"contract_type"` // hourly | fixed | wage

	HourlyRate     money.Amount `gorm:"type:numeric(7,2)" json:"hourly_rate"`
	MaxWeeklyHours uint         `gorm:"default:40" json:"max_weekly_hours"`
	FixedAmount    money.Amount `gorm:"type:numeric(7,2)" json:"fixed_amount"`
	WageAmount     money.Amount `gorm:"type:numeric(7,2)" json:"wage_amount"`

	ApplicationType string `gorm:"size:25;default:invitation" json:"application_type"`
	Accepted        bool   `gorm:"default:false" json:"accepted"`

	CreatedAt time.Time `json:"date_created"`
	UpdatedAt time.Time `json:"date_changed"`
}

func (c *Contract) IsHourly() bool { return c.ContractType == ContractHourly }
func (c *Contract) IsWage() bool   { return c.ContractType == ContractWage }

func (c *Contract) HirerName() string { return c.Hirer.FullName() }

func (c *Contract) FreelancerName() string {
	if c.Freelancer == nil {
		return ""
	}
	return c.Freelancer.FullName()
}
