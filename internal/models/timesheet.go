package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fremancer/fremancer/internal/apperr"
	"github.com/fremancer/fremancer/internal/money"
)

// TimeSheet statuses, in precedence order.
const (
	TimeSheetPaid       = "Paid"
	TimeSheetInvoiced   = "Invoiced"
	TimeSheetInProgress = "In Progress"
)

// TimeSheet is a weekly time report against a contract. The week always
// starts on a Monday and a contract has at most one sheet per week.
type TimeSheet struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ContractID uint      `gorm:"not null;uniqueIndex:uk_contract_week,priority:1" json:"contract"`
	Contract   Contract  `gorm:"foreignKey:ContractID" json:"-"`
	UserID     uint      `gorm:"not null;index" json:"user"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	StartDate  time.Time `gorm:"type:date;uniqueIndex:uk_contract_week,priority:2" json:"start_date"`

	Summary     string          `json:"summary"`
	TotalHours  decimal.Decimal `gorm:"type:numeric(7,2)" json:"total_hours"`
	TotalAmount money.Amount    `gorm:"type:numeric(10,2)" json:"total_amount"`

	CreatedAt time.Time `json:"date_created"`
	UpdatedAt time.Time `json:"date_changed"`
}

// DailySheet is the per-day breakdown of a TimeSheet. Exactly seven exist
// per sheet, one for each day of the week starting at StartDate.
type DailySheet struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	TimeSheetID uint            `gorm:"not null;uniqueIndex:uk_sheet_day,priority:1" json:"timesheet"`
	TimeSheet   TimeSheet       `gorm:"foreignKey:TimeSheetID" json:"-"`
	UserID      uint            `gorm:"not null;index" json:"user"`
	ReportDate  time.Time       `gorm:"type:date;uniqueIndex:uk_sheet_day,priority:2" json:"report_date"`
	Summary     string          `json:"summary"`
	Hours       decimal.Decimal `gorm:"type:numeric(4,2)" json:"hours"`

	CreatedAt time.Time `json:"date_created"`
	UpdatedAt time.Time `json:"date_changed"`
}

func (TimeSheet) TableName() string  { return "timesheets" }
func (DailySheet) TableName() string { return "daily_sheets" }

// ValidateWeekStart rejects any start date that is not a Monday.
func ValidateWeekStart(d time.Time) error {
	if d.Weekday() != time.Monday {
		return apperr.FieldValidation(map[string]string{
			"start_date": "date " + d.Format("2006-01-02") + " is not a Monday",
		})
	}
	return nil
}
