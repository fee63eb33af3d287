package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/apperr"
	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/money"
)

const daysInWeek = 7

// TimeSheetService owns weekly timesheets and their daily sheets.
type TimeSheetService struct {
	db *gorm.DB
}

func NewTimeSheetService(db *gorm.DB) *TimeSheetService { return &TimeSheetService{db: db} }

type TimeSheetInput struct {
	ContractID  uint
	StartDate   time.Time
	Summary     string
	TotalHours  decimal.Decimal
	TotalAmount money.Amount
}

// TimeSheetDetail is the retrieve payload: the sheet plus its contract,
// its seven daily sheets, and the adjacent-week sheet ids.
type TimeSheetDetail struct {
	TimeSheet   models.TimeSheet
	Contract    models.Contract
	DailySheets []models.DailySheet
	PrevID      *uint
	NextID      *uint
}

// invoicedIn reports whether the timesheet is linked to any invoice.
func invoicedIn(tx *gorm.DB, timesheetID uint) (bool, error) {
	var count int64
	err := tx.Table("invoice_timesheets").Where("time_sheet_id = ?", timesheetID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check invoiced: %w", err)
	}
	return count > 0, nil
}

// paidIn reports whether any linked invoice is paid.
func paidIn(tx *gorm.DB, timesheetID uint) (bool, error) {
	var count int64
	err := tx.Table("invoice_timesheets it").
		Joins("JOIN invoices i ON i.id = it.invoice_id").
		Where("it.time_sheet_id = ? AND i.paid = ?", timesheetID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check paid: %w", err)
	}
	return count > 0, nil
}

// Status derives the three-state display status, paid taking precedence.
func (s *TimeSheetService) Status(ctx context.Context, timesheetID uint) (string, error) {
	tx := s.db.WithContext(ctx)
	paid, err := paidIn(tx, timesheetID)
	if err != nil {
		return "", err
	}
	if paid {
		return models.TimeSheetPaid, nil
	}
	invoiced, err := invoicedIn(tx, timesheetID)
	if err != nil {
		return "", err
	}
	if invoiced {
		return models.TimeSheetInvoiced, nil
	}
	return models.TimeSheetInProgress, nil
}

// guardEditable fails with an immutability error once the sheet is
// invoiced or paid. Must run inside the same transaction as the write.
func guardEditable(tx *gorm.DB, timesheetID uint) error {
	invoiced, err := invoicedIn(tx, timesheetID)
	if err != nil {
		return err
	}
	if invoiced {
		return apperr.Immutable("timesheet no longer editable")
	}
	paid, err := paidIn(tx, timesheetID)
	if err != nil {
		return err
	}
	if paid {
		return apperr.Immutable("timesheet no longer editable")
	}
	return nil
}

// ensureDailySheets creates the seven daily sheets of the week,
// lookup-or-create so repeated calls never duplicate.
func ensureDailySheets(tx *gorm.DB, sheet *models.TimeSheet, userID uint) ([]models.DailySheet, error) {
	sheets := make([]models.DailySheet, 0, daysInWeek)
	for delta := 0; delta < daysInWeek; delta++ {
		day := models.DailySheet{
			TimeSheetID: sheet.ID,
			UserID:      userID,
			ReportDate:  sheet.StartDate.AddDate(0, 0, delta),
		}
		if err := tx.Where("time_sheet_id = ? AND report_date = ?", sheet.ID, day.ReportDate).
			FirstOrCreate(&day).Error; err != nil {
			return nil, fmt.Errorf("daily sheet for %s: %w", day.ReportDate.Format("2006-01-02"), err)
		}
		sheets = append(sheets, day)
	}
	return sheets, nil
}

// Create persists a weekly timesheet and generates its daily sheets.
func (s *TimeSheetService) Create(ctx context.Context, callerID uint, in TimeSheetInput) (*models.TimeSheet, error) {
	if err := models.ValidateWeekStart(in.StartDate); err != nil {
		return nil, err
	}
	var contract models.Contract
	err := s.db.WithContext(ctx).First(&contract, in.ContractID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.FieldValidation(map[string]string{"contract": "unknown contract"})
	}
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if contract.IsHourly() && in.TotalHours.GreaterThan(decimal.NewFromInt(int64(contract.MaxWeeklyHours))) {
		return nil, apperr.FieldValidation(map[string]string{
			"total_hours": fmt.Sprintf("invalid total hours %s, max %d", in.TotalHours, contract.MaxWeeklyHours),
		})
	}

	totalAmount := in.TotalAmount
	if contract.IsWage() {
		// Wage contracts pay the fixed weekly amount regardless of input.
		totalAmount = contract.WageAmount
	}

	sheet := models.TimeSheet{
		ContractID:  contract.ID,
		UserID:      callerID,
		StartDate:   in.StartDate,
		Summary:     in.Summary,
		TotalHours:  in.TotalHours,
		TotalAmount: totalAmount,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.TimeSheet
		err := tx.Where("contract_id = ? AND start_date = ?", contract.ID, in.StartDate).First(&existing).Error
		if err == nil {
			return apperr.Conflict("timesheet already exists for this week")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check existing timesheet: %w", err)
		}
		if err := tx.Create(&sheet).Error; err != nil {
			return fmt.Errorf("create timesheet: %w", err)
		}
		if _, err := ensureDailySheets(tx, &sheet, callerID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

// Retrieve loads a timesheet with contract, daily sheets and the
// adjacent-week sheet ids, creating adjacent weeks on demand when they
// fall inside the contract lifetime and not in the future.
func (s *TimeSheetService) Retrieve(ctx context.Context, callerID, id uint) (*TimeSheetDetail, error) {
	dbc := s.db.WithContext(ctx)
	var sheet models.TimeSheet
	err := dbc.Preload("Contract").Preload("Contract.Hirer").Preload("Contract.Freelancer").First(&sheet, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("timesheet not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load timesheet: %w", err)
	}
	contract := sheet.Contract
	isFreelancer := contract.FreelancerID != nil && *contract.FreelancerID == callerID
	if !isFreelancer && contract.HirerID != callerID {
		return nil, apperr.Authorization("not a party of this timesheet")
	}

	detail := TimeSheetDetail{TimeSheet: sheet, Contract: contract}
	err = dbc.Transaction(func(tx *gorm.DB) error {
		daily, err := ensureDailySheets(tx, &sheet, sheet.UserID)
		if err != nil {
			return err
		}
		detail.DailySheets = daily

		prevDate := sheet.StartDate.AddDate(0, 0, -daysInWeek)
		if prevDate.After(contract.CreatedAt) {
			prev, err := s.findOrCreateWeek(tx, &contract, sheet.UserID, prevDate)
			if err != nil {
				return err
			}
			detail.PrevID = &prev.ID
		}
		nextDate := sheet.StartDate.AddDate(0, 0, daysInWeek)
		if nextDate.Before(time.Now()) {
			next, err := s.findOrCreateWeek(tx, &contract, sheet.UserID, nextDate)
			if err != nil {
				return err
			}
			detail.NextID = &next.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *TimeSheetService) findOrCreateWeek(tx *gorm.DB, contract *models.Contract, userID uint, start time.Time) (*models.TimeSheet, error) {
	sheet := models.TimeSheet{ContractID: contract.ID, UserID: userID, StartDate: start}
	if err := tx.Where("contract_id = ? AND start_date = ?", contract.ID, start).
		FirstOrCreate(&sheet).Error; err != nil {
		return nil, fmt.Errorf("adjacent week %s: %w", start.Format("2006-01-02"), err)
	}
	return &sheet, nil
}

// List returns timesheets visible to the caller, most recently changed first.
func (s *TimeSheetService) List(ctx context.Context, callerID uint) ([]models.TimeSheet, error) {
	dbc := s.db.WithContext(ctx)
	profile, err := profileOf(dbc, callerID)
	if err != nil {
		return nil, err
	}
	var sheets []models.TimeSheet
	q := dbc.Order("updated_at desc")
	if profile.IsFreelancer() {
		q = q.Where("user_id = ?", callerID)
	} else {
		q = q.Where("contract_id IN (?)", dbc.Model(&models.Contract{}).Select("id").Where("hirer_id = ?", callerID))
	}
	if err := q.Find(&sheets).Error; err != nil {
		return nil, fmt.Errorf("list timesheets: %w", err)
	}
	return sheets, nil
}

// Unpaid lists timesheets with no linked invoice, optionally filtered by contract.
func (s *TimeSheetService) Unpaid(ctx context.Context, contractID *uint) ([]models.TimeSheet, error) {
	q := s.db.WithContext(ctx).
		Joins("LEFT JOIN invoice_timesheets it ON it.time_sheet_id = timesheets.id").
		Where("it.invoice_id IS NULL")
	if contractID != nil {
		q = q.Where("timesheets.contract_id = ?", *contractID)
	}
	var sheets []models.TimeSheet
	if err := q.Find(&sheets).Error; err != nil {
		return nil, fmt.Errorf("list unpaid timesheets: %w", err)
	}
	return sheets, nil
}

// Update rewrites the mutable fields. The immutability check and the
// write run in one transaction so an invoice created concurrently cannot
// slip between check and write.
func (s *TimeSheetService) Update(ctx context.Context, callerID, id uint, in TimeSheetInput) (*models.TimeSheet, error) {
	var sheet models.TimeSheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Contract").First(&sheet, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("timesheet not found")
		}
		if err != nil {
			return fmt.Errorf("load timesheet: %w", err)
		}
		if sheet.UserID != callerID {
			return apperr.Authorization("not the owner of this timesheet")
		}
		if err := guardEditable(tx, sheet.ID); err != nil {
			return err
		}
		contract := sheet.Contract
		if contract.IsHourly() && in.TotalHours.GreaterThan(decimal.NewFromInt(int64(contract.MaxWeeklyHours))) {
			return apperr.FieldValidation(map[string]string{
				"total_hours": fmt.Sprintf("invalid total hours %s, max %d", in.TotalHours, contract.MaxWeeklyHours),
			})
		}
		totalAmount := in.TotalAmount
		if contract.IsWage() {
			totalAmount = contract.WageAmount
		}
		updates := map[string]interface{}{
			"summary":      in.Summary,
			"total_hours":  in.TotalHours,
			"total_amount": totalAmount,
		}
		if err := tx.Model(&sheet).Updates(updates).Error; err != nil {
			return fmt.Errorf("update timesheet: %w", err)
		}
		sheet.Summary = in.Summary
		sheet.TotalHours = in.TotalHours
		sheet.TotalAmount = totalAmount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

// Delete removes an uninvoiced timesheet and its daily sheets.
func (s *TimeSheetService) Delete(ctx context.Context, callerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sheet models.TimeSheet
		err := tx.First(&sheet, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("timesheet not found")
		}
		if err != nil {
			return fmt.Errorf("load timesheet: %w", err)
		}
		if sheet.UserID != callerID {
			return apperr.Authorization("not the owner of this timesheet")
		}
		if err := guardEditable(tx, sheet.ID); err != nil {
			return err
		}
		if err := tx.Where("time_sheet_id = ?", sheet.ID).Delete(&models.DailySheet{}).Error; err != nil {
			return fmt.Errorf("delete daily sheets: %w", err)
		}
		if err := tx.Delete(&sheet).Error; err != nil {
			return fmt.Errorf("delete timesheet: %w", err)
		}
		return nil
	})
}

type DailySheetInput struct {
	TimeSheetID uint
	ReportDate  time.Time
	Summary     string
	Hours       decimal.Decimal
}

// SaveDaily creates or updates the daily entry for (timesheet, report_date).
func (s *TimeSheetService) SaveDaily(ctx context.Context, callerID uint, in DailySheetInput) (*models.DailySheet, error) {
	var day models.DailySheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sheet models.TimeSheet
		err := tx.First(&sheet, in.TimeSheetID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.FieldValidation(map[string]string{"timesheet": "unknown timesheet"})
		}
		if err != nil {
			return fmt.Errorf("load timesheet: %w", err)
		}
		if sheet.UserID != callerID {
			return apperr.Authorization("not the owner of this timesheet")
		}
		if err := guardEditable(tx, sheet.ID); err != nil {
			return err
		}
		day = models.DailySheet{TimeSheetID: sheet.ID, UserID: callerID, ReportDate: in.ReportDate}
		if err := tx.Where("time_sheet_id = ? AND report_date = ?", sheet.ID, in.ReportDate).
			FirstOrCreate(&day).Error; err != nil {
			return fmt.Errorf("daily sheet: %w", err)
		}
		updates := map[string]interface{}{"summary": in.Summary, "hours": in.Hours}
		if err := tx.Model(&day).Updates(updates).Error; err != nil {
			return fmt.Errorf("update daily sheet: %w", err)
		}
		day.Summary = in.Summary
		day.Hours = in.Hours
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// ListDaily returns the caller's daily sheets, newest report first.
func (s *TimeSheetService) ListDaily(ctx context.Context, callerID uint, timesheetID *uint) ([]models.DailySheet, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", callerID).Order("report_date desc")
	if timesheetID != nil {
		q = q.Where("time_sheet_id = ?", *timesheetID)
	}
	var days []models.DailySheet
	if err := q.Find(&days).Error; err != nil {
		return nil, fmt.Errorf("list daily sheets: %w", err)
	}
	return days, nil
}
