package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/apperr"
	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/money"
	"github.com/fremancer/fremancer/internal/payments"
)

// Processing fee parameters, matching the processor's pricing.
var (
	cardFeePercentage = decimal.NewFromFloat(0.029) // 2.9%
	cardFeeFlat       = mustAmount("0.30")
	achFlatFee        = money.FromInt(5)
)

const sourceSplitChar = "_"

func mustAmount(s string) money.Amount {
	a, err := money.Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// InvoiceService validates invoice totals, computes processing fees and
// drives payment collection through the external processor.
type InvoiceService struct {
	db        *gorm.DB
	processor payments.Processor
}

func NewInvoiceService(db *gorm.DB, processor payments.Processor) *InvoiceService {
	return &InvoiceService{db: db, processor: processor}
}

type InvoiceInput struct {
	ContractID   uint
	TimesheetIDs []uint
	TotalHours   decimal.Decimal
	Amount       money.Amount
}

// InvoiceBalance is the per-caller invoice aggregate.
type InvoiceBalance struct {
	Total   money.Amount `json:"total"`
	Pending money.Amount `json:"pending"`
}

// sourceType resolves the kind of payment source behind a token. The
// leading token segment carries the type ("card_..."); tokens without a
// recognizable prefix fall back to a processor lookup.
func (s *InvoiceService) sourceType(ctx context.Context, defaultPayment string) (string, error) {
	if idx := strings.Index(defaultPayment, sourceSplitChar); idx > 0 {
		return defaultPayment[:idx], nil
	}
	source, err := s.processor.RetrieveSource(ctx, defaultPayment)
	if err != nil {
		return "", err
	}
	return source.Object, nil
}

// CalculateFee derives the processing fee from the payment-source type:
// card-like sources pay 2.9% + 0.30, bank/ACH-like sources a flat 5.00.
func (s *InvoiceService) CalculateFee(ctx context.Context, defaultPayment string, amount money.Amount) (money.Amount, error) {
	srcType, err := s.sourceType(ctx, defaultPayment)
	if err != nil {
		return money.Zero, err
	}
	if strings.Contains(srcType, "card") {
		return amount.Mul(cardFeePercentage).Add(cardFeeFlat).Round2(), nil
	}
	return achFlatFee, nil
}

// Create issues an invoice over a set of uninvoiced timesheets. The
// declared totals must match the timesheet sums exactly, and no
// referenced timesheet may already belong to another invoice; that check
// runs inside the insert transaction.
func (s *InvoiceService) Create(ctx context.Context, freelancerID uint, in InvoiceInput) (*models.Invoice, error) {
	if len(in.TimesheetIDs) == 0 {
		return nil, apperr.FieldValidation(map[string]string{"timesheets": "required"})
	}
	dbc := s.db.WithContext(ctx)
	var contract models.Contract
	err := dbc.First(&contract, in.ContractID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.FieldValidation(map[string]string{"contract": "unknown contract"})
	}
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}

	var sheets []models.TimeSheet
	if err := dbc.Where("id IN ? AND contract_id = ?", in.TimesheetIDs, contract.ID).Find(&sheets).Error; err != nil {
		return nil, fmt.Errorf("load timesheets: %w", err)
	}
	if len(sheets) != len(in.TimesheetIDs) {
		return nil, apperr.FieldValidation(map[string]string{"timesheets": "unknown or foreign timesheet"})
	}

	sumHours := decimal.Zero
	sumAmount := money.Zero
	for _, ts := range sheets {
		sumHours = sumHours.Add(ts.TotalHours)
		sumAmount = sumAmount.Add(ts.TotalAmount)
	}
	if !sumHours.Equal(in.TotalHours) {
		return nil, apperr.Validationf("invalid total hours: %s", in.TotalHours)
	}
	if !sumAmount.Equal(in.Amount) {
		return nil, apperr.Validationf("invalid amount: %s", in.Amount)
	}
	if !in.Amount.Within(models.MinInvoiceAmount, models.MaxInvoiceAmount) {
		return nil, apperr.Validationf("amount %s outside [%s, %s]",
			in.Amount, models.MinInvoiceAmount, models.MaxInvoiceAmount)
	}

	fee, err := s.CalculateFee(ctx, contract.DefaultPayment, in.Amount)
	if err != nil {
		return nil, err
	}

	invoice := models.Invoice{
		HirerID:      contract.HirerID,
		FreelancerID: freelancerID,
		ContractID:   contract.ID,
		TotalHours:   in.TotalHours,
		Amount:       in.Amount,
		Fee:          fee,
		TotalAmount:  in.Amount.Add(fee),
	}
	err = dbc.Transaction(func(tx *gorm.DB) error {
		var linked int64
		if err := tx.Table("invoice_timesheets").Where("time_sheet_id IN ?", in.TimesheetIDs).Count(&linked).Error; err != nil {
			return fmt.Errorf("check timesheet linkage: %w", err)
		}
		if linked > 0 {
			return apperr.Conflict("timesheet already invoiced")
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if err := tx.Model(&invoice).Association("Timesheets").Append(sheets); err != nil {
			return fmt.Errorf("link timesheets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invoice.Timesheets = sheets
	return &invoice, nil
}

// visible scopes invoices by the caller's membership.
func (s *InvoiceService) visible(ctx context.Context, callerID uint) (*gorm.DB, error) {
	dbc := s.db.WithContext(ctx)
	profile, err := profileOf(dbc, callerID)
	if err != nil {
		return nil, err
	}
	q := dbc.Model(&models.Invoice{}).Order("created_at desc")
	if profile.IsFreelancer() {
		return q.Where("freelancer_id = ?", callerID), nil
	}
	return q.Where("hirer_id = ?", callerID), nil
}

// List returns invoices visible to the caller, newest first.
func (s *InvoiceService) List(ctx context.Context, callerID uint) ([]models.Invoice, error) {
	q, err := s.visible(ctx, callerID)
	if err != nil {
		return nil, err
	}
	var invoices []models.Invoice
	if err := q.Preload("Timesheets").Preload("Contract").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// Retrieve loads one visible invoice. When a charge exists but the
// invoice is not yet marked paid, the charge status is refreshed from the
// processor before returning.
func (s *InvoiceService) Retrieve(ctx context.Context, callerID, id uint) (*models.Invoice, error) {
	q, err := s.visible(ctx, callerID)
	if err != nil {
		return nil, err
	}
	var invoice models.Invoice
	err = q.Preload("Timesheets").Preload("Contract").Preload("Contract.Hirer").Preload("Contract.Freelancer").
		Where("invoices.id = ?", id).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("invoice not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load invoice: %w", err)
	}
	if invoice.ChargeID != "" && !invoice.Paid {
		if err := s.refreshChargeStatus(ctx, &invoice); err != nil {
			return nil, err
		}
	}
	return &invoice, nil
}

func (s *InvoiceService) refreshChargeStatus(ctx context.Context, invoice *models.Invoice) error {
	charge, err := s.processor.RetrieveCharge(ctx, invoice.ChargeID)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"paid": charge.Paid, "charge_status": charge.Status}
	if err := s.db.WithContext(ctx).Model(invoice).Updates(updates).Error; err != nil {
		return fmt.Errorf("refresh charge status: %w", err)
	}
	invoice.Paid = charge.Paid
	invoice.ChargeStatus = charge.Status
	return nil
}

// chargeMetadata describes the contract and each linked timesheet for the
// processor's records.
func chargeMetadata(invoice *models.Invoice) map[string]string {
	metadata := map[string]string{
		"contract": strconv.FormatUint(uint64(invoice.ContractID), 10),
		"hours":    invoice.TotalHours.String(),
	}
	for n, ts := range invoice.Timesheets {
		prefix := "timesheet_" + strconv.Itoa(n)
		metadata[prefix+"_id"] = strconv.FormatUint(uint64(ts.ID), 10)
		metadata[prefix+"_hours"] = ts.TotalHours.String()
		metadata[prefix+"_amount"] = ts.TotalAmount.String()
	}
	return metadata
}

// Pay charges the invoice total through the processor using the caller's
// customer record and the contract's default payment source. Processor
// failures surface to the caller; local state stays untouched.
func (s *InvoiceService) Pay(ctx context.Context, callerID, id uint) (*models.Invoice, error) {
	dbc := s.db.WithContext(ctx)
	var invoice models.Invoice
	err := dbc.Preload("Timesheets").Preload("Contract").Preload("Freelancer").First(&invoice, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("invoice not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load invoice: %w", err)
	}
	if invoice.Paid {
		return nil, apperr.Validation("invoice already paid")
	}
	bank, err := bankOf(dbc, callerID)
	if err != nil {
		return nil, err
	}
	charge, err := s.processor.CreateCharge(ctx, payments.ChargeParams{
		Amount:   invoice.TotalAmount.Cents(),
		Currency: "usd",
		Customer: bank.CustomerID,
		Source:   invoice.Contract.DefaultPayment,
		Description: fmt.Sprintf("Charge for %s in %s hours",
			invoice.Freelancer.FullName(), invoice.TotalHours),
		Metadata: chargeMetadata(&invoice),
	})
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"paid":          charge.Paid,
		"charge_id":     charge.ID,
		"charge_status": charge.Status,
	}
	if err := dbc.Model(&invoice).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("record charge: %w", err)
	}
	invoice.Paid = charge.Paid
	invoice.ChargeID = charge.ID
	invoice.ChargeStatus = charge.Status
	return &invoice, nil
}

// Balance sums total_amount over the caller's visible invoices, and
// separately over those whose charge status is pending.
func (s *InvoiceService) Balance(ctx context.Context, callerID uint) (*InvoiceBalance, error) {
	q, err := s.visible(ctx, callerID)
	if err != nil {
		return nil, err
	}
	var invoices []models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	balance := InvoiceBalance{Total: money.Zero, Pending: money.Zero}
	for _, invoice := range invoices {
		balance.Total = balance.Total.Add(invoice.TotalAmount)
		if invoice.Pending() {
			balance.Pending = balance.Pending.Add(invoice.TotalAmount)
		}
	}
	return &balance, nil
}

// ApplyChargeNotification updates the invoice matching a processor
// charge event (webhook path).
func (s *InvoiceService) ApplyChargeNotification(ctx context.Context, chargeID string, paid bool, status string) error {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Where("charge_id = ?", chargeID).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("no invoice for charge " + chargeID)
	}
	if err != nil {
		return fmt.Errorf("load invoice by charge: %w", err)
	}
	updates := map[string]interface{}{"paid": paid, "charge_status": status}
	if err := s.db.WithContext(ctx).Model(&invoice).Updates(updates).Error; err != nil {
		return fmt.Errorf("apply charge notification: %w", err)
	}
	return nil
}
