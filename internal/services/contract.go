package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/apperr"
	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/money"
)

// ContractService owns contract creation, listing and acceptance.
type ContractService struct {
	db *gorm.DB
}

func NewContractService(db *gorm.DB) *ContractService { return &ContractService{db: db} }

type ContractInput struct {
	FreelancerID   *uint
	DefaultPayment string
	Title          string
	Description    string
	TotalBudget    *uint
	Duration       string
	ContractType   string
	HourlyRate     money.Amount
	MaxWeeklyHours uint
	FixedAmount    money.Amount
	WageAmount     money.Amount
	ApplicationType string
}

func validContractType(t string) bool {
	return t == models.ContractHourly || t == models.ContractFixed || t == models.ContractWage
}

// Create registers a contract owned by the calling hirer.
func (s *ContractService) Create(ctx context.Context, hirerID uint, in ContractInput) (*models.Contract, error) {
	fields := map[string]string{}
	if in.Title == "" {
		fields["title"] = "required"
	}
	if !validContractType(in.ContractType) {
		fields["contract_type"] = "must be one of hourly, fixed, wage"
	}
	if in.Duration != models.DurationShort && in.Duration != models.DurationLong {
		fields["duration"] = "must be one of short, long"
	}
	switch in.ContractType {
	case models.ContractHourly:
		if !in.HourlyRate.IsPositive() {
			fields["hourly_rate"] = "required for hourly contracts"
		}
	case models.ContractFixed:
		if !in.FixedAmount.IsPositive() {
			fields["fixed_amount"] = "required for fixed contracts"
		}
	case models.ContractWage:
		if !in.WageAmount.IsPositive() {
			fields["wage_amount"] = "required for wage contracts"
		}
	}
	if len(fields) > 0 {
		return nil, apperr.FieldValidation(fields)
	}

	appType := in.ApplicationType
	if appType == "" {
		appType = models.ApplicationInvitation
	}
	maxHours := in.MaxWeeklyHours
	if maxHours == 0 {
		maxHours = 40
	}
	contract := models.Contract{
		HirerID:         hirerID,
		FreelancerID:    in.FreelancerID,
		DefaultPayment:  in.DefaultPayment,
		Title:           in.Title,
		Description:     in.Description,
		TotalBudget:     in.TotalBudget,
		Duration:        in.Duration,
		ContractType:    in.ContractType,
		HourlyRate:      in.HourlyRate,
		MaxWeeklyHours:  maxHours,
		FixedAmount:     in.FixedAmount,
		WageAmount:      in.WageAmount,
		ApplicationType: appType,
	}
	if err := s.db.WithContext(ctx).Create(&contract).Error; err != nil {
		return nil, fmt.Errorf("create contract: %w", err)
	}
	return &contract, nil
}

// List returns contracts visible to the caller, newest first.
func (s *ContractService) List(ctx context.Context, callerID uint) ([]models.Contract, error) {
	profile, err := profileOf(s.db.WithContext(ctx), callerID)
	if err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Preload("Hirer").Preload("Freelancer").Order("created_at desc")
	if profile.IsHirer() {
		q = q.Where("hirer_id = ?", callerID)
	} else {
		q = q.Where("freelancer_id = ?", callerID)
	}
	var contracts []models.Contract
	if err := q.Find(&contracts).Error; err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	return contracts, nil
}

// Get loads one contract the caller is a party of.
func (s *ContractService) Get(ctx context.Context, callerID, id uint) (*models.Contract, error) {
	var contract models.Contract
	err := s.db.WithContext(ctx).Preload("Hirer").Preload("Freelancer").First(&contract, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("contract not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if contract.HirerID != callerID && (contract.FreelancerID == nil || *contract.FreelancerID != callerID) {
		return nil, apperr.Authorization("not a party of this contract")
	}
	return &contract, nil
}

// Accept marks the contract accepted. Only the assigned freelancer may accept.
func (s *ContractService) Accept(ctx context.Context, callerID, id uint) (*models.Contract, error) {
	var contract models.Contract
	err := s.db.WithContext(ctx).First(&contract, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("contract not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if contract.FreelancerID == nil || *contract.FreelancerID != callerID {
		return nil, apperr.Authorization("only the assigned freelancer can accept")
	}
	if err := s.db.WithContext(ctx).Model(&contract).Update("accepted", true).Error; err != nil {
		return nil, fmt.Errorf("accept contract: %w", err)
	}
	contract.Accepted = true
	return &contract, nil
}
