package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/apperr"
	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/payments"
)

// PaymentService manages a user's payment sources on the external
// processor. The processor customer is created lazily, with the first
// attached source, and remembered on the user's bank record.
type PaymentService struct {
	db        *gorm.DB
	processor payments.Processor
}

func NewPaymentService(db *gorm.DB, processor payments.Processor) *PaymentService {
	return &PaymentService{db: db, processor: processor}
}

// customerID returns the user's stored processor customer id, or "".
func (s *PaymentService) customerID(ctx context.Context, userID uint) (string, error) {
	bank, err := bankOf(s.db.WithContext(ctx), userID)
	if err != nil {
		return "", err
	}
	return bank.CustomerID, nil
}

// AttachSource attaches a tokenized source to the user's processor
// customer. The first source creates the customer.
func (s *PaymentService) AttachSource(ctx context.Context, userID uint, token string) (*payments.Source, error) {
	if token == "" {
		return nil, apperr.FieldValidation(map[string]string{"token": "required"})
	}
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		var user models.User
		if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
		customer, err := s.processor.CreateCustomer(ctx, token, user.Email, "customer for "+user.FullName())
		if err != nil {
			return nil, err
		}
		err = s.db.WithContext(ctx).Model(&models.BankRecord{UserID: userID}).
			Update("customer_id", customer.ID).Error
		if err != nil {
			return nil, fmt.Errorf("store customer id: %w", err)
		}
		if len(customer.Sources) > 0 {
			return &customer.Sources[0], nil
		}
		sources, err := s.processor.ListSources(ctx, customer.ID)
		if err != nil || len(sources) == 0 {
			return &payments.Source{ID: token}, nil
		}
		return &sources[0], nil
	}
	return s.processor.CreateSource(ctx, customerID, token)
}

// ListSources returns the user's attached sources. A user without a
// processor customer has none.
func (s *PaymentService) ListSources(ctx context.Context, userID uint) ([]payments.Source, error) {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return []payments.Source{}, nil
	}
	return s.processor.ListSources(ctx, customerID)
}

// DeleteSource detaches a source from the user's customer.
func (s *PaymentService) DeleteSource(ctx context.Context, userID uint, sourceID string) error {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return err
	}
	if customerID == "" {
		return apperr.NotFound("payment source not found")
	}
	return s.processor.DeleteSource(ctx, customerID, sourceID)
}

// VerifySource confirms a bank account with its two micro-deposit
// amounts, given in cents.
func (s *PaymentService) VerifySource(ctx context.Context, userID uint, sourceID string, amounts []int64) error {
	if len(amounts) != 2 {
		return apperr.FieldValidation(map[string]string{"amounts": "two deposit amounts required"})
	}
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return err
	}
	if customerID == "" {
		return apperr.NotFound("payment source not found")
	}
	return s.processor.VerifySource(ctx, customerID, sourceID, amounts)
}

// SourceDisplay is the user-facing rendering of a processor source.
type SourceDisplay struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Last4 string `json:"last4"`
}

// DisplaySource renders a source for listing: cards show their brand,
// bank accounts the bank name.
func DisplaySource(src payments.Source) SourceDisplay {
	d := SourceDisplay{ID: src.ID, Type: src.Object, Last4: src.Last4}
	if strings.Contains(src.Object, "card") {
		d.Name = src.Brand
	} else {
		d.Name = src.BankName
	}
	if d.Name == "" {
		d.Name = src.Name
	}
	return d
}
