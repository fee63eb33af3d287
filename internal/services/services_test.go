package services

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/models"
	"github.com/fremancer/fremancer/internal/money"
	"github.com/fremancer/fremancer/internal/payments"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Profile{}, &models.BankRecord{},
		&models.Contract{}, &models.TimeSheet{}, &models.DailySheet{},
		&models.Invoice{}, &models.Withdrawal{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type parties struct {
	hirer      models.User
	freelancer models.User
	contract   models.Contract
}

// seedParties creates a hirer, a freelancer and an accepted hourly
// contract at 20.00/h between them.
func seedParties(t *testing.T, db *gorm.DB) parties {
	t.Helper()
	hirer := models.User{Email: "hirer@example.com", Password: "hash", FirstName: "Harry", LastName: "Hirer"}
	freelancer := models.User{Email: "free@example.com", Password: "hash", FirstName: "Fran", LastName: "Lancer"}
	for _, u := range []*models.User{&hirer, &freelancer} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	profiles := []models.Profile{
		{UserID: hirer.ID, Membership: models.MembershipHirer},
		{UserID: freelancer.ID, Membership: models.MembershipFreelancer},
	}
	if err := db.Create(&profiles).Error; err != nil {
		t.Fatalf("seed profiles: %v", err)
	}
	contract := models.Contract{
		HirerID:        hirer.ID,
		FreelancerID:   &freelancer.ID,
		Title:          "Backend work",
		ContractType:   models.ContractHourly,
		Duration:       models.DurationLong,
		HourlyRate:     mustAmount("20.00"),
		MaxWeeklyHours: 40,
		DefaultPayment: "card_tok_visa",
		Accepted:       true,
	}
	if err := db.Create(&contract).Error; err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	return parties{hirer: hirer, freelancer: freelancer, contract: contract}
}

// monday returns a fixed Monday, offset by weeks.
func monday(weeks int) time.Time {
	base := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC) // a Monday
	return base.AddDate(0, 0, 7*weeks)
}

// fakeProcessor is an in-memory payment processor for tests.
type fakeProcessor struct {
	customers   map[string]*payments.Customer
	sources     map[string]payments.Source
	charges     map[string]*payments.Charge
	chargeSeq   int
	customerSeq int
	lastCharge  payments.ChargeParams
	chargeErr   error
	chargePaid  bool
	chargeState string
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		customers:   map[string]*payments.Customer{},
		sources:     map[string]payments.Source{},
		charges:     map[string]*payments.Charge{},
		chargePaid:  true,
		chargeState: "succeeded",
	}
}

func (f *fakeProcessor) CreateCustomer(_ context.Context, sourceToken, email, _ string) (*payments.Customer, error) {
	f.customerSeq++
	customer := &payments.Customer{ID: "cus_" + strconv.Itoa(f.customerSeq), Email: email}
	if sourceToken != "" {
		src := payments.Source{ID: sourceToken, Object: objectOf(sourceToken), Last4: "4242", Brand: "Visa", BankName: "Test Bank"}
		customer.Sources = append(customer.Sources, src)
		f.sources[src.ID] = src
	}
	f.customers[customer.ID] = customer
	return customer, nil
}

func (f *fakeProcessor) RetrieveCustomer(_ context.Context, customerID string) (*payments.Customer, error) {
	return f.customers[customerID], nil
}

func (f *fakeProcessor) CreateSource(_ context.Context, customerID, sourceToken string) (*payments.Source, error) {
	src := payments.Source{ID: sourceToken, Object: objectOf(sourceToken), Last4: "4242", Brand: "Visa", BankName: "Test Bank"}
	f.sources[src.ID] = src
	if customer := f.customers[customerID]; customer != nil {
		customer.Sources = append(customer.Sources, src)
	}
	return &src, nil
}

func (f *fakeProcessor) RetrieveSource(_ context.Context, sourceID string) (*payments.Source, error) {
	src, ok := f.sources[sourceID]
	if !ok {
		src = payments.Source{ID: sourceID, Object: objectOf(sourceID)}
	}
	return &src, nil
}

func (f *fakeProcessor) ListSources(_ context.Context, customerID string) ([]payments.Source, error) {
	if customer := f.customers[customerID]; customer != nil {
		return customer.Sources, nil
	}
	return nil, nil
}

func (f *fakeProcessor) DeleteSource(_ context.Context, customerID, sourceID string) error {
	delete(f.sources, sourceID)
	if customer := f.customers[customerID]; customer != nil {
		kept := customer.Sources[:0]
		for _, src := range customer.Sources {
			if src.ID != sourceID {
				kept = append(kept, src)
			}
		}
		customer.Sources = kept
	}
	return nil
}

func (f *fakeProcessor) VerifySource(_ context.Context, _, _ string, _ []int64) error {
	return nil
}

func (f *fakeProcessor) CreateCharge(_ context.Context, params payments.ChargeParams) (*payments.Charge, error) {
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	f.chargeSeq++
	f.lastCharge = params
	charge := &payments.Charge{ID: "ch_" + strconv.Itoa(f.chargeSeq), Paid: f.chargePaid, Status: f.chargeState}
	f.charges[charge.ID] = charge
	return charge, nil
}

func (f *fakeProcessor) RetrieveCharge(_ context.Context, chargeID string) (*payments.Charge, error) {
	return f.charges[chargeID], nil
}

func objectOf(token string) string {
	if len(token) >= 4 && token[:4] == "card" {
		return "card"
	}
	return "bank_account"
}

var _ payments.Processor = (*fakeProcessor)(nil)

func amountEq(t *testing.T, got money.Amount, want string) {
	t.Helper()
	w := mustAmount(want)
	if !got.Equal(w) {
		t.Fatalf("amount = %s, want %s", got, w)
	}
}
