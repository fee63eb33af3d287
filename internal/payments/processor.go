package payments

import "context"

// Source is a registered payment source at the processor: a card or a
// bank account.
type Source struct {
	ID                string `json:"id"`
	Object            string `json:"object"` // "card" or "bank_account"
	Last4             string `json:"last4"`
	Brand             string `json:"brand"`
	Name              string `json:"name"`
	ExpMonth          int    `json:"exp_month"`
	ExpYear           int    `json:"exp_year"`
	BankName          string `json:"bank_name"`
	AccountHolderName string `json:"account_holder_name"`
}

type Customer struct {
	ID      string   `json:"id"`
	Email   string   `json:"email"`
	Sources []Source `json:"-"`
}

type Charge struct {
	ID     string `json:"id"`
	Paid   bool   `json:"paid"`
	Status string `json:"status"` // pending | succeeded | failed
}

// ChargeParams describes a charge creation. Amount is in minor currency
// units (cents).
type ChargeParams struct {
	Amount      int64
	Currency    string
	Customer    string
	Source      string
	Description string
	Metadata    map[string]string
}

// Processor is the external payment service. All calls are synchronous
// network operations; failures surface to the caller without retries.
type Processor interface {
	CreateCustomer(ctx context.Context, sourceToken, email, description string) (*Customer, error)
	RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error)
	CreateSource(ctx context.Context, customerID, sourceToken string) (*Source, error)
	RetrieveSource(ctx context.Context, sourceID string) (*Source, error)
	ListSources(ctx context.Context, customerID string) ([]Source, error)
	DeleteSource(ctx context.Context, customerID, sourceID string) error
	VerifySource(ctx context.Context, customerID, sourceID string, amounts []int64) error
	CreateCharge(ctx context.Context, params ChargeParams) (*Charge, error)
	RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error)
}
