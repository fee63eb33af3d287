package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fremancer/fremancer/internal/apperr"
)

const defaultHTTPTimeout = 30 * time.Second

// Client talks to the processor's form-encoded REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ Processor = (*Client)(nil)

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.External("payment processor unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.External("payment processor response read failed", err)
	}
	if resp.StatusCode >= 400 {
		var ae apiError
		if jsonErr := json.Unmarshal(data, &ae); jsonErr == nil && ae.Error.Message != "" {
			return apperr.External(ae.Error.Message, nil)
		}
		return apperr.External(fmt.Sprintf("processor status %d: %s", resp.StatusCode, data), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.External("decode processor response", err)
	}
	return nil
}

type customerPayload struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Sources struct {
		Data []Source `json:"data"`
	} `json:"sources"`
}

func (p *customerPayload) toCustomer() *Customer {
	return &Customer{ID: p.ID, Email: p.Email, Sources: p.Sources.Data}
}

func (c *Client) CreateCustomer(ctx context.Context, sourceToken, email, description string) (*Customer, error) {
	form := url.Values{}
	form.Set("source", sourceToken)
	form.Set("email", email)
	form.Set("description", description)
	var payload customerPayload
	if err := c.do(ctx, http.MethodPost, "/customers", form, &payload); err != nil {
		return nil, err
	}
	return payload.toCustomer(), nil
}

func (c *Client) RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var payload customerPayload
	if err := c.do(ctx, http.MethodGet, "/customers/"+customerID, nil, &payload); err != nil {
		return nil, err
	}
	return payload.toCustomer(), nil
}

func (c *Client) CreateSource(ctx context.Context, customerID, sourceToken string) (*Source, error) {
	form := url.Values{}
	form.Set("source", sourceToken)
	var src Source
	if err := c.do(ctx, http.MethodPost, "/customers/"+customerID+"/sources", form, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

func (c *Client) RetrieveSource(ctx context.Context, sourceID string) (*Source, error) {
	var src Source
	if err := c.do(ctx, http.MethodGet, "/sources/"+sourceID, nil, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

func (c *Client) ListSources(ctx context.Context, customerID string) ([]Source, error) {
	var payload struct {
		Data []Source `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/customers/"+customerID+"/sources", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) DeleteSource(ctx context.Context, customerID, sourceID string) error {
	return c.do(ctx, http.MethodDelete, "/customers/"+customerID+"/sources/"+sourceID, nil, nil)
}

// VerifySource confirms a bank account via micro-deposit amounts.
func (c *Client) VerifySource(ctx context.Context, customerID, sourceID string, amounts []int64) error {
	form := url.Values{}
	for _, a := range amounts {
		form.Add("amounts[]", strconv.FormatInt(a, 10))
	}
	return c.do(ctx, http.MethodPost, "/customers/"+customerID+"/sources/"+sourceID+"/verify", form, nil)
}

func (c *Client) CreateCharge(ctx context.Context, params ChargeParams) (*Charge, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.Amount, 10))
	form.Set("currency", params.Currency)
	form.Set("customer", params.Customer)
	form.Set("source", params.Source)
	form.Set("description", params.Description)
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	var charge Charge
	if err := c.do(ctx, http.MethodPost, "/charges", form, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (c *Client) RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error) {
	var charge Charge
	if err := c.do(ctx, http.MethodGet, "/charges/"+chargeID, nil, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}
