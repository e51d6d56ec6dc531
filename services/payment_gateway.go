package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stickerhub/sticker-shop-api/config"
)

// Checkout session states reported by the gateway
const (
	GatewayPaymentPaid    = "paid"    // payment_status once the customer has paid
	GatewaySessionOpen    = "open"    // status while the customer can still pay
	GatewaySessionExpired = "expired" // status once the session can no longer be paid
)

// CheckoutLineItem is one line of a hosted checkout page
type CheckoutLineItem struct {
	Name        string
	Description string
	UnitAmount  decimal.Decimal
	Quantity    int
}

// CheckoutSessionRequest describes a hosted checkout session for one order
type CheckoutSessionRequest struct {
	OrderID       uint
	CustomerEmail string
	Items         []CheckoutLineItem
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the gateway's view of a checkout session
type CheckoutSession struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	Status            string `json:"status"`
	PaymentStatus     string `json:"payment_status"`
	ClientReferenceID string `json:"client_reference_id"`
}

// IsPaid reports whether the customer completed the payment
func (s *CheckoutSession) IsPaid() bool {
	return s.PaymentStatus == GatewayPaymentPaid
}

// PaymentGateway creates and inspects hosted checkout sessions
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	// ExpireCheckoutSession closes an open session so the customer can no longer pay
	ExpireCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

// StripeGateway implements PaymentGateway with the Stripe Checkout REST API
type StripeGateway struct {
	client   *resty.Client
	currency string
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewStripeGateway creates a Stripe client from cfg
func NewStripeGateway(cfg *config.Config) *StripeGateway {
	client := resty.New().
		SetBaseURL(cfg.StripeAPIBase).
		SetAuthToken(cfg.StripeSecretKey).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")

	return &StripeGateway{client: client, currency: cfg.Currency}
}

// CreateCheckoutSession opens a payment-mode checkout session for the order
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", strconv.FormatUint(uint64(req.OrderID), 10))
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	for i, item := range req.Items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
		form.Set(prefix+"[price_data][currency]", g.currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(MinorUnits(item.UnitAmount), 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		if item.Description != "" {
			form.Set(prefix+"[price_data][product_data][description]", item.Description)
		}
	}

	var session CheckoutSession
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetFormDataFromValues(form).
		SetResult(&session).
		Post("/v1/checkout/sessions")
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	if resp.IsError() {
		return nil, stripeError(resp)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("incomplete response from stripe: %s", resp.String())
	}
	return &session, nil
}

// GetCheckoutSession fetches a checkout session by ID
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var session CheckoutSession
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("id", sessionID).
		SetResult(&session).
		Get("/v1/checkout/sessions/{id}")
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	if resp.IsError() {
		return nil, stripeError(resp)
	}
	return &session, nil
}

// ExpireCheckoutSession expires an open checkout session. Stripe refuses to expire
// a session that was already completed.
func (g *StripeGateway) ExpireCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var session CheckoutSession
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("id", sessionID).
		SetResult(&session).
		Post("/v1/checkout/sessions/{id}/expire")
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	if resp.IsError() {
		return nil, stripeError(resp)
	}
	return &session, nil
}

func stripeError(resp *resty.Response) error {
	var body stripeErrorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error.Message != "" {
		return fmt.Errorf("stripe returned status %d (%s): %s", resp.StatusCode(), body.Error.Type, body.Error.Message)
	}
	return fmt.Errorf("stripe returned status %d: %s", resp.StatusCode(), resp.String())
}

// MinorUnits converts an amount to the smallest currency unit (cents)
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

var gatewayInstance PaymentGateway

// GetPaymentGateway returns the shared payment gateway, nil when card payments are disabled
func GetPaymentGateway() PaymentGateway {
	return gatewayInstance
}

// SetPaymentGateway sets the shared payment gateway (primarily for testing)
func SetPaymentGateway(gateway PaymentGateway) {
	gatewayInstance = gateway
}
