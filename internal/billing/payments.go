package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"siteforge/api/internal/store"
)

// Payment providers supported per website.
const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
)

// CheckoutRequest is what we send to the payment function: enough for it to
// create a provider checkout session on the connected merchant account.
type CheckoutRequest struct {
	Provider   string          `json:"provider"`
	AccountID  string          `json:"accountId"`
	WebsiteID  string          `json:"websiteId"`
	OrderID    string          `json:"orderId"`
	TotalCents int64           `json:"totalCents"`
	Currency   string          `json:"currency"`
	Items      json.RawMessage `json:"items"`
	SuccessURL string          `json:"successUrl"`
	CancelURL  string          `json:"cancelUrl"`
}

// CheckoutSession is the provider session the customer gets redirected to.
type CheckoutSession struct {
	Provider    string `json:"provider"`
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// FunctionInvoker calls a named payment function with a JSON payload.
// Provider SDK calls live in external functions so provider credentials
// never reach this process.
type FunctionInvoker interface {
	Invoke(ctx context.Context, name string, payload any) ([]byte, error)
}

// HTTPInvoker invokes payment functions over HTTP.
type HTTPInvoker struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPInvoker(baseURL string) *HTTPInvoker {
	return &HTTPInvoker{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (h *HTTPInvoker) Invoke(ctx context.Context, name string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/"+name, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invoke %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// Payments creates checkout sessions for website orders.
type Payments struct {
	invoker FunctionInvoker
}

func NewPayments(invoker FunctionInvoker) *Payments {
	return &Payments{invoker: invoker}
}

// Configured reports whether the website has a usable payment provider.
func Configured(w store.Website) bool {
	return w.StripeAccountID != "" || w.PayPalMerchantID != ""
}

// ProviderFor picks the website's provider, preferring Stripe when both
// are connected.
func ProviderFor(w store.Website) (provider, accountID string, ok bool) {
	if w.StripeAccountID != "" {
		return ProviderStripe, w.StripeAccountID, true
	}
	if w.PayPalMerchantID != "" {
		return ProviderPayPal, w.PayPalMerchantID, true
	}
	return "", "", false
}

// InitiateCheckout asks the payment function for a checkout session.
func (p *Payments) InitiateCheckout(ctx context.Context, w store.Website, order store.Order, successURL, cancelURL string) (CheckoutSession, error) {
	provider, accountID, ok := ProviderFor(w)
	if !ok {
		return CheckoutSession{}, fmt.Errorf("website %s has no payment provider", w.ID)
	}

	req := CheckoutRequest{
		Provider:   provider,
		AccountID:  accountID,
		WebsiteID:  w.ID,
		OrderID:    order.ID,
		TotalCents: order.TotalCents,
		Currency:   order.Currency,
		Items:      json.RawMessage(order.Items),
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	}

	data, err := p.invoker.Invoke(ctx, "create-checkout-session", req)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}

	var session CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return CheckoutSession{}, fmt.Errorf("decode checkout session: %w", err)
	}
	if session.CheckoutURL == "" {
		return CheckoutSession{}, fmt.Errorf("payment function returned no checkout url")
	}
	return session, nil
}
