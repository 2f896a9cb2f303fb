package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"siteforge/api/internal/store"
)

type fakeInvoker struct {
	InvokeFn func(ctx context.Context, name string, payload any) ([]byte, error)

	lastName    string
	lastPayload any
}

func (f *fakeInvoker) Invoke(ctx context.Context, name string, payload any) ([]byte, error) {
	f.lastName = name
	f.lastPayload = payload
	return f.InvokeFn(ctx, name, payload)
}

func TestConfigured(t *testing.T) {
	if Configured(store.Website{}) {
		t.Error("website without providers should not be configured")
	}
	if !Configured(store.Website{StripeAccountID: "acct_1"}) {
		t.Error("stripe-connected website should be configured")
	}
	if !Configured(store.Website{PayPalMerchantID: "M123"}) {
		t.Error("paypal-connected website should be configured")
	}
}

func TestProviderForPrefersStripe(t *testing.T) {
	w := store.Website{StripeAccountID: "acct_1", PayPalMerchantID: "M123"}
	provider, accountID, ok := ProviderFor(w)
	if !ok || provider != ProviderStripe || accountID != "acct_1" {
		t.Errorf("ProviderFor() = (%s, %s, %v), want stripe/acct_1/true", provider, accountID, ok)
	}
}

func TestInitiateCheckout(t *testing.T) {
	invoker := &fakeInvoker{
		InvokeFn: func(ctx context.Context, name string, payload any) ([]byte, error) {
			return json.Marshal(CheckoutSession{
				Provider:    ProviderStripe,
				SessionID:   "cs_test_1",
				CheckoutURL: "https://checkout.stripe.com/c/cs_test_1",
			})
		},
	}
	payments := NewPayments(invoker)

	website := store.Website{ID: "site-1", StripeAccountID: "acct_1"}
	order := store.Order{
		ID:         "ord-1",
		WebsiteID:  "site-1",
		TotalCents: 4550,
		Currency:   "usd",
		Items:      []byte(`[{"productId":"prod-1","quantity":2}]`),
	}

	session, err := payments.InitiateCheckout(context.Background(), website, order, "https://acme.example/success", "https://acme.example/cancel")
	if err != nil {
		t.Fatalf("InitiateCheckout() error = %v", err)
	}
	if session.CheckoutURL != "https://checkout.stripe.com/c/cs_test_1" {
		t.Errorf("unexpected checkout url %q", session.CheckoutURL)
	}

	if invoker.lastName != "create-checkout-session" {
		t.Errorf("invoked %q, want create-checkout-session", invoker.lastName)
	}
	req, ok := invoker.lastPayload.(CheckoutRequest)
	if !ok {
		t.Fatalf("payload type %T, want CheckoutRequest", invoker.lastPayload)
	}
	if req.Provider != ProviderStripe || req.AccountID != "acct_1" || req.TotalCents != 4550 {
		t.Errorf("unexpected checkout request %+v", req)
	}
}

func TestInitiateCheckoutNoProvider(t *testing.T) {
	payments := NewPayments(&fakeInvoker{
		InvokeFn: func(ctx context.Context, name string, payload any) ([]byte, error) {
			t.Fatal("invoker should not be called without a provider")
			return nil, nil
		},
	})

	_, err := payments.InitiateCheckout(context.Background(), store.Website{ID: "site-1"}, store.Order{ID: "ord-1"}, "", "")
	if err == nil {
		t.Fatal("expected error for website without payment provider")
	}
}

func TestInitiateCheckoutFunctionFailure(t *testing.T) {
	payments := NewPayments(&fakeInvoker{
		InvokeFn: func(ctx context.Context, name string, payload any) ([]byte, error) {
			return nil, errors.New("function timeout")
		},
	})

	_, err := payments.InitiateCheckout(context.Background(), store.Website{ID: "site-1", StripeAccountID: "acct_1"}, store.Order{ID: "ord-1"}, "", "")
	if err == nil {
		t.Fatal("expected error when the payment function fails")
	}
}

func TestInitiateCheckoutMissingURL(t *testing.T) {
	payments := NewPayments(&fakeInvoker{
		InvokeFn: func(ctx context.Context, name string, payload any) ([]byte, error) {
			return []byte(`{"provider":"stripe","sessionId":"cs_1"}`), nil
		},
	})

	_, err := payments.InitiateCheckout(context.Background(), store.Website{ID: "site-1", StripeAccountID: "acct_1"}, store.Order{ID: "ord-1"}, "", "")
	if err == nil {
		t.Fatal("expected error when response lacks a checkout url")
	}
}
