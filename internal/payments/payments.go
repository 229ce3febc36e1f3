// Package payments integrates external payment providers. Each provider
// creates an intent (or order) for an invoice and later confirms whether it
// settled. The invoice record itself lives in the store; providers only hold
// the external reference.
package payments

import (
	"context"
	"errors"
)

// Intent is a provider-side payment awaiting completion by the client.
type Intent struct {
	// Ref is the provider's identifier, stored on the payment record.
	Ref string `json:"ref"`
	// ClientSecret is passed to the Stripe mobile SDK. Empty for PayPal.
	ClientSecret string `json:"client_secret,omitempty"`
	// ApproveURL is the PayPal redirect the client must visit. Empty for Stripe.
	ApproveURL string `json:"approve_url,omitempty"`
}

var (
	// ErrUnknownProvider is returned for an unrecognized payment method.
	ErrUnknownProvider = errors.New("payments: unknown provider")
	// ErrNotSettled is returned when confirmation finds the payment unpaid.
	ErrNotSettled = errors.New("payments: not settled")
)

// Provider creates and confirms payments with one external processor.
type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, amountCents int64, currency, paymentID string) (*Intent, error)
	// Confirm checks the provider-side state of ref and returns nil only if
	// the payment settled. Unsettled payments return ErrNotSettled.
	Confirm(ctx context.Context, ref string) error
}

// Registry resolves providers by method name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers, keyed by Name().
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider for a payment method.
func (r *Registry) Get(method string) (Provider, error) {
	p, ok := r.providers[method]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Methods lists the configured provider names.
func (r *Registry) Methods() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	return out
}
