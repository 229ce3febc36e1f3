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

	"golang.org/x/time/rate"
)

// StripeProvider drives the Stripe PaymentIntents API.
type StripeProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewStripe creates a Stripe provider. baseURL is overridable for tests.
func NewStripe(apiKey, baseURL string, rps float64) *StripeProvider {
	return &StripeProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (s *StripeProvider) Name() string { return "stripe" }

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

func (s *StripeProvider) do(ctx context.Context, method, path string, form url.Values) (*stripeIntent, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("stripe %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	var intent stripeIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("decode stripe response: %w", err)
	}
	return &intent, nil
}

func (s *StripeProvider) CreateIntent(ctx context.Context, amountCents int64, currency, paymentID string) (*Intent, error) {
	form := url.Values{
		"amount":               {strconv.FormatInt(amountCents, 10)},
		"currency":             {strings.ToLower(currency)},
		"metadata[payment_id]": {paymentID},
	}
	intent, err := s.do(ctx, http.MethodPost, "/v1/payment_intents", form)
	if err != nil {
		return nil, err
	}
	return &Intent{Ref: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (s *StripeProvider) Confirm(ctx context.Context, ref string) error {
	intent, err := s.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(ref), nil)
	if err != nil {
		return err
	}
	if intent.Status != "succeeded" {
		return fmt.Errorf("%w: stripe status %s", ErrNotSettled, intent.Status)
	}
	return nil
}
