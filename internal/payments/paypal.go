package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PayPalProvider drives the PayPal Orders v2 API. OAuth tokens are cached
// until shortly before expiry.
type PayPalProvider struct {
	clientID string
	secret   string
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPayPal creates a PayPal provider. baseURL selects sandbox or live.
func NewPayPal(clientID, secret, baseURL string, rps float64) *PayPalProvider {
	return &PayPalProvider{
		clientID: clientID,
		secret:   secret,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (p *PayPalProvider) Name() string { return "paypal" }

func (p *PayPalProvider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.clientID, p.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token: status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode paypal token: %w", err)
	}
	p.accessToken = body.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	return p.accessToken, nil
}

type paypalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (p *PayPalProvider) do(ctx context.Context, method, path string, payload any) (*paypalOrder, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	token, err := p.token(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(string(data))
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("paypal %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	var order paypalOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode paypal response: %w", err)
	}
	return &order, nil
}

func (p *PayPalProvider) CreateIntent(ctx context.Context, amountCents int64, currency, paymentID string) (*Intent, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": paymentID,
			"amount": map[string]string{
				"currency_code": strings.ToUpper(currency),
				"value":         fmt.Sprintf("%d.%02d", amountCents/100, amountCents%100),
			},
		}},
	}
	order, err := p.do(ctx, http.MethodPost, "/v2/checkout/orders", payload)
	if err != nil {
		return nil, err
	}
	intent := &Intent{Ref: order.ID}
	for _, link := range order.Links {
		if link.Rel == "approve" {
			intent.ApproveURL = link.Href
		}
	}
	return intent, nil
}

func (p *PayPalProvider) Confirm(ctx context.Context, ref string) error {
	order, err := p.do(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(ref)+"/capture", struct{}{})
	if err != nil {
		return err
	}
	if order.Status != "COMPLETED" {
		return fmt.Errorf("%w: paypal status %s", ErrNotSettled, order.Status)
	}
	return nil
}
