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

	"github.com/localcare/care-booking/pkg/logging"
)

const defaultAPIBase = "https://api.stripe.com"

// HTTPProcessor talks to a Stripe-style REST API with form-encoded
// requests and bearer auth.
type HTTPProcessor struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewHTTPProcessor(baseURL, secretKey string, logger *logging.Logger) *HTTPProcessor {
	if baseURL == "" {
		baseURL = defaultAPIBase
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTPProcessor{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

func (p *HTTPProcessor) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := url.Values{}
	params.Set("amount", strconv.FormatInt(req.Amount, 10))
	params.Set("currency", strings.ToLower(req.Currency))
	for k, v := range req.Metadata {
		params.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	body, err := p.post(ctx, "/v1/payment_intents", params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	var result struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse payment intent response: %w", err)
	}

	p.logger.Info("payment intent created", "intent_ref", result.ID, "amount", req.Amount, "currency", req.Currency)
	return &Intent{Ref: result.ID, ClientSecret: result.ClientSecret}, nil
}

func (p *HTTPProcessor) Refund(ctx context.Context, paymentRef string, amount int64, reason string) error {
	params := url.Values{}
	params.Set("payment_intent", paymentRef)
	params.Set("amount", strconv.FormatInt(amount, 10))
	if reason != "" {
		params.Set("metadata[reason]", reason)
	}

	if _, err := p.post(ctx, "/v1/refunds", params); err != nil {
		p.logger.Error("refund request failed", "error", err, "payment_ref", paymentRef, "amount", amount)
		return fmt.Errorf("%w: %v", ErrRefundFailed, err)
	}

	p.logger.Info("refund processed", "payment_ref", paymentRef, "amount", amount)
	return nil
}

func (p *HTTPProcessor) post(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(p.secretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processor request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("processor returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
