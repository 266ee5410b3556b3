package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"rentaldesk-bff/internal/config"
	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/logger"
	"rentaldesk-bff/internal/session"
)

const (
	serviceName     = "rental-backend"
	maxResponseBody = 1 << 20

	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// Client is the rental backend API. Every call takes the caller's session,
// whose bearer token is forwarded unchanged.
type Client interface {
	GetRental(ctx context.Context, sess *session.Session, rentalID string) (*domain.Rental, error)
	SubmitReturn(ctx context.Context, sess *session.Session, sub *domain.ReturnSubmission, idempotencyKey string) (*domain.ReturnResult, error)
	CheckAvailability(ctx context.Context, sess *session.Session, lineID, newEndDate string) (*domain.AvailabilityResponse, error)
	ConfirmExtension(ctx context.Context, sess *session.Session, conf *domain.ExtensionConfirmation, idempotencyKey string) (*domain.ExtensionResult, error)
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a backend client. A nil hc gets a default client with
// the configured timeout.
func NewClient(cfg config.BackendConfig, hc *http.Client) Client {
	if hc == nil {
		hc = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	limit := rate.Inf
	if cfg.RateLimitPerSec > 0 {
		limit = rate.Limit(cfg.RateLimitPerSec)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (c *httpClient) GetRental(ctx context.Context, sess *session.Session, rentalID string) (*domain.Rental, error) {
	var rental domain.Rental
	path := "/transactions/rentals/" + url.PathEscape(rentalID)
	if err := c.do(ctx, sess, "GetRental", http.MethodGet, path, nil, nil, "", &rental); err != nil {
		return nil, err
	}
	return &rental, nil
}

func (c *httpClient) SubmitReturn(ctx context.Context, sess *session.Session, sub *domain.ReturnSubmission, idempotencyKey string) (*domain.ReturnResult, error) {
	var result domain.ReturnResult
	path := "/transactions/rentals/" + url.PathEscape(sub.RentalID) + "/return-direct"
	if err := c.do(ctx, sess, "SubmitReturn", http.MethodPost, path, nil, sub, idempotencyKey, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) CheckAvailability(ctx context.Context, sess *session.Session, lineID, newEndDate string) (*domain.AvailabilityResponse, error) {
	var resp domain.AvailabilityResponse
	path := "/rental-extensions/" + url.PathEscape(lineID) + "/availability"
	query := url.Values{"new_end_date": {newEndDate}}
	if err := c.do(ctx, sess, "CheckAvailability", http.MethodGet, path, query, nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) ConfirmExtension(ctx context.Context, sess *session.Session, conf *domain.ExtensionConfirmation, idempotencyKey string) (*domain.ExtensionResult, error) {
	var result domain.ExtensionResult
	path := "/rental-extensions/" + url.PathEscape(conf.LineID) + "/extend"
	if err := c.do(ctx, sess, "ConfirmExtension", http.MethodPost, path, nil, conf, idempotencyKey, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) do(ctx context.Context, sess *session.Session, op, method, path string, query url.Values, body interface{}, idempotencyKey string, out interface{}) (err error) {
	logger.ExternalServiceCall(ctx, serviceName, op, "method", method, "path", path)
	defer func() {
		logger.ExternalServiceResult(ctx, serviceName, op, err)
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return &APIError{Kind: KindNetwork, Operation: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth := sess.AuthorizationHeader(); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	requestID := logger.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(HeaderRequestID, requestID)
	if idempotencyKey != "" {
		req.Header.Set(HeaderIdempotencyKey, idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Operation: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &APIError{Kind: KindNetwork, Status: resp.StatusCode, Operation: op, Err: err}
	}

	if resp.StatusCode >= 400 {
		return newStatusError(op, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{
			Kind:      KindServer,
			Status:    resp.StatusCode,
			Operation: op,
			Message:   "malformed response",
			Err:       err,
		}
	}
	return nil
}
