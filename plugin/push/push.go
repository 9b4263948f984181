// Package push implements the client for the primary push-notification
// dispatch API.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Config holds the push API connection settings.
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
}

// Client talks to the push dispatch API. All calls are bounded by the
// configured timeout and throttled client-side so a burst of scheduling calls
// cannot trip the vendor's rate limits.
type Client struct {
	client  *http.Client
	limiter *rate.Limiter
	config  *Config
}

// Payload is the notification content sent to the vendor.
type Payload struct {
	Data     map[string]string `json:"data,omitempty"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Priority string            `json:"priority,omitempty"`
}

// Response is the vendor acknowledgement.
type Response struct {
	DeliveryID string `json:"deliveryId"`
	Message    string `json:"message,omitempty"`
	Success    bool   `json:"success"`
}

// NewClient creates a push API client.
func NewClient(config *Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	ratePerSecond := config.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	return &Client{
		config:  config,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond)),
	}
}

// Send delivers a notification immediately.
func (c *Client) Send(ctx context.Context, userID int32, payload *Payload) (*Response, error) {
	body := map[string]any{
		"userId":  userID,
		"payload": payload,
	}
	return c.post(ctx, "/v1/notifications/send", body)
}

// ScheduleAt asks the vendor to deliver a notification at a future instant.
func (c *Client) ScheduleAt(ctx context.Context, userID int32, payload *Payload, fireAt time.Time) (*Response, error) {
	body := map[string]any{
		"userId":  userID,
		"payload": payload,
		"sendAt":  fireAt.UTC().Format(time.RFC3339),
	}
	return c.post(ctx, "/v1/notifications/schedule", body)
}

// CancelScheduled revokes a previously scheduled delivery.
func (c *Client) CancelScheduled(ctx context.Context, deliveryID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter interrupted")
	}

	url := c.config.BaseURL + "/v1/notifications/schedule/" + deliveryID
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to construct cancel request for %s", deliveryID)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to cancel scheduled delivery %s", deliveryID)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("failed to cancel scheduled delivery %s, status code: %d", deliveryID, resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, requestBody map[string]any) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter interrupted")
	}

	body, err := json.Marshal(requestBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal push request")
	}

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to construct push request to %s", url)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to post push request to %s", url)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read push response from %s", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("push request to %s failed, status code: %d, response body: %s", url, resp.StatusCode, b)
	}

	response := &Response{}
	if err := json.Unmarshal(b, response); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal push response from %s", url)
	}
	if !response.Success {
		return nil, errors.Errorf("push API rejected the request: %s", response.Message)
	}
	if response.DeliveryID == "" {
		return nil, errors.New("push API acknowledged without a delivery id")
	}
	return response, nil
}
