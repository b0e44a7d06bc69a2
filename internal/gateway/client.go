package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SendRequest is the payload submitted to the vendor gateway. ExternalID is
// generated by this system and echoed back in delivery reports.
type SendRequest struct {
	ExternalID  string `json:"externalId"`
	Destination string `json:"to"`
	Source      string `json:"from"`
	Body        string `json:"body"`
	Channel     string `json:"channel"`
}

// Client submits outbound messages to the SMS/WhatsApp vendor over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{},
	}
}

// Send posts one message to the vendor. A non-2xx response is an error; the
// caller decides how to record the failure.
func (c *Client) Send(ctx context.Context, req SendRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctxTimeout, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("vendor returned status %d", resp.StatusCode)
	}
	return nil
}
