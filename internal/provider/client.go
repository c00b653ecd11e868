// internal/provider/client.go
package provider

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "time"

    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/model"
)

// Client talks to the transactional email provider's REST API.
type Client struct {
    baseURL string
    http    *http.Client
}

func NewClient(baseURL string) *Client {
    return &Client{
        baseURL: baseURL,
        http:    &http.Client{Timeout: 30 * time.Second},
    }
}

type emailAddress struct {
    Name  string `json:"name,omitempty"`
    Email string `json:"email"`
}

type sendEmailRequest struct {
    Sender      emailAddress   `json:"sender"`
    To          []emailAddress `json:"to"`
    Subject     string         `json:"subject"`
    HTMLContent string         `json:"htmlContent"`
}

type sendEmailResponse struct {
    MessageID string `json:"messageId"`
}

// SendEmail posts one transactional email and returns the provider message id.
func (c *Client) SendEmail(ctx context.Context, cred model.Credential, req SendRequest) (string, error) {
    payload := sendEmailRequest{
        Sender:      emailAddress{Name: req.SenderName, Email: req.SenderEmail},
        To:          []emailAddress{{Email: req.To}},
        Subject:     req.Subject,
        HTMLContent: req.HTMLBody,
    }
    body, err := json.Marshal(payload)
    if err != nil {
        return "", fmt.Errorf("failed to marshal send request: %w", err)
    }

    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/smtp/email", bytes.NewReader(body))
    if err != nil {
        return "", err
    }
    httpReq.Header.Set("Content-Type", "application/json")
    httpReq.Header.Set("api-key", cred.APIKey)

    resp, err := c.http.Do(httpReq)
    if err != nil {
        return "", fmt.Errorf("send request failed: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
        return "", fmt.Errorf("provider returned %d: %s", resp.StatusCode, msg)
    }

    var out sendEmailResponse
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
        return "", fmt.Errorf("failed to decode send response: %w", err)
    }
    if out.MessageID == "" {
        return "", fmt.Errorf("provider returned no message id")
    }
    return out.MessageID, nil
}

type eventsResponse struct {
    Events []Event `json:"events"`
}

// FetchEvents returns the event log for one message. A 429 response is
// surfaced as *RateLimitError with the Retry-After hint.
func (c *Client) FetchEvents(ctx context.Context, cred model.Credential, messageID string) ([]Event, error) {
    endpoint := c.baseURL + "/v3/smtp/statistics/events?messageId=" + url.QueryEscape(messageID)
    httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
    if err != nil {
        return nil, err
    }
    httpReq.Header.Set("api-key", cred.APIKey)

    resp, err := c.http.Do(httpReq)
    if err != nil {
        return nil, fmt.Errorf("events request failed: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode == http.StatusTooManyRequests {
        return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
    }
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
        return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, msg)
    }

    var out eventsResponse
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
        return nil, fmt.Errorf("failed to decode events response: %w", err)
    }
    return out.Events, nil
}

func parseRetryAfter(header string) time.Duration {
    if header == "" {
        return 0
    }
    secs, err := strconv.Atoi(header)
    if err != nil || secs < 0 {
        return 0
    }
    return time.Duration(secs) * time.Second
}

var (
    _ Sender       = (*Client)(nil)
    _ EventFetcher = (*Client)(nil)
)
