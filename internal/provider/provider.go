// internal/provider/provider.go
package provider

import (
    "context"
    "fmt"
    "time"

    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/model"
)

// Event types reported by the provider's transactional event log.
const (
    EventDelivered = "delivered"
    EventOpened    = "opened"
    EventClicked   = "clicked"
    EventBounced   = "bounced"
)

// Event is one entry of a message's event log.
type Event struct {
    Event string    `json:"event"`
    Date  time.Time `json:"date"`
}

// SendRequest is one personalized transactional email.
type SendRequest struct {
    SenderName  string
    SenderEmail string
    To          string
    Subject     string
    HTMLBody    string
}

// Sender delivers one rendered message and returns the provider message id.
type Sender interface {
    SendEmail(ctx context.Context, cred model.Credential, req SendRequest) (string, error)
}

// EventFetcher returns the provider's event log for one message id.
type EventFetcher interface {
    FetchEvents(ctx context.Context, cred model.Credential, messageID string) ([]Event, error)
}

// RateLimitError is returned on HTTP 429. RetryAfter carries the provider's
// reset-time hint; zero means the header was missing or unparsable.
type RateLimitError struct {
    RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
    return fmt.Sprintf("provider rate limited, retry after %s", e.RetryAfter)
}
