// internal/model/delivery.go
package model

import "time"

type DeliveryStatus string

const (
    DeliveryPending   DeliveryStatus = "pending"
    DeliverySent      DeliveryStatus = "sent"
    DeliveryDelivered DeliveryStatus = "delivered"
    DeliveryOpened    DeliveryStatus = "opened"
    DeliveryClicked   DeliveryStatus = "clicked"
    DeliveryBounced   DeliveryStatus = "bounced"
    DeliveryFailed    DeliveryStatus = "failed"
)

// Rank orders delivery statuses so that updates only ever move forward.
// Bounced and Failed are terminal and outrank everything.
func (s DeliveryStatus) Rank() int {
    switch s {
    case DeliveryPending:
        return 0
    case DeliverySent:
        return 1
    case DeliveryDelivered:
        return 2
    case DeliveryOpened:
        return 3
    case DeliveryClicked:
        return 4
    case DeliveryBounced, DeliveryFailed:
        return 5
    }
    return 0
}

func (s DeliveryStatus) Terminal() bool {
    return s == DeliveryBounced || s == DeliveryFailed
}

// Delivery is the per-(campaign, contact) send record, unique on that pair.
type Delivery struct {
    ID                int            `db:"id" json:"id"`
    CampaignID        int            `db:"campaign_id" json:"campaign_id"`
    ContactID         int            `db:"contact_id" json:"contact_id"`
    Status            DeliveryStatus `db:"status" json:"status"`
    ProviderMessageID string         `db:"provider_message_id" json:"provider_message_id,omitempty"`
    SentAt            *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
    OpenedAt          *time.Time     `db:"opened_at" json:"opened_at,omitempty"`
    ClickedAt         *time.Time     `db:"clicked_at" json:"clicked_at,omitempty"`
    ErrorMessage      string         `db:"error_message" json:"error_message,omitempty"`
    CreatedAt         time.Time      `db:"created_at" json:"created_at"`
    UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}
