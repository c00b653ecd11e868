// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
    CampaignDraft     CampaignStatus = "draft"
    CampaignScheduled CampaignStatus = "scheduled"
    CampaignSending   CampaignStatus = "sending"
    CampaignSent      CampaignStatus = "sent"
    CampaignFailed    CampaignStatus = "failed"
)

type Campaign struct {
    ID           int            `db:"id" json:"id"`
    Name         string         `db:"name" json:"name"`
    Status       CampaignStatus `db:"status" json:"status"`
    Subject      string         `db:"subject" json:"subject"`
    Body         string         `db:"body" json:"body"`
    SenderName   string         `db:"sender_name" json:"sender_name"`
    SenderEmail  string         `db:"sender_email" json:"sender_email"`
    GroupID      int            `db:"group_id" json:"group_id"`
    CredentialID *int           `db:"credential_id" json:"credential_id,omitempty"`
    ScheduledAt  *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
    CreatedAt    time.Time      `db:"created_at" json:"created_at"`
    UpdatedAt    *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
