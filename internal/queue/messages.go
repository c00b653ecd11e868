// internal/queue/messages.go
package queue

import (
    "fmt"
    "time"
)

// Queue names. Both are declared durable by the client.
const (
    ReadyQueue = "email_jobs"   // ready-to-send campaign jobs
    DueQueue   = "campaign_due" // "this campaign became due" notifications
)

// ReadyJob tells the email worker to drain one campaign.
type ReadyJob struct {
    CampaignID    int  `json:"campaign_id"`
    FromScheduler bool `json:"from_scheduler,omitempty"`
}

func (j ReadyJob) Validate() error {
    if j.CampaignID <= 0 {
        return fmt.Errorf("ready job: invalid campaign_id %d", j.CampaignID)
    }
    return nil
}

// DueJob tells the scheduler a campaign's scheduled time has arrived.
type DueJob struct {
    CampaignID    int       `json:"campaign_id"`
    ScheduledTime time.Time `json:"scheduled_time"`
}

func (j DueJob) Validate() error {
    if j.CampaignID <= 0 {
        return fmt.Errorf("due job: invalid campaign_id %d", j.CampaignID)
    }
    return nil
}
