// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound reports a queue job whose campaign id no longer
// resolves to a row. Consumers treat it as permanent and drop the job
// instead of requeueing it.
type ErrCampaignNotFound struct {
    CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
    return fmt.Sprintf("campaign %d not found", e.CampaignID)
}

// NewCampaignNotFound wraps the id so callers can match with errors.As.
func NewCampaignNotFound(id int) error {
    return &ErrCampaignNotFound{CampaignID: id}
}
