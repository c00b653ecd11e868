package repository

import (
    "database/sql"
    "time"

    appErrors "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/errors"
    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/model"
)

type CampaignRepositoryInterface interface {
    GetByID(id int) (*model.Campaign, error)
    UpdateStatus(campaignID int, status model.CampaignStatus) error

    // Scheduling
    MarkScheduled(campaignID int, scheduledAt time.Time) error
    SetSchedule(campaignID int, scheduledAt time.Time) error
    PromoteDue(campaignID int) (bool, error)
    ListDue(now time.Time, limit int) ([]*model.Campaign, error)

    // Analytics
    ListForReconciliation(limit int) ([]*model.Campaign, error)
}

type CampaignRepository struct {
    DB *sql.DB
}

const campaignColumns = `id, name, status, subject, body, sender_name, sender_email, group_id, credential_id, scheduled_at, created_at, updated_at`

func scanCampaign(row interface{ Scan(...interface{}) error }) (*model.Campaign, error) {
    var c model.Campaign
    err := row.Scan(
        &c.ID, &c.Name, &c.Status, &c.Subject, &c.Body,
        &c.SenderName, &c.SenderEmail, &c.GroupID, &c.CredentialID,
        &c.ScheduledAt, &c.CreatedAt, &c.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &c, nil
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
    c, err := scanCampaign(r.DB.QueryRow(query, id))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewCampaignNotFound(id)
        }
        return nil, err
    }
    return c, nil
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status model.CampaignStatus) error {
    query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
    _, err := r.DB.Exec(query, status, campaignID)
    return err
}

// MarkScheduled repairs a campaign into the scheduled state with the given time.
func (r *CampaignRepository) MarkScheduled(campaignID int, scheduledAt time.Time) error {
    query := `UPDATE campaigns SET status=$1, scheduled_at=$2, updated_at=NOW() WHERE id=$3`
    _, err := r.DB.Exec(query, model.CampaignScheduled, scheduledAt, campaignID)
    return err
}

func (r *CampaignRepository) SetSchedule(campaignID int, scheduledAt time.Time) error {
    query := `UPDATE campaigns SET scheduled_at=$1, updated_at=NOW() WHERE id=$2`
    _, err := r.DB.Exec(query, scheduledAt, campaignID)
    return err
}

// PromoteDue moves a scheduled campaign into sending. The status guard makes
// the write race-safe across scheduler instances: at most one caller sees
// true for a given campaign.
func (r *CampaignRepository) PromoteDue(campaignID int) (bool, error) {
    query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
    res, err := r.DB.Exec(query, model.CampaignSending, campaignID, model.CampaignScheduled)
    if err != nil {
        return false, err
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return affected > 0, nil
}

func (r *CampaignRepository) ListDue(now time.Time, limit int) ([]*model.Campaign, error) {
    query := `
        SELECT ` + campaignColumns + `
        FROM campaigns
        WHERE status=$1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
        ORDER BY scheduled_at ASC
        LIMIT $3
    `
    rows, err := r.DB.Query(query, model.CampaignScheduled, now, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    campaigns := []*model.Campaign{}
    for rows.Next() {
        c, err := scanCampaign(rows)
        if err != nil {
            return nil, err
        }
        campaigns = append(campaigns, c)
    }
    return campaigns, rows.Err()
}

// ListForReconciliation returns a bounded batch of recently-updated campaigns
// that have been through the send pipeline, most recent first.
func (r *CampaignRepository) ListForReconciliation(limit int) ([]*model.Campaign, error) {
    query := `
        SELECT ` + campaignColumns + `
        FROM campaigns
        WHERE status IN ($1, $2)
        ORDER BY updated_at DESC NULLS LAST
        LIMIT $3
    `
    rows, err := r.DB.Query(query, model.CampaignSent, model.CampaignSending, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    campaigns := []*model.Campaign{}
    for rows.Next() {
        c, err := scanCampaign(rows)
        if err != nil {
            return nil, err
        }
        campaigns = append(campaigns, c)
    }
    return campaigns, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
