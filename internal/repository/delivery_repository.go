package repository

import (
    "database/sql"
    "fmt"
    "time"

    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/model"
)

type DeliveryRepositoryInterface interface {
    // Email worker
    ResetPending(campaignID int, contactIDs []int) error
    MarkSent(campaignID, contactID int, providerMessageID string, sentAt time.Time) error
    MarkFailed(campaignID, contactID int, errorMessage string) error

    // Analytics worker
    ListReconcilable(campaignID, afterID, limit int) ([]*model.Delivery, error)
    UpdateEngagement(id int, status model.DeliveryStatus, openedAt, clickedAt *time.Time) error
    CountByStatus(campaignID int) (map[string]int, error)
}

type DeliveryRepository struct {
    DB *sql.DB
}

// ResetPending creates-or-resets one pending delivery row per contact in a
// single transaction, relying on the (campaign_id, contact_id) unique pair.
func (r *DeliveryRepository) ResetPending(campaignID int, contactIDs []int) error {
    tx, err := r.DB.Begin()
    if err != nil {
        return err
    }
    defer tx.Rollback()

    query := `
        INSERT INTO deliveries (campaign_id, contact_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        ON CONFLICT (campaign_id, contact_id)
        DO UPDATE SET status=$3, provider_message_id='', sent_at=NULL, error_message='', updated_at=NOW()
    `
    stmt, err := tx.Prepare(query)
    if err != nil {
        return err
    }
    defer stmt.Close()

    for _, contactID := range contactIDs {
        if _, err := stmt.Exec(campaignID, contactID, model.DeliveryPending); err != nil {
            return fmt.Errorf("failed to reset delivery for contact %d: %w", contactID, err)
        }
    }
    return tx.Commit()
}

func (r *DeliveryRepository) MarkSent(campaignID, contactID int, providerMessageID string, sentAt time.Time) error {
    query := `
        UPDATE deliveries
        SET status=$1, provider_message_id=$2, sent_at=$3, error_message='', updated_at=NOW()
        WHERE campaign_id=$4 AND contact_id=$5
    `
    _, err := r.DB.Exec(query, model.DeliverySent, providerMessageID, sentAt, campaignID, contactID)
    return err
}

func (r *DeliveryRepository) MarkFailed(campaignID, contactID int, errorMessage string) error {
    query := `
        UPDATE deliveries
        SET status=$1, error_message=$2, updated_at=NOW()
        WHERE campaign_id=$3 AND contact_id=$4
    `
    _, err := r.DB.Exec(query, model.DeliveryFailed, errorMessage, campaignID, contactID)
    return err
}

// ListReconcilable pages through a campaign's deliveries that have a provider
// message id and are not terminal, keyset-paginated by id.
func (r *DeliveryRepository) ListReconcilable(campaignID, afterID, limit int) ([]*model.Delivery, error) {
    query := `
        SELECT id, campaign_id, contact_id, status, provider_message_id,
               sent_at, opened_at, clicked_at, error_message, created_at, updated_at
        FROM deliveries
        WHERE campaign_id=$1 AND id > $2
          AND provider_message_id <> ''
          AND status NOT IN ($3, $4)
        ORDER BY id
        LIMIT $5
    `
    rows, err := r.DB.Query(query, campaignID, afterID, model.DeliveryBounced, model.DeliveryFailed, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    deliveries := []*model.Delivery{}
    for rows.Next() {
        d := &model.Delivery{}
        err := rows.Scan(
            &d.ID, &d.CampaignID, &d.ContactID, &d.Status, &d.ProviderMessageID,
            &d.SentAt, &d.OpenedAt, &d.ClickedAt, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt,
        )
        if err != nil {
            return nil, err
        }
        deliveries = append(deliveries, d)
    }
    return deliveries, rows.Err()
}

// UpdateEngagement persists an analytics status upgrade. Callers are expected
// to have applied the monotonic-advance check already.
func (r *DeliveryRepository) UpdateEngagement(id int, status model.DeliveryStatus, openedAt, clickedAt *time.Time) error {
    query := `
        UPDATE deliveries
        SET status=$1, opened_at=$2, clicked_at=$3, updated_at=NOW()
        WHERE id=$4
    `
    _, err := r.DB.Exec(query, status, openedAt, clickedAt, id)
    return err
}

func (r *DeliveryRepository) CountByStatus(campaignID int) (map[string]int, error) {
    query := `SELECT status, COUNT(*) FROM deliveries WHERE campaign_id=$1 GROUP BY status`
    rows, err := r.DB.Query(query, campaignID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    counts := map[string]int{}
    for rows.Next() {
        var status string
        var count int
        if err := rows.Scan(&status, &count); err != nil {
            return nil, err
        }
        counts[status] = count
    }
    return counts, rows.Err()
}

var _ DeliveryRepositoryInterface = (*DeliveryRepository)(nil)
