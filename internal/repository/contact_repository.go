package repository

import (
    "database/sql"
    "encoding/json"
    "fmt"

    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/model"
)

type ContactRepositoryInterface interface {
    ListByGroup(groupID int) ([]model.Contact, error)
}

type ContactRepository struct {
    DB *sql.DB
}

// ListByGroup fetches a group's contacts in a stable order.
func (r *ContactRepository) ListByGroup(groupID int) ([]model.Contact, error) {
    query := `
        SELECT id, group_id, email, additional_data
        FROM contacts
        WHERE group_id = $1
        ORDER BY id
    `
    rows, err := r.DB.Query(query, groupID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    contacts := []model.Contact{}
    for rows.Next() {
        var c model.Contact
        var raw []byte
        if err := rows.Scan(&c.ID, &c.GroupID, &c.Email, &raw); err != nil {
            return nil, err
        }
        if len(raw) > 0 {
            if err := json.Unmarshal(raw, &c.AdditionalData); err != nil {
                return nil, fmt.Errorf("contact %d: bad additional_data: %w", c.ID, err)
            }
        }
        contacts = append(contacts, c)
    }
    return contacts, rows.Err()
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
