package repository

import (
    "database/sql"

    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/model"
)

type CredentialRepositoryInterface interface {
    GetByID(id int) (*model.Credential, error)
}

type CredentialRepository struct {
    DB *sql.DB
}

// GetByID fetches a provider credential; missing rows return nil, not an error.
func (r *CredentialRepository) GetByID(id int) (*model.Credential, error) {
    query := `SELECT id, provider, api_key FROM credentials WHERE id = $1`
    var c model.Credential
    err := r.DB.QueryRow(query, id).Scan(&c.ID, &c.Provider, &c.APIKey)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    return &c, nil
}

var _ CredentialRepositoryInterface = (*CredentialRepository)(nil)
