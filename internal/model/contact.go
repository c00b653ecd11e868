// internal/model/contact.go
package model

// Contact is read-only from the pipeline's point of view. AdditionalData
// holds the free-form variables used for template personalization.
type Contact struct {
    ID             int                    `db:"id" json:"id"`
    GroupID        int                    `db:"group_id" json:"group_id"`
    Email          string                 `db:"email" json:"email"`
    AdditionalData map[string]interface{} `db:"additional_data" json:"additional_data,omitempty"`
}
