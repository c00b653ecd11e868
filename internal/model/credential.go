// internal/model/credential.go
package model

type Credential struct {
    ID       int    `db:"id" json:"id"`
    Provider string `db:"provider" json:"provider"`
    APIKey   string `db:"api_key" json:"-"`
}

func (c *Credential) Usable() bool {
    return c != nil && c.APIKey != ""
}
