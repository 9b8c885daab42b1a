package entity

import (
	"fmt"
	"unicode/utf8"
)

// maxBlockListLength bounds the block list a tenant can store.
const maxBlockListLength = 4096

// Tenant is an account owning exactly one callback key and one channel configuration.
// AppID is the value encoded into the public tenant key.
type Tenant struct {
	ID          int64
	AppID       int64
	GitHubLogin string
	GitHubID    int64
	BlockList   string
	Captcha     bool
}

// NewTenant creates a tenant for a freshly registered GitHub account.
func NewTenant(appID int64, githubLogin string, githubID int64) *Tenant {
	return &Tenant{
		AppID:       appID,
		GitHubLogin: githubLogin,
		GitHubID:    githubID,
	}
}

// Validate checks the user-editable fields of the tenant.
func (t *Tenant) Validate() error {
	if t.GitHubLogin == "" {
		return &ValidationError{Field: "github_login", Message: "github_login is required"}
	}
	if !utf8.ValidString(t.BlockList) {
		return &ValidationError{Field: "block_list", Message: "block_list must be valid UTF-8"}
	}
	if len(t.BlockList) > maxBlockListLength {
		return &ValidationError{
			Field:   "block_list",
			Message: fmt.Sprintf("block_list must not exceed %d bytes", maxBlockListLength),
		}
	}
	return nil
}
