package domain

import "github.com/google/uuid"

// Integration owns all child extraction state for one tenant's connection
// to an external issue-tracking provider.
type Integration struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Provider         string
	EncryptedCreds   []byte
	BaseURL          string
	BaseSearchFilter string
	Active           bool
}

// Credentials is the decrypted shape of an Integration's provider
// credentials, never persisted in the clear.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
	OAuthURL string `json:"oauth_url,omitempty"`
}
