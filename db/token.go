package db

// Token holds the credential pair issued by the Remote API.
// A single row (ID 1) is kept; its two token columns are only ever written together.
type Token struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"` // RFC3339, empty when unknown
}

// HasAccessToken reports whether an access token is stored.
func (t *Token) HasAccessToken() bool {
	return t != nil && t.AccessToken != ""
}

// HasRefreshToken reports whether a refresh token is stored.
func (t *Token) HasRefreshToken() bool {
	return t != nil && t.RefreshToken != ""
}
