package client

import "context"

// NewUser is the body of a user creation request. Password and Roles may be left
// empty; the API then assigns defaults.
type NewUser struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// ListUsers returns every account. It needs the ADMIN role.
func (c *Client) ListUsers(ctx context.Context) ([]UserProfile, error) {
	return GetAs[[]UserProfile](ctx, c, "/users")
}

// CreateUser registers a new account and returns it as stored.
func (c *Client) CreateUser(ctx context.Context, u NewUser) (*UserProfile, error) {
	p, err := PostAs[UserProfile](ctx, c, "/users", u)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
