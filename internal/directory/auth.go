package directory

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// Authenticate exchanges operator credentials for a session token.
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var payload struct {
		Token string `json:"token"`
	}
	if err := c.rest(ctx, http.MethodPost, "/authenticate", nil, body, &payload); err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", errors.New("authentication succeeded but no token was returned")
	}
	return payload.Token, nil
}
