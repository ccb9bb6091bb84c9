package directory

import (
	"context"
	"net/http"
	"net/url"
)

// GetAccount verifies an account exists before siloed provisioning touches it.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var a Account
	if err := c.rest(ctx, http.MethodGet, "/accounts/"+url.PathEscape(accountID), nil, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AddOrganizationToAccount attaches an organization to a billing account.
func (c *Client) AddOrganizationToAccount(ctx context.Context, organizationID, accountID string) error {
	path := "/accounts/" + url.PathEscape(accountID) + "/organizations"
	body := map[string]string{"organizationId": organizationID}
	return c.rest(ctx, http.MethodPost, path, nil, body, nil)
}
