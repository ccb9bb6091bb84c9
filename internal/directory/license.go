package directory

import (
	"context"

	"github.com/pkg/errors"
)

const linkLegacySubscriptionMutation = `mutation linkExternalLegacySubscription($organizationId: ID!, $input: LinkExternalLegacySubscriptionInput!) {
  linkExternalLegacySubscription(organizationId: $organizationId, input: $input) {
    planName
    mode
    interval
    licenseQuantity
    licensesCurrentlyInUse
    organizationStorageLimitMb
    createdAt
    updatedAt
  }
}`

// LinkExternalLegacySubscription attaches a legacy billing subscription to an
// organization and returns the resulting license state.
func (c *Client) LinkExternalLegacySubscription(ctx context.Context, organizationID string, input LegacySubscriptionInput) (*Subscription, error) {
	var payload struct {
		Linked *Subscription `json:"linkExternalLegacySubscription"`
	}
	vars := map[string]any{"organizationId": organizationID, "input": input}
	if err := c.graphql(ctx, linkLegacySubscriptionMutation, vars, &payload); err != nil {
		return nil, err
	}
	if payload.Linked == nil {
		return nil, errors.New("directory did not return the linked subscription")
	}
	return payload.Linked, nil
}
