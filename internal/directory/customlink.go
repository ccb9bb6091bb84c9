package directory

import (
	"context"

	"github.com/pkg/errors"
)

// Custom link resource types. Blocked reserves a name without attaching a
// meeting, used when the requested owner has no account yet.
const (
	CustomLinkResourceMeet    = "Meet"
	CustomLinkResourceBlocked = "Blocked"
)

const customLinkAvailabilityQuery = `query customLinkAvailability($name: String!) {
  customLinkAvailability(input: { name: $name }) {
    isAvailable
  }
}`

const customLinksByOwnerQuery = `query customLinks($ownerId: ID!) {
  customLinks(filtering: { ownerId: { eq: $ownerId } }) {
    results {
      id
      name
    }
  }
}`

const createCustomLinkMutation = `mutation createCustomLink($name: String!, $resourceType: CustomLinkResourceType!, $ownerId: ID) {
  createCustomLink(input: { name: $name, resourceType: $resourceType, ownerId: $ownerId }) {
    id
    name
  }
}`

const updateCustomLinkMutation = `mutation updateCustomLink($customLinkId: ID!, $name: String!) {
  updateCustomLink(input: { name: $name }, customLinkId: $customLinkId) {
    id
    name
  }
}`

// CustomLinkAvailability reports whether a meeting link name is still free.
func (c *Client) CustomLinkAvailability(ctx context.Context, name string) (bool, error) {
	var payload struct {
		CustomLinkAvailability *struct {
			IsAvailable bool `json:"isAvailable"`
		} `json:"customLinkAvailability"`
	}
	if err := c.graphql(ctx, customLinkAvailabilityQuery, map[string]any{"name": name}, &payload); err != nil {
		return false, err
	}
	if payload.CustomLinkAvailability == nil {
		return false, errors.New("directory did not report custom link availability")
	}
	return payload.CustomLinkAvailability.IsAvailable, nil
}

// CustomLinksByOwner returns the links already registered to a user, empty
// when they have none.
func (c *Client) CustomLinksByOwner(ctx context.Context, ownerID string) ([]CustomLink, error) {
	var payload struct {
		CustomLinks struct {
			Results []CustomLink `json:"results"`
		} `json:"customLinks"`
	}
	if err := c.graphql(ctx, customLinksByOwnerQuery, map[string]any{"ownerId": ownerID}, &payload); err != nil {
		return nil, err
	}
	return payload.CustomLinks.Results, nil
}

// CreateCustomLink registers a link name. ownerID may be empty for Blocked
// reservations.
func (c *Client) CreateCustomLink(ctx context.Context, name, resourceType, ownerID string) (*CustomLink, error) {
	vars := map[string]any{"name": name, "resourceType": resourceType}
	if ownerID != "" {
		vars["ownerId"] = ownerID
	}
	var payload struct {
		Created *CustomLink `json:"createCustomLink"`
	}
	if err := c.graphql(ctx, createCustomLinkMutation, vars, &payload); err != nil {
		return nil, err
	}
	if payload.Created == nil {
		return nil, errors.Errorf("directory did not return the created custom link %s", name)
	}
	return payload.Created, nil
}

// UpdateCustomLink renames an existing link in place.
func (c *Client) UpdateCustomLink(ctx context.Context, linkID, name string) error {
	vars := map[string]any{"customLinkId": linkID, "name": name}
	return c.graphql(ctx, updateCustomLinkMutation, vars, nil)
}
