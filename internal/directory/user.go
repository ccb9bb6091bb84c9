package directory

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

const userByEmailQuery = `query userByEmail($email: String!) {
  user(email: $email) {
    id
    email
    firstName
    lastName
    applicationRole { id type }
  }
}`

const userByIDQuery = `query userByID($userId: ID!) {
  user(userId: $userId) {
    id
    email
    firstName
    lastName
    applicationRole { id type }
  }
}`

const createUserMutation = `mutation createUserWithoutOrganization($email: String!) {
  createUserWithoutOrganization(input: { email: $email }) {
    id
    email
  }
}`

const updateUserEmailMutation = `mutation updateUserEmail($userId: ID!, $email: String!) {
  updateUserEmail(userId: $userId, email: $email) {
    id
    email
  }
}`

// GetUserByEmail resolves a platform user by email, ErrNotFound when absent.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var payload struct {
		User *User `json:"user"`
	}
	if err := c.graphql(ctx, userByEmailQuery, map[string]any{"email": email}, &payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, errors.Wrapf(ErrNotFound, "user %s", email)
	}
	return payload.User, nil
}

func (c *Client) GetUserByID(ctx context.Context, userID string) (*User, error) {
	var payload struct {
		User *User `json:"user"`
	}
	if err := c.graphql(ctx, userByIDQuery, map[string]any{"userId": userID}, &payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, errors.Wrapf(ErrNotFound, "user %s", userID)
	}
	return payload.User, nil
}

// CreateUserWithoutOrganization provisions a bare account for email; the
// caller attaches it to an organization separately.
func (c *Client) CreateUserWithoutOrganization(ctx context.Context, email string) (*User, error) {
	var payload struct {
		Created *User `json:"createUserWithoutOrganization"`
	}
	if err := c.graphql(ctx, createUserMutation, map[string]any{"email": email}, &payload); err != nil {
		return nil, err
	}
	if payload.Created == nil {
		return nil, errors.Errorf("directory did not return the created user for %s", email)
	}
	return payload.Created, nil
}

func (c *Client) UpdateUserEmail(ctx context.Context, userID, newEmail string) error {
	return c.graphql(ctx, updateUserEmailMutation, map[string]any{"userId": userID, "email": newEmail}, nil)
}

// DeleteUser removes a user, handing owned workspaces to newOwnerID. With
// permanent false the account is soft-deleted and recoverable server-side.
func (c *Client) DeleteUser(ctx context.Context, userID, newOwnerID string, permanent bool) error {
	q := url.Values{}
	if newOwnerID != "" {
		q.Set("newWorkspaceOwnerId", newOwnerID)
	}
	q.Set("permanent", strconv.FormatBool(permanent))
	return c.rest(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID), q, nil, nil)
}

// SessionUser returns the user the client's token belongs to.
func (c *Client) SessionUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.rest(ctx, http.MethodGet, "/users/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
