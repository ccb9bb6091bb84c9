package directory

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

const organizationQuery = `query organization($organizationId: ID!) {
  organization(organizationId: $organizationId) {
    id
    canHaveGuests
    isGuestInviteApprovalRequired
    autoAssociateIdentityProviderUser
    identityProvider { id }
    defaultOrganizationUserRole { id type name }
  }
}`

const organizationOwnerQuery = `query organizationOwner($organizationId: ID!) {
  organization(organizationId: $organizationId) {
    members(filtering: { organizationRole: { type: { eq: Owner } } }) {
      results {
        member { id email }
        organizationRole { id type }
      }
    }
  }
}`

const organizationMemberByEmailQuery = `query organizationMemberByEmail($organizationId: ID!, $email: String!) {
  organization(organizationId: $organizationId) {
    members(filtering: { user: { email: { eq: $email } } }) {
      results {
        member { id email }
        organizationRole { id type }
      }
    }
  }
}`

const userOrganizationCountQuery = `query userOrganizationCount($userId: ID!) {
  user(userId: $userId) {
    organizations(filtering: { isPersonal: { eq: false } }) {
      totalItems
    }
  }
}`

const addMemberMutation = `mutation addMember($organizationId: ID!, $userId: ID!, $roleId: ID!) {
  addMember(organizationId: $organizationId, input: { id: $userId, organizationRoleId: $roleId }) {
    member { id email }
    organizationRole { id type }
  }
}`

const organizationRoleByTypeQuery = `query organizationRoleByType($organizationId: ID!, $type: RoleType!) {
  roles(
    filtering: {
      and: [
        { organizationId: { eq: $organizationId } }
        { resourceType: { eq: Organization } }
        { type: { eq: $type } }
        { level: { eq: Primary } }
        { isCustom: { eq: false } }
      ]
    }
  ) {
    results { id type }
  }
}`

const organizationsPageQuery = `query organizations($pageSize: Int!, $cursor: String) {
  organizations(pagination: { pageSize: $pageSize, cursor: $cursor }) {
    results {
      id
      canHaveGuests
      autoAssociateIdentityProviderUser
      identityProvider { id }
    }
    next
    totalItems
  }
}`

const updateAutoAssociateMutation = `mutation updateOrganization($organizationId: ID!, $enabled: Boolean!) {
  updateOrganization(organizationId: $organizationId, input: { autoAssociateIdentityProviderUser: $enabled }) {
    id
  }
}`

// memberResult is the wire shape of one entry of organization.members.
type memberResult struct {
	Member struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"member"`
	OrganizationRole Role `json:"organizationRole"`
}

func (r memberResult) toMember() *OrganizationMember {
	return &OrganizationMember{ID: r.Member.ID, Email: r.Member.Email, Role: r.OrganizationRole}
}

type membersPayload struct {
	Organization *struct {
		Members struct {
			Results []memberResult `json:"results"`
			Next    string         `json:"next"`
		} `json:"members"`
	} `json:"organization"`
}

// GetOrganization fetches the run-scoped organization context.
func (c *Client) GetOrganization(ctx context.Context, organizationID string) (*Organization, error) {
	var payload struct {
		Organization *Organization `json:"organization"`
	}
	if err := c.graphql(ctx, organizationQuery, map[string]any{"organizationId": organizationID}, &payload); err != nil {
		return nil, err
	}
	if payload.Organization == nil {
		return nil, errors.Wrapf(ErrNotFound, "organization %s", organizationID)
	}
	return payload.Organization, nil
}

func (c *Client) GetOrganizationOwner(ctx context.Context, organizationID string) (*OrganizationMember, error) {
	var payload membersPayload
	if err := c.graphql(ctx, organizationOwnerQuery, map[string]any{"organizationId": organizationID}, &payload); err != nil {
		return nil, err
	}
	if payload.Organization == nil || len(payload.Organization.Members.Results) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "owner of organization %s", organizationID)
	}
	return payload.Organization.Members.Results[0].toMember(), nil
}

// GetOrganizationMemberByEmail resolves one membership record, ErrNotFound
// when email has no membership in the organization.
func (c *Client) GetOrganizationMemberByEmail(ctx context.Context, organizationID, email string) (*OrganizationMember, error) {
	var payload membersPayload
	vars := map[string]any{"organizationId": organizationID, "email": email}
	if err := c.graphql(ctx, organizationMemberByEmailQuery, vars, &payload); err != nil {
		return nil, err
	}
	if payload.Organization == nil || len(payload.Organization.Members.Results) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "member %s in organization %s", email, organizationID)
	}
	return payload.Organization.Members.Results[0].toMember(), nil
}

// UserOrganizationCount counts the user's non-personal organization
// memberships; the migration engine treats >1 as multi-org.
func (c *Client) UserOrganizationCount(ctx context.Context, userID string) (int, error) {
	var payload struct {
		User *struct {
			Organizations struct {
				TotalItems int `json:"totalItems"`
			} `json:"organizations"`
		} `json:"user"`
	}
	if err := c.graphql(ctx, userOrganizationCountQuery, map[string]any{"userId": userID}, &payload); err != nil {
		return 0, err
	}
	if payload.User == nil {
		return 0, errors.Wrapf(ErrNotFound, "user %s", userID)
	}
	return payload.User.Organizations.TotalItems, nil
}

func (c *Client) AddMember(ctx context.Context, organizationID, userID, roleID string) (*OrganizationMember, error) {
	var payload struct {
		Added *memberResult `json:"addMember"`
	}
	vars := map[string]any{"organizationId": organizationID, "userId": userID, "roleId": roleID}
	if err := c.graphql(ctx, addMemberMutation, vars, &payload); err != nil {
		return nil, err
	}
	if payload.Added == nil {
		return nil, errors.Errorf("directory did not return the added member for user %s", userID)
	}
	return payload.Added.toMember(), nil
}

// UpdateMemberRole changes a member's organization role. A non-empty
// newWorkspaceOwnerID makes the directory reassign the member's owned
// workspaces atomically with the role change; empty means they revert to the
// organization owner.
func (c *Client) UpdateMemberRole(ctx context.Context, organizationID, memberID, roleID, newWorkspaceOwnerID string) error {
	var q url.Values
	if newWorkspaceOwnerID != "" {
		q = url.Values{"newWorkspaceOwnerId": []string{newWorkspaceOwnerID}}
	}
	path := "/organizations/" + url.PathEscape(organizationID) + "/members/" + url.PathEscape(memberID) + "/role"
	body := map[string]string{"organizationRoleId": roleID}
	return c.rest(ctx, http.MethodPatch, path, q, body, nil)
}

// OrganizationRoleByType resolves a built-in primary role id, e.g. Visitor.
func (c *Client) OrganizationRoleByType(ctx context.Context, organizationID, roleType string) (string, error) {
	var payload struct {
		Roles struct {
			Results []Role `json:"results"`
		} `json:"roles"`
	}
	vars := map[string]any{"organizationId": organizationID, "type": roleType}
	if err := c.graphql(ctx, organizationRoleByTypeQuery, vars, &payload); err != nil {
		return "", err
	}
	if len(payload.Roles.Results) == 0 {
		return "", errors.Wrapf(ErrNotFound, "%s role of organization %s", roleType, organizationID)
	}
	return payload.Roles.Results[0].ID, nil
}

// RequestTransferMemberResources asks the directory to move the source
// member's owned and shared workspaces and templates to the target member.
// A 404 response means the source owns nothing transferable; callers treat
// that as already satisfied (check with IsNotFound).
func (c *Client) RequestTransferMemberResources(ctx context.Context, organizationID, sourceMemberID, targetMemberID string) error {
	path := "/organizations/" + url.PathEscape(organizationID) + "/members/" + url.PathEscape(sourceMemberID) + "/transfer-resources"
	body := map[string]string{"targetMemberId": targetMemberID}
	return c.rest(ctx, http.MethodPost, path, nil, body, nil)
}

// EachOrganization walks every organization of the instance page by page,
// calling fn for each one. Pagination is an explicit cursor loop; the walk
// stops on the first error fn returns.
func (c *Client) EachOrganization(ctx context.Context, fn func(Organization) error) error {
	cursor := ""
	for {
		var payload struct {
			Organizations *struct {
				Results []Organization `json:"results"`
				Next    string         `json:"next"`
			} `json:"organizations"`
		}
		vars := map[string]any{"pageSize": c.pageSize}
		if cursor != "" {
			vars["cursor"] = cursor
		}
		if err := c.graphql(ctx, organizationsPageQuery, vars, &payload); err != nil {
			return err
		}
		if payload.Organizations == nil {
			return nil
		}
		for _, org := range payload.Organizations.Results {
			if err := fn(org); err != nil {
				return err
			}
		}
		cursor = payload.Organizations.Next
		if cursor == "" || len(payload.Organizations.Results) == 0 {
			return nil
		}
	}
}

func (c *Client) UpdateAutoAssociateIDPUser(ctx context.Context, organizationID string, enabled bool) error {
	vars := map[string]any{"organizationId": organizationID, "enabled": enabled}
	return c.graphql(ctx, updateAutoAssociateMutation, vars, nil)
}
