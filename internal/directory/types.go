package directory

// Role is an organization or application role as the directory reports it.
type Role struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Role types the CLI branches on. The directory owns the full list; only
// these participate in migration policy.
const (
	RoleTypeOwner   = "Owner"
	RoleTypeVisitor = "Visitor"

	ApplicationRoleAdmin = "Admin"
)

type User struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	ApplicationRole *Role  `json:"applicationRole,omitempty"`
}

// OrganizationMember is a user's membership record within one organization.
// Always fetched fresh; earlier rows of a migration run may have changed it.
type OrganizationMember struct {
	ID    string
	Email string
	Role  Role
}

type IdentityProvider struct {
	ID string `json:"id"`
}

type Organization struct {
	ID                                string            `json:"id"`
	CanHaveGuests                     bool              `json:"canHaveGuests"`
	IsGuestInviteApprovalRequired     bool              `json:"isGuestInviteApprovalRequired"`
	AutoAssociateIdentityProviderUser bool              `json:"autoAssociateIdentityProviderUser"`
	IdentityProvider                  *IdentityProvider `json:"identityProvider,omitempty"`
	DefaultOrganizationUserRole       Role              `json:"defaultOrganizationUserRole"`
}

type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type CustomLink struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Subscription struct {
	PlanName                   string `json:"planName"`
	Mode                       string `json:"mode"`
	Interval                   string `json:"interval"`
	LicenseQuantity            int    `json:"licenseQuantity"`
	LicensesCurrentlyInUse     int    `json:"licensesCurrentlyInUse"`
	OrganizationStorageLimitMb int    `json:"organizationStorageLimitMb"`
	CreatedAt                  string `json:"createdAt"`
	UpdatedAt                  string `json:"updatedAt"`
}

// LegacySubscriptionInput links an external billing-system subscription to an
// organization.
type LegacySubscriptionInput struct {
	ExternalSubscriptionID      string `json:"externalSubscriptionId"`
	ExternalSubscriptionVersion int    `json:"externalSubscriptionVersion,omitempty"`
	LicenseQuantity             int    `json:"licenseQuantity,omitempty"`
	Currency                    string `json:"currency,omitempty"`
	Interval                    string `json:"interval,omitempty"`
	OrganizationStorageLimitMb  int    `json:"organizationStorageLimitMb,omitempty"`
}
