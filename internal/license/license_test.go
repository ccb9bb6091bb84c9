package license

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumoboard/lumoctl/internal/directory"
)

type fakeDir struct {
	users  map[string]*directory.User
	orgs   map[string]*directory.Organization
	linked []directory.LegacySubscriptionInput
}

func newFakeDir() *fakeDir {
	return &fakeDir{
		users: map[string]*directory.User{
			"admin@corp.com": {ID: "u-admin", ApplicationRole: &directory.Role{Type: directory.ApplicationRoleAdmin}},
			"plain@corp.com": {ID: "u-plain"},
		},
		orgs: map[string]*directory.Organization{"org-1": {ID: "org-1"}},
	}
}

func (f *fakeDir) GetUserByEmail(_ context.Context, email string) (*directory.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return u, nil
}

func (f *fakeDir) GetOrganization(_ context.Context, organizationID string) (*directory.Organization, error) {
	o, ok := f.orgs[organizationID]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return o, nil
}

func (f *fakeDir) LinkExternalLegacySubscription(_ context.Context, _ string, input directory.LegacySubscriptionInput) (*directory.Subscription, error) {
	f.linked = append(f.linked, input)
	return &directory.Subscription{PlanName: "Enterprise", LicenseQuantity: input.LicenseQuantity}, nil
}

func TestLinkAppliesDefaults(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	s := NewService(f, nil)

	sub, err := s.Link(context.Background(), "admin@corp.com", "org-1", directory.LegacySubscriptionInput{
		ExternalSubscriptionID: "sub-1234",
		LicenseQuantity:        50,
	})
	require.NoError(t, err)
	require.Equal(t, "Enterprise", sub.PlanName)
	require.Len(t, f.linked, 1)
	require.Equal(t, DefaultCurrency, f.linked[0].Currency)
	require.Equal(t, IntervalYearly, f.linked[0].Interval)
}

func TestLinkGuards(t *testing.T) {
	t.Parallel()
	input := directory.LegacySubscriptionInput{ExternalSubscriptionID: "sub-1234"}

	t.Run("no session", func(t *testing.T) {
		t.Parallel()
		s := NewService(newFakeDir(), nil)
		_, err := s.Link(context.Background(), "", "org-1", input)
		require.ErrorIs(t, err, ErrNoActiveSession)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		t.Parallel()
		f := newFakeDir()
		s := NewService(f, nil)
		_, err := s.Link(context.Background(), "plain@corp.com", "org-1", input)
		require.ErrorIs(t, err, ErrForbidden)
		require.Empty(t, f.linked)
	})

	t.Run("organization missing", func(t *testing.T) {
		t.Parallel()
		f := newFakeDir()
		s := NewService(f, nil)
		_, err := s.Link(context.Background(), "admin@corp.com", "org-ghost", input)
		require.True(t, directory.IsNotFound(err))
		require.Empty(t, f.linked)
	})
}

func TestValidateInput(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateInput(directory.LegacySubscriptionInput{
		ExternalSubscriptionID: "sub-1234",
		Interval:               IntervalMonthly,
	}))

	err := ValidateInput(directory.LegacySubscriptionInput{ExternalSubscriptionID: "x"})
	require.ErrorContains(t, err, "external subscription id")

	err = ValidateInput(directory.LegacySubscriptionInput{ExternalSubscriptionID: "sub-1234", LicenseQuantity: -1})
	require.ErrorContains(t, err, "license quantity")

	err = ValidateInput(directory.LegacySubscriptionInput{ExternalSubscriptionID: "sub-1234", Interval: "Weekly"})
	require.ErrorContains(t, err, "interval")
}
