package provision

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/lumoboard/lumoctl/internal/directory"
)

type fakeDir struct {
	orgs     []directory.Organization
	accounts map[string]bool

	linkErr map[string]error

	calls []string
}

func idp(id string) *directory.IdentityProvider {
	return &directory.IdentityProvider{ID: id}
}

func newFakeDir() *fakeDir {
	return &fakeDir{
		orgs: []directory.Organization{
			{ID: "org-1", IdentityProvider: idp("idp-a")},
			{ID: "org-2", IdentityProvider: idp("idp-a"), AutoAssociateIdentityProviderUser: true},
			{ID: "org-3", IdentityProvider: idp("idp-b")},
			{ID: "org-4"},
			{ID: "org-5", IdentityProvider: idp("idp-a")},
		},
		accounts: map[string]bool{"acct-1": true},
		linkErr:  map[string]error{},
	}
}

func (f *fakeDir) GetOrganization(_ context.Context, organizationID string) (*directory.Organization, error) {
	for _, o := range f.orgs {
		if o.ID == organizationID {
			org := o
			return &org, nil
		}
	}
	return nil, directory.ErrNotFound
}

func (f *fakeDir) GetAccount(_ context.Context, accountID string) (*directory.Account, error) {
	if !f.accounts[accountID] {
		return nil, directory.ErrNotFound
	}
	return &directory.Account{ID: accountID}, nil
}

func (f *fakeDir) EachOrganization(_ context.Context, fn func(directory.Organization) error) error {
	for _, o := range f.orgs {
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeDir) UpdateAutoAssociateIDPUser(_ context.Context, organizationID string, enabled bool) error {
	f.calls = append(f.calls, fmt.Sprintf("UpdateAutoAssociateIDPUser(%s,%t)", organizationID, enabled))
	return nil
}

func (f *fakeDir) AddOrganizationToAccount(_ context.Context, organizationID, accountID string) error {
	if err := f.linkErr[organizationID]; err != nil {
		return err
	}
	f.calls = append(f.calls, fmt.Sprintf("AddOrganizationToAccount(%s,%s)", organizationID, accountID))
	return nil
}

func TestApplyEnablesIDPAssociationForSharedIDP(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	s := NewService(f, nil, nil)

	summary, err := s.Apply(context.Background(), "org-1", "")
	require.NoError(t, err)
	require.Equal(t, 3, summary.Matched)
	require.Equal(t, 2, summary.IDPUpdated, "org-2 already has association enabled")
	require.Empty(t, summary.IDPFailures)
	require.Equal(t, []string{
		"UpdateAutoAssociateIDPUser(org-1,true)",
		"UpdateAutoAssociateIDPUser(org-5,true)",
	}, f.calls, "organizations on other identity providers are never touched")
}

func TestApplyAttachesAccount(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	s := NewService(f, nil, nil)

	summary, err := s.Apply(context.Background(), "org-1", "acct-1")
	require.NoError(t, err)
	require.Equal(t, 3, summary.AccountLinked)
	require.Contains(t, f.calls, "AddOrganizationToAccount(org-2,acct-1)")
}

func TestApplyRecordsPerOrgFailuresAndContinues(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.linkErr["org-2"] = errors.New("account is closed")
	s := NewService(f, nil, nil)

	summary, err := s.Apply(context.Background(), "org-1", "acct-1")
	require.NoError(t, err)
	require.Equal(t, 2, summary.AccountLinked)
	require.Len(t, summary.AccountFailures, 1)
	require.Equal(t, "org-2", summary.AccountFailures[0].OrganizationID)
	require.Contains(t, f.calls, "AddOrganizationToAccount(org-5,acct-1)", "the walk continues past a failed organization")
}

func TestApplyGuards(t *testing.T) {
	t.Parallel()

	t.Run("organization missing", func(t *testing.T) {
		t.Parallel()
		s := NewService(newFakeDir(), nil, nil)
		_, err := s.Apply(context.Background(), "org-ghost", "")
		require.True(t, directory.IsNotFound(err))
	})

	t.Run("organization has no IDP", func(t *testing.T) {
		t.Parallel()
		s := NewService(newFakeDir(), nil, nil)
		_, err := s.Apply(context.Background(), "org-4", "")
		require.ErrorContains(t, err, "has no identity provider")
	})

	t.Run("account missing", func(t *testing.T) {
		t.Parallel()
		f := newFakeDir()
		s := NewService(f, nil, nil)
		_, err := s.Apply(context.Background(), "org-1", "acct-ghost")
		require.True(t, directory.IsNotFound(err))
		require.Empty(t, f.calls, "nothing is updated when the account cannot be resolved")
	})
}
