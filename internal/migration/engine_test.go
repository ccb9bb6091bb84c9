package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumoboard/lumoctl/internal/directory"
)

var (
	memberRole  = directory.Role{ID: "role-member", Type: "User", Name: "Member"}
	visitorRole = directory.Role{ID: "role-visitor", Type: directory.RoleTypeVisitor, Name: "Visitor"}
	ownerRole   = directory.Role{ID: "role-owner", Type: directory.RoleTypeOwner, Name: "Owner"}
)

// fakeDir is a scripted directory backend. Every mutation is appended to
// calls so tests can assert exact call sets and ordering.
type fakeDir struct {
	users     map[string]*directory.User
	members   map[string]*directory.OrganizationMember
	org       *directory.Organization
	owner     *directory.OrganizationMember
	orgCounts map[string]int

	transferErr error

	calls []string
}

func newFakeDir() *fakeDir {
	owner := &directory.OrganizationMember{ID: "m-owner", Email: "owner@corp.com", Role: ownerRole}
	return &fakeDir{
		users: map[string]*directory.User{
			"admin@corp.com": {ID: "u-admin", Email: "admin@corp.com", ApplicationRole: &directory.Role{Type: directory.ApplicationRoleAdmin}},
		},
		members: map[string]*directory.OrganizationMember{
			"owner@corp.com": owner,
		},
		org: &directory.Organization{
			ID:                          "org-1",
			CanHaveGuests:               true,
			DefaultOrganizationUserRole: memberRole,
		},
		owner:     owner,
		orgCounts: map[string]int{},
	}
}

func (f *fakeDir) addMember(email string, role directory.Role, orgCount int) *directory.OrganizationMember {
	m := &directory.OrganizationMember{ID: "m-" + email, Email: email, Role: role}
	f.members[email] = m
	f.orgCounts[m.ID] = orgCount
	return m
}

func (f *fakeDir) GetUserByEmail(_ context.Context, email string) (*directory.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return u, nil
}

func (f *fakeDir) GetOrganization(_ context.Context, organizationID string) (*directory.Organization, error) {
	if organizationID != f.org.ID {
		return nil, directory.ErrNotFound
	}
	return f.org, nil
}

func (f *fakeDir) GetOrganizationOwner(_ context.Context, _ string) (*directory.OrganizationMember, error) {
	return f.owner, nil
}

func (f *fakeDir) GetOrganizationMemberByEmail(_ context.Context, _, email string) (*directory.OrganizationMember, error) {
	m, ok := f.members[email]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return m, nil
}

func (f *fakeDir) UserOrganizationCount(_ context.Context, userID string) (int, error) {
	if n, ok := f.orgCounts[userID]; ok {
		return n, nil
	}
	return 1, nil
}

func (f *fakeDir) OrganizationRoleByType(_ context.Context, _, roleType string) (string, error) {
	if roleType == directory.RoleTypeVisitor {
		return visitorRole.ID, nil
	}
	return "", fmt.Errorf("no role of type %s", roleType)
}

func (f *fakeDir) AddMember(_ context.Context, organizationID, userID, roleID string) (*directory.OrganizationMember, error) {
	f.calls = append(f.calls, fmt.Sprintf("AddMember(%s,%s,%s)", organizationID, userID, roleID))
	return &directory.OrganizationMember{ID: "m-" + userID, Role: memberRole}, nil
}

func (f *fakeDir) UpdateMemberRole(_ context.Context, organizationID, memberID, roleID, newWorkspaceOwnerID string) error {
	f.calls = append(f.calls, fmt.Sprintf("UpdateMemberRole(%s,%s,%s,%s)", organizationID, memberID, roleID, newWorkspaceOwnerID))
	return nil
}

func (f *fakeDir) UpdateUserEmail(_ context.Context, userID, newEmail string) error {
	f.calls = append(f.calls, fmt.Sprintf("UpdateUserEmail(%s,%s)", userID, newEmail))
	return nil
}

func (f *fakeDir) CreateUserWithoutOrganization(_ context.Context, email string) (*directory.User, error) {
	f.calls = append(f.calls, fmt.Sprintf("CreateUserWithoutOrganization(%s)", email))
	return &directory.User{ID: "u-" + email, Email: email}, nil
}

func (f *fakeDir) RequestTransferMemberResources(_ context.Context, organizationID, sourceMemberID, targetMemberID string) error {
	f.calls = append(f.calls, fmt.Sprintf("RequestTransferMemberResources(%s,%s,%s)", organizationID, sourceMemberID, targetMemberID))
	return f.transferErr
}

func (f *fakeDir) DeleteUser(_ context.Context, userID, newOwnerID string, permanent bool) error {
	f.calls = append(f.calls, fmt.Sprintf("DeleteUser(%s,%s,%t)", userID, newOwnerID, permanent))
	return nil
}

func newTestEngine(t *testing.T, f *fakeDir, mode Mode) *Engine {
	t.Helper()
	e := NewEngine(f, mode, nil, nil)
	e.org = f.org
	e.ownerEmail = f.owner.Email
	return e
}

func TestPreflight(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ownerRow := MappingRow{ExistingEmail: "owner@corp.com", SSOEmail: "owner@sso.com"}

	t.Run("no session", func(t *testing.T) {
		t.Parallel()
		e := NewEngine(newFakeDir(), ModeDryRun, nil, nil)
		err := e.Preflight(ctx, "", "org-1", []MappingRow{ownerRow})
		require.ErrorIs(t, err, ErrNoActiveSession)
	})

	t.Run("non-admin session forbidden", func(t *testing.T) {
		t.Parallel()
		f := newFakeDir()
		f.users["plain@corp.com"] = &directory.User{ID: "u-plain", Email: "plain@corp.com"}
		e := NewEngine(f, ModeDryRun, nil, nil)
		err := e.Preflight(ctx, "plain@corp.com", "org-1", []MappingRow{ownerRow})
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("organization not found", func(t *testing.T) {
		t.Parallel()
		e := NewEngine(newFakeDir(), ModeDryRun, nil, nil)
		err := e.Preflight(ctx, "admin@corp.com", "org-missing", []MappingRow{ownerRow})
		require.ErrorIs(t, err, ErrOrganizationMissing)
	})

	t.Run("owner absent from mapping", func(t *testing.T) {
		t.Parallel()
		e := NewEngine(newFakeDir(), ModeDryRun, nil, nil)
		err := e.Preflight(ctx, "admin@corp.com", "org-1", []MappingRow{
			{ExistingEmail: "someone@corp.com", SSOEmail: "someone@sso.com"},
		})
		require.ErrorIs(t, err, ErrOwnerMappingMissing)
	})

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		e := NewEngine(newFakeDir(), ModeDryRun, nil, nil)
		require.NoError(t, e.Preflight(ctx, "admin@corp.com", "org-1", []MappingRow{ownerRow}))
	})
}

func TestOwnerDemotionRejectedWithoutMutation(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{ExistingEmail: "owner@corp.com"})
	require.Equal(t, OutcomeSkippedPolicyViolation, out.Kind)
	require.Contains(t, out.Reason, "Organization Owner")
	require.Empty(t, f.calls)
	require.True(t, out.Failed())
}

func TestAlreadyVisitorSkipped(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("guest@corp.com", visitorRole, 1)
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{ExistingEmail: "guest@corp.com"})
	require.Equal(t, OutcomeSkippedPolicyViolation, out.Kind)
	require.Empty(t, f.calls, "no role update for a member who is already a Visitor")
}

func TestGuestsDisabledRejectsDemotion(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.org.CanHaveGuests = false
	f.addMember("bob@corp.com", memberRole, 1)
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{ExistingEmail: "bob@corp.com"})
	require.Equal(t, OutcomeSkippedPolicyViolation, out.Kind)
	require.Contains(t, out.Reason, "does not allow guests")
	require.Empty(t, f.calls)
}

func TestVisitorDemotionReassignsWorkspaces(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 1)
	f.addMember("carol@corp.com", memberRole, 1)
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{
		ExistingEmail:       "bob@corp.com",
		WorkspaceOwnerEmail: "carol@corp.com",
	})
	require.Equal(t, OutcomeRoleChangedToVisitor, out.Kind)
	require.Equal(t, []string{
		"UpdateMemberRole(org-1,m-bob@corp.com,role-visitor,m-carol@corp.com)",
	}, f.calls)
}

func TestVisitorDemotionDefaultsToOwner(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 1)
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{ExistingEmail: "bob@corp.com"})
	require.Equal(t, OutcomeRoleChangedToVisitor, out.Kind)
	require.Contains(t, out.Reason, "reverted to the organization owner")
	require.Equal(t, []string{
		"UpdateMemberRole(org-1,m-bob@corp.com,role-visitor,)",
	}, f.calls)
}

func TestReassignmentTargetMustBeMember(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 1)
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{
		ExistingEmail:       "bob@corp.com",
		WorkspaceOwnerEmail: "stranger@elsewhere.com",
	})
	require.Equal(t, OutcomeFailed, out.Kind)
	require.Contains(t, out.Reason, "is not a member of the organization")
	require.Empty(t, f.calls)
}

func TestReassignmentToSelfRejected(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 1)
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{
		ExistingEmail:       "bob@corp.com",
		WorkspaceOwnerEmail: "bob@corp.com",
	})
	require.Equal(t, OutcomeFailed, out.Kind)
	require.Empty(t, f.calls)
}

func TestSingleOrgEmailRewrite(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 1)
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{
		ExistingEmail: "bob@corp.com",
		SSOEmail:      "bob@sso.com",
	})
	require.Equal(t, OutcomeMigrated, out.Kind)
	require.Equal(t, []string{
		"UpdateUserEmail(m-bob@corp.com,bob@sso.com)",
	}, f.calls, "a single-org member with no SSO account gets an in-place email rewrite only")
}

func TestSingleOrgVisitorPromotedBeforeRewrite(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("guest@corp.com", visitorRole, 1)
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{
		ExistingEmail: "guest@corp.com",
		SSOEmail:      "guest@sso.com",
	})
	require.Equal(t, OutcomeMigrated, out.Kind)
	require.Contains(t, out.Reason, "role promoted to Member")
	require.Equal(t, []string{
		"UpdateMemberRole(org-1,m-guest@corp.com,role-member,)",
		"UpdateUserEmail(m-guest@corp.com,guest@sso.com)",
	}, f.calls)
}

func TestMultiOrgSplitCreatesAndTransfers(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 3)
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{
		ExistingEmail: "bob@corp.com",
		SSOEmail:      "bob@sso.com",
	})
	require.Equal(t, OutcomeMigrated, out.Kind)
	require.Equal(t, []string{
		"CreateUserWithoutOrganization(bob@sso.com)",
		"AddMember(org-1,u-bob@sso.com,role-member)",
		"RequestTransferMemberResources(org-1,m-bob@corp.com,m-u-bob@sso.com)",
	}, f.calls, "split must create the account, attach it, then transfer, in that order")
}

func TestMultiOrgSplitToleratesTransferNotFound(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 2)
	f.transferErr = directory.ErrNotFound
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{
		ExistingEmail: "bob@corp.com",
		SSOEmail:      "bob@sso.com",
	})
	require.Equal(t, OutcomeMigrated, out.Kind, "a transfer 404 means nothing to move; the split still succeeds")
}

func TestMergeIntoExistingSSOUser(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 1)
	f.users["bob@sso.com"] = &directory.User{ID: "u-sso", Email: "bob@sso.com"}
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{
		ExistingEmail: "bob@corp.com",
		SSOEmail:      "bob@sso.com",
	})
	require.Equal(t, OutcomeMigrated, out.Kind)
	require.Equal(t, []string{
		"AddMember(org-1,u-sso,role-member)",
		"RequestTransferMemberResources(org-1,m-bob@corp.com,m-u-sso)",
		"DeleteUser(m-bob@corp.com,m-u-sso,false)",
	}, f.calls, "single-org source is deleted once its resources move to the SSO account")
}

func TestMergeKeepsMultiOrgSource(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 2)
	f.addMember("bob@sso.com", memberRole, 1)
	f.users["bob@sso.com"] = &directory.User{ID: "u-sso", Email: "bob@sso.com"}
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{
		ExistingEmail: "bob@corp.com",
		SSOEmail:      "bob@sso.com",
	})
	require.Equal(t, OutcomeMigrated, out.Kind)
	require.Equal(t, []string{
		"RequestTransferMemberResources(org-1,m-bob@corp.com,m-bob@sso.com)",
	}, f.calls, "a source with other organizations is never deleted")
}

func TestMergeTransferNotFoundIsAlreadyMigrated(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 1)
	f.addMember("bob@sso.com", memberRole, 1)
	f.users["bob@sso.com"] = &directory.User{ID: "u-sso", Email: "bob@sso.com"}
	f.transferErr = directory.ErrNotFound
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{
		ExistingEmail: "bob@corp.com",
		SSOEmail:      "bob@sso.com",
	})
	require.Equal(t, OutcomeSkippedAlreadyMigrated, out.Kind)
	require.False(t, out.Failed(), "already-migrated is a tolerated skip, not a failure")
}

func TestInvalidEmails(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 1)
	e := newTestEngine(t, f, ModeExecute)
	ctx := context.Background()

	out := e.processRow(ctx, MappingRow{ExistingEmail: "not-an-email"})
	require.Equal(t, OutcomeFailed, out.Kind)

	out = e.processRow(ctx, MappingRow{ExistingEmail: "bob@corp.com", SSOEmail: "broken"})
	require.Equal(t, OutcomeFailed, out.Kind)
	require.Contains(t, out.Reason, "SSO email")

	out = e.processRow(ctx, MappingRow{ExistingEmail: "bob@corp.com", WorkspaceOwnerEmail: "broken"})
	require.Equal(t, OutcomeFailed, out.Kind)
	require.Empty(t, f.calls)
}

func TestNonMemberRowFails(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	e := newTestEngine(t, f, ModeExecute)

	out := e.processRow(context.Background(), MappingRow{ExistingEmail: "ghost@corp.com", SSOEmail: "ghost@sso.com"})
	require.Equal(t, OutcomeFailed, out.Kind)
	require.Contains(t, out.Reason, "is not a member of the organization org-1")
}

func TestDryRunPerformsNoMutations(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("alice@corp.com", memberRole, 1)
	f.addMember("bob@corp.com", memberRole, 3)
	f.addMember("carol@corp.com", memberRole, 1)
	f.users["alice@sso.com"] = &directory.User{ID: "u-sso", Email: "alice@sso.com"}
	e := newTestEngine(t, f, ModeDryRun)
	ctx := context.Background()

	rows := []MappingRow{
		{ExistingEmail: "alice@corp.com", SSOEmail: "alice@sso.com"},
		{ExistingEmail: "bob@corp.com", SSOEmail: "bob@sso.com"},
		{ExistingEmail: "carol@corp.com"},
		{ExistingEmail: "owner@corp.com"},
	}
	kinds := make([]OutcomeKind, 0, len(rows))
	for _, row := range rows {
		kinds = append(kinds, e.processRow(ctx, row).Kind)
	}
	require.Empty(t, f.calls, "dry-run must not touch remote state")
	require.Equal(t, []OutcomeKind{
		OutcomeMigrated,
		OutcomeMigrated,
		OutcomeRoleChangedToVisitor,
		OutcomeSkippedPolicyViolation,
	}, kinds)
}

func TestDryRunIsDeterministic(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 1)
	rows := []MappingRow{
		{ExistingEmail: "owner@corp.com", SSOEmail: "owner@sso.com"},
		{ExistingEmail: "bob@corp.com", SSOEmail: "bob@sso.com"},
	}

	run := func() string {
		e := newTestEngine(t, f, ModeDryRun)
		rep, err := NewReporter(filepath.Join(t.TempDir(), "report.csv"))
		require.NoError(t, err)
		_, err = e.Run(context.Background(), rows, rep)
		require.NoError(t, err)
		body, err := os.ReadFile(rep.Path())
		require.NoError(t, err)
		return string(body)
	}

	first, second := run(), run()
	require.Equal(t, first, second, "two dry runs over the same input produce identical reports")
	require.Empty(t, f.calls)
}

func TestRunWritesReportAndCounts(t *testing.T) {
	t.Parallel()
	f := newFakeDir()
	f.addMember("bob@corp.com", memberRole, 1)
	e := newTestEngine(t, f, ModeExecute)

	rep, err := NewReporter(filepath.Join(t.TempDir(), "reports", "report.csv"))
	require.NoError(t, err)

	summary, err := e.Run(context.Background(), []MappingRow{
		{ExistingEmail: "owner@corp.com", SSOEmail: "owner@sso.com"},
		{ExistingEmail: "bob@corp.com", SSOEmail: "bob@sso.com"},
		{ExistingEmail: "ghost@corp.com"},
	}, rep)
	require.NoError(t, err)
	require.Equal(t, 3, summary.TotalRows)
	require.Equal(t, 1, summary.FailedCount)

	body, err := os.ReadFile(rep.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 4, "header plus one line per row")
	require.Contains(t, lines[0], "Status")
}
