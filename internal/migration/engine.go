package migration

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lumoboard/lumoctl/internal/directory"
	"github.com/lumoboard/lumoctl/pkg/console"
	"github.com/lumoboard/lumoctl/pkg/validate"
)

// Mode selects whether the engine mutates remote state. Lookups and
// decisions are identical in both modes.
type Mode int

const (
	ModeDryRun Mode = iota
	ModeExecute
)

// Directory is the slice of the directory client the engine consumes.
// Narrowed to an interface so tests can substitute an in-memory fake.
type Directory interface {
	GetUserByEmail(ctx context.Context, email string) (*directory.User, error)
	GetOrganization(ctx context.Context, organizationID string) (*directory.Organization, error)
	GetOrganizationOwner(ctx context.Context, organizationID string) (*directory.OrganizationMember, error)
	GetOrganizationMemberByEmail(ctx context.Context, organizationID, email string) (*directory.OrganizationMember, error)
	UserOrganizationCount(ctx context.Context, userID string) (int, error)
	OrganizationRoleByType(ctx context.Context, organizationID, roleType string) (string, error)
	AddMember(ctx context.Context, organizationID, userID, roleID string) (*directory.OrganizationMember, error)
	UpdateMemberRole(ctx context.Context, organizationID, memberID, roleID, newWorkspaceOwnerID string) error
	UpdateUserEmail(ctx context.Context, userID, newEmail string) error
	CreateUserWithoutOrganization(ctx context.Context, email string) (*directory.User, error)
	RequestTransferMemberResources(ctx context.Context, organizationID, sourceMemberID, targetMemberID string) error
	DeleteUser(ctx context.Context, userID, newOwnerID string, permanent bool) error
}

// Pre-flight failures abort the whole run before any row is touched.
var (
	ErrNoActiveSession     = errors.New("no active session found; login to proceed")
	ErrForbidden           = errors.New("forbidden: user not permitted to perform this action")
	ErrOrganizationMissing = errors.New("organization not found")
	ErrOwnerMappingMissing = errors.New("organization owner's email is not present in the mapping file; cannot proceed without owner mapping")
)

// Engine applies the migration policy to mapping rows, one at a time, in
// file order. A row's failure never stops the run; only Preflight aborts.
type Engine struct {
	dir     Directory
	mode    Mode
	log     *logrus.Entry
	printer *console.Printer

	org        *directory.Organization
	ownerEmail string
}

func NewEngine(dir Directory, mode Mode, logger *logrus.Logger, printer *console.Printer) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.ErrorLevel)
	}
	return &Engine{
		dir:     dir,
		mode:    mode,
		log:     logger.WithField("component", "migration"),
		printer: printer,
	}
}

func (e *Engine) execute() bool {
	return e.mode == ModeExecute
}

// Preflight verifies the session, the operator's admin role, the target
// organization and the owner mapping. Any failure here is fatal to the run.
func (e *Engine) Preflight(ctx context.Context, sessionEmail, organizationID string, rows []MappingRow) error {
	if sessionEmail == "" {
		return ErrNoActiveSession
	}

	sessionUser, err := e.dir.GetUserByEmail(ctx, sessionEmail)
	if err != nil {
		return errors.Wrapf(err, "resolve session user %s", sessionEmail)
	}
	if sessionUser.ApplicationRole == nil || sessionUser.ApplicationRole.Type != directory.ApplicationRoleAdmin {
		return ErrForbidden
	}

	org, err := e.dir.GetOrganization(ctx, organizationID)
	if err != nil {
		if directory.IsNotFound(err) {
			return errors.Wrapf(ErrOrganizationMissing, "organization %s", organizationID)
		}
		return errors.Wrapf(err, "resolve organization %s", organizationID)
	}

	owner, err := e.dir.GetOrganizationOwner(ctx, organizationID)
	if err != nil {
		return errors.Wrapf(err, "resolve owner of organization %s", organizationID)
	}
	ownerMapped := false
	for _, row := range rows {
		if row.ExistingEmail == owner.Email {
			ownerMapped = true
			break
		}
	}
	if !ownerMapped {
		return ErrOwnerMappingMissing
	}

	e.org = org
	e.ownerEmail = owner.Email
	return nil
}

// Run processes every row, records each outcome immediately and returns the
// run totals. Rows are strictly sequential; a later row observes whatever
// remote state earlier rows left behind.
func (e *Engine) Run(ctx context.Context, rows []MappingRow, rep *Reporter) (RunSummary, error) {
	if e.org == nil {
		return RunSummary{}, errors.New("preflight has not run")
	}
	total := len(rows)
	for i, row := range rows {
		progress := fmt.Sprintf("%d/%d : %s", i+1, total, row.ExistingEmail)
		e.printer.Progress("%s is processing", progress)

		outcome := e.processRow(ctx, row)
		if err := rep.Record(row, outcome); err != nil {
			return RunSummary{}, err
		}

		switch outcome.Kind {
		case OutcomeFailed, OutcomeSkippedPolicyViolation:
			e.printer.Fail("%s - %s", progress, outcome.Reason)
		case OutcomeSkippedAlreadyMigrated:
			e.printer.Info("%s - %s", progress, outcome.Reason)
		default:
			e.printer.Succeed("%s - %s", progress, outcome.Reason)
		}
		e.log.WithFields(logrus.Fields{"row": i + 1, "email": row.ExistingEmail, "reason": outcome.Reason}).Debug("row processed")
	}
	return rep.Finalize()
}

func (e *Engine) processRow(ctx context.Context, row MappingRow) Outcome {
	if !validate.IsEmail(row.ExistingEmail) {
		return failed(fmt.Sprintf("invalid email format - %s", row.ExistingEmail))
	}

	source, err := e.dir.GetOrganizationMemberByEmail(ctx, e.org.ID, row.ExistingEmail)
	if err != nil {
		if directory.IsNotFound(err) {
			return failed(fmt.Sprintf("%s is not a member of the organization %s", row.ExistingEmail, e.org.ID))
		}
		return failed(fmt.Sprintf("error in getting organization %s member - %v", e.org.ID, err))
	}

	orgCount, err := e.dir.UserOrganizationCount(ctx, source.ID)
	if err != nil {
		return failed(fmt.Sprintf("failed to fetch existing user organizations - %v", err))
	}
	sourceMultiOrg := orgCount > 1

	if row.SSOEmail != "" {
		return e.migrateToSSO(ctx, row, source, sourceMultiOrg)
	}
	return e.convertToVisitor(ctx, row, source)
}

// migrateToSSO handles rows carrying an SSO email: a plain email rewrite for
// single-org members, an account split for multi-org members, or a merge
// into an already-existing SSO account.
func (e *Engine) migrateToSSO(ctx context.Context, row MappingRow, source *directory.OrganizationMember, sourceMultiOrg bool) Outcome {
	if !validate.IsEmail(row.SSOEmail) {
		return failed(fmt.Sprintf("SSO email - invalid email format - %s", row.SSOEmail))
	}

	target, err := e.dir.GetUserByEmail(ctx, row.SSOEmail)
	if err != nil && !directory.IsNotFound(err) {
		return failed(fmt.Sprintf("failed to look up SSO user %s - %v", row.SSOEmail, err))
	}

	if target == nil {
		if !sourceMultiOrg {
			return e.rewriteEmail(ctx, row, source)
		}
		return e.splitAccount(ctx, row, source)
	}
	return e.mergeIntoExisting(ctx, row, source, target, sourceMultiOrg)
}

// rewriteEmail is the simple case: the account exists only in this
// organization, so its login email can change in place. A Visitor is
// promoted to the organization's default role first.
func (e *Engine) rewriteEmail(ctx context.Context, row MappingRow, source *directory.OrganizationMember) Outcome {
	promoted := false
	if source.Role.Type == directory.RoleTypeVisitor {
		if e.execute() {
			if err := e.dir.UpdateMemberRole(ctx, e.org.ID, source.ID, e.org.DefaultOrganizationUserRole.ID, ""); err != nil {
				return failed(fmt.Sprintf("failed to promote %s from Visitor - %v", row.ExistingEmail, err))
			}
		}
		promoted = true
	}
	if e.execute() {
		if err := e.dir.UpdateUserEmail(ctx, source.ID, row.SSOEmail); err != nil {
			return failed(fmt.Sprintf("failed to update user email - %v", err))
		}
	}
	reason := fmt.Sprintf("existing email %s migrated to %s", row.ExistingEmail, row.SSOEmail)
	if promoted {
		reason = fmt.Sprintf("role promoted to %s; %s", roleLabel(e.org.DefaultOrganizationUserRole), reason)
	}
	return migrated(reason)
}

// splitAccount creates a fresh SSO account, attaches it to the organization
// with the default role, and moves the source member's resources over. The
// source keeps its other organizations untouched.
func (e *Engine) splitAccount(ctx context.Context, row MappingRow, source *directory.OrganizationMember) Outcome {
	targetID := ""
	if e.execute() {
		created, err := e.dir.CreateUserWithoutOrganization(ctx, row.SSOEmail)
		if err != nil {
			return failed(fmt.Sprintf("failed to create the user %s - %v", row.SSOEmail, err))
		}
		member, err := e.dir.AddMember(ctx, e.org.ID, created.ID, e.org.DefaultOrganizationUserRole.ID)
		if err != nil {
			return failed(fmt.Sprintf("failed to add the new user %s to organization - %v", row.SSOEmail, err))
		}
		targetID = member.ID

		if err := e.dir.RequestTransferMemberResources(ctx, e.org.ID, source.ID, targetID); err != nil && !directory.IsNotFound(err) {
			return failed(fmt.Sprintf("failed to transfer resources to %s - %v", row.SSOEmail, err))
		}
	}
	return migrated(fmt.Sprintf("account split: %s created for %s and resources transferred from %s", row.SSOEmail, roleLabel(e.org.DefaultOrganizationUserRole), row.ExistingEmail))
}

// mergeIntoExisting attaches the source member's resources to an SSO account
// that already exists, adding that account to the organization when needed.
// A single-org source account is deleted afterwards; it has nothing left.
func (e *Engine) mergeIntoExisting(ctx context.Context, row MappingRow, source *directory.OrganizationMember, target *directory.User, sourceMultiOrg bool) Outcome {
	targetMember, err := e.dir.GetOrganizationMemberByEmail(ctx, e.org.ID, row.SSOEmail)
	switch {
	case err == nil:
	case directory.IsNotFound(err):
		if e.execute() {
			added, aerr := e.dir.AddMember(ctx, e.org.ID, target.ID, e.org.DefaultOrganizationUserRole.ID)
			if aerr != nil {
				return failed(fmt.Sprintf("failed to add the SSO user %s to organization - %v", row.SSOEmail, aerr))
			}
			targetMember = added
		} else {
			targetMember = &directory.OrganizationMember{ID: target.ID, Email: target.Email, Role: e.org.DefaultOrganizationUserRole}
		}
	default:
		return failed(fmt.Sprintf("error in getting organization %s member - %v", e.org.ID, err))
	}

	alreadySatisfied := false
	if e.execute() {
		if err := e.dir.RequestTransferMemberResources(ctx, e.org.ID, source.ID, targetMember.ID); err != nil {
			if !directory.IsNotFound(err) {
				return failed(fmt.Sprintf("failed to transfer resources to %s - %v", row.SSOEmail, err))
			}
			alreadySatisfied = true
		}
		if !sourceMultiOrg {
			if err := e.dir.DeleteUser(ctx, source.ID, targetMember.ID, false); err != nil {
				return failed(fmt.Sprintf("resources transferred but failed to delete the source account %s - %v", row.ExistingEmail, err))
			}
		}
	}
	if alreadySatisfied {
		return skippedAlreadyMigrated(fmt.Sprintf("%s already holds the resources of %s; nothing to transfer", row.SSOEmail, row.ExistingEmail))
	}
	return migrated(fmt.Sprintf("account merge: resources of %s transferred to existing SSO user %s", row.ExistingEmail, row.SSOEmail))
}

// convertToVisitor handles rows without an SSO email: demote the member to
// Visitor, reassigning owned workspaces to the named member or, absent one,
// back to the organization owner.
func (e *Engine) convertToVisitor(ctx context.Context, row MappingRow, source *directory.OrganizationMember) Outcome {
	if row.ExistingEmail == e.ownerEmail {
		return policyViolation(fmt.Sprintf("Organization Owner %s cannot be converted to visitor", row.ExistingEmail))
	}
	if !e.org.CanHaveGuests {
		return policyViolation(fmt.Sprintf("organization %s does not allow guests; enable guest members before converting to visitor", e.org.ID))
	}
	if source.Role.Type == directory.RoleTypeVisitor {
		return policyViolation(fmt.Sprintf("%s is already a %s in the organization", row.ExistingEmail, directory.RoleTypeVisitor))
	}

	reassignTo := ""
	reassignDesc := "reverted to the organization owner"
	if row.WorkspaceOwnerEmail != "" {
		if !validate.IsEmail(row.WorkspaceOwnerEmail) {
			return failed(fmt.Sprintf("workspace reassignment email - invalid email format - %s", row.WorkspaceOwnerEmail))
		}
		if row.WorkspaceOwnerEmail == row.ExistingEmail {
			return failed("workspace reassignment email cannot be the same as the existing email")
		}
		newOwner, err := e.dir.GetOrganizationMemberByEmail(ctx, e.org.ID, row.WorkspaceOwnerEmail)
		if err != nil {
			if directory.IsNotFound(err) {
				return failed(fmt.Sprintf("workspace reassignment email %s is not a member of the organization", row.WorkspaceOwnerEmail))
			}
			return failed(fmt.Sprintf("error in getting organization %s member - %v", e.org.ID, err))
		}
		reassignTo = newOwner.ID
		reassignDesc = "reassigned to " + row.WorkspaceOwnerEmail
	}

	visitorRoleID, err := e.dir.OrganizationRoleByType(ctx, e.org.ID, directory.RoleTypeVisitor)
	if err != nil {
		return failed(fmt.Sprintf("failed to resolve the %s role - %v", directory.RoleTypeVisitor, err))
	}

	if e.execute() {
		if err := e.dir.UpdateMemberRole(ctx, e.org.ID, source.ID, visitorRoleID, reassignTo); err != nil {
			return failed(fmt.Sprintf("failed to change %s role to %s - %v", row.ExistingEmail, directory.RoleTypeVisitor, err))
		}
	}
	return roleChanged(fmt.Sprintf("%s role changed to %s; owned workspaces %s", row.ExistingEmail, directory.RoleTypeVisitor, reassignDesc))
}

func roleLabel(r directory.Role) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Type
}
