// Package provision configures siloed tenants: every organization sharing
// the target organization's identity provider gets automatic IDP user
// association enabled and, optionally, is attached to a billing account.
package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lumoboard/lumoctl/internal/directory"
	"github.com/lumoboard/lumoctl/pkg/console"
)

// Directory is the slice of the directory client this service consumes.
type Directory interface {
	GetOrganization(ctx context.Context, organizationID string) (*directory.Organization, error)
	GetAccount(ctx context.Context, accountID string) (*directory.Account, error)
	EachOrganization(ctx context.Context, fn func(directory.Organization) error) error
	UpdateAutoAssociateIDPUser(ctx context.Context, organizationID string, enabled bool) error
	AddOrganizationToAccount(ctx context.Context, organizationID, accountID string) error
}

// Failure records one organization the walk could not update.
type Failure struct {
	OrganizationID string
	Reason         string
}

// Summary tallies the walk. Matched counts organizations sharing the target
// IDP, whether or not they needed changes.
type Summary struct {
	Matched         int
	IDPUpdated      int
	AccountLinked   int
	IDPFailures     []Failure
	AccountFailures []Failure
	Elapsed         time.Duration
}

type Service struct {
	dir     Directory
	log     *logrus.Entry
	printer *console.Printer
}

func NewService(dir Directory, logger *logrus.Logger, printer *console.Printer) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.ErrorLevel)
	}
	return &Service{dir: dir, log: logger.WithField("component", "provision"), printer: printer}
}

// Apply walks every organization in the instance, cursor page by cursor
// page. Per-organization failures are recorded and the walk continues;
// only resolving the target organization or account aborts.
func (s *Service) Apply(ctx context.Context, organizationID, accountID string) (Summary, error) {
	started := time.Now()

	primary, err := s.dir.GetOrganization(ctx, organizationID)
	if err != nil {
		return Summary{}, errors.Wrapf(err, "resolve organization %s", organizationID)
	}
	if primary.IdentityProvider == nil {
		return Summary{}, errors.Errorf("organization %s has no identity provider", organizationID)
	}

	if accountID != "" {
		if _, err := s.dir.GetAccount(ctx, accountID); err != nil {
			return Summary{}, errors.Wrapf(err, "resolve account %s", accountID)
		}
	}

	summary := Summary{}
	err = s.dir.EachOrganization(ctx, func(org directory.Organization) error {
		if org.IdentityProvider == nil || org.IdentityProvider.ID != primary.IdentityProvider.ID {
			return nil
		}
		summary.Matched++

		if !org.AutoAssociateIdentityProviderUser {
			if uerr := s.dir.UpdateAutoAssociateIDPUser(ctx, org.ID, true); uerr != nil {
				summary.IDPFailures = append(summary.IDPFailures, Failure{OrganizationID: org.ID, Reason: uerr.Error()})
				s.printer.Fail("failed to update IDP association for organization %s - %v", org.ID, uerr)
			} else {
				summary.IDPUpdated++
				s.printer.Succeed("updated IDP association for organization %s", org.ID)
			}
		}

		if accountID != "" {
			if aerr := s.dir.AddOrganizationToAccount(ctx, org.ID, accountID); aerr != nil {
				summary.AccountFailures = append(summary.AccountFailures, Failure{OrganizationID: org.ID, Reason: aerr.Error()})
				s.printer.Fail("failed to attach organization %s to account %s - %v", org.ID, accountID, aerr)
			} else {
				summary.AccountLinked++
				s.printer.Succeed("attached organization %s to account %s", org.ID, accountID)
			}
		}
		return nil
	})
	if err != nil {
		return summary, errors.Wrap(err, "walk organizations")
	}

	summary.Elapsed = time.Since(started)
	s.log.WithFields(logrus.Fields{
		"matched":        summary.Matched,
		"idp_updated":    summary.IDPUpdated,
		"account_linked": summary.AccountLinked,
	}).Info("siloed provisioning finished")
	return summary, nil
}

// Describe renders the end-of-run lines the operator sees.
func (s Summary) Describe(accountID string) []string {
	lines := []string{
		fmt.Sprintf("organizations sharing the identity provider: %d", s.Matched),
		fmt.Sprintf("IDP association enabled: %d, failed: %d", s.IDPUpdated, len(s.IDPFailures)),
	}
	if accountID != "" {
		lines = append(lines, fmt.Sprintf("account mappings added: %d, failed: %d", s.AccountLinked, len(s.AccountFailures)))
	}
	return lines
}
