// Package license links legacy enterprise billing subscriptions to
// organizations. Instance admins only.
package license

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lumoboard/lumoctl/internal/directory"
	"github.com/lumoboard/lumoctl/pkg/validate"
)

// Billing intervals the directory accepts.
const (
	IntervalYearly  = "Yearly"
	IntervalMonthly = "Monthly"

	DefaultCurrency = "USD"
)

var (
	ErrNoActiveSession = errors.New("no active session found; login to proceed")
	ErrForbidden       = errors.New("forbidden: user not permitted to perform this action")
)

// Directory is the slice of the directory client this service consumes.
type Directory interface {
	GetUserByEmail(ctx context.Context, email string) (*directory.User, error)
	GetOrganization(ctx context.Context, organizationID string) (*directory.Organization, error)
	LinkExternalLegacySubscription(ctx context.Context, organizationID string, input directory.LegacySubscriptionInput) (*directory.Subscription, error)
}

type Service struct {
	dir Directory
	log *logrus.Entry
}

func NewService(dir Directory, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.ErrorLevel)
	}
	return &Service{dir: dir, log: logger.WithField("component", "license")}
}

// ValidateInput rejects malformed subscription details before any prompt
// round-trip reaches the directory.
func ValidateInput(input directory.LegacySubscriptionInput) error {
	if !validate.IsExternalSubscriptionID(input.ExternalSubscriptionID) {
		return errors.Errorf("invalid external subscription id %q", input.ExternalSubscriptionID)
	}
	if input.LicenseQuantity < 0 {
		return errors.New("license quantity cannot be negative")
	}
	if input.OrganizationStorageLimitMb < 0 {
		return errors.New("organization storage limit cannot be negative")
	}
	switch input.Interval {
	case "", IntervalYearly, IntervalMonthly:
	default:
		return errors.Errorf("interval must be %s or %s", IntervalYearly, IntervalMonthly)
	}
	return nil
}

// Link verifies the session, the operator's admin role and the target
// organization, then attaches the subscription.
func (s *Service) Link(ctx context.Context, sessionEmail, organizationID string, input directory.LegacySubscriptionInput) (*directory.Subscription, error) {
	if sessionEmail == "" {
		return nil, ErrNoActiveSession
	}
	sessionUser, err := s.dir.GetUserByEmail(ctx, sessionEmail)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve session user %s", sessionEmail)
	}
	if sessionUser.ApplicationRole == nil || sessionUser.ApplicationRole.Type != directory.ApplicationRoleAdmin {
		return nil, ErrForbidden
	}

	if err := ValidateInput(input); err != nil {
		return nil, err
	}
	if input.Currency == "" {
		input.Currency = DefaultCurrency
	}
	if input.Interval == "" {
		input.Interval = IntervalYearly
	}

	if _, err := s.dir.GetOrganization(ctx, organizationID); err != nil {
		return nil, errors.Wrapf(err, "resolve organization %s", organizationID)
	}

	sub, err := s.dir.LinkExternalLegacySubscription(ctx, organizationID, input)
	if err != nil {
		return nil, errors.Wrap(err, "link legacy subscription")
	}
	s.log.WithFields(logrus.Fields{"organization": organizationID, "plan": sub.PlanName}).Info("legacy subscription linked")
	return sub, nil
}
