package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/lumoboard/lumoctl/internal/directory"
	"github.com/lumoboard/lumoctl/internal/license"
	"github.com/lumoboard/lumoctl/pkg/console"
	"github.com/lumoboard/lumoctl/pkg/validate"
)

func askOrganizationID(p *console.Printer) (string, error) {
	return p.Ask("Enter the organization id:", func(s string) error {
		if !validate.IsID(s) {
			return errors.New("value must be a valid organization id")
		}
		return nil
	})
}

func askEmail(p *console.Printer, label string) (string, error) {
	return p.Ask(label, func(s string) error {
		if !validate.IsEmail(s) {
			return errors.New("value must be a valid email address")
		}
		return nil
	})
}

func optionalInt(label string) (func(string) error, func(string) int) {
	validator := func(s string) error {
		if s == "" {
			return nil
		}
		if _, err := strconv.Atoi(s); err != nil {
			return errors.Errorf("%s must be a whole number", label)
		}
		return nil
	}
	parse := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	return validator, parse
}

// askLegacySubscriptionDetails collects the subscription fields
// interactively. Empty answers fall back to the service defaults.
func askLegacySubscriptionDetails(p *console.Printer) (directory.LegacySubscriptionInput, error) {
	var input directory.LegacySubscriptionInput

	id, err := p.Ask("Enter the external subscription id:", func(s string) error {
		if !validate.IsExternalSubscriptionID(s) {
			return errors.New("value must be a valid external subscription id")
		}
		return nil
	})
	if err != nil {
		return input, err
	}
	input.ExternalSubscriptionID = id

	intValidator, parseInt := optionalInt("external subscription version")
	version, err := p.Ask("Enter the external subscription version (blank to skip):", intValidator)
	if err != nil {
		return input, err
	}
	input.ExternalSubscriptionVersion = parseInt(version)

	intValidator, parseInt = optionalInt("license quantity")
	quantity, err := p.Ask("Enter the license quantity (blank to skip):", intValidator)
	if err != nil {
		return input, err
	}
	input.LicenseQuantity = parseInt(quantity)

	currency, err := p.Ask("Enter the currency [USD]:", func(s string) error {
		if s == "" || strings.EqualFold(s, license.DefaultCurrency) {
			return nil
		}
		return errors.Errorf("only %s is supported", license.DefaultCurrency)
	})
	if err != nil {
		return input, err
	}
	if currency != "" {
		input.Currency = strings.ToUpper(currency)
	}

	interval, err := p.Ask("Enter the interval (Yearly/Monthly) [Yearly]:", func(s string) error {
		switch {
		case s == "", strings.EqualFold(s, license.IntervalYearly), strings.EqualFold(s, license.IntervalMonthly):
			return nil
		}
		return errors.Errorf("interval must be %s or %s", license.IntervalYearly, license.IntervalMonthly)
	})
	if err != nil {
		return input, err
	}
	switch {
	case strings.EqualFold(interval, license.IntervalMonthly):
		input.Interval = license.IntervalMonthly
	case strings.EqualFold(interval, license.IntervalYearly):
		input.Interval = license.IntervalYearly
	}

	intValidator, parseInt = optionalInt("organization storage limit")
	storage, err := p.Ask("Enter the organization storage limit in MB (blank to skip):", intValidator)
	if err != nil {
		return input, err
	}
	input.OrganizationStorageLimitMb = parseInt(storage)

	return input, nil
}
