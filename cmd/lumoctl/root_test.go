package main

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	if got := exitCode(nil); got != exitOK {
		t.Fatalf("exitCode(nil) = %d, want %d", got, exitOK)
	}
	if got := exitCode(errors.New("plain")); got != 1 {
		t.Fatalf("exitCode(plain) = %d, want 1", got)
	}
	if got := exitCode(withCode(exitValidation, errors.New("bad input"))); got != exitValidation {
		t.Fatalf("exitCode(validation) = %d, want %d", got, exitValidation)
	}

	wrapped := withCode(exitAPI, errors.New("boom"))
	if wrapped.Error() != "boom" {
		t.Fatalf("cliError message = %q, want original message", wrapped.Error())
	}
	if withCode(exitAPI, nil) != nil {
		t.Fatalf("withCode(nil) should stay nil")
	}
}

func TestReportPath(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1700000000000)
	got := reportPath("reports", filepath.Join("in", "migration-report.csv"), now)
	want := filepath.Join("reports", "migration-report_1700000000000.csv")
	if got != want {
		t.Fatalf("reportPath = %q, want %q", got, want)
	}

	got = reportPath("out", "plain", now)
	want = filepath.Join("out", "plain_1700000000000.csv")
	if got != want {
		t.Fatalf("reportPath without extension = %q, want %q", got, want)
	}
}

func TestRootCommandWiring(t *testing.T) {
	t.Parallel()

	root := newRootCmd(&app{})
	want := []string{
		"login", "logout", "whoami", "config", "user",
		"customlink", "provisionlicense", "siloeduserprovision", "emailmigration",
	}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Fatalf("command %q not registered: %v", name, err)
		}
	}

	for _, sub := range []string{"dry-run", "execute"} {
		cmd, _, err := root.Find([]string{"emailmigration", sub})
		if err != nil || cmd.Name() != sub {
			t.Fatalf("emailmigration %s not registered: %v", sub, err)
		}
	}
}
