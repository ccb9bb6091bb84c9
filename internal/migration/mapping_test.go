package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeMapping(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMapping(t *testing.T) {
	t.Parallel()

	path := writeMapping(t, strings.Join([]string{
		"Existing Email,SSO Email,Workspace Reassignment Email",
		"Alice@Corp.com , alice@sso.com,",
		"bob@corp.com,,carol@corp.com",
	}, "\n"))

	rows, err := LoadMapping(path)
	require.NoError(t, err)
	require.Equal(t, []MappingRow{
		{ExistingEmail: "alice@corp.com", SSOEmail: "alice@sso.com"},
		{ExistingEmail: "bob@corp.com", WorkspaceOwnerEmail: "carol@corp.com"},
	}, rows, "emails are trimmed and lower-cased at load time")
}

func TestLoadMappingStripsBOM(t *testing.T) {
	t.Parallel()

	path := writeMapping(t, "\xEF\xBB\xBFExisting Email,SSO Email,Workspace Reassignment Email\na@corp.com,a@sso.com,\n")
	rows, err := LoadMapping(path)
	require.NoError(t, err)
	require.Equal(t, "a@corp.com", rows[0].ExistingEmail)
}

func TestLoadMappingExtraColumnsIgnored(t *testing.T) {
	t.Parallel()

	path := writeMapping(t, strings.Join([]string{
		"Notes,Existing Email,SSO Email,Workspace Reassignment Email",
		"keep,a@corp.com,a@sso.com,",
	}, "\n"))
	rows, err := LoadMapping(path)
	require.NoError(t, err)
	require.Equal(t, "a@corp.com", rows[0].ExistingEmail)
	require.Equal(t, "a@sso.com", rows[0].SSOEmail)
}

func TestLoadMappingMissingColumns(t *testing.T) {
	t.Parallel()

	path := writeMapping(t, "Existing Email,Something Else\na@corp.com,x\n")
	_, err := LoadMapping(path)
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, []string{HeaderSSOEmail, HeaderWorkspaceReassigning}, missing.Columns)
}

func TestLoadMappingEmptyFile(t *testing.T) {
	t.Parallel()

	_, err := LoadMapping(writeMapping(t, ""))
	require.ErrorIs(t, err, ErrEmptyFile)

	_, err = LoadMapping(writeMapping(t, "Existing Email,SSO Email,Workspace Reassignment Email\n"))
	require.ErrorIs(t, err, ErrEmptyFile)
}

func TestLoadMappingDuplicateEmails(t *testing.T) {
	t.Parallel()

	// dup@corp.com repeats in the existing column; shared@sso.com appears
	// as one row's source and another row's target.
	path := writeMapping(t, strings.Join([]string{
		"Existing Email,SSO Email,Workspace Reassignment Email",
		"dup@corp.com,a@sso.com,",
		"DUP@corp.com,b@sso.com,",
		"shared@sso.com,c@sso.com,",
		"d@corp.com,shared@sso.com,",
	}, "\n"))

	_, err := LoadMapping(path)
	var dups *DuplicateEmailError
	require.ErrorAs(t, err, &dups)
	require.Equal(t, []string{"dup@corp.com", "shared@sso.com"}, dups.Emails)
}

func TestLoadMappingMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadMapping(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
