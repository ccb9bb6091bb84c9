// Package migration implements the SSO email-migration workflow: mapping CSV
// validation, the per-row policy engine shared by dry-run and execute, and
// the audit report.
package migration

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Required mapping CSV headers. Casing must match exactly.
const (
	HeaderExistingEmail        = "Existing Email"
	HeaderSSOEmail             = "SSO Email"
	HeaderWorkspaceReassigning = "Workspace Reassignment Email"
)

// MappingRow is one migration candidate. Emails are lower-cased at load time
// and never mutated afterwards.
type MappingRow struct {
	ExistingEmail       string
	SSOEmail            string
	WorkspaceOwnerEmail string
}

// ErrEmptyFile rejects mapping files with a header but no data rows.
var ErrEmptyFile = errors.New("mapping file has no data rows")

// MissingColumnsError lists required headers absent from the mapping file.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("mapping file is missing required column(s): %s", strings.Join(e.Columns, ", "))
}

// DuplicateEmailError lists every email appearing more than once across the
// existing-email and sso-email columns combined.
type DuplicateEmailError struct {
	Emails []string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("mapping file contains duplicate email(s): %s", strings.Join(e.Emails, ", "))
}

// LoadMapping parses and validates a mapping CSV. It is a pure transform:
// no remote calls happen here, so structural problems surface before any
// row is processed.
func LoadMapping(path string) ([]MappingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open mapping file")
	}
	defer func() { _ = f.Close() }()
	return readMapping(f)
}

func readMapping(r io.Reader) ([]MappingRow, error) {
	br := stripUTF8BOM(bufio.NewReader(r))
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	var missing []string
	for _, required := range []string{HeaderExistingEmail, HeaderSSOEmail, HeaderWorkspaceReassigning} {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	var rows []MappingRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d", len(rows)+2)
		}
		rows = append(rows, MappingRow{
			ExistingEmail:       normalizeEmail(field(record, index[HeaderExistingEmail])),
			SSOEmail:            normalizeEmail(field(record, index[HeaderSSOEmail])),
			WorkspaceOwnerEmail: normalizeEmail(field(record, index[HeaderWorkspaceReassigning])),
		})
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	if dups := duplicateEmails(rows); len(dups) > 0 {
		return nil, &DuplicateEmailError{Emails: dups}
	}
	return rows, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// duplicateEmails finds values repeated across the union of the existing and
// sso columns. An email showing up once in each column is still a duplicate:
// it would make one row's target another row's source.
func duplicateEmails(rows []MappingRow) []string {
	counts := make(map[string]int, len(rows)*2)
	for _, row := range rows {
		if row.ExistingEmail != "" {
			counts[row.ExistingEmail]++
		}
		if row.SSOEmail != "" {
			counts[row.SSOEmail]++
		}
	}
	var dups []string
	for email, n := range counts {
		if n > 1 {
			dups = append(dups, email)
		}
	}
	sort.Strings(dups)
	return dups
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}
