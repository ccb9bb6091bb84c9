// Package customlink bulk-provisions meeting link names from a CSV of
// email / room-name pairs, reserving names whose owner has no account yet.
package customlink

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lumoboard/lumoctl/internal/directory"
	"github.com/lumoboard/lumoctl/pkg/console"
	"github.com/lumoboard/lumoctl/pkg/validate"
)

// Required request CSV headers.
const (
	HeaderEmail    = "Email"
	HeaderRoomName = "Room Name"

	headerBlockedDomain = "Domain Name"
)

// Request is one link to provision. Email and RoomName are lower-cased at
// load time.
type Request struct {
	Email    string
	RoomName string
}

// Failure records why one request was skipped; the run continues past it.
type Failure struct {
	Email  string
	Reason string
}

// Summary is the end-of-run tally.
type Summary struct {
	Total    int
	Failures []Failure
	Elapsed  time.Duration
}

func (s Summary) Succeeded() int {
	return s.Total - len(s.Failures)
}

var ErrEmptyFile = errors.New("custom link file has no data rows")

// DuplicateValuesError reports values repeated within one CSV column.
type DuplicateValuesError struct {
	Column string
	Values []string
}

func (e *DuplicateValuesError) Error() string {
	return fmt.Sprintf("file contains duplicate %s value(s): %s", e.Column, strings.Join(e.Values, ", "))
}

// Directory is the slice of the directory client this service consumes.
type Directory interface {
	GetUserByEmail(ctx context.Context, email string) (*directory.User, error)
	CustomLinkAvailability(ctx context.Context, name string) (bool, error)
	CustomLinksByOwner(ctx context.Context, ownerID string) ([]directory.CustomLink, error)
	CreateCustomLink(ctx context.Context, name, resourceType, ownerID string) (*directory.CustomLink, error)
	UpdateCustomLink(ctx context.Context, linkID, name string) error
}

type Service struct {
	dir     Directory
	blocked map[string]struct{}
	log     *logrus.Entry
	printer *console.Printer
}

func NewService(dir Directory, blockedDomains []string, logger *logrus.Logger, printer *console.Printer) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.ErrorLevel)
	}
	blocked := make(map[string]struct{}, len(blockedDomains))
	for _, d := range blockedDomains {
		blocked[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &Service{
		dir:     dir,
		blocked: blocked,
		log:     logger.WithField("component", "customlink"),
		printer: printer,
	}
}

// Provision walks the requests in order. A request's failure never stops the
// run.
func (s *Service) Provision(ctx context.Context, requests []Request) Summary {
	started := time.Now()
	summary := Summary{Total: len(requests)}

	for i, req := range requests {
		progress := fmt.Sprintf("%d/%d : %s", i+1, len(requests), req.Email)
		s.printer.Progress("%s is processing", progress)

		if reason := s.provisionOne(ctx, req); reason != "" {
			summary.Failures = append(summary.Failures, Failure{Email: req.Email, Reason: reason})
			s.printer.Fail("%s - %s", progress, reason)
			continue
		}
		s.printer.Succeed("%s - custom link %s provisioned", progress, req.RoomName)
	}

	summary.Elapsed = time.Since(started)
	return summary
}

// provisionOne returns an empty string on success, otherwise the failure
// reason.
func (s *Service) provisionOne(ctx context.Context, req Request) string {
	if !validate.IsEmail(req.Email) {
		return fmt.Sprintf("invalid email format - %s", req.Email)
	}

	available, err := s.dir.CustomLinkAvailability(ctx, req.RoomName)
	if err != nil {
		return fmt.Sprintf("failed to check availability of %s - %v", req.RoomName, err)
	}
	if !available {
		return fmt.Sprintf("custom link name %s is not available", req.RoomName)
	}

	if domain := emailDomain(req.Email); domain != "" {
		if _, ok := s.blocked[domain]; ok {
			return fmt.Sprintf("domain %s is in the blocked list", domain)
		}
	}

	owner, err := s.dir.GetUserByEmail(ctx, req.Email)
	if err != nil && !directory.IsNotFound(err) {
		return fmt.Sprintf("failed to look up user %s - %v", req.Email, err)
	}

	// No account yet: reserve the name so nobody else can claim it.
	if owner == nil {
		if _, err := s.dir.CreateCustomLink(ctx, req.RoomName, directory.CustomLinkResourceBlocked, ""); err != nil {
			return fmt.Sprintf("failed to reserve custom link %s - %v", req.RoomName, err)
		}
		return ""
	}

	existing, err := s.dir.CustomLinksByOwner(ctx, owner.ID)
	if err != nil {
		return fmt.Sprintf("failed to list custom links of %s - %v", req.Email, err)
	}
	if len(existing) > 0 {
		if err := s.dir.UpdateCustomLink(ctx, existing[0].ID, req.RoomName); err != nil {
			return fmt.Sprintf("failed to update custom link to %s - %v", req.RoomName, err)
		}
		return ""
	}

	if _, err := s.dir.CreateCustomLink(ctx, req.RoomName, directory.CustomLinkResourceMeet, owner.ID); err != nil {
		return fmt.Sprintf("failed to create custom link %s - %v", req.RoomName, err)
	}
	return ""
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}

// LoadRequests parses the request CSV and rejects duplicate emails or room
// names before any remote call is made.
func LoadRequests(path string) ([]Request, error) {
	records, index, err := readCSV(path, HeaderEmail, HeaderRoomName)
	if err != nil {
		return nil, err
	}

	requests := make([]Request, 0, len(records))
	for _, record := range records {
		requests = append(requests, Request{
			Email:    normalize(field(record, index[HeaderEmail])),
			RoomName: normalize(field(record, index[HeaderRoomName])),
		})
	}

	emails := make([]string, len(requests))
	names := make([]string, len(requests))
	for i, r := range requests {
		emails[i] = r.Email
		names[i] = r.RoomName
	}
	if dups := duplicates(emails); len(dups) > 0 {
		return nil, &DuplicateValuesError{Column: HeaderEmail, Values: dups}
	}
	if dups := duplicates(names); len(dups) > 0 {
		return nil, &DuplicateValuesError{Column: HeaderRoomName, Values: dups}
	}
	return requests, nil
}

// LoadBlockedDomains parses the optional blocked-domain CSV.
func LoadBlockedDomains(path string) ([]string, error) {
	records, index, err := readCSV(path, headerBlockedDomain)
	if err != nil {
		return nil, err
	}
	domains := make([]string, 0, len(records))
	for _, record := range records {
		if d := normalize(field(record, index[headerBlockedDomain])); d != "" {
			domains = append(domains, d)
		}
	}
	return domains, nil
}

func readCSV(path string, required ...string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open csv file")
	}
	defer func() { _ = f.Close() }()

	cr := csv.NewReader(stripUTF8BOM(bufio.NewReader(f)))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "read header")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, nil, errors.Errorf("csv file is missing required column %q", name)
		}
	}

	var records [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "read row %d", len(records)+2)
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, nil, ErrEmptyFile
	}
	return records, index, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func duplicates(values []string) []string {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	var dups []string
	for v, n := range counts {
		if n > 1 {
			dups = append(dups, v)
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
