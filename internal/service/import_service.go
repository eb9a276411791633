package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"minimart/internal/logging"
	"minimart/internal/model"
	"minimart/internal/otp"
	"minimart/internal/repository"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet column headers, matched case-insensitively.
const (
	ColumnName        = "Name"
	ColumnEmail       = "Email"
	ColumnPhoneNumber = "Phone Number"
	ColumnRole        = "Role"
)

var importColumns = []string{ColumnName, ColumnEmail, ColumnPhoneNumber, ColumnRole}

const templateSheet = "Users"

// ImportService bulk-creates pending users from a spreadsheet.
type ImportService interface {
	ImportFile(ctx context.Context, actor, path string) (*model.ImportResult, error)
	ImportRows(ctx context.Context, actor string, rows []model.ImportRow) *model.ImportResult
	Template() (*bytes.Buffer, error)
}

type importService struct {
	users   repository.UserRepository
	inviter *Inviter
	audit   AuditRecorder
	log     logging.Logger
}

// NewImportService creates a new ImportService
func NewImportService(users repository.UserRepository, inviter *Inviter, audit AuditRecorder, log logging.Logger) ImportService {
	return &importService{users: users, inviter: inviter, audit: audit, log: log.With("component", "import")}
}

// ImportFile reads an .xlsx or .csv file and imports its rows. Errors are
// returned only when the file itself cannot be read; row problems end up in
// the result.
func (s *importService) ImportFile(ctx context.Context, actor, path string) (*model.ImportResult, error) {
	records, err := readSheet(path)
	if err != nil {
		s.log.Warn(ctx, "unreadable import file", "file", filepath.Base(path), "error", err)
		return nil, newError(ErrInvalidInput, "unable to read spreadsheet: %v", err)
	}
	rows, err := mapRows(records)
	if err != nil {
		return nil, err
	}
	return s.ImportRows(ctx, actor, rows), nil
}

func readSheet(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		return f.GetRows(sheets[0])
	case ".csv":
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		r := csv.NewReader(file)
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true
		return r.ReadAll()
	default:
		return nil, errors.New("only .xlsx and .csv files are supported")
	}
}

// mapRows locates the required columns in the header row and converts the
// remaining non-blank rows.
func mapRows(records [][]string) ([]model.ImportRow, error) {
	if len(records) == 0 {
		return nil, newError(ErrInvalidInput, "spreadsheet is empty")
	}

	index := map[string]int{}
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	var missing []string
	for _, col := range importColumns {
		if _, ok := index[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, newError(ErrInvalidInput, "missing required column(s): %s", strings.Join(missing, ", "))
	}

	cell := func(rec []string, col string) string {
		i := index[strings.ToLower(col)]
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var rows []model.ImportRow
	for i, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		rows = append(rows, model.ImportRow{
			Row:         i + 1,
			SheetRow:    i + 2,
			Name:        cell(rec, ColumnName),
			Email:       cell(rec, ColumnEmail),
			PhoneNumber: cell(rec, ColumnPhoneNumber),
			Role:        cell(rec, ColumnRole),
		})
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ImportRows processes every row exactly once, in order. A failing or
// panicking row is recorded and the batch continues. Emails already created
// earlier in the same batch count as duplicates.
func (s *importService) ImportRows(ctx context.Context, actor string, rows []model.ImportRow) *model.ImportResult {
	result := &model.ImportResult{
		CreatedUsers:  []model.ImportedUser{},
		FailedEntries: []model.ImportFailure{},
	}
	seen := map[string]int{}

	for _, row := range rows {
		created, failure := s.importRow(ctx, row, seen)
		if failure != nil {
			result.FailedEntries = append(result.FailedEntries, *failure)
			continue
		}
		result.CreatedUsers = append(result.CreatedUsers, *created)
	}

	s.log.Info(ctx, "bulk import finished", "rows", len(rows),
		"created", len(result.CreatedUsers), "failed", len(result.FailedEntries))
	s.audit.Record(ctx, actor, model.ActionUsersBulkImported, model.EntityUser, "",
		map[string]int{"rows": len(rows), "created": len(result.CreatedUsers), "failed": len(result.FailedEntries)})
	return result
}

func (s *importService) importRow(ctx context.Context, row model.ImportRow, seen map[string]int) (created *model.ImportedUser, failure *model.ImportFailure) {
	email := NormalizeEmail(row.Email)
	fail := func(code, format string, args ...any) *model.ImportFailure {
		return &model.ImportFailure{Row: row.Row, SheetRow: row.SheetRow, Email: email, Code: code, Error: fmt.Sprintf(format, args...)}
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error(ctx, "panic while importing row", "row", row.SheetRow, "panic", r)
			created = nil
			failure = fail(model.ImportInternal, "unexpected error while processing row")
		}
	}()

	name := strings.TrimSpace(row.Name)
	phone := otp.LocalPhone(row.PhoneNumber)
	role := strings.ToLower(strings.TrimSpace(row.Role))

	var missing []string
	if name == "" {
		missing = append(missing, ColumnName)
	}
	if email == "" {
		missing = append(missing, ColumnEmail)
	}
	if phone == "" {
		missing = append(missing, ColumnPhoneNumber)
	}
	if role == "" {
		missing = append(missing, ColumnRole)
	}
	if len(missing) > 0 {
		return nil, fail(model.ImportInvalidFormat, "missing required field(s): %s", strings.Join(missing, ", "))
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fail(model.ImportInvalidFormat, "invalid email address")
	}
	if !model.ValidRole(role) {
		return nil, fail(model.ImportInvalidRole, "invalid role %q: must be resident or admin", row.Role)
	}
	if prev, ok := seen[email]; ok {
		return nil, fail(model.ImportDuplicateEmail, "email already used in row %d of this file", prev)
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fail(model.ImportDuplicateEmail, "email already registered")
	case !errors.Is(err, repository.ErrNotFound):
		s.log.Error(ctx, "import lookup failed", "row", row.SheetRow, "error", err)
		return nil, fail(model.ImportInternal, "failed to check existing user")
	}

	user := &model.User{Email: email, Name: name, PhoneNumber: phone, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fail(model.ImportDuplicateEmail, "email already registered")
		}
		s.log.Error(ctx, "import insert failed", "row", row.SheetRow, "error", err)
		return nil, fail(model.ImportInternal, "failed to create user")
	}
	seen[email] = row.SheetRow

	sent := s.inviter.Send(ctx, user)
	return &model.ImportedUser{Row: row.Row, SheetRow: row.SheetRow, User: user, InvitationSent: sent}, nil
}

// Template returns an empty workbook with the expected header row.
func (s *importService) Template() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), templateSheet); err != nil {
		return nil, fmt.Errorf("failed to name template sheet: %w", err)
	}
	header := make([]interface{}, len(importColumns))
	for i, c := range importColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write template header: %w", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write template: %w", err)
	}
	return buf, nil
}
