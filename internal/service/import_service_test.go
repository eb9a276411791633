package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"minimart/internal/logging"
	"minimart/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newImportService(repo *fakeUserRepo, mail *fakeMailer, audit *fakeAudit) ImportService {
	inviter := NewInviter(repo, mail, "https://mart.example.com", logging.Nop())
	return NewImportService(repo, inviter, audit, logging.Nop())
}

func TestImportService_ImportRows(t *testing.T) {
	repo := newFakeUserRepo()
	mail := &fakeMailer{}
	audit := &fakeAudit{}
	svc := newImportService(repo, mail, audit)

	rows := []model.ImportRow{
		{Row: 1, SheetRow: 2, Name: "Ann", Email: "ann@example.com", PhoneNumber: "8123456", Role: "Resident"},
		{Row: 2, SheetRow: 3, Name: "Ann Again", Email: "ANN@example.com", PhoneNumber: "8123457", Role: "resident"},
		{Row: 3, SheetRow: 4, Name: "Bob", Email: "bob@example.com", PhoneNumber: "8123458", Role: "manager"},
		{Row: 4, SheetRow: 5, Name: "Cat", Email: "cat@example.com", PhoneNumber: "8123459", Role: "admin"},
	}

	result := svc.ImportRows(context.Background(), "admin@example.com", rows)

	require.Len(t, result.CreatedUsers, 2)
	assert.Equal(t, "ann@example.com", result.CreatedUsers[0].User.Email)
	assert.Equal(t, model.RoleResident, result.CreatedUsers[0].User.Role)
	assert.True(t, result.CreatedUsers[0].InvitationSent)
	assert.Equal(t, "cat@example.com", result.CreatedUsers[1].User.Email)

	require.Len(t, result.FailedEntries, 2)
	assert.Equal(t, 2, result.FailedEntries[0].Row)
	assert.Equal(t, 3, result.FailedEntries[0].SheetRow)
	assert.Equal(t, model.ImportDuplicateEmail, result.FailedEntries[0].Code)
	assert.Equal(t, 3, result.FailedEntries[1].Row)
	assert.Equal(t, model.ImportInvalidRole, result.FailedEntries[1].Code)

	assert.Len(t, mail.sent, 2)
	assert.Equal(t, "https://mart.example.com/accept-invitation?email=ann%40example.com", mail.sent[0].AcceptURL)
	ann := repo.get("ann@example.com")
	assert.False(t, ann.InvitationAccepted)
	assert.NotNil(t, ann.InvitationSentAt)
	assert.Equal(t, []string{model.ActionUsersBulkImported}, audit.actions())
}

func TestImportService_ImportRows_ExistingAndInvalid(t *testing.T) {
	repo := newFakeUserRepo(&model.User{Email: "old@example.com", PhoneNumber: "8000000", Role: model.RoleResident})
	svc := newImportService(repo, &fakeMailer{}, &fakeAudit{})

	result := svc.ImportRows(context.Background(), "admin@example.com", []model.ImportRow{
		{Row: 1, SheetRow: 2, Name: "Old", Email: "old@example.com", PhoneNumber: "8000000", Role: "resident"},
		{Row: 2, SheetRow: 3, Name: "", Email: "x@example.com", PhoneNumber: "8000001", Role: "resident"},
		{Row: 3, SheetRow: 4, Name: "Bad", Email: "not-an-email", PhoneNumber: "8000002", Role: "resident"},
	})

	assert.Empty(t, result.CreatedUsers)
	require.Len(t, result.FailedEntries, 3)
	assert.Equal(t, model.ImportDuplicateEmail, result.FailedEntries[0].Code)
	assert.Equal(t, model.ImportInvalidFormat, result.FailedEntries[1].Code)
	assert.Contains(t, result.FailedEntries[1].Error, "Name")
	assert.Equal(t, model.ImportInvalidFormat, result.FailedEntries[2].Code)
}

func TestImportService_ImportRows_MailFailureKeepsUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newImportService(repo, &fakeMailer{err: errDB}, &fakeAudit{})

	result := svc.ImportRows(context.Background(), "admin@example.com", []model.ImportRow{
		{Row: 1, SheetRow: 2, Name: "Ann", Email: "ann@example.com", PhoneNumber: "8123456", Role: "resident"},
	})

	require.Len(t, result.CreatedUsers, 1)
	assert.False(t, result.CreatedUsers[0].InvitationSent)
	assert.NotNil(t, repo.get("ann@example.com"))
	assert.Nil(t, repo.get("ann@example.com").InvitationSentAt)
}

func TestImportService_ImportRows_RecoversFromPanic(t *testing.T) {
	repo := newFakeUserRepo()
	repo.onCreate = func(u *model.User) {
		if u.Email == "boom@example.com" {
			panic("driver exploded")
		}
	}
	svc := newImportService(repo, &fakeMailer{}, &fakeAudit{})

	result := svc.ImportRows(context.Background(), "admin@example.com", []model.ImportRow{
		{Row: 1, SheetRow: 2, Name: "Boom", Email: "boom@example.com", PhoneNumber: "8123456", Role: "resident"},
		{Row: 2, SheetRow: 3, Name: "Fine", Email: "fine@example.com", PhoneNumber: "8123457", Role: "resident"},
	})

	require.Len(t, result.FailedEntries, 1)
	assert.Equal(t, model.ImportInternal, result.FailedEntries[0].Code)
	assert.Equal(t, 1, result.FailedEntries[0].Row)
	require.Len(t, result.CreatedUsers, 1)
	assert.Equal(t, "fine@example.com", result.CreatedUsers[0].User.Email)
}

func TestImportService_ImportRows_LookupError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.findErr = errDB
	svc := newImportService(repo, &fakeMailer{}, &fakeAudit{})

	result := svc.ImportRows(context.Background(), "admin@example.com", []model.ImportRow{
		{Row: 1, SheetRow: 2, Name: "Ann", Email: "ann@example.com", PhoneNumber: "8123456", Role: "resident"},
	})

	require.Len(t, result.FailedEntries, 1)
	assert.Equal(t, model.ImportInternal, result.FailedEntries[0].Code)
}

func TestImportService_ImportFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	content := "email,NAME,Role,phone number\n" +
		"ann@example.com,Ann,resident,8123456\n" +
		",,,\n" +
		"bob@example.com,Bob,ADMIN,8123457\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	repo := newFakeUserRepo()
	svc := newImportService(repo, &fakeMailer{}, &fakeAudit{})

	result, err := svc.ImportFile(context.Background(), "admin@example.com", path)

	require.NoError(t, err)
	assert.Empty(t, result.FailedEntries)
	require.Len(t, result.CreatedUsers, 2)
	assert.Equal(t, 1, result.CreatedUsers[0].Row)
	assert.Equal(t, 3, result.CreatedUsers[1].Row)
	assert.Equal(t, 4, result.CreatedUsers[1].SheetRow)
	assert.Equal(t, model.RoleAdmin, repo.get("bob@example.com").Role)
}

func TestImportService_ImportFile_CSVWithBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	content := "\ufeffName,Email,Phone Number,Role\n" +
		"Ann,ann@example.com,8123456,resident\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	repo := newFakeUserRepo()
	svc := newImportService(repo, &fakeMailer{}, &fakeAudit{})

	result, err := svc.ImportFile(context.Background(), "admin@example.com", path)

	require.NoError(t, err)
	assert.Empty(t, result.FailedEntries)
	require.Len(t, result.CreatedUsers, 1)
	assert.Equal(t, "Ann", repo.get("ann@example.com").Name)
}

func TestImportService_ImportFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Name", "Email", "Phone Number", "Role"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Ann", "ann@example.com", "8123456", "resident"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	svc := newImportService(newFakeUserRepo(), &fakeMailer{}, &fakeAudit{})

	result, err := svc.ImportFile(context.Background(), "admin@example.com", path)

	require.NoError(t, err)
	require.Len(t, result.CreatedUsers, 1)
	assert.Equal(t, "ann@example.com", result.CreatedUsers[0].User.Email)
}

func TestImportService_ImportFile_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Email\nAnn,ann@example.com\n"), 0o600))
	svc := newImportService(newFakeUserRepo(), &fakeMailer{}, &fakeAudit{})

	_, err := svc.ImportFile(context.Background(), "admin@example.com", path)

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "Phone Number")
}

func TestImportService_ImportFile_UnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))
	svc := newImportService(newFakeUserRepo(), &fakeMailer{}, &fakeAudit{})

	_, err := svc.ImportFile(context.Background(), "admin@example.com", path)

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestImportService_Template(t *testing.T) {
	svc := newImportService(newFakeUserRepo(), &fakeMailer{}, &fakeAudit{})

	buf, err := svc.Template()
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Users")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Name", "Email", "Phone Number", "Role"}, rows[0])
}
