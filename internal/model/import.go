package model

// Row failure codes reported by the bulk importer.
const (
	ImportInvalidFormat  = "INVALID_FORMAT"
	ImportInvalidRole    = "INVALID_ROLE"
	ImportDuplicateEmail = "DUPLICATE_EMAIL"
	ImportInternal       = "INTERNAL"
)

// ImportRow is one data row read from an uploaded spreadsheet. Row is the
// 1-based data row number; SheetRow is the row as shown in the spreadsheet.
type ImportRow struct {
	Row         int
	SheetRow    int
	Name        string
	Email       string
	PhoneNumber string
	Role        string
}

// ImportedUser is a successfully created row.
type ImportedUser struct {
	Row            int   `json:"row"`
	SheetRow       int   `json:"sheetRow"`
	User           *User `json:"user"`
	InvitationSent bool  `json:"invitationSent"`
}

// ImportFailure is a rejected row.
type ImportFailure struct {
	Row      int    `json:"row"`
	SheetRow int    `json:"sheetRow"`
	Email    string `json:"email,omitempty"`
	Error    string `json:"error"`
	Code     string `json:"code"`
}

// ImportResult lists created and failed rows, each in input order.
type ImportResult struct {
	CreatedUsers  []ImportedUser  `json:"createdUsers"`
	FailedEntries []ImportFailure `json:"failedEntries"`
}
