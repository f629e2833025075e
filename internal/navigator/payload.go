package navigator

import "time"

// PayloadKind distinguishes the two content payload shapes.
type PayloadKind string

const (
	KindDatabaseRow PayloadKind = "database_row"
	KindText        PayloadKind = "text"
)

// Payload is one normalized unit of extractable content: either a
// database row (Values/Columns set) or extracted text (Text set). It is
// produced by the navigator and consumed exactly once by a scan.
type Payload struct {
	SourceFile   string
	InternalPath string
	Kind         PayloadKind
	// FileType is the inferred content category: database, image,
	// document, spreadsheet, email, calendar, contact, or text.
	FileType string

	// Database-row payloads.
	Values   map[string]string
	Columns  []string
	Table    string
	RowIndex int

	// Text payloads.
	Text   string
	Engine string

	Modified *time.Time
}
