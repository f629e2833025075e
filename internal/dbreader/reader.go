package dbreader

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"evscan/internal/archive"
	"evscan/internal/logging"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// sqliteExtensions is the recognized extension set for embedded databases.
var sqliteExtensions = map[string]bool{
	".db":      true,
	".sqlite":  true,
	".sqlite3": true,
	".s3db":    true,
}

// IsDatabaseMember reports whether a member looks like an embedded
// SQLite database. Directories never qualify.
func IsDatabaseMember(m archive.Member) bool {
	return !m.IsDir && sqliteExtensions[m.Ext()]
}

// Row is a single row streamed from a database member, with every
// column value normalized to a string.
type Row struct {
	SourceFile   string
	InternalPath string
	Table        string
	// Index is zero-based and scoped to the table.
	Index   int
	Columns []string
	Values  map[string]string
}

// Reader enumerates and streams SQLite databases embedded in an
// evidence container.
type Reader struct {
	extractor  *archive.Extractor
	scratchDir string
	logger     logging.Logger
}

// NewReader creates a Reader over the given extractor. Scratch database
// copies are materialized under scratchDir; an empty scratchDir uses the
// system temp directory.
func NewReader(extractor *archive.Extractor, scratchDir string, logger logging.Logger) *Reader {
	return &Reader{extractor: extractor, scratchDir: scratchDir, logger: logger}
}

// ListDatabases filters the member list down to database members.
func (r *Reader) ListDatabases(members []archive.Member) []archive.Member {
	var dbs []archive.Member
	for _, m := range members {
		if IsDatabaseMember(m) {
			r.logger.Debug("identified database member", "member", m.Name, "container", r.extractor.Path())
			dbs = append(dbs, m)
		}
	}
	return dbs
}

// IterRows streams every row of every user table in the database member,
// calling fn once per row. The member is copied to a scratch file that is
// removed on every return path. An error from fn aborts the iteration and
// is returned unchanged.
func (r *Reader) IterRows(member archive.Member, fn func(Row) error) error {
	scratch, err := r.materialize(member)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := os.Remove(scratch); rerr != nil && !os.IsNotExist(rerr) {
			r.logger.Warn("removing scratch database", "path", scratch, "error", rerr)
		}
	}()
	r.logger.Debug("materialized database member", "member", member.Name, "scratch", scratch)

	db, err := openReadOnly(scratch)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", member.Name, err)
	}
	defer db.Close()

	tables, err := listTables(db)
	if err != nil {
		return fmt.Errorf("listing tables of %s: %w", member.Name, err)
	}

	for _, table := range tables {
		if err := r.iterTableRows(db, member, table, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) iterTableRows(db *sql.DB, member archive.Member, table string, fn func(Row) error) error {
	columns, err := listColumns(db, table)
	if err != nil {
		return fmt.Errorf("listing columns of %s.%s: %w", member.Name, table, err)
	}

	rows, err := db.Query("SELECT * FROM " + quoteIdentifier(table))
	if err != nil {
		return fmt.Errorf("scanning table %s.%s: %w", member.Name, table, err)
	}
	defer rows.Close()

	index := 0
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("reading row %d of %s.%s: %w", index, member.Name, table, err)
		}

		values := make(map[string]string, len(columns))
		for i, col := range columns {
			values[col] = normalizeValue(raw[i])
		}

		err := fn(Row{
			SourceFile:   r.extractor.Path(),
			InternalPath: member.Name,
			Table:        table,
			Index:        index,
			Columns:      columns,
			Values:       values,
		})
		if err != nil {
			return err
		}
		index++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating table %s.%s: %w", member.Name, table, err)
	}
	return nil
}

// materialize copies the member's byte stream to a uniquely-named scratch
// file carrying the member's extension, so the engine recognizes it.
func (r *Reader) materialize(member archive.Member) (string, error) {
	ext := member.Ext()
	if ext == "" {
		ext = ".db"
	}

	tmp, err := os.CreateTemp(r.scratchDir, "evscan-*"+ext)
	if err != nil {
		return "", fmt.Errorf("creating scratch file: %w", err)
	}
	scratch := tmp.Name()

	src, err := r.extractor.OpenMember(member.Name)
	if err != nil {
		tmp.Close()
		os.Remove(scratch)
		return "", err
	}
	defer src.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(scratch)
		return "", fmt.Errorf("copying member %q to scratch: %w", member.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(scratch)
		return "", fmt.Errorf("closing scratch file: %w", err)
	}
	return scratch, nil
}

// openReadOnly opens a SQLite file strictly read-only. The immutable
// flag also keeps the driver from creating -wal/-shm siblings next to
// the scratch copy.
func openReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("validating connection: %w", err)
	}
	return db, nil
}

// listTables enumerates user tables in catalog order, skipping
// engine-internal sqlite_* tables.
func listTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// listColumns returns a table's column names in declared order.
func listColumns(db *sql.DB, table string) ([]string, error) {
	rows, err := db.Query("PRAGMA table_info(" + quoteIdentifier(table) + ")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// normalizeValue renders any column value as a string. NULL becomes the
// empty string. Binary values are decoded as UTF-8 when valid; otherwise
// each byte maps to its Latin-1 code point, which is lossy.
func normalizeValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case []byte:
		if utf8.Valid(value) {
			return string(value)
		}
		runes := make([]rune, len(value))
		for i, b := range value {
			runes[i] = rune(b)
		}
		return string(runes)
	case string:
		return value
	case time.Time:
		return value.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", value)
	}
}

// quoteIdentifier makes a table or column name safe to interpolate into
// generated SQL.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
