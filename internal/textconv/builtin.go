package textconv

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// BuiltinConverter handles the formats that need no external engine:
// plain text variants, CSV/TSV, JSON, and RFC 5322 email. Everything
// else (PDF, office documents, images) reports a missing capability so
// a richer converter can be swapped in.
type BuiltinConverter struct{}

func NewBuiltinConverter() *BuiltinConverter { return &BuiltinConverter{} }

var _ Converter = (*BuiltinConverter)(nil)

func (c *BuiltinConverter) Convert(r io.Reader, sourceName string) (Result, error) {
	ext := strings.ToLower(filepath.Ext(sourceName))

	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", sourceName, err)
	}

	switch ext {
	case ".txt", ".md", ".log", ".vcf", ".ics", ".rtf", ".html", ".htm", ".xml":
		return Result{Text: decodeText(data), Engine: "plain-text"}, nil
	case ".csv":
		return convertDelimited(data, ',')
	case ".tsv":
		return convertDelimited(data, '\t')
	case ".json":
		return convertJSON(data)
	case ".eml":
		return convertMail(data)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrMissingCapability, ext)
	}
}

// convertDelimited renders each record as its cells joined with " | ".
func convertDelimited(data []byte, comma rune) (Result, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	var lines []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("parsing delimited content: %w", err)
		}
		lines = append(lines, strings.Join(record, " | "))
	}
	return Result{Text: strings.Join(lines, "\n"), Engine: "csv"}, nil
}

// convertJSON re-indents the document so nested values become readable
// scan input.
func convertJSON(data []byte) (Result, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Result{}, fmt.Errorf("parsing json content: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return Result{}, fmt.Errorf("rendering json content: %w", err)
	}
	return Result{Text: buf.String(), Engine: "json"}, nil
}

// convertMail extracts the subject line and body of an RFC 5322 message.
func convertMail(data []byte) (Result, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("parsing mail content: %w", err)
	}

	var parts []string
	if subject := msg.Header.Get("Subject"); subject != "" {
		parts = append(parts, "Subject: "+subject)
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading mail body: %w", err)
	}
	if len(body) > 0 {
		parts = append(parts, decodeText(body))
	}
	return Result{Text: strings.Join(parts, "\n"), Engine: "mail"}, nil
}

// decodeText interprets bytes as UTF-8, mapping invalid sequences to
// Latin-1 code points rather than failing.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
