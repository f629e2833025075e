// Package textconv defines the text-conversion capability consumed by
// the content navigator: turn a member's byte stream into scannable
// text, naming the engine that produced it.
package textconv

import (
	"errors"
	"io"
)

// ErrMissingCapability indicates no converter is available for the
// source format. The navigator treats this as a soft skip.
var ErrMissingCapability = errors.New("no conversion capability for format")

// Result is the normalized text extracted from an evidence member.
type Result struct {
	Text   string
	Engine string
}

// Converter turns a binary stream into text. sourceName is the member's
// original file name and drives format detection.
type Converter interface {
	Convert(r io.Reader, sourceName string) (Result, error)
}
