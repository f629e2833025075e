package pattern

import (
	"errors"
	"fmt"
	"strings"
)

// Flags is a bitset of match options applied when compiling a rule.
type Flags uint8

const (
	FlagIgnoreCase Flags = 1 << iota
	FlagMultiline
	FlagDotAll
	// FlagUnicode is accepted for configuration compatibility. Go
	// regexps operate on Unicode text unconditionally, so the flag
	// compiles to nothing.
	FlagUnicode
)

var (
	// ErrUnsupportedFlag indicates an unrecognized flag name in a rule entry.
	ErrUnsupportedFlag = errors.New("unsupported match flag")
	// ErrInvalidFlagType indicates a flags value that is neither a string
	// nor a list of strings.
	ErrInvalidFlagType = errors.New("flags must be a string or a list of strings")
)

var flagTable = map[string]Flags{
	"ignorecase": FlagIgnoreCase,
	"multiline":  FlagMultiline,
	"dotall":     FlagDotAll,
	"unicode":    FlagUnicode,
}

// ParseFlag maps a single flag name (case-insensitive) to its bit.
func ParseFlag(name string) (Flags, error) {
	f, ok := flagTable[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFlag, name)
	}
	return f, nil
}

// ParseFlagNames OR-combines a list of flag names.
func ParseFlagNames(names []string) (Flags, error) {
	var flags Flags
	for _, name := range names {
		f, err := ParseFlag(name)
		if err != nil {
			return 0, err
		}
		flags |= f
	}
	return flags, nil
}

// exprPrefix renders the flag bits as an inline regexp group prefix.
func (f Flags) exprPrefix() string {
	var letters []string
	if f&FlagIgnoreCase != 0 {
		letters = append(letters, "i")
	}
	if f&FlagMultiline != 0 {
		letters = append(letters, "m")
	}
	if f&FlagDotAll != 0 {
		letters = append(letters, "s")
	}
	if len(letters) == 0 {
		return ""
	}
	return "(?" + strings.Join(letters, "") + ")"
}
