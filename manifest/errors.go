package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat matches every *FormatError.
	ErrFormat = errors.New("manifest format invalid")

	// ErrNotFound is returned by Load when the descriptor file does not exist.
	ErrNotFound = errors.New("manifest not found")
)

// FormatError describes structurally invalid bencode or a descriptor that
// does not describe a retrievable file list. Offset is -1 for errors found
// after decoding.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return "manifest: " + e.Msg
	}
	return fmt.Sprintf("bencode: %s at offset %d", e.Msg, e.Offset)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func formatErrorf(offset int, format string, args ...any) error {
	return &FormatError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
