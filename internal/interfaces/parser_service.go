package interfaces

import (
	"github.com/ternarybob/corpora/internal/models"
)

// ParserService extracts plain text and metadata from document files.
// Parse never returns a Go error: all failure modes are reported inside
// the ParseResult so callers handle one shape.
type ParserService interface {
	// Parse extracts text from the file at filePath using the parser
	// registered for fileType.
	Parse(filePath string, fileType models.FileType) models.ParseResult

	// Supports reports whether a parser is registered for the file type
	Supports(fileType models.FileType) bool
}
