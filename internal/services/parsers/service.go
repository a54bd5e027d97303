// -----------------------------------------------------------------------
// Parser Service - Extract text content from document files
// Dispatches to a format-specific parser per file type
// -----------------------------------------------------------------------

package parsers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpora/internal/interfaces"
	"github.com/ternarybob/corpora/internal/models"
	"github.com/ternarybob/corpora/internal/services/textnorm"
)

// Service implements the ParserService interface
type Service struct {
	normalizer *textnorm.Normalizer
	logger     arbor.ILogger
	tempDir    string
}

// Compile-time interface assertion
var _ interfaces.ParserService = (*Service)(nil)

// NewService creates a new parser service
func NewService(normalizer *textnorm.Normalizer, logger arbor.ILogger) *Service {
	// Scratch space for PDF content extraction
	tempDir := filepath.Join(os.TempDir(), "corpora-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Service{
		normalizer: normalizer,
		logger:     logger,
		tempDir:    tempDir,
	}
}

// Parse extracts text from the file at filePath. Failures of any kind
// are returned inside the ParseResult, never as a panic or Go error.
func (s *Service) Parse(filePath string, fileType models.FileType) models.ParseResult {
	s.logger.Info().
		Str("file", filePath).
		Str("type", string(fileType)).
		Msg("Parsing document")

	if _, err := os.Stat(filePath); err != nil {
		s.logger.Warn().Str("file", filePath).Err(err).Msg("Document file not accessible")
		return models.ParseFailure(fmt.Sprintf("failed to access file: %v", err), models.ParseMetadata{})
	}

	switch fileType {
	case models.FileTypePDF:
		return s.parsePDF(filePath)
	case models.FileTypeDOCX:
		return s.parseDOCX(filePath)
	case models.FileTypeXLSX:
		return s.parseXLSX(filePath)
	case models.FileTypeTXT, models.FileTypeMD:
		return s.parseText(filePath)
	default:
		s.logger.Error().Str("type", string(fileType)).Msg("Unsupported file type")
		return models.ParseFailure(fmt.Sprintf("unsupported file type: %s", fileType), models.ParseMetadata{})
	}
}

// Supports reports whether a parser is registered for the file type
func (s *Service) Supports(fileType models.FileType) bool {
	return fileType.IsSupported()
}
