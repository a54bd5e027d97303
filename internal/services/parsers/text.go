package parsers

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/corpora/internal/models"
)

// parseText handles plain text and markdown files. An empty or
// whitespace-only file is a successful parse with empty content.
func (s *Service) parseText(filePath string) models.ParseResult {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return models.ParseFailure(fmt.Sprintf("text parse failed: %v", err), models.ParseMetadata{})
	}

	content := string(data)
	if strings.TrimSpace(content) == "" {
		s.logger.Info().Str("file", filePath).Msg("Text file is empty")
		return models.ParseResult{Success: true, Content: "", Metadata: models.ParseMetadata{}}
	}

	cleaned := s.normalizer.Normalize(content)
	meta := models.ParseMetadata{
		WordCount: countWords(cleaned),
		LineCount: strings.Count(cleaned, "\n") + 1,
	}

	s.logger.Info().
		Str("file", filePath).
		Int("lines", meta.LineCount).
		Int("words", meta.WordCount).
		Msg("Text file parsed")

	return models.ParseResult{Success: true, Content: cleaned, Metadata: meta}
}
