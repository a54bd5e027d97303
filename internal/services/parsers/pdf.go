package parsers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ternarybob/corpora/internal/models"
)

// parsePDF extracts text using pdfcpu. pdfcpu has no direct text API,
// so page content streams are extracted to a scratch directory and read
// back in page order.
func (s *Service) parsePDF(filePath string) models.ParseResult {
	pdfCtx, err := api.ReadContextFile(filePath)
	if err != nil {
		return models.ParseFailure(fmt.Sprintf("pdf parse failed: %v", err), models.ParseMetadata{})
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp(s.tempDir, "pages_")
	if err != nil {
		return models.ParseFailure(fmt.Sprintf("pdf parse failed: %v", err), models.ParseMetadata{PageCount: pageCount})
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(filePath, outDir, nil, conf); err != nil {
		return models.ParseFailure(fmt.Sprintf("failed to extract pdf content: %v", err), models.ParseMetadata{PageCount: pageCount})
	}

	pageTexts := readExtractedPages(outDir)

	var builder strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text, ok := pageTexts[pageNum]
		if !ok || text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}

	if strings.TrimSpace(builder.String()) == "" {
		s.logger.Warn().Str("file", filePath).Int("pages", pageCount).Msg("PDF has no extractable text")
		return models.ParseFailure("no text content found, possibly a scanned PDF",
			models.ParseMetadata{PageCount: pageCount})
	}

	cleaned := s.normalizer.Normalize(builder.String())
	meta := models.ParseMetadata{
		PageCount: pageCount,
		WordCount: countWords(cleaned),
	}

	s.logger.Info().
		Str("file", filePath).
		Int("pages", meta.PageCount).
		Int("words", meta.WordCount).
		Msg("PDF parsed")

	return models.ParseResult{Success: true, Content: cleaned, Metadata: meta}
}

// readExtractedPages maps page number to extracted content. pdfcpu
// names output files page_N or Content_page_N depending on version.
func readExtractedPages(outDir string) map[int]string {
	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		} else if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}
	return pageTexts
}
