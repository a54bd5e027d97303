package parsers

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/corpora/internal/models"
)

const sheetSeparator = "\n\n---\n\n"

// parseXLSX renders each sheet as CSV under a [Sheet: name] header.
// Empty sheets are skipped; a workbook where every sheet is empty is a
// parse failure.
func (s *Service) parseXLSX(filePath string) models.ParseResult {
	workbook, err := excelize.OpenFile(filePath)
	if err != nil {
		return models.ParseFailure(fmt.Sprintf("xlsx parse failed: %v", err), models.ParseMetadata{})
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return models.ParseFailure("workbook contains no sheets", models.ParseMetadata{SheetCount: 0})
	}

	var sheetContents []string
	totalWordCount := 0

	for _, name := range sheets {
		rows, err := workbook.GetRows(name)
		if err != nil {
			s.logger.Warn().Str("file", filePath).Str("sheet", name).Err(err).Msg("Skipping unreadable sheet")
			continue
		}
		if len(rows) == 0 {
			continue
		}

		csvContent := rowsToCSV(rows)
		if strings.TrimSpace(csvContent) == "" {
			continue
		}

		totalWordCount += countWords(csvContent)
		sheetContents = append(sheetContents, fmt.Sprintf("[Sheet: %s]\n%s", name, csvContent))
	}

	if len(sheetContents) == 0 {
		s.logger.Warn().Str("file", filePath).Int("sheets", len(sheets)).Msg("All sheets are empty")
		return models.ParseFailure("all sheets are empty",
			models.ParseMetadata{SheetCount: len(sheets)})
	}

	meta := models.ParseMetadata{
		SheetCount: len(sheets),
		WordCount:  totalWordCount,
	}

	s.logger.Info().
		Str("file", filePath).
		Int("sheets", meta.SheetCount).
		Int("words", meta.WordCount).
		Msg("XLSX parsed")

	return models.ParseResult{
		Success:  true,
		Content:  strings.Join(sheetContents, sheetSeparator),
		Metadata: meta,
	}
}

// rowsToCSV renders rows as CSV, quoting cells that contain commas,
// quotes or newlines.
func rowsToCSV(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			if strings.ContainsAny(cell, ",\"\n") {
				cell = `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
			}
			cells = append(cells, cell)
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n")
}
