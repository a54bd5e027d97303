package parsers

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/corpora/internal/models"
)

// parseDOCX extracts text from an OOXML word document. A .docx is a zip
// archive; the body text lives in word/document.xml and the document
// properties in docProps/core.xml.
func (s *Service) parseDOCX(filePath string) models.ParseResult {
	reader, err := zip.OpenReader(filePath)
	if err != nil {
		return models.ParseFailure(fmt.Sprintf("docx parse failed: %v", err), models.ParseMetadata{})
	}
	defer reader.Close()

	var text string
	var meta models.ParseMetadata

	for _, file := range reader.File {
		switch file.Name {
		case "word/document.xml":
			rc, err := file.Open()
			if err != nil {
				return models.ParseFailure(fmt.Sprintf("docx parse failed: %v", err), models.ParseMetadata{})
			}
			text, err = extractDocumentText(rc)
			rc.Close()
			if err != nil {
				return models.ParseFailure(fmt.Sprintf("docx parse failed: %v", err), models.ParseMetadata{})
			}
		case "docProps/core.xml":
			if rc, err := file.Open(); err == nil {
				meta.Title, meta.Author = readCoreProperties(rc)
				rc.Close()
			}
		}
	}

	if strings.TrimSpace(text) == "" {
		s.logger.Warn().Str("file", filePath).Msg("DOCX has no text content")
		return models.ParseFailure("document contains no text content", meta)
	}

	cleaned := s.normalizer.Normalize(text)
	meta.WordCount = countWords(cleaned)

	s.logger.Info().
		Str("file", filePath).
		Int("words", meta.WordCount).
		Msg("DOCX parsed")

	return models.ParseResult{Success: true, Content: cleaned, Metadata: meta}
}

// extractDocumentText walks the document XML emitting run text, with a
// newline per paragraph and w:br, and a tab per w:tab.
func extractDocumentText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var builder strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("invalid document xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "br":
				builder.WriteString("\n")
			case "tab":
				builder.WriteString("\t")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(t)
			}
		}
	}

	return builder.String(), nil
}

func readCoreProperties(r io.Reader) (title, author string) {
	var props struct {
		Title   string `xml:"title"`
		Creator string `xml:"creator"`
	}
	if err := xml.NewDecoder(r).Decode(&props); err != nil {
		return "", ""
	}
	return props.Title, props.Creator
}
