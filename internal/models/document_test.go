package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.False(t, StatusUploading.IsTerminal())
}

func TestDocumentStatus_CanProcess(t *testing.T) {
	assert.True(t, StatusQueued.CanProcess())
	assert.False(t, StatusProcessing.CanProcess())
	assert.False(t, StatusCompleted.CanProcess())
	assert.False(t, StatusFailed.CanProcess())
}

func TestFileTypeFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     FileType
	}{
		{"report.pdf", FileTypePDF},
		{"report.PDF", FileTypePDF},
		{"notes.docx", FileTypeDOCX},
		{"sheet.xlsx", FileTypeXLSX},
		{"sheet.xls", FileTypeXLSX},
		{"readme.md", FileTypeMD},
		{"readme.markdown", FileTypeMD},
		{"plain.txt", FileTypeTXT},
		{"archive.tar.gz", ""},
		{"noextension", ""},
		{"/some/dir.with.dots/noext", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileTypeFromFilename(tt.filename), "filename %q", tt.filename)
	}
}

func TestFileType_IsSupported(t *testing.T) {
	assert.True(t, FileTypePDF.IsSupported())
	assert.True(t, FileTypeMD.IsSupported())
	assert.False(t, FileType("exe").IsSupported())
	assert.False(t, FileType("").IsSupported())
}

func TestParseFailure(t *testing.T) {
	res := ParseFailure("file not found", ParseMetadata{})
	assert.False(t, res.Success)
	assert.Empty(t, res.Content)
	assert.Equal(t, "file not found", res.Error)
}
