package models

import (
	"strings"
	"time"
)

// DocumentStatus represents the lifecycle state of an ingested document.
type DocumentStatus string

const (
	StatusUploading  DocumentStatus = "uploading"
	StatusQueued     DocumentStatus = "queued"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// IsTerminal reports whether the status ends a processing attempt.
// Terminal states may still be revisited via an explicit reprocess.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanProcess reports whether a document in this status may enter the pipeline.
func (s DocumentStatus) CanProcess() bool {
	return s == StatusQueued
}

// FileType identifies a supported document format.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeXLSX FileType = "xlsx"
	FileTypeTXT  FileType = "txt"
	FileTypeMD   FileType = "md"
)

// IsSupported reports whether the file type has a registered parser.
func (t FileType) IsSupported() bool {
	switch t {
	case FileTypePDF, FileTypeDOCX, FileTypeXLSX, FileTypeTXT, FileTypeMD:
		return true
	}
	return false
}

// FileTypeFromFilename derives the file type from a filename extension.
// Returns an empty FileType when the extension is not supported.
func FileTypeFromFilename(filename string) FileType {
	idx := -1
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			idx = i
			break
		}
		if filename[i] == '/' || filename[i] == '\\' {
			break
		}
	}
	if idx < 0 {
		return ""
	}
	switch strings.ToLower(filename[idx+1:]) {
	case "pdf":
		return FileTypePDF
	case "docx":
		return FileTypeDOCX
	case "xlsx", "xls":
		return FileTypeXLSX
	case "txt":
		return FileTypeTXT
	case "md", "markdown":
		return FileTypeMD
	}
	return ""
}

// Document is one uploaded file tracked through the ingestion pipeline.
// Created in StatusQueued at upload time and mutated only by the pipeline,
// or by an explicit reprocess request that resets it to StatusQueued.
type Document struct {
	ID           string                 `json:"id"`
	DomainID     string                 `json:"domain_id"` // owning knowledge domain, maps 1:1 to a vector collection
	Filename     string                 `json:"filename"`
	FileType     FileType               `json:"file_type"`
	FileSize     int64                  `json:"file_size"`
	FilePath     string                 `json:"file_path"` // where the raw bytes live on disk
	Status       DocumentStatus         `json:"status"`
	Progress     int                    `json:"progress"` // 0-100
	ErrorMessage string                 `json:"error_message,omitempty"`
	ChunkCount   int                    `json:"chunk_count"`
	RetryCount   int                    `json:"retry_count"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	UploadedAt   time.Time              `json:"uploaded_at"`
	ProcessedAt  *time.Time             `json:"processed_at,omitempty"`
}

// DocumentChunk is a contiguous slice of a document's normalized text,
// sized for embedding. Chunks are transient: only their vector form is
// persisted, in the vector store.
type DocumentChunk struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	Content       string `json:"content"`
	ChunkIndex    int    `json:"chunk_index"`    // 0-based, increments per emitted chunk
	StartPosition int    `json:"start_position"` // byte offset into the normalized text
	EndPosition   int    `json:"end_position"`   // exclusive
}

// ParseMetadata carries best-effort, parser-specific facts about a file.
// WordCount is always populated; the rest depend on the format.
type ParseMetadata struct {
	WordCount  int    `json:"word_count"`
	PageCount  int    `json:"page_count,omitempty"`
	SheetCount int    `json:"sheet_count,omitempty"`
	LineCount  int    `json:"line_count,omitempty"`
	Title      string `json:"title,omitempty"`
	Author     string `json:"author,omitempty"`
}

// ParseResult is the outcome of one parse invocation. Parsers never return
// Go errors: every failure mode (missing file, unreadable bytes, no text)
// is reported as Success=false with a human-readable Error.
type ParseResult struct {
	Success  bool          `json:"success"`
	Content  string        `json:"content"`
	Metadata ParseMetadata `json:"metadata"`
	Error    string        `json:"error,omitempty"`
}

// ParseFailure builds a failed ParseResult with empty content.
func ParseFailure(msg string, meta ParseMetadata) ParseResult {
	return ParseResult{Success: false, Content: "", Metadata: meta, Error: msg}
}

// VectorPayload is the retrievable metadata stored alongside each vector.
// Field names match the wire format expected by the retrieval side.
type VectorPayload struct {
	DocumentID    string `json:"documentId"`
	DocumentName  string `json:"documentName"`
	Content       string `json:"content"`
	ChunkIndex    int    `json:"chunkIndex"`
	StartPosition int    `json:"startPosition"`
	EndPosition   int    `json:"endPosition"`
}

// VectorPoint is one chunk's embedding plus payload, as persisted in the
// vector store. ID must be the chunk's UUID (the store rejects other forms).
type VectorPoint struct {
	ID      string        `json:"id"`
	Vector  []float32     `json:"vector"`
	Payload VectorPayload `json:"payload"`
}

// SearchMatch is one similarity-search hit, sorted by descending score.
type SearchMatch struct {
	ID      string        `json:"id"`
	Score   float32       `json:"score"`
	Payload VectorPayload `json:"payload"`
}

// CollectionInfo describes a domain's vector collection.
type CollectionInfo struct {
	Exists       bool  `json:"exists"`
	PointsCount  int64 `json:"points_count"`
	VectorsCount int64 `json:"vectors_count"`
}

// ProcessingStage names one step of the document pipeline.
type ProcessingStage string

const (
	StageValidation ProcessingStage = "validation"
	StageExtraction ProcessingStage = "extraction"
	StageCleaning   ProcessingStage = "cleaning"
	StageChunking   ProcessingStage = "chunking"
	StageEmbedding  ProcessingStage = "embedding"
	StageIndexing   ProcessingStage = "indexing"
)

// ProgressUpdate reports coarse pipeline progress to an observer.
type ProgressUpdate struct {
	Stage    ProcessingStage `json:"stage"`
	Progress int             `json:"progress"` // 0-100
	Message  string          `json:"message,omitempty"`
}

// ProgressFunc receives progress updates during processing. May be nil.
type ProgressFunc func(ProgressUpdate)

// SweepResult summarizes one batch run over pending documents.
type SweepResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}
