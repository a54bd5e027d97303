package common

import (
	"github.com/google/uuid"
)

// NewDocumentID generates a unique document ID with the "doc_" prefix
// Format: doc_<uuid>
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewChunkID generates a unique chunk ID. Chunk IDs double as vector point
// IDs, and the vector store only accepts bare UUIDs, so no prefix.
func NewChunkID() string {
	return uuid.New().String()
}
