// Package chunker splits normalized text into overlapping,
// sentence-aware chunks sized for embedding.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/corpora/internal/common"
	"github.com/ternarybob/corpora/internal/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100

	// How far back from a tentative chunk end to look for a sentence
	// boundary to snap to.
	sentenceLookback = 200
)

// sentenceEnders are the boundary candidates, with how many bytes past
// the match start the cut lands. For CJK enders the cut is after the
// full rune; for Latin enders it is after the punctuation, leaving the
// following space to the next chunk.
var sentenceEnders = []struct {
	delim   string
	advance int
}{
	{"。", 3},
	{"！", 3},
	{"？", 3},
	{". ", 1},
	{"! ", 1},
	{"? ", 1},
	{"\n", 1},
}

// Chunker splits text using byte positions over normalized UTF-8.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker. A non-positive size or a negative
// overlap falls back to the default; zero overlap is honored and makes
// chunks abut. Overlap must be smaller than size (enforced by config
// validation upstream).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits text into chunks of roughly chunkSize bytes with
// chunkOverlap bytes of overlap. Cut points never split a multi-byte
// rune. When a chunk would end mid-sentence, the end snaps back to the
// rightmost sentence boundary found in the lookback window. Chunks
// whose trimmed content is empty are skipped; ChunkIndex counts emitted
// chunks only. The walk ends as soon as a chunk end reaches the end of
// the text.
func (c *Chunker) Chunk(text string, documentID string) []models.DocumentChunk {
	var chunks []models.DocumentChunk
	cursor := 0
	chunkIndex := 0

	for cursor < len(text) {
		end := cursor + c.chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			// A byte-count cut can land inside a multi-byte rune; back
			// up to the rune start so chunk edges stay valid UTF-8.
			end = alignRuneStart(text, end)
			if end <= cursor {
				_, size := utf8.DecodeRuneInString(text[cursor:])
				end = cursor + size
			}
			searchStart := end - sentenceLookback
			if searchStart < cursor {
				searchStart = cursor
			}
			if idx, advance := lastSentenceEnd(text[searchStart:end]); idx > 0 {
				end = searchStart + idx + advance
			}
		}

		content := strings.TrimSpace(text[cursor:end])
		if content != "" {
			chunks = append(chunks, models.DocumentChunk{
				ID:            common.NewChunkID(),
				DocumentID:    documentID,
				Content:       content,
				ChunkIndex:    chunkIndex,
				StartPosition: cursor,
				EndPosition:   end,
			})
			chunkIndex++
		}

		if end >= len(text) {
			break
		}

		next := alignRuneStart(text, end-c.chunkOverlap)
		if len(chunks) > 0 && next <= chunks[len(chunks)-1].StartPosition {
			next = end // guarantee forward progress
		}
		cursor = next
	}

	return chunks
}

// alignRuneStart backs pos up to the start of the rune it lands inside.
// Positions at 0, len(text), or on a rune boundary are returned as-is.
func alignRuneStart(text string, pos int) int {
	if pos < 0 {
		return 0
	}
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// lastSentenceEnd returns the byte index of the rightmost sentence
// boundary in window and how many bytes past it the cut belongs.
// Returns -1 when no boundary is found. A boundary at index 0 is
// reported but callers treat it as absent (a cut there would emit
// nothing).
func lastSentenceEnd(window string) (int, int) {
	best := -1
	advance := 0
	for _, e := range sentenceEnders {
		if idx := strings.LastIndex(window, e.delim); idx > best {
			best = idx
			advance = e.advance
		}
	}
	return best, advance
}
