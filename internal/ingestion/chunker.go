// Package ingestion prepares raw documents for embedding: text normalization,
// sentence-aligned chunking and loading of source files from disk.
package ingestion

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkSize is the chunk size limit in characters used when the
// caller passes a non-positive size.
const DefaultMaxChunkSize = 2000

// sentenceTerminators splits on runs of '.', '!' and '?'.
var sentenceTerminators = regexp.MustCompile(`[.!?]+`)

// chunkState is the accumulator of the chunking fold: the chunks completed so
// far and the buffer still being filled.
type chunkState struct {
	done   []string
	buffer string
}

// Chunk splits text into sentence-aligned chunks of at most maxSize
// characters. Sentence terminators are dropped and sentences inside a chunk are
// joined by a single space. A sentence longer than maxSize is never split; it
// becomes a chunk of its own.
func Chunk(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}

	state := chunkState{done: []string{}}
	for _, sentence := range splitSentences(text) {
		state = state.step(sentence, maxSize)
	}
	return state.flush()
}

// step folds one trimmed, non-empty sentence into the state.
func (s chunkState) step(sentence string, maxSize int) chunkState {
	// An empty buffer takes the sentence whatever its length.
	if s.buffer == "" {
		return chunkState{done: s.done, buffer: sentence}
	}

	if utf8.RuneCountInString(s.buffer)+1+utf8.RuneCountInString(sentence) > maxSize {
		return chunkState{done: append(s.done, s.buffer), buffer: sentence}
	}
	return chunkState{done: s.done, buffer: s.buffer + " " + sentence}
}

// flush returns the completed chunks with the trailing buffer appended.
func (s chunkState) flush() []string {
	if s.buffer == "" {
		return s.done
	}
	return append(s.done, s.buffer)
}

// splitSentences returns the trimmed, non-empty sentences of text in order.
func splitSentences(text string) []string {
	parts := sentenceTerminators.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}
