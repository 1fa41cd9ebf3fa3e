// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/studykit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// numberedSentences returns n sentences of exactly 20 characters each,
// so every sentence estimates to 5 tokens.
func numberedSentences(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("This is sentence %02d.", i+1)
	}
	return out
}

func TestChunker_TextUnderBudgetYieldsSingleChunk(t *testing.T) {
	sentences := numberedSentences(5)
	c := New(Options{MaxTokens: 100, OverlapTokens: 10, PreserveSentenceBoundaries: true})

	chunks := c.Split(strings.Join(sentences, " "), nil)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, strings.Join(sentences, " "), chunks[0].Content)
	assert.Equal(t, 25, chunks[0].TokenCount)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 1, chunks[0].PageEnd)
}

func TestChunker_OverlapConstruction(t *testing.T) {
	// 50 sentences of 5 tokens each against a 50-token budget with a
	// 10-token overlap: the first chunk takes sentences 1-10, and every
	// later chunk re-seeds the previous chunk's last two sentences
	// before adding eight new ones.
	sentences := numberedSentences(50)
	c := New(Options{MaxTokens: 50, OverlapTokens: 10, PreserveSentenceBoundaries: true})

	chunks := c.Split(strings.Join(sentences, " "), nil)

	require.Len(t, chunks, 6)
	assert.Equal(t, strings.Join(sentences[0:10], " "), chunks[0].Content)
	assert.Equal(t, strings.Join(sentences[8:18], " "), chunks[1].Content)
	assert.Equal(t, strings.Join(sentences[40:50], " "), chunks[5].Content)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, 50, ch.TokenCount)
		assert.LessOrEqual(t, ch.TokenCount, 50+10)
	}

	// Consecutive chunks share their boundary sentences.
	for i := 1; i < len(chunks); i++ {
		seed := strings.Join(sentences[8*i:8*i+2], " ")
		assert.True(t, strings.HasPrefix(chunks[i].Content, seed),
			"chunk %d should start with the last two sentences of chunk %d", i, i-1)
	}
}

func TestChunker_EverySentenceAppears(t *testing.T) {
	sentences := numberedSentences(50)
	c := New(Options{MaxTokens: 50, OverlapTokens: 10, PreserveSentenceBoundaries: true})

	chunks := c.Split(strings.Join(sentences, " "), nil)

	joined := make([]string, len(chunks))
	for i, ch := range chunks {
		joined[i] = ch.Content
	}
	all := strings.Join(joined, " ")
	for _, s := range sentences {
		assert.Contains(t, all, s)
	}
}

func TestChunker_OversizedSentenceEmittedWhole(t *testing.T) {
	big := strings.Repeat("word ", 119) + "stop." // 600 chars, 150 tokens
	text := big + " Short tail."
	c := New(Options{MaxTokens: 50, OverlapTokens: 10, PreserveSentenceBoundaries: true})

	chunks := c.Split(text, nil)

	require.Len(t, chunks, 2)
	assert.Equal(t, big, chunks[0].Content)
	assert.Equal(t, 150, chunks[0].TokenCount)
	assert.Equal(t, "Short tail.", chunks[1].Content)
}

func TestChunker_PageAttribution(t *testing.T) {
	pageOne := "First page sentence one. First page sentence two."
	pageTwo := "Second page sentence."
	fullText := pageOne + "\n" + pageTwo
	pages := []core.PageText{
		{Number: 1, Text: pageOne, Start: 0, End: len(pageOne)},
		{Number: 2, Text: pageTwo, Start: len(pageOne) + 1, End: len(fullText)},
	}

	c := New(Options{MaxTokens: 800, OverlapTokens: 100, PreserveSentenceBoundaries: true})
	chunks := c.Split(fullText, pages)

	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 2, chunks[0].PageEnd)
}

func TestChunker_PageAttributionPerChunk(t *testing.T) {
	pageOne := strings.Join(numberedSentences(10), " ")
	pageTwo := strings.Join(numberedSentences(10), " ")
	fullText := pageOne + "\n" + pageTwo
	pages := []core.PageText{
		{Number: 1, Text: pageOne, Start: 0, End: len(pageOne)},
		{Number: 2, Text: pageTwo, Start: len(pageOne) + 1, End: len(fullText)},
	}

	// Budget of 50 tokens without overlap: sentences fall into two
	// chunks per page.
	c := New(Options{MaxTokens: 50, OverlapTokens: 0, PreserveSentenceBoundaries: true})
	chunks := c.Split(fullText, pages)

	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 1, chunks[0].PageEnd)
	assert.Equal(t, 2, chunks[1].PageStart)
	assert.Equal(t, 2, chunks[1].PageEnd)
}

func TestChunker_EmptyText(t *testing.T) {
	c := New(DefaultOptions())

	assert.Nil(t, c.Split("", nil))
	assert.Nil(t, c.Split("   \n\t ", nil))
}

func TestChunker_Deterministic(t *testing.T) {
	text := strings.Join(numberedSentences(50), " ")
	c := New(Options{MaxTokens: 50, OverlapTokens: 10, PreserveSentenceBoundaries: true})

	first := c.Split(text, nil)
	second := c.Split(text, nil)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Content, second[i].Content)
		assert.Equal(t, first[i].TokenCount, second[i].TokenCount)
		assert.Equal(t, first[i].PageStart, second[i].PageStart)
		assert.Equal(t, first[i].PageEnd, second[i].PageEnd)
	}
}

func TestChunker_WindowSplit(t *testing.T) {
	text := strings.Repeat("a", 100)
	c := New(Options{MaxTokens: 10, OverlapTokens: 5, PreserveSentenceBoundaries: false})

	chunks := c.Split(text, nil)

	// Window of 40 characters advancing 20 at a time.
	require.Len(t, chunks, 5)
	assert.Equal(t, 40, len(chunks[0].Content))
	assert.Equal(t, 20, len(chunks[4].Content))
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestChunker_DefaultsApplied(t *testing.T) {
	c := New(Options{})

	assert.Equal(t, 800, c.Options().MaxTokens)

	c = New(Options{MaxTokens: 100, OverlapTokens: -1})
	assert.Equal(t, 100, c.Options().OverlapTokens)

	// Zero overlap is a valid setting, not a fallback trigger.
	c = New(Options{MaxTokens: 100, OverlapTokens: 0})
	assert.Equal(t, 0, c.Options().OverlapTokens)
}
