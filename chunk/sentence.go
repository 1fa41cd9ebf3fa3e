package chunk

import (
	"strings"

	"github.com/poiesic/studykit/core"
)

const cutset = " \t\r\n"

// sentence is a sentence-like unit of the full text with its start
// offset, the page it was attributed to, and its token estimate.
type sentence struct {
	text   string
	start  int
	page   int
	tokens int
}

// splitSentences splits text into sentence-like units. A break occurs
// after '.', '!', or '?' followed by whitespace. The rule is a
// heuristic: it under-splits abbreviations ("Dr. Smith" breaks after
// "Dr.") and leaves decimal numbers intact only because no whitespace
// follows the dot. Trailing text without a terminator is still emitted.
func splitSentences(text string) []sentence {
	var sentences []sentence
	segStart := 0

	flush := func(end int) {
		seg := text[segStart:end]
		trimmed := strings.TrimLeft(seg, cutset)
		start := segStart + (len(seg) - len(trimmed))
		trimmed = strings.TrimRight(trimmed, cutset)
		if trimmed != "" {
			sentences = append(sentences, sentence{text: trimmed, start: start})
		}
		segStart = end
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && !isSpace(text[i+1]) {
			continue
		}
		flush(i + 1)
	}
	flush(len(text))

	return sentences
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// pageForOffset returns the 1-based number of the page whose character
// range contains the given offset. Offsets falling between pages (the
// join separators) attribute to the preceding page. Defaults to page 1
// when no pages are known.
func pageForOffset(pages []core.PageText, off int) int {
	if len(pages) == 0 {
		return 1
	}
	lo, hi := 0, len(pages)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if pages[mid].Start <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return pages[lo].Number
}
