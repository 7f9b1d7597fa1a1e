package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxChunkLength is the longest text the TTS endpoint accepts per request
const MaxChunkLength = 100

// splitText breaks text into chunks of at most max runes. It prefers to cut
// after sentence punctuation, then at whitespace, and only splits inside a
// word when a single word is longer than max.
func splitText(text string, max int) []string {
	text = strings.Join(strings.Fields(text), " ")
	var chunks []string

	for utf8.RuneCountInString(text) > max {
		runes := []rune(text)
		cut := lastBreak(runes[:max+1])
		if cut <= 0 {
			cut = max
		}
		if chunk := strings.TrimSpace(string(runes[:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(string(runes[cut:]))
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// lastBreak returns the position just after the best break point in runes,
// or 0 when there is none
func lastBreak(runes []rune) int {
	for i := len(runes) - 1; i > 0; i-- {
		if isPunct(runes[i-1]) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	for i := len(runes) - 1; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return 0
}

func isPunct(r rune) bool {
	switch r {
	case '.', '!', '?', ',', ';', ':', '。', '！', '？', '、', '，':
		return true
	}
	return false
}
