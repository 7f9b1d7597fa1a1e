// Package speech synthesizes spoken audio for short prompts.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyText is returned when there is nothing to speak
	ErrEmptyText = errors.New("no text to speak")
	// ErrUnsupportedLanguage is returned for language codes the engine does not know
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Synthesizer turns text into MP3 audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

var languages = map[string]string{
	"af": "Afrikaans", "ar": "Arabic", "bg": "Bulgarian", "bn": "Bengali",
	"bs": "Bosnian", "ca": "Catalan", "cs": "Czech", "da": "Danish",
	"de": "German", "el": "Greek", "en": "English", "es": "Spanish",
	"et": "Estonian", "fi": "Finnish", "fr": "French", "gu": "Gujarati",
	"hi": "Hindi", "hr": "Croatian", "hu": "Hungarian", "id": "Indonesian",
	"is": "Icelandic", "it": "Italian", "iw": "Hebrew", "ja": "Japanese",
	"jw": "Javanese", "km": "Khmer", "kn": "Kannada", "ko": "Korean",
	"la": "Latin", "lv": "Latvian", "ml": "Malayalam", "mr": "Marathi",
	"ms": "Malay", "my": "Myanmar (Burmese)", "ne": "Nepali", "nl": "Dutch",
	"no": "Norwegian", "pa": "Punjabi", "pl": "Polish", "pt": "Portuguese",
	"ro": "Romanian", "ru": "Russian", "si": "Sinhala", "sk": "Slovak",
	"sq": "Albanian", "sr": "Serbian", "su": "Sundanese", "sv": "Swedish",
	"sw": "Swahili", "ta": "Tamil", "te": "Telugu", "th": "Thai",
	"tl": "Filipino", "tr": "Turkish", "uk": "Ukrainian", "ur": "Urdu",
	"vi": "Vietnamese", "zh-cn": "Chinese (Simplified)", "zh-tw": "Chinese (Traditional)",
}

// Languages returns the supported language codes and their names
func Languages() map[string]string {
	out := make(map[string]string, len(languages))
	for k, v := range languages {
		out[k] = v
	}
	return out
}

// NormalizeLanguage maps a client language code onto a supported one.
// Codes are case-insensitive, "_" is accepted for "-", and a regional code
// such as "te_IN" falls back to its base language.
func NormalizeLanguage(lang string) (string, error) {
	code := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	if code == "" {
		return "", fmt.Errorf("%w: empty language code", ErrUnsupportedLanguage)
	}
	if code == "zh" {
		code = "zh-cn"
	}
	if _, ok := languages[code]; ok {
		return code, nil
	}
	if base, _, found := strings.Cut(code, "-"); found {
		if _, ok := languages[base]; ok {
			return base, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
}
