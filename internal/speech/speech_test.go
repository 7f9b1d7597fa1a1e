package speech

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"te_IN", "te"},
		{"hi-in", "hi"},
		{"zh", "zh-cn"},
		{"zh_TW", "zh-tw"},
		{" fr ", "fr"},
	}
	for _, tt := range tests {
		got, err := NormalizeLanguage(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "xx", "klingon"} {
		_, err := NormalizeLanguage(bad)
		assert.ErrorIs(t, err, ErrUnsupportedLanguage, bad)
	}
}

func TestLanguagesIsACopy(t *testing.T) {
	langs := Languages()
	assert.Equal(t, "English", langs["en"])
	delete(langs, "en")
	_, err := NormalizeLanguage("en")
	assert.NoError(t, err)
}

func TestSplitText(t *testing.T) {
	assert.Empty(t, splitText("   \n\t ", MaxChunkLength))
	assert.Equal(t, []string{"Person 1 is on your left"}, splitText("  Person 1   is on\nyour left ", MaxChunkLength))

	sentence := "There is a person on your left about three metres away."
	text := sentence + " " + sentence + " " + sentence
	chunks := splitText(text, MaxChunkLength)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, sentence, c)
	}
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestSplitText_WhitespaceFallback(t *testing.T) {
	text := strings.Repeat("word ", 30)
	chunks := splitText(text, 20)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 20)
		assert.False(t, strings.HasPrefix(c, " ") || strings.HasSuffix(c, " "))
	}
	assert.Equal(t, strings.TrimSpace(text), strings.Join(chunks, " "))
}

func TestSplitText_LongWord(t *testing.T) {
	chunks := splitText(strings.Repeat("a", 250), MaxChunkLength)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[2], 50)
}

func TestSplitText_Multibyte(t *testing.T) {
	text := strings.Repeat("నమస్కారం ", 20)
	for _, c := range splitText(text, MaxChunkLength) {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), MaxChunkLength)
		assert.True(t, utf8.ValidString(c))
	}
}
