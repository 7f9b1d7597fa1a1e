package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// GoogleTTS synthesizes speech through the Google Translate TTS endpoint
type GoogleTTS struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// GoogleTTSConfig contains configuration for the Google TTS client
type GoogleTTSConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewGoogleTTS creates a Google Translate TTS client
func NewGoogleTTS(cfg GoogleTTSConfig, log *logger.Logger) *GoogleTTS {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://translate.google.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &GoogleTTS{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log,
	}
}

// Synthesize returns MP3 audio for text. Long text is spoken in chunks whose
// audio is concatenated in order.
func (g *GoogleTTS) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	chunks := splitText(text, MaxChunkLength)
	if len(chunks) == 0 {
		return nil, ErrEmptyText
	}

	code, err := NormalizeLanguage(lang)
	if err != nil {
		return nil, err
	}

	var audio bytes.Buffer
	for idx, chunk := range chunks {
		part, err := g.fetch(ctx, chunk, code, idx, len(chunks))
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", idx+1, len(chunks), err)
		}
		audio.Write(part)
	}

	g.logger.Debug("Speech synthesized", "language", code, "chunks", len(chunks), "bytes", audio.Len())
	return audio.Bytes(), nil
}

func (g *GoogleTTS) fetch(ctx context.Context, chunk, lang string, idx, total int) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", lang)
	params.Set("q", chunk)
	params.Set("total", strconv.Itoa(total))
	params.Set("idx", strconv.Itoa(idx))
	params.Set("textlen", strconv.Itoa(len([]rune(chunk))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/translate_tts?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", g.baseURL+"/")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts endpoint returned status %d", resp.StatusCode)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("tts endpoint returned no audio")
	}
	return body, nil
}
