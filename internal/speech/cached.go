package speech

import (
	"context"
	"sync/atomic"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/service"
)

// CachedSynthesizer serves repeated prompts from a Cache and falls through
// to another Synthesizer on a miss
type CachedSynthesizer struct {
	next   Synthesizer
	cache  *Cache
	logger *logger.Logger
	bus    *service.EventBus

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedSynthesizer wraps next with cache. A nil cache passes every call
// through.
func NewCachedSynthesizer(next Synthesizer, cache *Cache, log *logger.Logger) *CachedSynthesizer {
	return &CachedSynthesizer{next: next, cache: cache, logger: log}
}

// SetEventBus publishes a speech.synthesized event per call
func (s *CachedSynthesizer) SetEventBus(bus *service.EventBus) {
	s.bus = bus
}

// Synthesize returns cached audio when present. Cache failures are logged
// and never fail the request.
func (s *CachedSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	chunks := splitText(text, MaxChunkLength)
	if len(chunks) == 0 {
		return nil, ErrEmptyText
	}
	code, err := NormalizeLanguage(lang)
	if err != nil {
		return nil, err
	}

	if s.cache == nil {
		audio, err := s.next.Synthesize(ctx, text, code)
		if err != nil {
			return nil, err
		}
		s.publish(code, len(audio), false)
		return audio, nil
	}

	audio, ok, err := s.cache.Get(ctx, code, text)
	if err != nil {
		s.logger.Warn("Speech cache lookup failed", "error", err)
	}
	if ok {
		s.hits.Add(1)
		s.publish(code, len(audio), true)
		return audio, nil
	}

	s.misses.Add(1)
	audio, err = s.next.Synthesize(ctx, text, code)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, code, text, audio); err != nil {
		s.logger.Warn("Speech cache store failed", "error", err)
	}
	s.publish(code, len(audio), false)
	return audio, nil
}

// Hits returns the number of requests served from cache
func (s *CachedSynthesizer) Hits() int64 { return s.hits.Load() }

// Misses returns the number of requests that reached the engine
func (s *CachedSynthesizer) Misses() int64 { return s.misses.Load() }

func (s *CachedSynthesizer) publish(lang string, size int, hit bool) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(service.Event{
		Type:   service.EventTypeSpeechSynthesized,
		Source: "speech",
		Data: map[string]interface{}{
			"language":  lang,
			"bytes":     size,
			"cache_hit": hit,
		},
	})
}
