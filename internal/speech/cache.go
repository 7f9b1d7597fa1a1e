package speech

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/service"
)

// DefaultPurgeInterval is how often expired audio is removed
const DefaultPurgeInterval = time.Hour

// CacheStats describes the audio cache contents
type CacheStats struct {
	Entries   int64 `json:"entries"`
	SizeBytes int64 `json:"size_bytes"`
	Hits      int64 `json:"hits"`
}

// Cache stores synthesized audio in SQLite, keyed by language and text
type Cache struct {
	*service.ServiceBase

	db            *sql.DB
	dbPath        string
	ttl           time.Duration
	purgeInterval time.Duration
	now           func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCache opens or creates the cache database at dbPath. A zero ttl keeps
// entries forever.
func NewCache(dbPath string, ttl time.Duration, log *logger.Logger) (*Cache, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite doesn't support concurrent writes well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	c := &Cache{
		ServiceBase:   service.NewServiceBase("speech-cache", log),
		db:            db,
		dbPath:        dbPath,
		ttl:           ttl,
		purgeInterval: DefaultPurgeInterval,
		now:           time.Now,
	}

	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return c, nil
}

func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS speech_cache (
		cache_key TEXT PRIMARY KEY,
		language TEXT NOT NULL,
		text TEXT NOT NULL,
		audio BLOB NOT NULL,
		size_bytes INTEGER NOT NULL,
		hits INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		expires_at INTEGER -- unix seconds, NULL never expires
	);

	CREATE INDEX IF NOT EXISTS idx_speech_cache_expires ON speech_cache(expires_at);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Key returns the cache key for text spoken in lang
func Key(lang, text string) string {
	sum := sha256.Sum256([]byte(lang + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Get returns cached audio. Expired entries are reported as misses.
func (c *Cache) Get(ctx context.Context, lang, text string) ([]byte, bool, error) {
	key := Key(lang, text)

	var audio []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT audio FROM speech_cache WHERE cache_key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, c.now().Unix(),
	).Scan(&audio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, `UPDATE speech_cache SET hits = hits + 1 WHERE cache_key = ?`, key); err != nil {
		c.LogWarn("Failed to record cache hit", "error", err)
	}
	return audio, true, nil
}

// Put stores audio, replacing any previous entry for the same key
func (c *Cache) Put(ctx context.Context, lang, text string, audio []byte) error {
	now := c.now()
	var expiresAt interface{}
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl).Unix()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO speech_cache (cache_key, language, text, audio, size_bytes, hits, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		Key(lang, text), lang, text, audio, len(audio), now.Unix(), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired entries and returns how many were removed
func (c *Cache) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM speech_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`, c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns entry count, stored bytes and total hits
func (c *Cache) Stats(ctx context.Context) (CacheStats, error) {
	var stats CacheStats
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0), COALESCE(SUM(hits), 0) FROM speech_cache`,
	).Scan(&stats.Entries, &stats.SizeBytes, &stats.Hits)
	if err != nil {
		return CacheStats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return stats, nil
}

// Ping checks the database connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Start purges expired audio now and then periodically
func (c *Cache) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}

	if n, err := c.PurgeExpired(ctx); err != nil {
		c.LogWarn("Initial cache purge failed", "error", err)
	} else if n > 0 {
		c.LogInfo("Purged expired speech audio", "entries", n)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.purgeLoop(runCtx, c.done)

	c.GetStatus().SetStatus(service.StatusRunning)
	c.LogInfo("Speech cache started", "path", c.dbPath, "ttl", c.ttl)
	return nil
}

func (c *Cache) purgeLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := c.PurgeExpired(ctx); err != nil {
				c.LogWarn("Cache purge failed", "error", err)
			} else if n > 0 {
				c.LogDebug("Purged expired speech audio", "entries", n)
			}
		}
	}
}

// Stop ends the purge loop and closes the database
func (c *Cache) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	c.GetStatus().SetStatus(service.StatusStopped)
	return c.Close()
}

// Close closes the database connection
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
