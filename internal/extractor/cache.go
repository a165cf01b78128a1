package extractor

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"pdf-reconciliation-service/internal/models"
	"pdf-reconciliation-service/pkg/logger"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS extraction_cache (
	content_hash   TEXT PRIMARY KEY,
	amount         TEXT NOT NULL,
	reference_code TEXT NOT NULL,
	entity_name    TEXT NOT NULL,
	tier           TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Cache stores extraction results keyed by document content hash, so
// repeated runs over the same documents skip OCR and vision calls.
type Cache struct {
	db  *sql.DB
	log logger.Logger
}

// OpenCache opens or creates the sqlite cache at the given path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extraction cache: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize extraction cache: %w", err)
	}

	return &Cache{
		db:  db,
		log: logger.GetGlobalLogger().WithComponent("extraction_cache"),
	}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// ContentHash returns the cache key for a document's raw bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get looks up a cached extraction. A miss returns (nil, nil).
func (c *Cache) Get(hash string) (*models.ExtractedRecord, error) {
	row := c.db.QueryRow(
		`SELECT amount, reference_code, entity_name, tier FROM extraction_cache WHERE content_hash = ?`,
		hash)

	var amountStr, code, entity, tier string
	if err := row.Scan(&amountStr, &code, &entity, &tier); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		// A corrupt row is treated as a miss and overwritten on Put.
		c.log.WithField("hash", hash).Warn("Discarding corrupt cache entry")
		return nil, nil
	}

	rec := &models.ExtractedRecord{
		Amount:        amount,
		ReferenceCode: code,
		EntityName:    entity,
		Tier:          models.ExtractionTier(tier),
	}
	return rec, nil
}

// Put stores an extraction result, replacing any previous entry.
func (c *Cache) Put(hash string, rec *models.ExtractedRecord) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO extraction_cache (content_hash, amount, reference_code, entity_name, tier)
		 VALUES (?, ?, ?, ?, ?)`,
		hash, rec.Amount.String(), rec.ReferenceCode, rec.EntityName, rec.Tier.String())
	if err != nil {
		return fmt.Errorf("cache store failed: %w", err)
	}
	return nil
}
