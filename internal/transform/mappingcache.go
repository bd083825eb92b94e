package transform

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"
	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
)

// CachedCustomFieldRepository wraps a port.CustomFieldRepository with a
// bounded in-process LRU cache over FindMapping. Every issue message in a
// transform worker's batch re-reads the same integration's
// custom_fields_mapping row (spec.md §4.9.3); caching it avoids a DB
// round trip per message. One instance is shared by every transform
// worker goroutine of the process; the LRU cache is safe for concurrent
// use.
type CachedCustomFieldRepository struct {
	port.CustomFieldRepository
	cache *lru.Cache[uuid.UUID, *domain.CustomFieldMapping]
}

// NewCachedCustomFieldRepository wraps inner with an LRU cache of up to
// size entries, one per integration.
func NewCachedCustomFieldRepository(inner port.CustomFieldRepository, size int) *CachedCustomFieldRepository {
	if size <= 0 {
		size = 256
	}
	cache, _ := lru.New[uuid.UUID, *domain.CustomFieldMapping](size)
	return &CachedCustomFieldRepository{CustomFieldRepository: inner, cache: cache}
}

func (c *CachedCustomFieldRepository) FindMapping(ctx context.Context, tenantID, integrationID uuid.UUID) (*domain.CustomFieldMapping, error) {
	if m, ok := c.cache.Get(integrationID); ok {
		return m, nil
	}
	m, err := c.CustomFieldRepository.FindMapping(ctx, tenantID, integrationID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(integrationID, m)
	return m, nil
}

// SaveMapping invalidates the cached entry so the next FindMapping re-reads
// the authoritative row; mapping writes come from the reference-data
// transformer's special-field auto-mapping (spec.md §4.9.1), a different
// goroutine than the one that may have cached the stale value, so we
// simply evict rather than update in place.
func (c *CachedCustomFieldRepository) SaveMapping(ctx context.Context, mapping *domain.CustomFieldMapping) error {
	if err := c.CustomFieldRepository.SaveMapping(ctx, mapping); err != nil {
		return err
	}
	c.cache.Remove(mapping.IntegrationID)
	return nil
}
