package services

import (
	"sync"

	"github.com/offerhub/userfed/internal/models"
)

// providerCache is an optional read-through cache for provider-id lookups.
// Entries are never invalidated on update; callers opting in accept
// eventually consistent identities.
type providerCache struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func newProviderCache() *providerCache {
	return &providerCache{users: make(map[string]*models.User)}
}

func (c *providerCache) get(externalID string) (*models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[externalID]
	return u, ok
}

func (c *providerCache) put(externalID string, u *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[externalID] = u
}
