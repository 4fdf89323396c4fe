package credential

import (
	"strings"
	"sync"
	"time"

	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
)

// tokenCache holds the most recently minted token per installation. Entries
// are replaced whole, never mutated.
type tokenCache struct {
	mu      sync.RWMutex
	margin  time.Duration
	entries map[int64]domain.InstallationToken
}

func newTokenCache(margin time.Duration) *tokenCache {
	return &tokenCache{
		margin:  margin,
		entries: make(map[int64]domain.InstallationToken),
	}
}

// get returns the cached token when it is still fresh at now.
func (c *tokenCache) get(installationID int64, now time.Time) (domain.InstallationToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tok, ok := c.entries[installationID]
	if !ok || !tok.FreshAt(now, c.margin) {
		return domain.InstallationToken{}, false
	}
	return tok, true
}

func (c *tokenCache) put(tok domain.InstallationToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tok.InstallationID] = tok
}

// installationIndex remembers which installation covers an owner. An App is
// installed at most once per account, so entries are keyed by owner login,
// folded to lower case the way GitHub compares logins.
type installationIndex struct {
	mu      sync.RWMutex
	entries map[string]int64
}

func newInstallationIndex() *installationIndex {
	return &installationIndex{entries: make(map[string]int64)}
}

func ownerKey(owner string) string {
	return strings.ToLower(owner)
}

func (x *installationIndex) get(owner string) (int64, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.entries[ownerKey(owner)]
	return id, ok
}

func (x *installationIndex) put(owner string, installationID int64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[ownerKey(owner)] = installationID
}

func (x *installationIndex) forget(owner string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, ownerKey(owner))
}
