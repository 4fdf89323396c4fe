package github

import (
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
)

// responseCacheSize bounds the number of stored topic responses. In image
// mode every repository name an alert carries gets its own entry.
const responseCacheSize = 1024

// responseCache is an httpcache.Cache that evicts the least recently used
// response once full.
type responseCache struct {
	entries *lru.Cache[string, []byte]
}

func newResponseCache(size int) (*responseCache, error) {
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &responseCache{entries: entries}, nil
}

func (c *responseCache) Get(key string) ([]byte, bool) {
	return c.entries.Get(key)
}

func (c *responseCache) Set(key string, responseBytes []byte) {
	c.entries.Add(key, responseBytes)
}

func (c *responseCache) Delete(key string) {
	c.entries.Remove(key)
}

func (c *responseCache) Len() int {
	return c.entries.Len()
}

// revalidateTransport marks responses no-cache before httpcache sees them.
// Stored responses are then never served on their own max-age and every
// reuse is revalidated with If-None-Match.
type revalidateTransport struct {
	base http.RoundTripper
}

func (t *revalidateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Header.Set("Cache-Control", "no-cache")
	return resp, nil
}
