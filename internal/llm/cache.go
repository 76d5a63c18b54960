package llm

import "sync"

// Cache maps prompts to raw responses for a single pipeline run.
// A Cache must not be shared between runs.
type Cache struct {
	mu      sync.Mutex
	entries map[string]string
	hits    int
	misses  int
}

// NewCache returns an empty run cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Get returns the cached response for prompt.
func (c *Cache) Get(prompt string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[prompt]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Put stores response under prompt.
func (c *Cache) Put(prompt, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[prompt] = response
}

// Forget drops the entry for prompt, if any.
func (c *Cache) Forget(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, prompt)
}

// Stats returns the hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached prompts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
