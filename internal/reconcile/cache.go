package reconcile

import "sync"

type projectKey struct{ workspaceID, repository string }
type tagKey struct{ workspaceID, name string }
type userKey struct{ workspaceID, identity string }
type sectionKey struct{ projectID, name string }

// sectionHit remembers whether a project has the section at all, so a
// project without one is not listed again.
type sectionHit struct {
	id    string
	found bool
}

// Cache memoizes resolver lookups for the lifetime of the process. Keys are
// the exact lookup inputs. It is never persisted.
type Cache struct {
	workspaces memo[string, string]
	projects   memo[projectKey, string]
	tags       memo[tagKey, string]
	users      memo[userKey, string]
	sections   memo[sectionKey, sectionHit]
}

func NewCache() *Cache {
	return &Cache{}
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.workspaces.reset()
	c.projects.reset()
	c.tags.reset()
	c.users.reset()
	c.sections.reset()
}

// Len is the total number of cached entries.
func (c *Cache) Len() int {
	return c.workspaces.len() + c.projects.len() + c.tags.len() + c.users.len() + c.sections.len()
}

type memo[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func (m *memo[K, V]) get(k K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.m[k]
	return v, ok
}

func (m *memo[K, V]) put(k K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.m == nil {
		m.m = make(map[K]V)
	}
	m.m[k] = v
}

func (m *memo[K, V]) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m = nil
}

func (m *memo[K, V]) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}
