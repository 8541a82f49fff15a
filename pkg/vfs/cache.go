package vfs

import "strings"

// PathCache is a flat index from canonical path to node, kept to avoid
// re-walking the tree on repeat lookups. It is a derived structure: a miss
// means "walk the tree", never "not found". The cache carries no lock of
// its own; it is guarded by the owning filesystem's mutex together with the
// tree, since the two are updated atomically with respect to each other.
type PathCache struct {
	entries map[string]Node
}

// NewPathCache creates an empty cache.
func NewPathCache() *PathCache {
	return &PathCache{entries: make(map[string]Node)}
}

// Get returns the cached node for a canonical path, or nil.
func (c *PathCache) Get(path string) Node {
	return c.entries[path]
}

// Put caches a node under its canonical path.
func (c *PathCache) Put(path string, n Node) {
	c.entries[path] = n
}

// Invalidate evicts a path. With recursive set, every cached key equal to
// the path or under it (path + "/...") is evicted as well, so a deleted
// subtree can never serve stale nodes.
func (c *PathCache) Invalidate(path string, recursive bool) {
	delete(c.entries, path)
	if !recursive {
		return
	}
	prefix := strings.TrimSuffix(path, "/") + "/"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Clear drops every entry.
func (c *PathCache) Clear() {
	c.entries = make(map[string]Node)
}

// Rebuild clears the cache and reseeds it from a full traversal of the
// tree, one entry per node including root.
func (c *PathCache) Rebuild(root *DirNode) {
	c.Clear()
	walkTree(root, func(n Node) {
		c.entries[n.Path()] = n
	})
}

// Len returns the number of cached entries.
func (c *PathCache) Len() int { return len(c.entries) }
