package container

import "go.uber.org/zap"

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates abstracts with one or more tags. Insertion order within a
// tag is preserved; duplicates are coalesced.
//
//	// Laravel: $app->tag([CpuReport::class, MemoryReport::class], 'reports')
//	c.Tag([]string{"app.CpuReport", "app.MemoryReport"}, "reports")
func (c *Container) Tag(abstracts []string, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		for _, abstract := range abstracts {
			if !contains(c.tags[tag], abstract) {
				c.tags[tag] = append(c.tags[tag], abstract)
			}
			if !contains(c.taggedBy[abstract], tag) {
				c.taggedBy[abstract] = append(c.taggedBy[abstract], tag)
			}
		}
	}
}

// Tagged resolves every abstract registered under a tag, in insertion
// order. Individual failures are logged and skipped rather than failing the
// batch.
//
//	// Laravel: $app->tagged('reports')
func (c *Container) Tagged(tag string) []any {
	c.mu.RLock()
	abstracts := append([]string(nil), c.tags[tag]...)
	c.mu.RUnlock()

	result := make([]any, 0, len(abstracts))
	for _, abstract := range abstracts {
		instance, err := c.Get(abstract)
		if err != nil {
			c.logger.Warn("tagged resolution skipped",
				zap.String("tag", tag),
				zap.String("identifier", abstract),
				zap.Error(err))
			continue
		}
		result = append(result, instance)
	}
	return result
}

// TaggedIdentifiers returns the abstracts registered under a tag, in
// insertion order.
func (c *Container) TaggedIdentifiers(tag string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.tags[tag]...)
}

// TagsOf returns the tags carried by an abstract, in insertion order.
func (c *Container) TagsOf(abstract string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.taggedBy[abstract]...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
