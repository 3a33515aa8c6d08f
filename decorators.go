package container

import (
	"fmt"
	"sort"
)

// ── Decorators ────────────────────────────────────────────────────────────────

// Decorate registers a post-construction transformer for an abstract.
// Lower priority runs first; equal priorities keep registration order.
func (c *Container) Decorate(abstract string, fn DecoratorFunc, priority int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.decorators[abstract] = append(c.decorators[abstract], decoratorEntry{
		priority: priority,
		seq:      c.seq,
		fn:       fn,
	})
}

// Middleware registers a transformer applied after all decorators, in FIFO
// registration order.
func (c *Container) Middleware(abstract string, fn MiddlewareFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware[abstract] = append(c.middleware[abstract], fn)
}

// HasDecorators reports whether an abstract carries decorators or
// middleware (the compiler refuses such bindings).
func (c *Container) HasDecorators(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.decorators[abstract]) > 0 || len(c.middleware[abstract]) > 0
}

// decorate applies the decorator chain in ascending priority, threading the
// instance through each, then the middleware chain in FIFO order. Neither
// alters the sharing policy.
func (c *Container) decorate(key string, instance any) (any, error) {
	c.mu.RLock()
	entries := append([]decoratorEntry(nil), c.decorators[key]...)
	mws := append([]MiddlewareFunc(nil), c.middleware[key]...)
	c.mu.RUnlock()

	if len(entries) == 0 && len(mws) == 0 {
		return instance, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})

	var err error
	for _, entry := range entries {
		instance, err = entry.fn(c, instance)
		if err != nil {
			return nil, fmt.Errorf("decorator for %s: %w", key, err)
		}
	}
	for _, mw := range mws {
		instance, err = mw(c, instance)
		if err != nil {
			return nil, fmt.Errorf("middleware for %s: %w", key, err)
		}
	}
	return instance, nil
}
