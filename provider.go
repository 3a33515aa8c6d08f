package container

// ── Providers ─────────────────────────────────────────────────────────────────

// Provider bundles a group of related registrations so an application can
// assemble its registry from modules instead of one flat bootstrap.
type Provider interface {
	// Register binds the provider's services into the container. It must
	// not resolve anything — resolution belongs in the boot phase.
	Register(c *Container)
}

// BootableProvider is a Provider with a post-registration phase. Boot runs
// once every non-deferred provider has registered, so it may freely resolve
// other services. Probed by type assertion, like Configurable.
type BootableProvider interface {
	Provider
	Boot(c *Container)
}

// DeferredProvider delays its registration until one of the identifiers it
// declares is first requested. The resolver's deferred-registration step
// loads it mid-Get, so the in-flight resolution completes against the
// freshly registered bindings.
type DeferredProvider interface {
	Provider
	// Provides lists the identifiers whose first resolution triggers
	// Register.
	Provides() []string
}

// Provide adds providers to the container. Non-deferred providers register
// immediately; deferred ones are indexed by the identifiers they declare
// and loaded on first use. Providing the same value twice is a no-op.
func (c *Container) Provide(providers ...Provider) {
	for _, p := range providers {
		c.provide(p)
	}
}

func (c *Container) provide(p Provider) {
	c.mu.Lock()
	if c.providerSeen[p] {
		c.mu.Unlock()
		return
	}
	c.providerSeen[p] = true

	if deferred, ok := p.(DeferredProvider); ok {
		if provides := deferred.Provides(); len(provides) > 0 {
			for _, id := range provides {
				c.deferredProviders[id] = deferred
			}
			c.mu.Unlock()
			return
		}
	}
	c.mu.Unlock()

	c.activateProvider(p)
}

// activateProvider runs a provider's registration, records it as active,
// and boots it when the boot phase has already happened.
func (c *Container) activateProvider(p Provider) {
	p.Register(c)

	c.mu.Lock()
	c.providers = append(c.providers, p)
	booted := c.providersBooted
	c.mu.Unlock()

	if booted {
		if bootable, ok := p.(BootableProvider); ok {
			bootable.Boot(c)
		}
	}
}

// BootProviders runs the boot phase: every active BootableProvider's Boot,
// in activation order. Safe to call once; later calls are no-ops, and
// providers activated afterwards boot as part of activation.
func (c *Container) BootProviders() {
	c.mu.Lock()
	if c.providersBooted {
		c.mu.Unlock()
		return
	}
	c.providersBooted = true
	active := append([]Provider(nil), c.providers...)
	c.mu.Unlock()

	for _, p := range active {
		if bootable, ok := p.(BootableProvider); ok {
			bootable.Boot(c)
		}
	}
}

// loadDeferredProvider activates the deferred provider that declared id,
// if any. Every identifier the provider declares is unindexed first, so a
// provider registers exactly once however many of its services resolve.
func (c *Container) loadDeferredProvider(id string) bool {
	c.mu.Lock()
	p, ok := c.deferredProviders[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	if deferred, ok := p.(DeferredProvider); ok {
		for _, provided := range deferred.Provides() {
			delete(c.deferredProviders, provided)
		}
	}
	c.mu.Unlock()

	c.activateProvider(p)
	return true
}

// Providers returns the active (registered) providers, in activation
// order. Deferred providers appear only after they have loaded.
func (c *Container) Providers() []Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Provider(nil), c.providers...)
}
