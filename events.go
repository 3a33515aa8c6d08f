package container

// ── Event payloads ────────────────────────────────────────────────────────────

// BindingRegistered is emitted whenever a binding is (re-)registered.
type BindingRegistered struct {
	Identifier string
	Concrete   string
	Shared     bool
}

// ── Hook registration ─────────────────────────────────────────────────────────

// OnResolving registers a callback fired before any resolution starts.
// Handlers must not re-enter the resolver for the same identifier on the
// same call chain.
func (c *Container) OnResolving(cb func(id string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolvingCallbacks = append(c.resolvingCallbacks, cb)
}

// OnResolved registers a callback fired after any successful resolution.
//
//	// Laravel: $app->afterResolving(fn($object, $app) => ...)
func (c *Container) OnResolved(cb func(id string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolvedCallbacks = append(c.resolvedCallbacks, cb)
}

// OnResolutionFailed registers a callback fired when a resolution fails.
func (c *Container) OnResolutionFailed(cb func(id string, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedCallbacks = append(c.failedCallbacks, cb)
}

// OnBindingRegistered registers a callback fired on every Bind/Singleton.
func (c *Container) OnBindingRegistered(cb func(ev BindingRegistered)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boundCallbacks = append(c.boundCallbacks, cb)
}

// Rebinding registers a callback fired whenever abstract is re-bound or its
// instance replaced after having been resolved.
//
//	// Laravel: $app->rebinding(UserRepository::class, fn($app, $repo) => ...)
func (c *Container) Rebinding(abstract string, cb func(instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reboundCallbacks[abstract] = append(c.reboundCallbacks[abstract], cb)
}

// ── Dispatch ──────────────────────────────────────────────────────────────────

func (c *Container) fireResolutionStarting(id string) {
	c.mu.RLock()
	cbs := c.resolvingCallbacks
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(id)
	}
}

func (c *Container) fireResolutionDone(id string, instance any) {
	c.mu.RLock()
	cbs := c.resolvedCallbacks
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(id, instance)
	}
}

func (c *Container) fireResolutionFailed(id string, err error) {
	c.mu.RLock()
	cbs := c.failedCallbacks
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(id, err)
	}
}

func (c *Container) fireBindingRegistered(ev BindingRegistered) {
	c.mu.RLock()
	cbs := c.boundCallbacks
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(ev)
	}
}

func (c *Container) fireRebound(abstract string, instance any) {
	c.mu.RLock()
	cbs := c.reboundCallbacks[abstract]
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(instance)
	}
}
