package container

// ── Lazy proxy ────────────────────────────────────────────────────────────────

// LazyProxy defers resolution of an abstract until first use. Method
// forwarding is out of scope; callers unwrap with GetInstance.
type LazyProxy struct {
	container *Container
	abstract  string
	resolved  bool
	instance  any
}

// Lazy returns a proxy whose target resolves on first GetInstance.
//
//	proxy := c.Lazy("app.ReportGenerator")
//	// ... later, possibly never:
//	gen, err := proxy.GetInstance()
func (c *Container) Lazy(abstract string) *LazyProxy {
	return &LazyProxy{container: c, abstract: abstract}
}

// GetInstance returns the underlying instance, resolving it on first call.
func (p *LazyProxy) GetInstance() (any, error) {
	if p.resolved {
		return p.instance, nil
	}
	return p.Resolve()
}

// IsResolved reports whether the target has been resolved.
func (p *LazyProxy) IsResolved() bool { return p.resolved }

// GetAbstract returns the abstract the proxy stands for.
func (p *LazyProxy) GetAbstract() string { return p.abstract }

// Resolve forces resolution, caching the result for later GetInstance
// calls.
func (p *LazyProxy) Resolve() (any, error) {
	instance, err := p.container.Get(p.abstract)
	if err != nil {
		return nil, err
	}
	p.instance = instance
	p.resolved = true
	return instance, nil
}
