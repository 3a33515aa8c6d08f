package container

import "sort"

// ── Contextual implementations ────────────────────────────────────────────────

type contextualKind int

const (
	ctxClass contextualKind = iota
	ctxFactory
	ctxValue
	ctxTagged
	ctxConfigured
)

// contextualImpl is the payload of one When(...).Needs(...).Give*(...) entry.
type contextualImpl struct {
	kind    contextualKind
	class   string
	factory Factory
	value   any
	tag     string
	config  map[string]any
}

// Configurable is the capability probed by GiveConfigured: after the
// configured class resolves, Configure receives the configuration map.
type Configurable interface {
	Configure(config map[string]any)
}

// ── Contextual manager ────────────────────────────────────────────────────────

// contextualFor returns the contextual implementation that applies to
// abstract right now: only the top of the context stack is consulted.
func (c *Container) contextualFor(abstract string) *contextualImpl {
	if len(c.contextStack) == 0 {
		return nil
	}
	consumer := c.contextStack[len(c.contextStack)-1]
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.contextual[consumer]; ok {
		if impl, ok := m[abstract]; ok {
			return impl
		}
	}
	return nil
}

// HasContextualBinding reports whether the current context overrides
// abstract.
func (c *Container) HasContextualBinding(abstract string) bool {
	return c.contextualFor(abstract) != nil
}

func (c *Container) resolveContextual(abstract string, impl *contextualImpl) (any, error) {
	switch impl.kind {
	case ctxClass:
		return c.getContextualClass(abstract, impl.class)
	case ctxFactory:
		return impl.factory(c)
	case ctxValue:
		return impl.value, nil
	case ctxTagged:
		return c.Tagged(impl.tag), nil
	case ctxConfigured:
		class, _ := impl.config["class"].(string)
		instance, err := c.getContextualClass(abstract, class)
		if err != nil {
			return nil, err
		}
		if configurable, ok := instance.(Configurable); ok {
			configurable.Configure(impl.config)
		}
		return instance, nil
	default:
		return nil, errInvalidBinding(abstract, "unsupported contextual implementation")
	}
}

// getContextualClass resolves the class a contextual binding gives. When
// the class names the overridden abstract itself, the default path is used
// so the override cannot trigger itself again.
func (c *Container) getContextualClass(abstract, class string) (any, error) {
	if class == abstract {
		return c.resolveDefault(abstract)
	}
	return c.Get(class)
}

// ── Builder ───────────────────────────────────────────────────────────────────

// ContextualBuilder implements the fluent contextual binding API.
//
//	// Laravel: $app->when(PhotoController::class)->needs(Filesystem::class)->give(...)
//	c.When("app.PhotoController").Needs("app.Filesystem").Give("app.S3Filesystem")
type ContextualBuilder struct {
	container *Container
	concrete  string
	needs     string
	needsSet  bool
}

// When starts a contextual binding chain for a consumer class.
func (c *Container) When(concrete string) *ContextualBuilder {
	return &ContextualBuilder{container: c, concrete: concrete}
}

// Needs specifies which abstract the consumer depends on.
func (b *ContextualBuilder) Needs(abstract string) *ContextualBuilder {
	b.needs = abstract
	b.needsSet = true
	return b
}

// Give provides the implementation used when the consumer resolves the
// needed abstract: a class name string, a Factory, or a pre-built value.
func (b *ContextualBuilder) Give(implementation any) error {
	switch v := implementation.(type) {
	case string:
		return b.store(&contextualImpl{kind: ctxClass, class: v})
	case Factory:
		return b.store(&contextualImpl{kind: ctxFactory, factory: v})
	case func(*Container) (any, error):
		return b.store(&contextualImpl{kind: ctxFactory, factory: v})
	case nil:
		return errInvalidBinding(b.needs, "contextual implementation is nil")
	default:
		return b.store(&contextualImpl{kind: ctxValue, value: v})
	}
}

// GiveValue provides a pre-built value.
//
//	// Laravel: ->give('/tmp/photos')
func (b *ContextualBuilder) GiveValue(value any) error {
	return b.store(&contextualImpl{kind: ctxValue, value: value})
}

// GiveTagged resolves the needed abstract to the tagged collection.
//
//	// Laravel: ->giveTagged('reports')
func (b *ContextualBuilder) GiveTagged(tag string) error {
	return b.store(&contextualImpl{kind: ctxTagged, tag: tag})
}

// GiveConfigured resolves config["class"] and, when the instance is
// Configurable, passes the whole map to Configure.
func (b *ContextualBuilder) GiveConfigured(config map[string]any) error {
	if _, ok := config["class"].(string); !ok {
		return errInvalidBinding(b.needs, `configured map needs a string "class" key`)
	}
	return b.store(&contextualImpl{kind: ctxConfigured, config: config})
}

func (b *ContextualBuilder) store(impl *contextualImpl) error {
	if !b.needsSet {
		return errInvalidUsage("When(%q): call Needs before Give", b.concrete)
	}
	c := b.container
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.contextual[b.concrete]; !ok {
		c.contextual[b.concrete] = make(map[string]*contextualImpl)
	}
	c.contextual[b.concrete][b.needs] = impl
	return nil
}

// ── Snapshots (compiler / validation) ─────────────────────────────────────────

// ContextualInfo is a read-only view of one contextual binding.
type ContextualInfo struct {
	Consumer string
	Needs    string
	Kind     string // "class" | "factory" | "value" | "tagged" | "configured"
	Class    string
	Tag      string
	Config   map[string]any
}

// ContextualBindings returns a snapshot of all contextual bindings, ordered
// by consumer then needed abstract.
func (c *Container) ContextualBindings() []ContextualInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []ContextualInfo
	for consumer, m := range c.contextual {
		for needs, impl := range m {
			info := ContextualInfo{Consumer: consumer, Needs: needs}
			switch impl.kind {
			case ctxClass:
				info.Kind = "class"
				info.Class = impl.class
			case ctxFactory:
				info.Kind = "factory"
			case ctxValue:
				info.Kind = "value"
			case ctxTagged:
				info.Kind = "tagged"
				info.Tag = impl.tag
			case ctxConfigured:
				info.Kind = "configured"
				info.Config = impl.config
				info.Class, _ = impl.config["class"].(string)
			}
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Consumer != out[j].Consumer {
			return out[i].Consumer < out[j].Consumer
		}
		return out[i].Needs < out[j].Needs
	})
	return out
}
