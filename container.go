package container

import (
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"

	"github.com/km-arc/container/internal/introspect"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory is a function that builds a concrete value from the container.
type Factory func(c *Container) (any, error)

// Extender wraps an already-resolved instance with decorator logic.
type Extender func(instance any, c *Container) any

// DeferredResolver is invoked when an unbound identifier is requested; it
// may register the identifier before resolution continues.
type DeferredResolver func(c *Container, id string)

// SpyFunc observes every instance resolved for a spied identifier.
type SpyFunc func(instance any)

type bindingKind int

const (
	bindClosure bindingKind = iota
	bindClass
	bindSelf
)

func (k bindingKind) String() string {
	switch k {
	case bindClosure:
		return "closure"
	case bindClass:
		return "class"
	default:
		return "self"
	}
}

// binding holds a registered concrete and whether it is shared.
type binding struct {
	factory Factory
	shared  bool
	kind    bindingKind
	class   string // concrete class name for kind class/self
	source  string // file:line of the closure for kind closure
}

type decoratorEntry struct {
	priority int
	seq      int
	fn       DecoratorFunc
}

// DecoratorFunc transforms an instance after construction.
type DecoratorFunc func(c *Container, instance any) (any, error)

// MiddlewareFunc transforms an instance after all decorators have run.
type MiddlewareFunc func(c *Container, instance any) (any, error)

// ResolutionRecord is one entry of the resolution history.
type ResolutionRecord struct {
	Identifier string
	Duration   time.Duration
	Mocked     bool
	Failed     bool
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the IoC container — mirrors Laravel's
// Illuminate\Container\Container with the resolver, contextual bindings,
// tagged collections, decorators, scoped overrides, and the introspection
// layer behind reflective construction.
//
// Concurrency: registration maps are internally synchronized, but the
// resolving and context stacks are per-container call-chain state; callers
// sharing one container across goroutines must serialize resolution through
// their own lock.
type Container struct {
	mu sync.RWMutex

	classes *introspect.Registry

	// abstract → binding
	bindings map[string]*binding

	// abstract → resolved shared instance
	instances map[string]any

	// alias → abstract (canonical key)
	aliases map[string]string

	// abstract → extender funcs
	extenders map[string][]Extender

	// tag → []abstract and abstract → []tag, both insertion-ordered
	tags     map[string][]string
	taggedBy map[string][]string

	// contextual: when[consumer][abstract] = implementation
	contextual map[string]map[string]*contextualImpl

	// abstract → multi-bindings, priority-ordered on read
	multi map[string][]*multiBinding

	// abstract → decorators / middleware
	decorators map[string][]decoratorEntry
	middleware map[string][]MiddlewareFunc

	// test doubles
	mocks map[string]any
	spies map[string][]SpyFunc

	// stack of identifiers currently being constructed (cycle guard)
	resolving []string

	// stack of consumer classes currently being constructed (contextual)
	contextStack []string

	// scoped override frames
	scopes []*scopeFrame

	// identifiers marked resolved at least once (for rebound callbacks)
	resolved map[string]bool

	deferredResolver DeferredResolver
	deferredActive   map[string]bool

	// provider bookkeeping: active providers, plus identifier → provider
	// for the deferred ones not yet loaded
	providers         []Provider
	deferredProviders map[string]Provider
	providerSeen      map[Provider]bool
	providersBooted   bool

	autoDiscovery bool

	// event callbacks
	resolvingCallbacks []func(id string)
	resolvedCallbacks  []func(id string, instance any)
	failedCallbacks    []func(id string, err error)
	boundCallbacks     []func(ev BindingRegistered)
	reboundCallbacks   map[string][]func(instance any)

	history []ResolutionRecord

	logger  *zap.Logger
	metrics metrics.Registry
	seq     int
}

// Option configures a Container at construction time.
type Option func(c *Container)

// WithLogger sets the structured logger used for skipped tagged and
// multi-resolution entries and for resolution tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAutoDiscovery toggles ResolveAll's declared-implementor scan.
func WithAutoDiscovery(enabled bool) Option {
	return func(c *Container) { c.autoDiscovery = enabled }
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		classes:           introspect.NewRegistry(),
		bindings:          make(map[string]*binding),
		instances:         make(map[string]any),
		aliases:           make(map[string]string),
		extenders:         make(map[string][]Extender),
		tags:              make(map[string][]string),
		taggedBy:          make(map[string][]string),
		contextual:        make(map[string]map[string]*contextualImpl),
		multi:             make(map[string][]*multiBinding),
		decorators:        make(map[string][]decoratorEntry),
		middleware:        make(map[string][]MiddlewareFunc),
		mocks:             make(map[string]any),
		spies:             make(map[string][]SpyFunc),
		resolved:          make(map[string]bool),
		deferredActive:    make(map[string]bool),
		deferredProviders: make(map[string]Provider),
		providerSeen:      make(map[Provider]bool),
		reboundCallbacks:  make(map[string][]func(any)),
		autoDiscovery:     true,
		logger:            zap.NewNop(),
		metrics:           metrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// Bind the container to itself — like Laravel's $app->instance()
	c.instances["container"] = c
	return c
}

// SetDeferredResolver installs the hook invoked when an unbound identifier
// is requested. The hook may register the identifier; resolution then
// continues with the fresh registration.
func (c *Container) SetDeferredResolver(fn DeferredResolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferredResolver = fn
}

// SetAutoDiscovery toggles ResolveAll's declared-implementor scan.
func (c *Container) SetAutoDiscovery(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoDiscovery = enabled
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger { return c.logger }

// Introspector exposes the class table to the compiler and debug surface.
func (c *Container) Introspector() *introspect.Registry { return c.classes }

// canonical resolves an alias to its canonical key (single hop).
// Caller must hold at least a read lock.
func (c *Container) canonical(abstract string) string {
	if target, ok := c.aliases[abstract]; ok {
		return target
	}
	return abstract
}

// Canonical resolves an alias to its canonical key.
func (c *Container) Canonical(abstract string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canonical(abstract)
}
