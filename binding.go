package container

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/km-arc/container/internal/introspect"
)

// ── Class registration ────────────────────────────────────────────────────────

// RegisterClass declares a class under name with its constructor function,
// making the name reflectively constructible.
//
//	c.RegisterClass("app.UserRepository", NewUserRepository)
func (c *Container) RegisterClass(name string, ctor any, opts ...introspect.ClassOption) error {
	_, err := c.classes.Register(name, ctor, opts...)
	return err
}

// RegisterType declares T's canonical type key as a class with ctor.
//
//	container.RegisterType[*UserRepository](c, NewUserRepository)
func RegisterType[T any](c *Container, ctor any, opts ...introspect.ClassOption) (string, error) {
	name := introspect.TypeKey[T]()
	if err := c.RegisterClass(name, ctor, opts...); err != nil {
		return "", err
	}
	return name, nil
}

// RegisterInterface declares T's canonical type key as an interface so that
// Instance type checks and ResolveAll auto-discovery can consult it.
func RegisterInterface[T any](c *Container) (string, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	name := introspect.KeyForType(t)
	if _, err := c.classes.RegisterInterface(name, t); err != nil {
		return "", err
	}
	return name, nil
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient concrete for an abstract.
//
// concrete is one of:
//   - a Factory (or func(*Container) (any, error)) — invoked per resolution,
//   - a class name string — constructed reflectively,
//   - nil — the abstract itself is constructed as a class,
//   - any other constructor func — auto-registered as a class under its
//     return type's canonical key.
//
//	// Laravel: $app->bind(UserRepository::class, EloquentUserRepository::class)
//	c.Bind("app.UserRepository", "app.EloquentUserRepository")
func (c *Container) Bind(abstract string, concrete any) error {
	return c.bindConcrete(abstract, concrete, false)
}

// Singleton registers a shared concrete: the first resolution is cached and
// returned for all subsequent resolutions.
//
//	// Laravel: $app->singleton(Cache::class, fn($app) => new RedisCache($app))
func (c *Container) Singleton(abstract string, concrete any) error {
	return c.bindConcrete(abstract, concrete, true)
}

// BindShared registers a concrete with an explicit sharing flag.
func (c *Container) BindShared(abstract string, concrete any, shared bool) error {
	return c.bindConcrete(abstract, concrete, shared)
}

func (c *Container) bindConcrete(abstract string, concrete any, shared bool) error {
	b := &binding{shared: shared}

	switch v := concrete.(type) {
	case nil:
		b.kind = bindSelf
		b.class = c.Canonical(abstract)
		b.factory = c.classFactory(b.class)
	case string:
		b.kind = bindClass
		b.class = v
		b.factory = c.classFactory(v)
	case Factory:
		b.kind = bindClosure
		b.factory = v
		b.source = closureSource(v)
	case func(*Container) (any, error):
		b.kind = bindClosure
		b.factory = v
		b.source = closureSource(v)
	default:
		rv := reflect.ValueOf(concrete)
		if rv.Kind() != reflect.Func || rv.Type().NumOut() == 0 {
			return errInvalidBinding(abstract, "unsupported concrete %T", concrete)
		}
		// A plain constructor function: register it as a class under its
		// return type's key so the binding stays compilable.
		cls, err := c.classes.Register(classKeyForCtor(rv), concrete)
		if err != nil {
			return errInvalidBinding(abstract, "%v", err)
		}
		b.kind = bindClass
		b.class = cls.Name
		b.factory = c.classFactory(cls.Name)
	}

	c.mu.Lock()
	// Canonicalize like every other mutator: binding through an alias
	// replaces the target's binding, never creates a second entry.
	key := c.canonical(abstract)
	wasResolved := c.resolved[key]
	delete(c.instances, key)
	// Aliases pointing at a re-bound identifier are dropped.
	for alias, target := range c.aliases {
		if target == key {
			delete(c.aliases, alias)
		}
	}
	c.bindings[key] = b
	c.mu.Unlock()

	c.fireBindingRegistered(BindingRegistered{
		Identifier: key,
		Concrete:   b.describe(),
		Shared:     shared,
	})
	if wasResolved {
		if instance, err := c.Get(key); err == nil {
			c.fireRebound(key, instance)
		}
	}
	return nil
}

func classKeyForCtor(ctor reflect.Value) string {
	return introspect.KeyForType(ctor.Type().Out(0))
}

// closureSource identifies a factory closure by its definition site, the
// only stable identity a closure has for fingerprinting.
func closureSource(f Factory) string {
	pc := reflect.ValueOf(f).Pointer()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}
	file, line := fn.FileLine(pc)
	return fmt.Sprintf("%s:%d", file, line)
}

func (b *binding) describe() string {
	switch b.kind {
	case bindClass, bindSelf:
		return b.class
	default:
		return "closure"
	}
}

// classFactory synthesizes a factory that reflectively constructs name.
func (c *Container) classFactory(name string) Factory {
	return func(cc *Container) (any, error) {
		return cc.build(name)
	}
}

// ── Instance ──────────────────────────────────────────────────────────────────

// Instance registers a pre-built value directly in the instance cache.
// When the abstract names a declared interface, the value must satisfy it.
//
//	// Laravel: $app->instance(Config::class, $config)
func (c *Container) Instance(abstract string, instance any) error {
	if cls, err := c.classes.GetClass(abstract); err == nil && cls.Interface() {
		if instance == nil || !reflect.TypeOf(instance).Implements(cls.Type) {
			return errTypeMismatch(abstract, "%T does not implement %s", instance, abstract)
		}
	}
	c.mu.Lock()
	key := c.canonical(abstract)
	delete(c.bindings, key)
	c.instances[key] = instance
	c.mu.Unlock()

	c.fireRebound(abstract, instance)
	return nil
}

// ── Alias ─────────────────────────────────────────────────────────────────────

// Alias registers an alternative name for an abstract. The target must be
// currently bound, have an instance, or be a resolvable class.
//
//	// Laravel: $app->alias(Cache::class, 'cache')
func (c *Container) Alias(alias, abstract string) error {
	if alias == abstract {
		return errInvalidUsage("[%s] is aliased to itself", abstract)
	}
	c.mu.RLock()
	_, bound := c.bindings[abstract]
	_, hasInstance := c.instances[abstract]
	c.mu.RUnlock()
	if !bound && !hasInstance && !c.classes.IsInstantiable(abstract) {
		return errNotFound(abstract, "cannot alias an unbound identifier")
	}
	c.mu.Lock()
	c.aliases[alias] = abstract
	c.mu.Unlock()
	return nil
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates the resolution of an abstract. If the abstract already
// has an instance, the transformer is applied to it in place; otherwise it
// runs after the concrete factory on every resolution.
//
//	// Laravel: $app->extend(Logger::class, fn($logger, $app) => new TimestampLogger($logger))
func (c *Container) Extend(abstract string, fn Extender) error {
	c.mu.Lock()
	key := c.canonical(abstract)

	if inst, ok := c.instances[key]; ok {
		extended := fn(inst, c)
		c.instances[key] = extended
		c.mu.Unlock()
		c.fireRebound(abstract, extended)
		return nil
	}
	if _, ok := c.bindings[key]; !ok {
		c.mu.Unlock()
		return errNotFound(abstract, "nothing to extend")
	}
	c.extenders[key] = append(c.extenders[key], fn)
	c.mu.Unlock()
	return nil
}

func (c *Container) applyExtenders(key string, instance any) any {
	c.mu.RLock()
	exts := append([]Extender(nil), c.extenders[key]...)
	c.mu.RUnlock()
	for _, ext := range exts {
		instance = ext(instance, c)
	}
	return instance
}

// ── Queries ───────────────────────────────────────────────────────────────────

// Has reports whether an abstract is bound, has a cached instance, or is a
// resolvable class.
//
//	// Laravel: $app->bound(UserRepository::class)
func (c *Container) Has(abstract string) bool {
	c.mu.RLock()
	key := c.canonical(abstract)
	_, bound := c.bindings[key]
	_, hasInstance := c.instances[key]
	c.mu.RUnlock()
	return bound || hasInstance || c.classes.IsInstantiable(key)
}

// Resolved reports whether the abstract has been resolved at least once.
func (c *Container) Resolved(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolved[c.canonical(abstract)]
}

// Forget removes all registrations for an abstract (binding + instance).
func (c *Container) Forget(abstract string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonical(abstract)
	delete(c.bindings, key)
	delete(c.instances, key)
}

// Flush resets the entire container registry, keeping declared classes.
func (c *Container) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = make(map[string]*binding)
	c.instances = make(map[string]any)
	c.aliases = make(map[string]string)
	c.extenders = make(map[string][]Extender)
	c.tags = make(map[string][]string)
	c.taggedBy = make(map[string][]string)
	c.contextual = make(map[string]map[string]*contextualImpl)
	c.multi = make(map[string][]*multiBinding)
	c.decorators = make(map[string][]decoratorEntry)
	c.middleware = make(map[string][]MiddlewareFunc)
	c.mocks = make(map[string]any)
	c.spies = make(map[string][]SpyFunc)
	c.resolved = make(map[string]bool)
	c.instances["container"] = c
}
