package container

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/container/internal/introspect"
)

// ── Resolution ────────────────────────────────────────────────────────────────

// Get resolves an abstract from the container.
//
//	// Laravel: $app->make(UserRepository::class)
//	repo, err := c.Get("app.UserRepository")
func (c *Container) Get(abstract string) (any, error) {
	c.fireResolutionStarting(abstract)
	start := time.Now()

	instance, mocked, err := c.resolve(abstract)
	elapsed := time.Since(start)

	c.recordResolution(abstract, elapsed, mocked, err)
	if err != nil {
		c.fireResolutionFailed(abstract, err)
		return nil, err
	}
	c.runSpies(abstract, instance)
	c.fireResolutionDone(abstract, instance)
	return instance, nil
}

// resolve runs steps 2–12 of the resolution sequence. Any failure that is
// not already a resolution-failure wrapper is wrapped with the current
// identifier, a snapshot of the resolving stack, and suggestions.
func (c *Container) resolve(abstract string) (instance any, mocked bool, err error) {
	// Mocks short-circuit everything, including the cycle guard.
	c.mu.RLock()
	if mock, ok := c.mocks[abstract]; ok {
		c.mu.RUnlock()
		return mock, true, nil
	}
	c.mu.RUnlock()

	defer func() {
		if err != nil {
			err = c.wrapFailure(abstract, err)
		}
	}()

	// Contextual overrides beat every other resolution source.
	if impl := c.contextualFor(abstract); impl != nil {
		instance, err = c.resolveContextual(abstract, impl)
		return instance, false, err
	}

	instance, err = c.resolveDefault(abstract)
	return instance, false, err
}

// resolveDefault runs the non-contextual resolution path: alias rewrite,
// instance cache, deferred hook, factory selection, cycle guard, sharing,
// and decoration.
func (c *Container) resolveDefault(abstract string) (instance any, err error) {
	c.mu.RLock()
	key := c.canonical(abstract)
	if inst, ok := c.instances[key]; ok {
		c.mu.RUnlock()
		c.markResolved(key)
		return inst, nil
	}
	_, bound := c.bindings[key]
	hook := c.deferredResolver
	c.mu.RUnlock()

	// An unbound identifier gets one shot at deferred registration: a
	// deferred provider that declared it, or the user-supplied hook.
	if !bound {
		loaded := c.loadDeferredProvider(key)
		if !loaded && hook != nil && !c.deferredActive[key] {
			c.deferredActive[key] = true
			hook(c, key)
			delete(c.deferredActive, key)
			loaded = true
		}
		if loaded {
			c.mu.RLock()
			if inst, ok := c.instances[key]; ok {
				c.mu.RUnlock()
				c.markResolved(key)
				return inst, nil
			}
			c.mu.RUnlock()
		}
	}

	c.mu.RLock()
	b := c.bindings[key]
	c.mu.RUnlock()

	var factory Factory
	var shared bool
	if b != nil {
		factory = b.factory
		shared = b.shared
	} else {
		if !c.classes.Has(key) {
			return nil, c.notFound(key)
		}
		factory = c.classFactory(key)
	}

	if c.isResolving(key) {
		return nil, errCircular(key, c.resolving)
	}
	c.resolving = append(c.resolving, key)
	defer func() {
		c.resolving = c.resolving[:len(c.resolving)-1]
	}()

	instance, err = factory(c)
	if err != nil {
		return nil, err
	}

	instance = c.applyExtenders(key, instance)

	if shared {
		c.mu.Lock()
		c.instances[key] = instance
		c.mu.Unlock()
	}

	decorated, err := c.decorate(key, instance)
	if err != nil {
		return nil, err
	}
	if shared {
		c.mu.Lock()
		c.instances[key] = decorated
		c.mu.Unlock()
	}

	c.markResolved(key)
	c.logger.Debug("resolved", zap.String("identifier", key), zap.Bool("shared", shared))
	return decorated, nil
}

func (c *Container) markResolved(key string) {
	c.mu.Lock()
	c.resolved[key] = true
	c.mu.Unlock()
}

func (c *Container) isResolving(key string) bool {
	for _, id := range c.resolving {
		if id == key {
			return true
		}
	}
	return false
}

// wrapFailure turns any non-wrapper error into the resolution-failure
// wrapper carrying the identifier, chain snapshot, and suggestions.
func (c *Container) wrapFailure(abstract string, err error) error {
	var domain *Error
	if errors.As(err, &domain) && domain.Kind == KindResolutionFailed {
		return err
	}
	return &Error{
		Kind:        KindResolutionFailed,
		Identifier:  abstract,
		Chain:       append([]string(nil), c.resolving...),
		Suggestions: c.suggestionsFor(abstract, err),
		Cause:       err,
	}
}

func (c *Container) notFound(key string) error {
	return errNotFound(key, "no binding, instance, or resolvable class")
}

func (c *Container) suggestionsFor(abstract string, cause error) []string {
	var suggestions []string
	if errors.Is(cause, ErrCircular) {
		suggestions = append(suggestions,
			"break the cycle with a lazy proxy or a setter on one side")
	}
	cls, err := c.classes.GetClass(abstract)
	switch {
	case err == nil && cls.Interface():
		suggestions = append(suggestions,
			fmt.Sprintf("interface %s is not bound; bind a concrete implementation", abstract))
	case err == nil && !cls.Instantiable:
		suggestions = append(suggestions,
			fmt.Sprintf("%s is declared but not instantiable; bind a factory for it", abstract))
	case err != nil:
		if closest := c.classes.Closest(abstract); closest != "" && closest != abstract {
			suggestions = append(suggestions,
				fmt.Sprintf("%s is not registered; did you mean %s?", abstract, closest))
		} else {
			suggestions = append(suggestions,
				fmt.Sprintf("%s is not registered; call RegisterClass or Bind first", abstract))
		}
	}
	return suggestions
}

// ── Reflective construction ───────────────────────────────────────────────────

// build constructs a declared class by reflecting on its constructor. The
// class is pushed onto the context stack for the whole construction, so
// nested Get calls see it as their current context.
func (c *Container) build(name string) (any, error) {
	cls, err := c.classes.GetClass(name)
	if err != nil {
		return nil, c.notFound(name)
	}
	if !cls.Instantiable {
		return nil, errNotInstantiable(name, "declared type cannot be constructed")
	}

	c.contextStack = append(c.contextStack, name)
	defer func() {
		c.contextStack = c.contextStack[:len(c.contextStack)-1]
	}()

	args, err := c.resolveParams(cls)
	if err != nil {
		return nil, err
	}

	out := cls.Ctor.Call(args)
	if cls.ReturnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// resolveParams supplies each constructor parameter, in declaration order.
func (c *Container) resolveParams(cls *introspect.Class) ([]reflect.Value, error) {
	args := make([]reflect.Value, 0, len(cls.Params))
	for i := range cls.Params {
		p := &cls.Params[i]
		v, err := c.resolveParam(cls.Name, p)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func (c *Container) resolveParam(consumer string, p *introspect.Param) (reflect.Value, error) {
	// A contextual override for the parameter's identifier beats every
	// other source, whatever the parameter kind.
	if p.TypeName != "" && c.contextualFor(p.TypeName) != nil {
		instance, err := c.Get(p.TypeName)
		if err != nil {
			return reflect.Value{}, err
		}
		return c.valueFor(p, instance)
	}

	switch p.Kind {
	case introspect.ParamNone:
		if p.HasDefault {
			return c.valueFor(p, p.Default)
		}
		return reflect.Value{}, errUnresolvable(consumer,
			"untyped parameter %q has no default", p.Name)

	case introspect.ParamBuiltin:
		if p.HasDefault {
			return c.valueFor(p, p.Default)
		}
		return reflect.Value{}, errUnresolvable(consumer,
			"builtin parameter %q (%s) has no default", p.Name, p.TypeName)

	case introspect.ParamNamed:
		if c.resolvable(p.TypeName) {
			instance, err := c.Get(p.TypeName)
			if err != nil {
				return reflect.Value{}, err
			}
			return c.valueFor(p, instance)
		}
		if p.Nullable {
			return reflect.Zero(p.GoType), nil
		}
		if p.HasDefault {
			return c.valueFor(p, p.Default)
		}
		return reflect.Value{}, errUnresolvable(consumer,
			"parameter %q (%s) is not resolvable", p.Name, p.TypeName)

	case introspect.ParamUnion:
		// Members are scanned in source declaration order; first
		// resolvable wins.
		for _, member := range p.Members {
			if c.resolvable(member) {
				instance, err := c.Get(member)
				if err != nil {
					return reflect.Value{}, err
				}
				return c.valueFor(p, instance)
			}
		}
		if p.Nullable {
			return reflect.Zero(p.GoType), nil
		}
		if p.HasDefault {
			return c.valueFor(p, p.Default)
		}
		return reflect.Value{}, errUnresolvable(consumer,
			"no member of union parameter %q is resolvable", p.Name)

	case introspect.ParamIntersection:
		if p.HasDefault {
			return c.valueFor(p, p.Default)
		}
		if p.Nullable {
			return reflect.Zero(p.GoType), nil
		}
		return reflect.Value{}, errUnresolvable(consumer,
			"intersection parameter %q needs a default or nullability", p.Name)

	default:
		return reflect.Value{}, errUnresolvable(consumer, "parameter %q has unknown kind", p.Name)
	}
}

// resolvable reports whether Get(id) has a source to draw from: a binding,
// an instance, a mock, a contextual override, or an instantiable class.
func (c *Container) resolvable(id string) bool {
	if c.contextualFor(id) != nil {
		return true
	}
	c.mu.RLock()
	if _, ok := c.mocks[id]; ok {
		c.mu.RUnlock()
		return true
	}
	c.mu.RUnlock()
	return c.Has(id)
}

// valueFor adapts a resolved instance or default to the parameter's Go type.
func (c *Container) valueFor(p *introspect.Param, v any) (reflect.Value, error) {
	if p.GoType == nil {
		return reflect.ValueOf(v), nil
	}
	if v == nil {
		if !p.Nullable {
			return reflect.Value{}, errTypeMismatch(p.TypeName, "nil for non-nilable parameter %q", p.Name)
		}
		return reflect.Zero(p.GoType), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(p.GoType) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(p.GoType) {
		return rv.Convert(p.GoType), nil
	}
	return reflect.Value{}, errTypeMismatch(p.TypeName,
		"%T cannot be used for parameter %q (%s)", v, p.Name, p.GoType)
}

// ── Generic sugar ─────────────────────────────────────────────────────────────

// Resolve is a generic helper that calls Get and type-asserts the result.
//
//	repo, err := container.Resolve[UserRepository](c, "app.UserRepository")
func Resolve[T any](c *Container, abstract string) (T, error) {
	var zero T
	instance, err := c.Get(abstract)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, errTypeMismatch(abstract, "resolved to %T", instance)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](c *Container, abstract string) T {
	v, err := Resolve[T](c, abstract)
	if err != nil {
		panic(err)
	}
	return v
}
