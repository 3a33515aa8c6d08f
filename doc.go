// Package container provides a Laravel-style IoC (Inversion of Control)
// container for Go: a runtime registry that resolves service identifiers to
// fully constructed object graphs by introspecting constructor signatures.
//
// # Overview
//
// The container manages the instantiation and lifecycle of your
// application's dependencies. It supports transient bindings, singletons,
// pre-built instances, aliases, tags, contextual bindings, decorator and
// middleware chains, scoped (temporary) overrides with guaranteed rollback,
// multi-resolution with auto-discovery, and ahead-of-time compilation of
// the binding graph (see the compile package).
//
// It mirrors the public API of Laravel's Illuminate\Container\Container as
// closely as Go's type system allows. Constructor reflection works over
// registered constructor functions: declare a class once with
// RegisterClass (or pass the constructor directly as a binding's concrete)
// and the resolver wires its parameters from the registry.
//
// # Bindings
//
//	// Transient — new instance every Get()
//	// Laravel: $app->bind(Foo::class, fn($app) => new Foo)
//	c.Bind("app.Foo", func(c *container.Container) (any, error) { return &Foo{}, nil })
//
//	// Class binding — constructed by reflection, compilable
//	// Laravel: $app->bind(UserRepository::class, EloquentUserRepository::class)
//	c.RegisterClass("app.EloquentUserRepository", NewEloquentUserRepository)
//	c.Bind("app.UserRepository", "app.EloquentUserRepository")
//
//	// Singleton — created once, reused
//	// Laravel: $app->singleton(Cache::class, fn($app) => new RedisCache)
//	c.Singleton("cache", NewRedisCache)
//
//	// Pre-built value
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", myConfig)
//
//	// Alias
//	// Laravel: $app->alias(Cache::class, 'cache')
//	c.Alias("cacheManager", "cache")
//
// # Resolving
//
//	// Untyped
//	// Laravel: $app->make(Cache::class)
//	raw, err := c.Get("cache")
//
//	// Generic (preferred — no type assertion required)
//	cache, err := container.Resolve[*RedisCache](c, "cache")
//
// # Contextual Binding
//
//	// Laravel: $app->when(PhotoController::class)
//	//              ->needs(Filesystem::class)
//	//              ->give(S3Filesystem::class)
//	c.When("app.PhotoController").
//	    Needs("app.Filesystem").
//	    Give("app.S3Filesystem")
//
// # Tags and multi-resolution
//
//	// Laravel: $app->tag([CpuReport::class, MemReport::class], 'reports')
//	c.Tag([]string{"app.CpuReport", "app.MemReport"}, "reports")
//	reports := c.Tagged("reports") // []any, failures skipped and logged
//
//	all, err := c.ResolveAll("app.ReportInterface")
//
// # Decorators and middleware
//
//	c.Decorate("logger", wrapWithTimestamps, 1)
//	c.Middleware("logger", auditEvery)
//
// # Scoped overrides
//
//	err := c.Scoped(map[string]any{"clock": fakeClock}, func(c *container.Container) error {
//	    return runDeterministically(c)
//	})
//	// the previous "clock" registration is restored even on panic
//
// # Concurrency
//
// The container is single-threaded cooperative per instance: registration
// maps are internally synchronized, but resolution state (the resolving and
// context stacks) belongs to one logical call chain. Concurrent callers
// sharing a container must serialize resolution through their own lock.
package container
