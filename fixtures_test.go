package container_test

import (
	"errors"
	"fmt"

	container "github.com/km-arc/container"
)

// ── stub services ─────────────────────────────────────────────────────────────

type Logger interface {
	Log(msg string)
}

type ConsoleLogger struct {
	Lines []string
}

func NewConsoleLogger() *ConsoleLogger { return &ConsoleLogger{} }

func (l *ConsoleLogger) Log(msg string) { l.Lines = append(l.Lines, msg) }

type FileLogger struct {
	Path string
}

func NewFileLogger() *FileLogger { return &FileLogger{Path: "/tmp/app.log"} }

func (l *FileLogger) Log(string) {}

type Service struct {
	Logger *ConsoleLogger
}

func NewService(logger *ConsoleLogger) *Service { return &Service{Logger: logger} }

// ── contextual fixtures ───────────────────────────────────────────────────────

type Greeter interface {
	Greet() string
}

type DefaultGreeter struct{}

func NewDefaultGreeter() *DefaultGreeter { return &DefaultGreeter{} }

func (g *DefaultGreeter) Greet() string { return "hello" }

type AltGreeter struct{}

func NewAltGreeter() *AltGreeter { return &AltGreeter{} }

func (g *AltGreeter) Greet() string { return "salut" }

type Alpha struct {
	G Greeter
}

func NewAlpha(g Greeter) *Alpha { return &Alpha{G: g} }

type Beta struct {
	G Greeter
}

func NewBeta(g Greeter) *Beta { return &Beta{G: g} }

// ── cycle fixtures ────────────────────────────────────────────────────────────

type CycleA struct {
	B *CycleB
}

func NewCycleA(b *CycleB) *CycleA { return &CycleA{B: b} }

type CycleB struct {
	A *CycleA
}

func NewCycleB(a *CycleA) *CycleB { return &CycleB{A: a} }

// ── cache fixtures ────────────────────────────────────────────────────────────

type Cache interface {
	Put(key string)
}

type MemCache struct{ keys []string }

func NewMemCache() *MemCache { return &MemCache{} }

func (c *MemCache) Put(key string) { c.keys = append(c.keys, key) }

type RedisCache struct{ addr string }

func NewRedisCache() *RedisCache { return &RedisCache{addr: "localhost:6379"} }

func (c *RedisCache) Put(string) {}

// ── report fixtures ───────────────────────────────────────────────────────────

type Report interface {
	Name() string
}

type CpuReport struct{}

func NewCpuReport() *CpuReport { return &CpuReport{} }

func (r *CpuReport) Name() string { return "cpu" }

type MemReport struct{}

func NewMemReport() *MemReport { return &MemReport{} }

func (r *MemReport) Name() string { return "mem" }

var errBroken = errors.New("broken fixture")

func NewBrokenReport() (*CpuReport, error) { return nil, errBroken }

// ── configured fixture ────────────────────────────────────────────────────────

type Widget struct {
	Config map[string]any
}

func NewWidget() *Widget { return &Widget{} }

func (w *Widget) Configure(config map[string]any) { w.Config = config }

// ── clock fixtures ────────────────────────────────────────────────────────────

type Clock interface {
	Now() string
}

type RealClock struct{}

func (c *RealClock) Now() string { return "real" }

type FakeClock struct{}

func (c *FakeClock) Now() string { return "fake" }

// ── keys ──────────────────────────────────────────────────────────────────────

var (
	kLogger        = container.TypeKey[*ConsoleLogger]()
	kService       = container.TypeKey[*Service]()
	kGreeter       = container.TypeKey[Greeter]()
	kDefaultGreet  = container.TypeKey[*DefaultGreeter]()
	kAltGreet      = container.TypeKey[*AltGreeter]()
	kAlpha         = container.TypeKey[*Alpha]()
	kBeta          = container.TypeKey[*Beta]()
	kCycleA        = container.TypeKey[*CycleA]()
	kCycleB        = container.TypeKey[*CycleB]()
	kReport        = container.TypeKey[Report]()
	kCpuReport     = container.TypeKey[*CpuReport]()
	kMemReport     = container.TypeKey[*MemReport]()
)

// newFactory returns a factory producing a fresh value each call.
func newFactory(make func() any) container.Factory {
	return func(*container.Container) (any, error) { return make(), nil }
}

// failFactory returns a factory that always fails.
func failFactory(msg string) container.Factory {
	return func(*container.Container) (any, error) { return nil, fmt.Errorf("%s", msg) }
}
