package compile_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	container "github.com/km-arc/container"
	"github.com/km-arc/container/compile"
	"github.com/km-arc/container/internal/introspect"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type EmitLogger struct{}

func NewEmitLogger() *EmitLogger { return &EmitLogger{} }

type EmitService struct {
	Logger *EmitLogger
}

func NewEmitService(logger *EmitLogger) *EmitService { return &EmitService{Logger: logger} }

type EmitLoopA struct{ B *EmitLoopB }

func NewEmitLoopA(b *EmitLoopB) *EmitLoopA { return &EmitLoopA{B: b} }

type EmitLoopB struct{ A *EmitLoopA }

func NewEmitLoopB(a *EmitLoopA) *EmitLoopB { return &EmitLoopB{A: a} }

type SizedBuffer struct{ size int }

func NewSizedBuffer(size int) *SizedBuffer { return &SizedBuffer{size: size} }

var (
	kEmitLogger  = container.TypeKey[*EmitLogger]()
	kEmitService = container.TypeKey[*EmitService]()
	kEmitLoopA   = container.TypeKey[*EmitLoopA]()
)

func registryWithGraph() *container.Container {
	c := container.New()
	c.Bind(kEmitLogger, NewEmitLogger)
	c.Singleton(kEmitService, NewEmitService)
	c.Alias("svc", kEmitService)
	return c
}

// ── Plan ──────────────────────────────────────────────────────────────────────

func TestPlan_CompilesClassGraph(t *testing.T) {
	c := registryWithGraph()
	plan, err := compile.New(c, compile.DefaultOptions()).Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if len(plan.Bindings) != 2 {
		t.Fatalf("planned bindings = %d, want 2 (%+v)", len(plan.Bindings), plan.Bindings)
	}
	if len(plan.Classes) != 2 {
		t.Fatalf("planned classes = %d, want 2", len(plan.Classes))
	}
	var sharedSeen bool
	for _, b := range plan.Bindings {
		if b.Identifier == kEmitService && b.Shared {
			sharedSeen = true
		}
	}
	if !sharedSeen {
		t.Error("plan must preserve the shared flag")
	}
	if len(plan.Aliases) != 1 || plan.Aliases[0][0] != "svc" {
		t.Errorf("aliases = %v", plan.Aliases)
	}
}

func TestPlan_RefusesClosures(t *testing.T) {
	c := container.New()
	c.Bind("opaque", container.Factory(func(*container.Container) (any, error) { return 1, nil }))

	plan, _ := compile.New(c, compile.DefaultOptions()).Plan()
	if len(plan.Bindings) != 0 {
		t.Errorf("closures must not compile: %+v", plan.Bindings)
	}
	var found bool
	for _, s := range plan.Skipped {
		if s.Identifier == "opaque" {
			found = true
		}
	}
	if !found {
		t.Error("refused binding should be reported in Skipped")
	}
}

func TestPlan_RefusesDecoratedIdentifiers(t *testing.T) {
	c := registryWithGraph()
	c.Decorate(kEmitService, func(_ *container.Container, v any) (any, error) { return v, nil }, 1)

	plan, _ := compile.New(c, compile.DefaultOptions()).Plan()
	for _, b := range plan.Bindings {
		if b.Identifier == kEmitService {
			t.Error("decorated identifiers must not compile")
		}
	}
}

func TestPlan_RefusesTaggedIdentifiers(t *testing.T) {
	c := registryWithGraph()
	c.Tag([]string{kEmitLogger}, "loggers")

	plan, _ := compile.New(c, compile.DefaultOptions()).Plan()
	for _, b := range plan.Bindings {
		if b.Identifier == kEmitLogger {
			t.Error("tagged identifiers must not compile")
		}
	}
}

func TestPlan_RefusesContextualConsumers(t *testing.T) {
	c := registryWithGraph()
	c.When(kEmitService).Needs(kEmitLogger).Give(kEmitLogger)

	plan, _ := compile.New(c, compile.DefaultOptions()).Plan()
	for _, b := range plan.Bindings {
		if b.Identifier == kEmitService {
			t.Error("classes with contextual overrides must not compile")
		}
	}
}

func TestPlan_CycleAbortsOnlyThatBinding(t *testing.T) {
	c := registryWithGraph()
	c.Bind(kEmitLoopA, NewEmitLoopA)
	c.Bind(container.TypeKey[*EmitLoopB](), NewEmitLoopB)

	plan, err := compile.New(c, compile.DefaultOptions()).Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, b := range plan.Bindings {
		if b.Identifier == kEmitLoopA {
			t.Error("cyclic class graph must not compile")
		}
	}
	// The acyclic part of the registry still compiles.
	var serviceCompiled bool
	for _, b := range plan.Bindings {
		if b.Identifier == kEmitService {
			serviceCompiled = true
		}
	}
	if !serviceCompiled {
		t.Error("a cycle elsewhere must not abort unrelated bindings")
	}
}

func TestPlan_LiteralDefaultsCompile(t *testing.T) {
	c := container.New()
	err := c.RegisterClass("compile.sizedBuffer", NewSizedBuffer,
		introspect.WithParamName(0, "size"), introspect.WithDefault(0, 64))
	if err != nil {
		t.Fatalf("RegisterClass: %v", err)
	}
	c.Bind("buffer", "compile.sizedBuffer")

	plan, err := compile.New(c, compile.DefaultOptions()).Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	var found bool
	for _, b := range plan.Bindings {
		if b.Identifier == "buffer" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected 'buffer' to compile; skipped: %+v", plan.Skipped)
	}
}

func TestPlan_BuiltinWithoutDefault_Skipped(t *testing.T) {
	c := container.New()
	c.RegisterClass("compile.sizedBuffer", NewSizedBuffer)
	c.Bind("buffer", "compile.sizedBuffer")

	plan, _ := compile.New(c, compile.DefaultOptions()).Plan()
	if len(plan.Bindings) != 0 {
		t.Errorf("builtin parameter without default must not compile: %+v", plan.Bindings)
	}
}

// ── Fingerprint ───────────────────────────────────────────────────────────────

func TestFingerprint_DeterministicForEqualRegistries(t *testing.T) {
	a := compile.Fingerprint(registryWithGraph(), compile.DefaultOptions())
	b := compile.Fingerprint(registryWithGraph(), compile.DefaultOptions())
	if a != b {
		t.Errorf("fingerprints differ for equal registries:\n%s\n%s", a, b)
	}
	if !strings.HasPrefix(a, "sha256:") {
		t.Errorf("fingerprint format: %s", a)
	}
}

func TestFingerprint_SensitiveToBindings(t *testing.T) {
	base := compile.Fingerprint(registryWithGraph(), compile.DefaultOptions())

	added := registryWithGraph()
	added.Bind("extra", kEmitLogger)
	if compile.Fingerprint(added, compile.DefaultOptions()) == base {
		t.Error("adding a binding must change the fingerprint")
	}

	reshared := registryWithGraph()
	reshared.Bind(kEmitService, NewEmitService) // shared=true → false
	if compile.Fingerprint(reshared, compile.DefaultOptions()) == base {
		t.Error("changing the shared flag must change the fingerprint")
	}
}

func TestFingerprint_SensitiveToAliasesAndContextual(t *testing.T) {
	base := compile.Fingerprint(registryWithGraph(), compile.DefaultOptions())

	realiased := registryWithGraph()
	realiased.Alias("svc2", kEmitService)
	if compile.Fingerprint(realiased, compile.DefaultOptions()) == base {
		t.Error("adding an alias must change the fingerprint")
	}

	ctx := registryWithGraph()
	ctx.When("x").Needs("y").Give(kEmitLogger)
	if compile.Fingerprint(ctx, compile.DefaultOptions()) == base {
		t.Error("adding a contextual binding must change the fingerprint")
	}
}

func TestFingerprint_ValidateOptionExcluded(t *testing.T) {
	on := compile.DefaultOptions()
	on.Validate = true
	off := compile.DefaultOptions()
	off.Validate = false

	if compile.Fingerprint(registryWithGraph(), on) != compile.Fingerprint(registryWithGraph(), off) {
		t.Error("the Validate toggle must not participate in the fingerprint")
	}
}

// ── Emission ──────────────────────────────────────────────────────────────────

func TestEmit_WritesCompiledResolver(t *testing.T) {
	c := registryWithGraph()
	path := filepath.Join(t.TempDir(), "compiled", "container.go")

	if err := compile.Compile(c, path, compile.DefaultOptions()); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	src := string(data)
	for _, want := range []string{
		"package compiled",
		"type CompiledContainer struct",
		"Fingerprint        =",
		"GeneratedAt        =",
		"func (c *CompiledContainer) Bind(",
		"factory_",
		kEmitService,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("generated source missing %q", want)
		}
	}

	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o644 {
		t.Errorf("file mode = %v, want 0644", info.Mode().Perm())
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestEmit_AtomicOnFailure(t *testing.T) {
	c := registryWithGraph()
	dir := t.TempDir()

	// Parent of the target path is a regular file: MkdirAll must fail and
	// the final path must not come into existence.
	blocker := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(blocker, "container.go")

	if err := compile.Compile(c, path, compile.DefaultOptions()); err == nil {
		t.Fatal("Compile into a blocked path should fail")
	}
	// Stat through a regular file reports ENOTDIR rather than ENOENT; both
	// mean nothing exists at the target path.
	if _, err := os.Stat(path); !os.IsNotExist(err) && !errors.Is(err, syscall.ENOTDIR) {
		t.Error("failed compilation must leave no file at the target path")
	}
}

func TestEmit_OverwritesAtomically(t *testing.T) {
	c := registryWithGraph()
	path := filepath.Join(t.TempDir(), "container.go")

	if err := compile.Compile(c, path, compile.DefaultOptions()); err != nil {
		t.Fatalf("first Compile: %v", err)
	}
	first, _ := os.ReadFile(path)

	c.Bind("extra", kEmitLogger)
	if err := compile.Compile(c, path, compile.DefaultOptions()); err != nil {
		t.Fatalf("second Compile: %v", err)
	}
	second, _ := os.ReadFile(path)

	if string(first) == string(second) {
		t.Error("re-compilation after a registry change should rewrite the file")
	}
}

func TestCompile_RefusedWhileValidationFails(t *testing.T) {
	c := container.New()
	c.Bind("svc", "compile.DoesNotExist")
	path := filepath.Join(t.TempDir(), "container.go")

	err := compile.Compile(c, path, compile.DefaultOptions())
	if err == nil {
		t.Fatal("Compile should refuse while validation fails")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("refused compilation must not write the target")
	}

	opts := compile.DefaultOptions()
	opts.Validate = false
	if err := compile.Compile(c, path, opts); err != nil {
		t.Fatalf("Compile with validation off: %v", err)
	}
}

// ── Options ───────────────────────────────────────────────────────────────────

func TestOptionsFromEnv_ReadsOverrides(t *testing.T) {
	t.Setenv("CONTAINER_COMPILE_CLASS", "FastContainer")
	t.Setenv("CONTAINER_COMPILE_PACKAGE", "fastdi")
	t.Setenv("CONTAINER_COMPILE_VALIDATE", "false")

	opts := compile.OptionsFromEnv(filepath.Join(t.TempDir(), "nonexistent.env"))
	if opts.ClassName != "FastContainer" || opts.Package != "fastdi" || opts.Validate {
		t.Errorf("OptionsFromEnv = %+v", opts)
	}
}

func TestOptionsFromEnv_EnvFileFallback(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	os.WriteFile(envFile, []byte("CONTAINER_COMPILE_PACKAGE=fromfile\n"), 0o644)

	os.Unsetenv("CONTAINER_COMPILE_PACKAGE")
	t.Cleanup(func() { os.Unsetenv("CONTAINER_COMPILE_PACKAGE") })

	opts := compile.OptionsFromEnv(envFile)
	if opts.Package != "fromfile" {
		t.Errorf("Package = %q, want fromfile", opts.Package)
	}
}
