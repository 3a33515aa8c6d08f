package container_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	container "github.com/km-arc/container"
)

// ── Mocks ─────────────────────────────────────────────────────────────────────

func TestMock_ShortCircuitsResolution(t *testing.T) {
	c := container.New()
	c.Bind("cache", NewMemCache)

	fake := &RedisCache{}
	c.Mock("cache", fake)

	v, err := c.Get("cache")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != any(fake) {
		t.Error("mock should be returned before any other source")
	}

	c.Unmock("cache")
	v, _ = c.Get("cache")
	if _, ok := v.(*MemCache); !ok {
		t.Errorf("after Unmock: got %T, want *MemCache", v)
	}
}

func TestMock_RecordedInHistory(t *testing.T) {
	c := container.New()
	c.Mock("cache", &MemCache{})
	c.Get("cache")

	history := c.ResolutionHistory()
	if len(history) != 1 || !history[0].Mocked {
		t.Errorf("history = %+v, want one mocked record", history)
	}
}

// ── Spies ─────────────────────────────────────────────────────────────────────

func TestSpy_ObservesEveryResolution(t *testing.T) {
	c := container.New()
	c.Bind("cache", NewMemCache)

	var seen []any
	c.Spy("cache", func(instance any) { seen = append(seen, instance) })

	c.Get("cache")
	c.Get("cache")

	if len(seen) != 2 {
		t.Errorf("spy observed %d resolutions, want 2", len(seen))
	}
}

// ── History & metrics ─────────────────────────────────────────────────────────

func TestResolutionHistory_RecordsFailures(t *testing.T) {
	c := container.New()
	c.Bind("doomed", failFactory("nope"))
	c.Get("doomed")

	history := c.ResolutionHistory()
	if len(history) != 1 || !history[0].Failed {
		t.Errorf("history = %+v, want one failed record", history)
	}
}

func TestGetPerformanceMetrics_CountsPerIdentifier(t *testing.T) {
	c := container.New()
	c.Bind("cache", NewMemCache)
	c.Bind("doomed", failFactory("nope"))

	c.Get("cache")
	c.Get("cache")
	c.Get("doomed")

	report := c.GetPerformanceMetrics()
	if report.TotalResolutions != 3 {
		t.Errorf("TotalResolutions = %d, want 3", report.TotalResolutions)
	}
	if report.PerIdentifier["cache"].Resolutions != 2 {
		t.Errorf("cache resolutions = %d, want 2", report.PerIdentifier["cache"].Resolutions)
	}
	if report.PerIdentifier["doomed"].Failures != 1 {
		t.Errorf("doomed failures = %d, want 1", report.PerIdentifier["doomed"].Failures)
	}
}

// ── Lazy proxy ────────────────────────────────────────────────────────────────

func TestLazy_ResolvesOnFirstGetInstance(t *testing.T) {
	c := container.New()
	built := 0
	c.Bind("heavy", newFactory(func() any { built++; return built }))

	proxy := c.Lazy("heavy")
	if proxy.IsResolved() {
		t.Error("proxy should not resolve eagerly")
	}
	if proxy.GetAbstract() != "heavy" {
		t.Errorf("GetAbstract = %q", proxy.GetAbstract())
	}
	if built != 0 {
		t.Error("construction should be deferred")
	}

	a, err := proxy.GetInstance()
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	b, _ := proxy.GetInstance()
	if a != b || built != 1 {
		t.Error("subsequent GetInstance calls must return the cached instance")
	}
	if !proxy.IsResolved() {
		t.Error("IsResolved should be true after GetInstance")
	}
}

func TestLazy_ResolutionErrorSurfaces(t *testing.T) {
	c := container.New()
	proxy := c.Lazy("missing")

	_, err := proxy.GetInstance()
	if !errors.Is(err, container.ErrNotFound) {
		t.Errorf("GetInstance: got %v, want NotFound", err)
	}
	if proxy.IsResolved() {
		t.Error("a failed resolution must not mark the proxy resolved")
	}
}

// ── Call / CallStatic ─────────────────────────────────────────────────────────

func TestCall_InjectsServicesAndOverrides(t *testing.T) {
	c := container.New()
	c.Bind(kLogger, NewConsoleLogger)

	out, err := c.Call(func(l *ConsoleLogger, prefix string) string {
		return prefix + "-ok"
	}, map[string]any{"string": "report"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(out) != 1 || out[0] != "report-ok" {
		t.Errorf("Call: got %v, want [report-ok]", out)
	}
}

func TestCall_BuiltinWithoutOverride_Unresolvable(t *testing.T) {
	c := container.New()
	_, err := c.Call(func(n int) int { return n }, nil)
	if !errors.Is(err, container.ErrUnresolvable) {
		t.Errorf("Call: got %v, want Unresolvable", err)
	}
}

func TestCall_TrailingErrorReturn(t *testing.T) {
	c := container.New()
	boom := errors.New("boom")
	_, err := c.Call(func() (string, error) { return "", boom }, nil)
	if !errors.Is(err, boom) {
		t.Errorf("Call: got %v, want trailing error", err)
	}
}

type ReportService struct{}

func NewReportService() *ReportService { return &ReportService{} }

func (s *ReportService) Generate(prefix string) string { return prefix + "!" }

func TestCallStatic_ResolvesReceiverAndInjects(t *testing.T) {
	c := container.New()
	kReportSvc := container.TypeKey[*ReportService]()
	c.Bind(kReportSvc, NewReportService)

	out, err := c.CallStatic(kReportSvc, "Generate", map[string]any{"string": "cpu"})
	if err != nil {
		t.Fatalf("CallStatic: %v", err)
	}
	if len(out) != 1 || out[0] != "cpu!" {
		t.Errorf("CallStatic: got %v, want [cpu!]", out)
	}
}

func TestCallStatic_UnknownMethod_NotFound(t *testing.T) {
	c := container.New()
	kReportSvc := container.TypeKey[*ReportService]()
	c.Bind(kReportSvc, NewReportService)

	_, err := c.CallStatic(kReportSvc, "Missing", nil)
	if !errors.Is(err, container.ErrNotFound) {
		t.Errorf("CallStatic: got %v, want NotFound", err)
	}
}

// ── Debug surface ─────────────────────────────────────────────────────────────

func TestGetBindings_SortedSnapshot(t *testing.T) {
	c := container.New()
	c.Singleton("b.cache", NewMemCache)
	c.Bind("a.logger", NewConsoleLogger)

	infos := c.GetBindings()
	var ids []string
	for _, info := range infos {
		ids = append(ids, info.Identifier)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] > ids[i] {
			t.Fatalf("GetBindings not sorted: %v", ids)
		}
	}
}

func TestGetDependencies_FromConstructorSignature(t *testing.T) {
	c := container.New()
	c.Bind(kService, NewService)

	deps, err := c.GetDependencies(kService)
	if err != nil {
		t.Fatalf("GetDependencies: %v", err)
	}
	if len(deps) != 1 || deps[0] != kLogger {
		t.Errorf("GetDependencies: got %v, want [%s]", deps, kLogger)
	}
}

func TestDumpBindings_RendersRegistry(t *testing.T) {
	c := container.New()
	c.Singleton("cache", NewMemCache)
	c.Get("cache")

	var buf bytes.Buffer
	c.DumpBindings(&buf)
	out := buf.String()
	if !strings.Contains(out, "cache") || !strings.Contains(out, "[shared]") {
		t.Errorf("DumpBindings output:\n%s", out)
	}
}

// ── Validate ──────────────────────────────────────────────────────────────────

func TestValidate_CleanRegistry(t *testing.T) {
	c := container.New()
	c.Bind(kLogger, NewConsoleLogger)
	c.Bind(kService, NewService)

	if issues := c.Validate(); len(issues) != 0 {
		t.Errorf("Validate: %v, want none", issues)
	}
}

func TestValidate_ReportsUnknownClassBinding(t *testing.T) {
	c := container.New()
	c.Bind("svc", "test.DoesNotExist")

	issues := c.Validate()
	if len(issues) == 0 {
		t.Fatal("Validate should flag a binding to an unregistered class")
	}
}

func TestValidate_ReportsUnsatisfiableParameter(t *testing.T) {
	c := container.New()
	c.RegisterClass("test.pricedItem", newPricedItem)
	c.Bind("item", "test.pricedItem")

	issues := c.Validate()
	if len(issues) == 0 {
		t.Fatal("Validate should flag builtin parameters without defaults")
	}
}
