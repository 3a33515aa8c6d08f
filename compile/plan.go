package compile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strings"

	container "github.com/km-arc/container"
	"github.com/km-arc/container/internal/introspect"
)

// ── Plan model ────────────────────────────────────────────────────────────────

type argKind int

const (
	argService argKind = iota
	argLiteral
	argNil
)

// PlannedArg is one constructor argument of a compiled factory.
type PlannedArg struct {
	Kind      argKind
	ServiceID string       // for argService
	Literal   any          // for argLiteral
	GoType    reflect.Type // the parameter's declared type
}

// PlannedClass is one generated factory method.
type PlannedClass struct {
	Name         string // canonical class name
	MethodName   string // deterministic factory function name
	CtorSymbol   string // full symbol, e.g. "example.com/app.NewService"
	ReturnsError bool
	Args         []PlannedArg
}

// PlannedBinding is one pre-registered binding of the generated resolver.
type PlannedBinding struct {
	Identifier string
	Class      string
	Shared     bool
}

// Skipped records a binding the compiler refused, with the reason.
type Skipped struct {
	Identifier string
	Reason     string
}

// Plan is the full compilation plan for a registry.
type Plan struct {
	Bindings      []PlannedBinding
	Classes       []PlannedClass
	Aliases       [][2]string
	Contextual    []container.ContextualInfo
	Skipped       []Skipped
	TotalBindings int
}

// ── Compiler ──────────────────────────────────────────────────────────────────

// Compiler analyzes a container's registry and emits a specialized resolver
// that constructs every compilable binding without reflection.
type Compiler struct {
	c    *container.Container
	opts Options
}

// New creates a compiler over a container.
func New(c *container.Container, opts Options) *Compiler {
	if opts.ClassName == "" {
		opts.ClassName = DefaultOptions().ClassName
	}
	if opts.Package == "" {
		opts.Package = DefaultOptions().Package
	}
	return &Compiler{c: c, opts: opts}
}

// Plan walks the registry depth-first and decides, binding by binding, what
// can be compiled. A refused binding never aborts the rest.
func (cp *Compiler) Plan() (*Plan, error) {
	plan := &Plan{}
	classes := make(map[string]*PlannedClass)
	consumers := contextualConsumers(cp.c)

	bindings := cp.c.GetBindings()
	plan.TotalBindings = len(bindings)

	for _, info := range bindings {
		if info.Kind == "instance" {
			plan.Skipped = append(plan.Skipped, Skipped{info.Identifier, "pre-built instance"})
			continue
		}
		if reason := cp.refuse(info, consumers); reason != "" {
			plan.Skipped = append(plan.Skipped, Skipped{info.Identifier, reason})
			continue
		}

		visiting := make(map[string]bool)
		if err := cp.planClass(info.Concrete, classes, visiting, consumers); err != nil {
			plan.Skipped = append(plan.Skipped, Skipped{info.Identifier, err.Error()})
			continue
		}
		plan.Bindings = append(plan.Bindings, PlannedBinding{
			Identifier: info.Identifier,
			Class:      info.Concrete,
			Shared:     info.Shared,
		})
	}

	for _, cls := range classes {
		plan.Classes = append(plan.Classes, *cls)
	}
	sort.Slice(plan.Classes, func(i, j int) bool { return plan.Classes[i].Name < plan.Classes[j].Name })
	sort.Slice(plan.Bindings, func(i, j int) bool { return plan.Bindings[i].Identifier < plan.Bindings[j].Identifier })

	for alias, target := range cp.c.Aliases() {
		plan.Aliases = append(plan.Aliases, [2]string{alias, target})
	}
	sort.Slice(plan.Aliases, func(i, j int) bool { return plan.Aliases[i][0] < plan.Aliases[j][0] })

	for _, ctx := range cp.c.ContextualBindings() {
		switch ctx.Kind {
		case "class", "tagged", "configured":
			plan.Contextual = append(plan.Contextual, ctx)
		}
	}
	return plan, nil
}

// refuse applies the compilable-binding predicate that does not require
// walking the constructor graph.
func (cp *Compiler) refuse(info container.BindingInfo, consumers map[string]bool) string {
	if info.Kind == "closure" {
		return "closure concrete with indeterminate class"
	}
	if cp.c.HasDecorators(info.Identifier) {
		return "identifier carries decorators or middleware"
	}
	if len(cp.c.TagsOf(info.Identifier)) > 0 {
		return "identifier is tagged"
	}
	if consumers[info.Concrete] {
		return "concrete class has contextual overrides"
	}
	return ""
}

// planClass schedules a factory method for class and, recursively, for each
// of its service dependencies. Cycles abort this class only.
func (cp *Compiler) planClass(class string, classes map[string]*PlannedClass, visiting map[string]bool, consumers map[string]bool) error {
	if _, done := classes[class]; done {
		return nil
	}
	if visiting[class] {
		return fmt.Errorf("dependency cycle through %s", class)
	}
	visiting[class] = true
	defer delete(visiting, class)

	if consumers[class] {
		return fmt.Errorf("%s has contextual overrides", class)
	}

	reg := cp.c.Introspector()
	cls, err := reg.GetClass(class)
	if err != nil {
		return fmt.Errorf("class %s is not registered", class)
	}
	if !cls.Instantiable {
		return fmt.Errorf("class %s is not instantiable", class)
	}
	if cls.CtorName == "" {
		return fmt.Errorf("constructor of %s has no stable symbol", class)
	}

	planned := &PlannedClass{
		Name:         class,
		MethodName:   factoryName(class),
		CtorSymbol:   cls.CtorName,
		ReturnsError: cls.ReturnsError,
	}

	for i := range cls.Params {
		p := &cls.Params[i]
		arg, depClass, err := cp.planParam(p)
		if err != nil {
			return fmt.Errorf("parameter %q of %s: %w", p.Name, class, err)
		}
		if depClass != "" {
			if err := cp.planClass(depClass, classes, visiting, consumers); err != nil {
				return err
			}
		}
		planned.Args = append(planned.Args, arg)
	}

	classes[class] = planned
	return nil
}

// planParam maps one parameter to a static argument. The returned depClass,
// when non-empty, is a further class to schedule.
func (cp *Compiler) planParam(p *introspect.Param) (PlannedArg, string, error) {
	switch p.Kind {
	case introspect.ParamNamed:
		// Prefer the binding's class; fall back to the declared class.
		if target, ok := cp.staticClassFor(p.TypeName); ok {
			return PlannedArg{Kind: argService, ServiceID: p.TypeName, GoType: p.GoType}, target, nil
		}
		if p.Nullable {
			return PlannedArg{Kind: argNil, GoType: p.GoType}, "", nil
		}
		if p.HasDefault {
			return cp.literalArg(p)
		}
		return PlannedArg{}, "", fmt.Errorf("service %s is not statically resolvable", p.TypeName)

	case introspect.ParamNone, introspect.ParamBuiltin:
		if p.HasDefault {
			return cp.literalArg(p)
		}
		return PlannedArg{}, "", fmt.Errorf("builtin without a default")

	case introspect.ParamUnion, introspect.ParamIntersection:
		if p.HasDefault {
			return cp.literalArg(p)
		}
		if p.Nullable {
			return PlannedArg{Kind: argNil, GoType: p.GoType}, "", nil
		}
		return PlannedArg{}, "", fmt.Errorf("union/intersection without default or nullability")

	default:
		return PlannedArg{}, "", fmt.Errorf("unknown parameter kind")
	}
}

func (cp *Compiler) literalArg(p *introspect.Param) (PlannedArg, string, error) {
	if !emitableLiteral(p.Default) {
		return PlannedArg{}, "", fmt.Errorf("default value %T cannot be emitted as a literal", p.Default)
	}
	return PlannedArg{Kind: argLiteral, Literal: p.Default, GoType: p.GoType}, "", nil
}

// staticClassFor determines the concrete class Get(id) would construct,
// refusing when it is indeterminate (closures, instances, mocks).
func (cp *Compiler) staticClassFor(id string) (string, bool) {
	for _, info := range cp.c.GetBindings() {
		if info.Identifier != id {
			continue
		}
		if info.Kind == "class" || info.Kind == "self" {
			return info.Concrete, true
		}
		return "", false
	}
	if cp.c.Introspector().IsInstantiable(id) {
		return id, true
	}
	return "", false
}

func emitableLiteral(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

func contextualConsumers(c *container.Container) map[string]bool {
	consumers := make(map[string]bool)
	for _, ctx := range c.ContextualBindings() {
		consumers[ctx.Consumer] = true
	}
	return consumers
}

// factoryName derives the deterministic method name for a class.
func factoryName(class string) string {
	sum := sha256.Sum256([]byte(class))
	return "factory_" + hex.EncodeToString(sum[:])[:10]
}

// sanitizeIdent is used for import aliases.
func sanitizeIdent(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
