package compile

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	container "github.com/km-arc/container"
)

// ── Source generation ─────────────────────────────────────────────────────────

// Generate renders the compiled-resolver source for a plan.
func (cp *Compiler) Generate(plan *Plan) (string, error) {
	imports := newImportSet()
	for _, cls := range plan.Classes {
		pkg, _, err := splitSymbol(cls.CtorSymbol)
		if err != nil {
			return "", &container.Error{Kind: container.KindCompilationFailed,
				Identifier: cls.Name, Message: err.Error()}
		}
		imports.add(pkg)
		for _, arg := range cls.Args {
			// Only service arguments render a type assertion; literals and
			// nils must not drag in unused imports.
			if arg.Kind == argService {
				collectTypePkgs(arg.GoType, imports)
			}
		}
	}
	imports.assign()

	var sb strings.Builder
	fmt.Fprintf(&sb, "// Code generated by github.com/km-arc/container/compile. DO NOT EDIT.\n")
	fmt.Fprintf(&sb, "//\n// Fingerprint: %s\n\n", cp.Fingerprint())
	fmt.Fprintf(&sb, "package %s\n\n", cp.opts.Package)

	sb.WriteString("import (\n")
	sb.WriteString("\tcontainer \"github.com/km-arc/container\"\n")
	for _, pkg := range imports.sorted() {
		fmt.Fprintf(&sb, "\t%s %q\n", imports.alias(pkg), pkg)
	}
	sb.WriteString(")\n\n")

	fmt.Fprintf(&sb, "const (\n")
	fmt.Fprintf(&sb, "\tGeneratedAt        = %q\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "\tFingerprint        = %q\n", cp.Fingerprint())
	fmt.Fprintf(&sb, "\tTotalBindings      = %d\n", plan.TotalBindings)
	fmt.Fprintf(&sb, "\tCompiledBindings   = %d\n", len(plan.Bindings))
	fmt.Fprintf(&sb, "\tCompiledClasses    = %d\n", len(plan.Classes))
	fmt.Fprintf(&sb, "\tCompiledAliases    = %d\n", len(plan.Aliases))
	fmt.Fprintf(&sb, "\tCompiledContextual = %d\n", len(plan.Contextual))
	sb.WriteString(")\n\n")

	cls := cp.opts.ClassName
	fmt.Fprintf(&sb, "// %s is a specialized resolver: every compiled class constructs\n", cls)
	fmt.Fprintf(&sb, "// through a generated factory, never reflection.\n")
	fmt.Fprintf(&sb, "type %s struct {\n\t*container.Container\n\tcompiled map[string]container.Factory\n}\n\n", cls)

	fmt.Fprintf(&sb, "// New pre-registers every compiled factory and binding.\n")
	fmt.Fprintf(&sb, "func New(opts ...container.Option) (*%s, error) {\n", cls)
	fmt.Fprintf(&sb, "\tbase := container.New(opts...)\n")
	fmt.Fprintf(&sb, "\tc := &%s{Container: base, compiled: make(map[string]container.Factory)}\n", cls)
	for _, pc := range plan.Classes {
		for _, pb := range plan.Bindings {
			if pb.Class == pc.Name {
				fmt.Fprintf(&sb, "\tc.compiled[%q] = %s\n", pb.Identifier+"|"+pc.Name, pc.MethodName)
			}
		}
	}
	sb.WriteString("\n")
	for _, pc := range plan.Classes {
		fmt.Fprintf(&sb, "\tif err := base.BindShared(%q, container.Factory(%s), false); err != nil {\n\t\treturn nil, err\n\t}\n",
			pc.Name, pc.MethodName)
	}
	for _, pb := range plan.Bindings {
		if pb.Identifier == pb.Class {
			if pb.Shared {
				fmt.Fprintf(&sb, "\tif err := base.BindShared(%q, container.Factory(%s), true); err != nil {\n\t\treturn nil, err\n\t}\n",
					pb.Identifier, factoryName(pb.Class))
			}
			continue
		}
		fmt.Fprintf(&sb, "\tif err := base.BindShared(%q, container.Factory(%s), %t); err != nil {\n\t\treturn nil, err\n\t}\n",
			pb.Identifier, factoryName(pb.Class), pb.Shared)
	}
	for _, alias := range plan.Aliases {
		fmt.Fprintf(&sb, "\tif err := base.Alias(%q, %q); err != nil {\n\t\treturn nil, err\n\t}\n", alias[0], alias[1])
	}
	for _, ctx := range plan.Contextual {
		switch ctx.Kind {
		case "class":
			fmt.Fprintf(&sb, "\tif err := base.When(%q).Needs(%q).Give(%q); err != nil {\n\t\treturn nil, err\n\t}\n",
				ctx.Consumer, ctx.Needs, ctx.Class)
		case "tagged":
			fmt.Fprintf(&sb, "\tif err := base.When(%q).Needs(%q).GiveTagged(%q); err != nil {\n\t\treturn nil, err\n\t}\n",
				ctx.Consumer, ctx.Needs, ctx.Tag)
		case "configured":
			fmt.Fprintf(&sb, "\tif err := base.When(%q).Needs(%q).GiveConfigured(%s); err != nil {\n\t\treturn nil, err\n\t}\n",
				ctx.Consumer, ctx.Needs, mapLiteral(ctx.Config))
		}
	}
	sb.WriteString("\treturn c, nil\n}\n\n")

	fmt.Fprintf(&sb, "// Bind substitutes the compiled factory when a runtime re-bind matches a\n")
	fmt.Fprintf(&sb, "// compiled (identifier|class) pair; anything else falls through.\n")
	fmt.Fprintf(&sb, "func (c *%s) Bind(abstract string, concrete any) error {\n", cls)
	fmt.Fprintf(&sb, "\tif class, ok := concrete.(string); ok {\n")
	fmt.Fprintf(&sb, "\t\tif f, ok := c.compiled[abstract+\"|\"+class]; ok {\n")
	fmt.Fprintf(&sb, "\t\t\treturn c.Container.BindShared(abstract, f, false)\n\t\t}\n\t}\n")
	fmt.Fprintf(&sb, "\treturn c.Container.Bind(abstract, concrete)\n}\n")

	for _, pc := range plan.Classes {
		sb.WriteString("\n")
		if err := cp.generateFactory(&sb, pc, imports); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func (cp *Compiler) generateFactory(sb *strings.Builder, pc PlannedClass, imports *importSet) error {
	pkg, fn, err := splitSymbol(pc.CtorSymbol)
	if err != nil {
		return &container.Error{Kind: container.KindCompilationFailed, Identifier: pc.Name, Message: err.Error()}
	}

	fmt.Fprintf(sb, "func %s(c *container.Container) (any, error) {\n", pc.MethodName)

	exprs := make([]string, 0, len(pc.Args))
	for i, arg := range pc.Args {
		switch arg.Kind {
		case argService:
			fmt.Fprintf(sb, "\ta%d, err := c.Get(%q)\n", i, arg.ServiceID)
			fmt.Fprintf(sb, "\tif err != nil {\n\t\treturn nil, err\n\t}\n")
			exprs = append(exprs, fmt.Sprintf("a%d.(%s)", i, typeExpr(arg.GoType, imports)))
		case argLiteral:
			exprs = append(exprs, fmt.Sprintf("%#v", arg.Literal))
		case argNil:
			exprs = append(exprs, "nil")
		}
	}

	call := fmt.Sprintf("%s.%s(%s)", imports.alias(pkg), fn, strings.Join(exprs, ", "))
	if pc.ReturnsError {
		fmt.Fprintf(sb, "\tv, err := %s\n\tif err != nil {\n\t\treturn nil, err\n\t}\n\treturn v, nil\n}\n", call)
	} else {
		fmt.Fprintf(sb, "\treturn %s, nil\n}\n", call)
	}
	return nil
}

// ── Import management ─────────────────────────────────────────────────────────

type importSet struct {
	pkgs    map[string]bool
	aliases map[string]string
}

func newImportSet() *importSet {
	return &importSet{pkgs: make(map[string]bool), aliases: make(map[string]string)}
}

func (s *importSet) add(pkg string) {
	if pkg != "" {
		s.pkgs[pkg] = true
	}
}

// assign gives every package a deterministic alias.
func (s *importSet) assign() {
	used := make(map[string]bool)
	for _, pkg := range s.sorted() {
		base := sanitizeIdent(filepath.Base(pkg))
		alias := base
		for n := 2; used[alias]; n++ {
			alias = fmt.Sprintf("%s%d", base, n)
		}
		used[alias] = true
		s.aliases[pkg] = alias
	}
}

func (s *importSet) alias(pkg string) string { return s.aliases[pkg] }

func (s *importSet) sorted() []string {
	out := make([]string, 0, len(s.pkgs))
	for pkg := range s.pkgs {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}

func collectTypePkgs(t reflect.Type, imports *importSet) {
	if t == nil {
		return
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Chan:
		collectTypePkgs(t.Elem(), imports)
	case reflect.Map:
		collectTypePkgs(t.Key(), imports)
		collectTypePkgs(t.Elem(), imports)
	default:
		imports.add(t.PkgPath())
	}
}

// typeExpr renders a Go type expression using the import aliases.
func typeExpr(t reflect.Type, imports *importSet) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + typeExpr(t.Elem(), imports)
	case reflect.Slice:
		return "[]" + typeExpr(t.Elem(), imports)
	case reflect.Map:
		return "map[" + typeExpr(t.Key(), imports) + "]" + typeExpr(t.Elem(), imports)
	default:
		if t.PkgPath() != "" {
			return imports.alias(t.PkgPath()) + "." + t.Name()
		}
		return t.String()
	}
}

// splitSymbol splits a runtime symbol like "example.com/app.NewService"
// into package path and function name.
func splitSymbol(symbol string) (pkg, fn string, err error) {
	slash := strings.LastIndex(symbol, "/")
	dot := strings.Index(symbol[slash+1:], ".")
	if dot < 0 {
		return "", "", fmt.Errorf("constructor symbol %q has no package", symbol)
	}
	dot += slash + 1
	pkg, fn = symbol[:dot], symbol[dot+1:]
	if strings.Contains(fn, ".") {
		return "", "", fmt.Errorf("constructor symbol %q is not a top-level function", symbol)
	}
	return pkg, fn, nil
}

func mapLiteral(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%q: %#v", k, m[k]))
	}
	return "map[string]any{" + strings.Join(parts, ", ") + "}"
}

// ── Emission ──────────────────────────────────────────────────────────────────

// Emit plans, generates, and atomically writes the compiled resolver to
// path. On any failure the final path is unchanged.
func (cp *Compiler) Emit(path string) error {
	if cp.opts.Validate {
		if issues := cp.c.Validate(); len(issues) > 0 {
			msgs := make([]string, 0, len(issues))
			for _, issue := range issues {
				msgs = append(msgs, issue.String())
			}
			return &container.Error{Kind: container.KindInvalidUsage,
				Message: "compile refused while validation fails: " + strings.Join(msgs, "; ")}
		}
	}

	plan, err := cp.Plan()
	if err != nil {
		return &container.Error{Kind: container.KindCompilationFailed, Message: err.Error()}
	}
	src, err := cp.Generate(plan)
	if err != nil {
		return err
	}
	return writeAtomic(path, []byte(src))
}

// writeAtomic writes data to path with advisory locking and a rename from a
// uniquely named temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &container.Error{Kind: container.KindCompilationFailed, Message: err.Error()}
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return &container.Error{Kind: container.KindCompilationFailed, Message: "lock: " + err.Error()}
	}
	defer func() { _ = lock.Unlock() }()

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return &container.Error{Kind: container.KindCompilationFailed, Message: "write: " + err.Error()}
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return &container.Error{Kind: container.KindCompilationFailed, Message: "chmod: " + err.Error()}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &container.Error{Kind: container.KindCompilationFailed, Message: "rename: " + err.Error()}
	}
	return nil
}

// ── Package-level facade ──────────────────────────────────────────────────────

// Compile analyzes c's registry and writes the compiled resolver to path.
//
//	err := compile.Compile(c, "internal/compiled/container.go", compile.DefaultOptions())
func Compile(c *container.Container, path string, opts Options) error {
	return New(c, opts).Emit(path)
}

// Fingerprint returns the compilation fingerprint of c's current registry
// under opts.
func Fingerprint(c *container.Container, opts Options) string {
	return New(c, opts).Fingerprint()
}
