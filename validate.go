package container

import (
	"fmt"
	"strings"

	"github.com/km-arc/container/internal/introspect"
)

// ── Validation ────────────────────────────────────────────────────────────────

// ValidationIssue is one problem found by Validate.
type ValidationIssue struct {
	Identifier string
	Problem    string
}

func (i ValidationIssue) String() string {
	return i.Identifier + ": " + i.Problem
}

// Validate walks the registry and reports everything that would fail at
// resolution time: class bindings to unknown classes, aliases to unbound
// targets, contextual implementations with missing classes, and constructor
// parameters that no source can supply.
func (c *Container) Validate() []ValidationIssue {
	var issues []ValidationIssue

	for _, info := range c.GetBindings() {
		switch info.Kind {
		case "class", "self":
			issues = append(issues, c.validateClass(info.Identifier, info.Concrete)...)
		}
	}

	for alias, target := range c.Aliases() {
		if !c.Has(target) {
			issues = append(issues, ValidationIssue{
				Identifier: alias,
				Problem:    fmt.Sprintf("alias targets unbound identifier %s", target),
			})
		}
	}

	for _, ctx := range c.ContextualBindings() {
		switch ctx.Kind {
		case "class", "configured":
			if ctx.Class == "" || !c.Has(ctx.Class) {
				issues = append(issues, ValidationIssue{
					Identifier: ctx.Consumer,
					Problem:    fmt.Sprintf("contextual binding for %s gives unresolvable %q", ctx.Needs, ctx.Class),
				})
			}
		}
	}

	return issues
}

func (c *Container) validateClass(id, class string) []ValidationIssue {
	cls, err := c.classes.GetClass(class)
	if err != nil {
		return []ValidationIssue{{Identifier: id, Problem: fmt.Sprintf("class %s is not registered", class)}}
	}
	if !cls.Instantiable {
		return []ValidationIssue{{Identifier: id, Problem: fmt.Sprintf("class %s is not instantiable", class)}}
	}

	var issues []ValidationIssue
	for _, p := range cls.Params {
		if satisfied, why := c.paramSatisfiable(&p); !satisfied {
			issues = append(issues, ValidationIssue{
				Identifier: id,
				Problem:    fmt.Sprintf("parameter %q of %s: %s", p.Name, class, why),
			})
		}
	}
	return issues
}

func (c *Container) paramSatisfiable(p *introspect.Param) (bool, string) {
	switch p.Kind {
	case introspect.ParamNone, introspect.ParamBuiltin:
		if p.HasDefault {
			return true, ""
		}
		return false, "builtin or untyped parameter without a default"
	case introspect.ParamNamed:
		if c.Has(p.TypeName) || p.Nullable || p.HasDefault {
			return true, ""
		}
		return false, fmt.Sprintf("%s is not resolvable", p.TypeName)
	case introspect.ParamUnion:
		for _, m := range p.Members {
			if c.Has(m) {
				return true, ""
			}
		}
		if p.Nullable || p.HasDefault {
			return true, ""
		}
		return false, fmt.Sprintf("no union member of {%s} is resolvable", strings.Join(p.Members, ", "))
	case introspect.ParamIntersection:
		if p.Nullable || p.HasDefault {
			return true, ""
		}
		return false, "intersection parameter without default or nullability"
	default:
		return false, "unknown parameter kind"
	}
}
