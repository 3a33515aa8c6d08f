package container

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/km-arc/container/internal/introspect"
)

// ── Registry snapshots ────────────────────────────────────────────────────────

// BindingInfo is a read-only view of one registered binding.
type BindingInfo struct {
	Identifier string
	Concrete   string // class name, "closure", or "instance"
	Kind       string // "class" | "self" | "closure" | "instance"
	Shared     bool
	Resolved   bool
	Source     string // closure definition site, for fingerprinting
}

// GetBindings returns a sorted snapshot of every binding and standalone
// instance.
func (c *Container) GetBindings() []BindingInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]BindingInfo, 0, len(c.bindings)+len(c.instances))
	for id, b := range c.bindings {
		out = append(out, BindingInfo{
			Identifier: id,
			Concrete:   b.describe(),
			Kind:       b.kind.String(),
			Shared:     b.shared,
			Resolved:   c.resolved[id],
			Source:     b.source,
		})
	}
	for id := range c.instances {
		if _, bound := c.bindings[id]; bound {
			continue
		}
		out = append(out, BindingInfo{
			Identifier: id,
			Concrete:   "instance",
			Kind:       "instance",
			Shared:     true,
			Resolved:   true,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// Aliases returns a copy of the alias table.
func (c *Container) Aliases() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.aliases))
	for alias, target := range c.aliases {
		out[alias] = target
	}
	return out
}

// GetDependencies returns the direct dependency identifiers of an abstract,
// derived from its constructor signature.
func (c *Container) GetDependencies(abstract string) ([]string, error) {
	c.mu.RLock()
	key := c.canonical(abstract)
	b := c.bindings[key]
	c.mu.RUnlock()

	class := key
	if b != nil {
		switch b.kind {
		case bindClass, bindSelf:
			class = b.class
		default:
			return nil, nil // closures carry no static dependency info
		}
	}

	params, err := c.classes.GetConstructorParams(class)
	if err != nil {
		return nil, c.notFound(class)
	}
	var deps []string
	for _, p := range params {
		switch p.Kind {
		case introspect.ParamNamed:
			deps = append(deps, p.TypeName)
		case introspect.ParamUnion, introspect.ParamIntersection:
			deps = append(deps, p.Members...)
		}
	}
	return deps, nil
}

// ── Dumps ─────────────────────────────────────────────────────────────────────

// DumpBindings writes a human-readable registry dump, including spewed
// instances for anything already resolved.
func (c *Container) DumpBindings(w io.Writer) {
	infos := c.GetBindings()
	if len(infos) == 0 {
		fmt.Fprintln(w, "(empty container)")
		return
	}
	dumper := spew.ConfigState{Indent: "  ", MaxDepth: 2, SortKeys: true}
	for _, info := range infos {
		status := "○"
		if info.Resolved {
			status = "●"
		}
		shared := ""
		if info.Shared {
			shared = " [shared]"
		}
		fmt.Fprintf(w, "%s %s → %s%s\n", status, info.Identifier, info.Concrete, shared)

		c.mu.RLock()
		inst, ok := c.instances[info.Identifier]
		c.mu.RUnlock()
		if ok && inst != c {
			dump := dumper.Sdump(inst)
			for _, line := range strings.Split(strings.TrimRight(dump, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
}
