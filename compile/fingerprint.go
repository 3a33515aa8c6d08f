package compile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	container "github.com/km-arc/container"
)

// ── Fingerprinting ────────────────────────────────────────────────────────────

// Fingerprint computes a SHA-256 digest over the normalized compiler
// inputs: sorted bindings (sharing flag and normalized concrete — closures
// reduced to their definition site), sorted aliases, sorted contextual
// bindings, and the fingerprint-relevant options. Two semantically equal
// registries yield the same fingerprint.
func (cp *Compiler) Fingerprint() string {
	var lines []string

	lines = append(lines,
		"option|class|"+cp.opts.ClassName,
		"option|package|"+cp.opts.Package,
	)

	for _, info := range cp.c.GetBindings() {
		concrete := info.Concrete
		if info.Kind == "closure" {
			concrete = info.Source
		}
		lines = append(lines, fmt.Sprintf("binding|%s|%s|%s|%t",
			info.Identifier, info.Kind, concrete, info.Shared))
	}

	for alias, target := range cp.c.Aliases() {
		lines = append(lines, "alias|"+alias+"|"+target)
	}

	for _, ctx := range cp.c.ContextualBindings() {
		lines = append(lines, fmt.Sprintf("contextual|%s|%s|%s|%s",
			ctx.Consumer, ctx.Needs, ctx.Kind, contextualPayload(ctx)))
	}

	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func contextualPayload(ctx container.ContextualInfo) string {
	switch ctx.Kind {
	case "class":
		return ctx.Class
	case "tagged":
		return ctx.Tag
	case "configured":
		keys := make([]string, 0, len(ctx.Config))
		for k := range ctx.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, ctx.Config[k]))
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}
