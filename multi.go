package container

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ── Multi-bindings ────────────────────────────────────────────────────────────

// multiBinding is one registered implementation for a multi-resolved
// abstract. Higher priority resolves first; insertion order breaks ties.
type multiBinding struct {
	id       string // identifier used for deduplication
	factory  Factory
	priority int
	seq      int
}

// BindMany registers an additional implementation for an abstract, used by
// ResolveAll. concrete takes the same forms as Bind, except that nil is
// rejected with InvalidBinding.
func (c *Container) BindMany(abstract string, concrete any, priority int) error {
	var id string
	var factory Factory

	switch v := concrete.(type) {
	case nil:
		return errInvalidBinding(abstract, "multi-binding needs a concrete")
	case string:
		id = v
		factory = c.classFactory(v)
	case Factory:
		factory = v
	case func(*Container) (any, error):
		factory = v
	default:
		rv := reflect.ValueOf(concrete)
		if rv.Kind() != reflect.Func || rv.Type().NumOut() == 0 {
			return errInvalidBinding(abstract, "unsupported concrete %T", concrete)
		}
		cls, err := c.classes.Register(classKeyForAny(concrete), concrete)
		if err != nil {
			return errInvalidBinding(abstract, "%v", err)
		}
		id = cls.Name
		factory = c.classFactory(cls.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if id == "" {
		// Closures have no class identity; give them a unique slot so
		// deduplication never folds two different factories together.
		id = abstract + "#closure-" + strconv.Itoa(c.seq)
	}
	c.multi[abstract] = append(c.multi[abstract], &multiBinding{
		id:       id,
		factory:  factory,
		priority: priority,
		seq:      c.seq,
	})
	return nil
}

// ── ResolveAll ────────────────────────────────────────────────────────────────

// ResolveAll resolves every known implementation of an abstract:
//
//  1. explicit multi-bindings, by descending priority (insertion order on
//     ties),
//  2. declared concrete classes satisfying the abstract, when the abstract
//     is a declared interface and auto-discovery is enabled,
//  3. services tagged with the abstract,
//
// deduplicated by identifier in that order. Partial failures are skipped
// and logged; when nothing resolves, every inner failure is aggregated.
func (c *Container) ResolveAll(abstract string) ([]any, error) {
	type candidate struct {
		id      string
		factory Factory
	}

	c.mu.RLock()
	explicit := append([]*multiBinding(nil), c.multi[abstract]...)
	autoDiscovery := c.autoDiscovery
	c.mu.RUnlock()

	sort.SliceStable(explicit, func(i, j int) bool {
		if explicit[i].priority != explicit[j].priority {
			return explicit[i].priority > explicit[j].priority
		}
		return explicit[i].seq < explicit[j].seq
	})

	var candidates []candidate
	seen := make(map[string]bool)
	add := func(id string, factory Factory) {
		if seen[id] {
			return
		}
		seen[id] = true
		candidates = append(candidates, candidate{id: id, factory: factory})
	}

	for _, mb := range explicit {
		add(mb.id, mb.factory)
	}

	if autoDiscovery {
		if cls, err := c.classes.GetClass(abstract); err == nil && cls.Interface() {
			for _, name := range c.classes.Implementors(cls.Type) {
				if c.Has(name) {
					add(name, nil)
				}
			}
		}
	}

	for _, id := range c.TaggedIdentifiers(abstract) {
		add(id, nil)
	}

	if len(candidates) == 0 {
		return nil, errNotFound(abstract, "no implementations registered or discovered")
	}

	results := make([]any, 0, len(candidates))
	var failures []string
	for _, cand := range candidates {
		var instance any
		var err error
		if cand.factory != nil {
			instance, err = cand.factory(c)
		} else {
			instance, err = c.Get(cand.id)
		}
		if err != nil {
			failures = append(failures, cand.id+": "+err.Error())
			c.logger.Warn("multi-resolution skipped",
				zap.String("abstract", abstract),
				zap.String("identifier", cand.id),
				zap.Error(err))
			continue
		}
		results = append(results, instance)
	}

	if len(results) == 0 {
		return nil, &Error{
			Kind:       KindResolutionFailed,
			Identifier: abstract,
			Message:    "every implementation failed: " + strings.Join(failures, "; "),
		}
	}
	return results, nil
}

func classKeyForAny(ctor any) string {
	return classKeyForCtor(reflect.ValueOf(ctor))
}
