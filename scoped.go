package container

// ── Scoped bindings ───────────────────────────────────────────────────────────

// scopeFrame snapshots the state of every identifier a scope touches so the
// exact prior registry can be restored.
type scopeFrame struct {
	bindings  map[string]*binding // nil value: was not bound
	instances map[string]any
	hadInst   map[string]bool
	aliases   map[string]string // aliases targeting touched identifiers
}

// Scoped applies temporary bindings, invokes cb, and restores the previous
// registry on every exit path — normal return, error, or panic.
//
// Each value in bindings is applied by type: a Factory or class-name string
// becomes a transient Bind, nil and scalar values (bool and numeric kinds)
// fail with InvalidBinding, and any other value becomes an Instance.
//
//	// Laravel has no direct equivalent; closest is Container::rebinding
//	// combined with test-time swap() helpers.
//	err := c.Scoped(map[string]any{"clock": fakeClock}, func(c *container.Container) error {
//	    return runWithFrozenTime(c)
//	})
func (c *Container) Scoped(bindings map[string]any, cb func(c *Container) error) error {
	frame := c.pushScope(bindings)

	if err := c.applyScoped(bindings); err != nil {
		c.popScope(frame)
		return err
	}

	// The frame must unwind on panic as well as on return.
	defer c.popScope(frame)

	return cb(c)
}

func (c *Container) pushScope(bindings map[string]any) *scopeFrame {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := &scopeFrame{
		bindings:  make(map[string]*binding, len(bindings)),
		instances: make(map[string]any, len(bindings)),
		hadInst:   make(map[string]bool, len(bindings)),
		aliases:   make(map[string]string),
	}
	for id := range bindings {
		key := c.canonical(id)
		frame.bindings[key] = c.bindings[key]
		if inst, ok := c.instances[key]; ok {
			frame.instances[key] = inst
			frame.hadInst[key] = true
		}
		// Re-binding inside the scope drops aliases pointing at key;
		// remember them so restoration is exact.
		for alias, target := range c.aliases {
			if target == key {
				frame.aliases[alias] = target
			}
		}
	}
	c.scopes = append(c.scopes, frame)
	return frame
}

func (c *Container) applyScoped(bindings map[string]any) error {
	for id, payload := range bindings {
		switch v := payload.(type) {
		case nil:
			return errInvalidBinding(id, "scoped binding payload is nil")
		case Factory:
			if err := c.Bind(id, v); err != nil {
				return err
			}
		case func(*Container) (any, error):
			if err := c.Bind(id, v); err != nil {
				return err
			}
		case string:
			if err := c.Bind(id, v); err != nil {
				return err
			}
		case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, complex64, complex128:
			return errInvalidBinding(id, "scalar %T is not a valid scoped binding", v)
		default:
			if err := c.Instance(id, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// popScope restores the snapshot: bindings present before are reapplied,
// bindings added only in this scope are removed, and instance-cache entries
// created during the scope for those identifiers are dropped.
func (c *Container) popScope(frame *scopeFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.scopes) - 1; i >= 0; i-- {
		if c.scopes[i] == frame {
			c.scopes = append(c.scopes[:i], c.scopes[i+1:]...)
			break
		}
	}

	for key, prior := range frame.bindings {
		if prior != nil {
			c.bindings[key] = prior
		} else {
			delete(c.bindings, key)
		}
		if frame.hadInst[key] {
			c.instances[key] = frame.instances[key]
		} else {
			delete(c.instances, key)
		}
	}
	for alias, target := range frame.aliases {
		c.aliases[alias] = target
	}
}
