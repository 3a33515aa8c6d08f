package container

import (
	"reflect"

	"github.com/km-arc/container/internal/introspect"
)

// ── Method / function injection ───────────────────────────────────────────────

// Call invokes a function, resolving its parameters from the container.
// params overrides resolution per parameter, keyed by the parameter's
// canonical type key; builtin parameters must be overridden.
//
//	// Laravel: $app->call([$report, 'generate'], ['format' => 'csv'])
//	out, err := c.Call(generateReport, map[string]any{"string": "csv"})
func (c *Container) Call(callable any, params map[string]any) ([]any, error) {
	fn := reflect.ValueOf(callable)
	if fn.Kind() != reflect.Func {
		return nil, errInvalidUsage("Call: %T is not callable", callable)
	}
	t := fn.Type()
	if t.IsVariadic() {
		return nil, errInvalidUsage("Call: variadic callables are not supported")
	}
	args := make([]reflect.Value, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		v, err := c.callArg(t.In(i), params)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return callResults(fn.Call(args))
}

// CallStatic resolves class from the container and invokes method on it,
// injecting the method's parameters the same way Call does.
//
//	// Laravel: $app->call('ReportService@generate')
//	out, err := c.CallStatic("app.ReportService", "Generate", nil)
func (c *Container) CallStatic(class, method string, params map[string]any) ([]any, error) {
	// Warm and consult the method cache before constructing anything.
	if _, err := c.classes.GetMethodParams(class, method); err != nil {
		return nil, errNotFound(class, "method %s: %v", method, err)
	}
	instance, err := c.Get(class)
	if err != nil {
		return nil, err
	}
	fn := reflect.ValueOf(instance).MethodByName(method)
	if !fn.IsValid() {
		return nil, errNotFound(class, "method %s not found on %T", method, instance)
	}
	t := fn.Type()
	args := make([]reflect.Value, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		v, err := c.callArg(t.In(i), params)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return callResults(fn.Call(args))
}

func (c *Container) callArg(t reflect.Type, params map[string]any) (reflect.Value, error) {
	key := introspect.KeyForType(t)
	if override, ok := params[key]; ok {
		return adaptArg(t, override)
	}
	p := introspect.Param{Kind: introspect.ParamNamed, TypeName: key, GoType: t, Nullable: introspect.Nilable(t)}
	if introspect.Builtin(t) {
		return reflect.Value{}, errUnresolvable(key,
			"builtin parameter %s needs an explicit override", t)
	}
	return c.resolveParam("call", &p)
}

func adaptArg(t reflect.Type, v any) (reflect.Value, error) {
	if v == nil {
		if !introspect.Nilable(t) {
			return reflect.Value{}, errTypeMismatch(t.String(), "nil override for non-nilable parameter")
		}
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, errTypeMismatch(t.String(), "override %T does not fit %s", v, t)
}

// callResults unpacks reflect call output, treating a trailing error value
// as the call's error.
func callResults(out []reflect.Value) ([]any, error) {
	results := make([]any, 0, len(out))
	for _, v := range out {
		results = append(results, v.Interface())
	}
	if n := len(out); n > 0 {
		if errVal, ok := out[n-1].Interface().(error); ok {
			return results[:n-1], errVal
		}
		if out[n-1].Type() == errType && out[n-1].IsNil() {
			return results[:n-1], nil
		}
	}
	return results, nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()
