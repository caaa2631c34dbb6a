package resultmap

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// VariadicArity marks an instantiator that accepts any number of arguments.
const VariadicArity = -1

// Instantiator creates a constructor result from its ordered arguments.
type Instantiator struct {
	Arity int
	New   func(args []any) (any, error)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// FuncInstantiator adapts a Go function such as func(id int32, name string) Summary or
// func(...) (Summary, error). Arguments are assigned or converted to the parameter types;
// nil becomes the zero value.
func FuncInstantiator(fn any) (Instantiator, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return Instantiator{}, NewInvalidArgumentError(fmt.Sprintf("instantiator must be a function, got %T", fn))
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return Instantiator{}, NewInvalidArgumentError("variadic functions are not supported as instantiators")
	}
	switch {
	case ft.NumOut() == 1 && !ft.Out(0).Implements(errorType):
	case ft.NumOut() == 2 && ft.Out(1).Implements(errorType):
	default:
		return Instantiator{}, NewInvalidArgumentError("instantiator must return (T) or (T, error)")
	}

	arity := ft.NumIn()
	return Instantiator{
		Arity: arity,
		New: func(args []any) (any, error) {
			if len(args) != arity {
				return nil, fmt.Errorf("expected %d arguments, got %d", arity, len(args))
			}
			in := make([]reflect.Value, arity)
			for i, arg := range args {
				v, err := convertArgument(arg, ft.In(i))
				if err != nil {
					return nil, fmt.Errorf("argument %d: %w", i, err)
				}
				in[i] = v
			}
			out := fv.Call(in)
			if len(out) == 2 && !out[1].IsNil() {
				return nil, out[1].Interface().(error)
			}
			return out[0].Interface(), nil
		},
	}, nil
}

func convertArgument(arg any, target reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(target), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(target) {
		return v, nil
	}
	if target.Kind() == reflect.Ptr && v.Type().AssignableTo(target.Elem()) {
		p := reflect.New(target.Elem())
		p.Elem().Set(v)
		return p, nil
	}
	// int -> string conversion would produce a rune, not digits
	if v.Type().ConvertibleTo(target) && (v.Kind() == reflect.String) == (target.Kind() == reflect.String) {
		return v.Convert(target), nil
	}
	if target.Kind() == reflect.String && v.Kind() == reflect.Slice && v.Type().ConvertibleTo(target) {
		return v.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), target)
}

// InstantiatorRegistry holds the instantiators constructor mementos refer to by target type.
type InstantiatorRegistry struct {
	mu       sync.RWMutex
	entries  map[string]Instantiator
	fallback func(targetType string) (Instantiator, bool)
}

func NewInstantiatorRegistry() *InstantiatorRegistry {
	return &InstantiatorRegistry{entries: make(map[string]Instantiator)}
}

// Register adds an instantiator. A target type may only be registered once.
func (r *InstantiatorRegistry) Register(targetType string, inst Instantiator) error {
	if targetType == "" {
		return NewInvalidArgumentError("instantiator target type must not be empty")
	}
	if inst.New == nil {
		return NewInvalidArgumentError("instantiator function must not be nil").WithDetail("targetType", targetType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[targetType]; exists {
		return NewDuplicateNameError("instantiator", targetType)
	}
	r.entries[targetType] = inst
	return nil
}

// RegisterFunc registers a Go function through FuncInstantiator.
func (r *InstantiatorRegistry) RegisterFunc(targetType string, fn any) error {
	inst, err := FuncInstantiator(fn)
	if err != nil {
		return err
	}
	return r.Register(targetType, inst)
}

// SetFallback installs a lookup consulted for target types that were never registered.
func (r *InstantiatorRegistry) SetFallback(fn func(targetType string) (Instantiator, bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = fn
}

func (r *InstantiatorRegistry) Lookup(targetType string) (Instantiator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if inst, ok := r.entries[targetType]; ok {
		return inst, true
	}
	if r.fallback != nil {
		return r.fallback(targetType)
	}
	return Instantiator{}, false
}

func (r *InstantiatorRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
