package codec

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
)

// derived reports whether t already has a published codec or a remembered
// derivation failure. Caller holds mu.
func (r *Registry) derived(t reflect.Type) bool {
	if _, ok := r.codecs.Load(t); ok {
		return true
	}
	_, ok := r.failed.Load(t)
	return ok
}

// settledOpenUnions returns the interfaces whose open-union derivation has
// already succeeded or failed. Caller holds mu.
func (r *Registry) settledOpenUnions() []reflect.Type {
	ifaces := make([]reflect.Type, 0, len(r.open))
	for iface := range r.open {
		ifaces = append(ifaces, iface)
	}
	r.failed.Range(func(k, _ any) bool {
		t := k.(reflect.Type)
		if _, closed := r.unions[t]; t.Kind() == reflect.Interface && !closed && !r.open[t] {
			ifaces = append(ifaces, t)
		}
		return true
	})
	return ifaces
}

func (r *Registry) conflictIfDerived(t reflect.Type, what string) error {
	if r.derived(t) {
		return errors.DerivationConflict(t.String(), "cannot register %s after the codec was derived", what)
	}
	return nil
}

// RegisterUnion declares a closed union: values of interface type iface
// encode as the union of members, in the given order. A member may be Null,
// a type implementing iface, or a pointer to one.
func (r *Registry) RegisterUnion(iface reflect.Type, members ...reflect.Type) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return errors.InvalidInput(errors.PhaseRegister, "union type must be an interface, got %v", iface)
	}
	if len(members) == 0 {
		return errors.InvalidInput(errors.PhaseRegister, "union %s has no members", iface)
	}
	seen := make(map[reflect.Type]bool, len(members))
	for _, m := range members {
		if m == nil {
			return errors.InvalidInput(errors.PhaseRegister, "union %s has a nil member", iface)
		}
		if m != nullType && !m.Implements(iface) {
			return errors.InvalidInput(errors.PhaseRegister, "%s does not implement %s", m, iface)
		}
		if seen[m] {
			return errors.InvalidInput(errors.PhaseRegister, "%s is listed twice in union %s", m, iface)
		}
		seen[m] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.conflictIfDerived(iface, "union members"); err != nil {
		return err
	}
	r.unions[iface] = append([]reflect.Type(nil), members...)
	r.log().Debug("registered union", zap.Stringer("interface", iface), zap.Int("members", len(members)))
	return nil
}

// RegisterType adds types to the candidate set of open unions: an interface
// without a RegisterUnion declaration encodes as the union of every
// registered type that implements it, ordered by full schema name.
//
// Registering a type that would extend an open union whose codec is
// already derived, or whose derivation already failed, is a derivation
// conflict.
func (r *Registry) RegisterType(types ...reflect.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		if t == nil {
			return errors.InvalidInput(errors.PhaseRegister, "nil type")
		}
		for _, iface := range r.settledOpenUnions() {
			if t.Implements(iface) || (t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(iface)) {
				return errors.DerivationConflict(iface.String(),
					"%s implements the open union, whose codec is already derived", t)
			}
		}
		r.types = append(r.types, t)
		r.log().Debug("registered type", zap.Stringer("type", t))
	}
	return nil
}

// RegisterEnum makes t, an integer or string type, encode as an enum with
// the given symbols.
func (r *Registry) RegisterEnum(t reflect.Type, symbols ...string) error {
	if t == nil || !isEnumKind(t.Kind()) {
		return errors.InvalidInput(errors.PhaseRegister, "enum type must have an integer or string kind, got %v", t)
	}
	if err := schema.Validate(schema.NewEnum("enum", symbols...)); err != nil {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			GoType(t.String()).
			Cause(err).
			Detail("invalid enum symbols").
			Build()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.conflictIfDerived(t, "enum symbols"); err != nil {
		return err
	}
	r.enums[t] = append([]string(nil), symbols...)
	return nil
}

// RegisterName sets the full schema name of a record, enum or fixed type.
func (r *Registry) RegisterName(t reflect.Type, name string) error {
	if t == nil {
		return errors.InvalidInput(errors.PhaseRegister, "nil type")
	}
	if !schema.ValidFullName(name) {
		return errors.InvalidInput(errors.PhaseRegister, "invalid schema name %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.conflictIfDerived(t, "a name"); err != nil {
		return err
	}
	r.names[t] = name
	return nil
}

// RegisterConstructor registers fn, a func(f1, ..., fn) T or
// func(...) (T, error), as the way to build struct T from its decoded
// fields. Parameters follow the record's field order.
func (r *Registry) RegisterConstructor(fn any) error {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return errors.InvalidInput(errors.PhaseRegister, "constructor must be a function, got %T", fn)
	}
	t, ok := checkBuilderFunc(fv.Type())
	if !ok || t.Kind() != reflect.Struct {
		return errors.InvalidInput(errors.PhaseRegister, "constructor %s must return a struct T or (T, error)", fv.Type())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.conflictIfDerived(t, "a constructor"); err != nil {
		return err
	}
	r.ctors[t] = fv
	return nil
}

// RegisterFactory registers fn, a func(...E) T or func(...E) (T, error),
// as the way to build collection T from all of its decoded elements.
func (r *Registry) RegisterFactory(fn any) error {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() || !fv.Type().IsVariadic() || fv.Type().NumIn() != 1 {
		return errors.InvalidInput(errors.PhaseRegister, "factory must be a variadic func(...E) T, got %T", fn)
	}
	t, ok := checkBuilderFunc(fv.Type())
	if !ok {
		return errors.InvalidInput(errors.PhaseRegister, "factory %s must return T or (T, error)", fv.Type())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.conflictIfDerived(t, "a factory"); err != nil {
		return err
	}
	r.factories[t] = fv
	return nil
}
