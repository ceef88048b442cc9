package modkit

import "reflect"

// PortOf finds a T in m's port set: the set itself, or one of its exported struct fields
func PortOf[T any](m Module) (T, bool) {
	var zero T
	p := m.Ports()
	if p == nil {
		return zero, false
	}
	if v, ok := p.(T); ok {
		return v, true
	}
	rv := reflect.ValueOf(p)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return zero, false
	}
	for i := range rv.NumField() {
		f := rv.Field(i)
		if !f.CanInterface() {
			continue
		}
		if v, ok := f.Interface().(T); ok {
			return v, true
		}
	}
	return zero, false
}

// MustPortOf is PortOf for boot wiring, a missing port panics naming the module
func MustPortOf[T any](m Module) T {
	v, ok := PortOf[T](m)
	if !ok {
		panic("modkit: module " + m.Name() + " exposes no " + reflect.TypeFor[T]().String())
	}
	return v
}
