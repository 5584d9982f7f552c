package autovalue

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var (
	registryLock    sync.RWMutex
	implementations = map[reflect.Type]reflect.Type{}
	interfaces      = map[reflect.Type]reflect.Type{}
)

// RegisterImplementation records that impl is the generated implementation of
// the value type iface. It is called from the init function of generated
// registry files and should not otherwise be needed.
//
// It panics if iface is not an interface, if impl does not implement iface
// (via pointer receiver), or if a different implementation was already
// registered for iface.
func RegisterImplementation(iface, impl reflect.Type) {
	if iface.Kind() != reflect.Interface {
		panic(fmt.Sprintf("autovalue: %v is not an interface", iface))
	}
	if !reflect.PointerTo(impl).Implements(iface) {
		panic(fmt.Sprintf("autovalue: %v does not implement %v", reflect.PointerTo(impl), iface))
	}

	registryLock.Lock()
	defer registryLock.Unlock()
	if existing, ok := implementations[iface]; ok && existing != impl {
		panic(fmt.Sprintf("autovalue: %v already has implementation %v; cannot register %v", iface, existing, impl))
	}
	implementations[iface] = impl
	interfaces[impl] = iface
}

// ImplementationOf returns the generated struct type that implements the
// given value type interface. The second result is false if no
// implementation is registered. Only non-generic value types are registered.
func ImplementationOf(iface reflect.Type) (reflect.Type, bool) {
	registryLock.RLock()
	defer registryLock.RUnlock()
	impl, ok := implementations[iface]
	return impl, ok
}

// IsValueType returns true if t is a registered value type interface, a
// registered implementation, or a pointer to a registered implementation.
func IsValueType(t reflect.Type) bool {
	registryLock.RLock()
	defer registryLock.RUnlock()
	if _, ok := implementations[t]; ok {
		return true
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	_, ok := interfaces[t]
	return ok
}

// AllValueTypes returns all registered value type interfaces, sorted by
// package path and name.
func AllValueTypes() []reflect.Type {
	registryLock.RLock()
	defer registryLock.RUnlock()
	types := make([]reflect.Type, 0, len(implementations))
	for iface := range implementations {
		types = append(types, iface)
	}
	sort.Slice(types, func(i, j int) bool {
		if types[i].PkgPath() == types[j].PkgPath() {
			return types[i].Name() < types[j].Name()
		}
		return types[i].PkgPath() < types[j].PkgPath()
	})
	return types
}
