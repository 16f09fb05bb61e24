package state

import "reflect"

// Subscribable is anything that accepts subscribers.
type Subscribable interface {
	Subscribe(s Subscriber) Subscription
}

// Observable is a Subscribable that exposes the observable capability
// marker. Types outside this package can implement it to interoperate with
// IsObservable.
type Observable interface {
	Subscribable
	Observable() Subscribable
}

// IsObservable reports whether x is a non-nil Observable.
func IsObservable(x any) bool {
	o, ok := x.(Observable)
	if !ok {
		return false
	}

	v := reflect.ValueOf(o)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return !v.IsNil()
	}
	return true
}
