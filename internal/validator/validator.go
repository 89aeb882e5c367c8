// Package validator provides a small helper for constructor dependency
// checks: every component validates its injected deps up front instead of
// failing on a nil pointer mid-operation.
package validator

import (
	"fmt"
	"reflect"
)

func Validate(name string, deps ...any) error {
	for _, dep := range deps {
		if dep == nil {
			return fmt.Errorf("missing required deps for component: %s", name)
		}

		v := reflect.ValueOf(dep)
		switch v.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan:
			if v.IsNil() {
				return fmt.Errorf("missing required deps for component: %s", name)
			}
		default:
			if v.IsZero() {
				return fmt.Errorf("missing required deps for component: %s", name)
			}
		}
	}

	return nil
}
