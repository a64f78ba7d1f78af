package registry

import (
	"context"
	"fmt"
)

// Call invokes the registration's callable. A panic inside the callable is
// converted into an error wrapping ErrToolPanic.
func Call(ctx context.Context, reg Registration, args map[string]any) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("%w: %s: %v", ErrToolPanic, reg.Name, p)
		}
	}()
	if args == nil {
		args = map[string]any{}
	}
	return reg.Func(ctx, args)
}
