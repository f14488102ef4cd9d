package utils

import "context"

// Resolver is one step of an ordered fallback chain. ok=false means "no
// answer here, try the next one".
type Resolver[T any] func(ctx context.Context) (value T, ok bool, err error)

// FirstResolved walks resolvers in order and returns the first value a
// resolver reports as found. A resolver error stops the chain.
func FirstResolved[T any](ctx context.Context, resolvers ...Resolver[T]) (T, bool, error) {
	var zero T
	for _, resolve := range resolvers {
		if resolve == nil {
			continue
		}
		v, ok, err := resolve(ctx)
		if err != nil {
			return zero, false, err
		}
		if ok {
			return v, true, nil
		}
	}
	return zero, false, nil
}

// Static is a resolver that always answers with v when ok is true.
func Static[T any](v T, ok bool) Resolver[T] {
	return func(context.Context) (T, bool, error) {
		return v, ok, nil
	}
}
