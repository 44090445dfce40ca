// Package options implements typed functional options.
//
// Packages declare their own option type as an alias of Option over their config
// pointer and build options with New or NoError:
//
//	type Option = options.Option[*Config]
//
//	func WithMaxDepth(n int) Option {
//	    return options.New(func(c *Config) error { ... })
//	}
package options

// Option configures a target of type T.
type Option[T any] interface {
	apply(T) error
}

// Func adapts a function to Option.
type Func[T any] func(T) error

func (f Func[T]) apply(target T) error {
	return f(target)
}

// New creates an option that may reject its input.
func New[T any](fn func(T) error) Func[T] {
	return Func[T](fn)
}

// NoError creates an option that cannot fail.
func NoError[T any](fn func(T)) Func[T] {
	return func(target T) error {
		fn(target)

		return nil
	}
}

// Apply applies opts in order and stops at the first error. Nil options are skipped.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}
