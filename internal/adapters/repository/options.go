package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithOrder sets the ranking direction.
func WithOrder(o Order) Option {
	return func(s *TreapStore) {
		s.order = o
	}
}
