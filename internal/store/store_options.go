package store

import "time"

type Option func(*Store)

// WithTimeout bounds every remote operation. A hung call becomes a fetch or
// write error instead of leaving the store in Loading forever.
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		return nil
	}
	return func(s *Store) {
		s.opTimeout = d
	}
}

// WithClock replaces the time source. Tests use it to pin "today".
func WithClock(clock func() time.Time) Option {
	if clock == nil {
		return nil
	}
	return func(s *Store) {
		s.clock = clock
	}
}
