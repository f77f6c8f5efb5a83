package jobs

import "time"

// SetClock replaces the store clock for tests.
func SetClock(s *Store, now func() time.Time) {
	s.now = now
}

// Rebind exposes placeholder rewriting for tests.
func Rebind(backend, query string) string {
	if backend == postgresDialect.name {
		return postgresDialect.rebind(query)
	}
	return sqliteDialect.rebind(query)
}
