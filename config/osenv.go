package config

import "os"

// OSLookup adapts os.LookupEnv to Lookup. Production callers pass this to
// registry.New; tests pass a map-backed Lookup instead.
func OSLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapLookup returns a Lookup backed by a fixed map, for tests.
func MapLookup(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}
