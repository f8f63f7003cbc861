package xsd

import "sort"

// multiMap is a mapping from a string key to a set of string values,
// with idempotent insertion. It backs the registry's bookkeeping of
// pending imports (namespace -> candidate schemaLocation URLs) and
// known/downloaded schema bodies (uri -> set of digests of bodies
// already committed, uri -> set of URLs already downloaded).
//
// Insertion order within a key's value set is not preserved; Values
// returns a sorted, deterministic slice so that error messages and
// snapshots (KnownSchemas) are stable across runs.
type multiMap struct {
	m map[string]map[string]bool
}

func newMultiMap() *multiMap {
	return &multiMap{m: make(map[string]map[string]bool)}
}

// Add records value under key. It reports whether the pair was newly
// added (false if it was already present).
func (mm *multiMap) Add(key, value string) bool {
	set, ok := mm.m[key]
	if !ok {
		set = make(map[string]bool)
		mm.m[key] = set
	}
	if set[value] {
		return false
	}
	set[value] = true
	return true
}

// Has reports whether value has been recorded under key.
func (mm *multiMap) Has(key, value string) bool {
	return mm.m[key] != nil && mm.m[key][value]
}

// Keys returns the map's keys in sorted order.
func (mm *multiMap) Keys() []string {
	keys := make([]string, 0, len(mm.m))
	for k := range mm.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns the set of values recorded under key, in sorted
// order.
func (mm *multiMap) Values(key string) []string {
	set := mm.m[key]
	if len(set) == 0 {
		return nil
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// Snapshot returns a deep copy of the map's contents as
// key -> sorted values.
func (mm *multiMap) Snapshot() map[string][]string {
	out := make(map[string][]string, len(mm.m))
	for _, k := range mm.Keys() {
		out[k] = mm.Values(k)
	}
	return out
}
