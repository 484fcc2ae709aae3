// Package namespace implements key prefixing for tier isolation: distinct
// namespaces share the same underlying tier storage without colliding on
// key names.
package namespace

import "strings"

const defaultNamespace = "default"

const separator = ":"

// ToTier maps a caller-facing key into the prefixed form stored in a tier.
// The default namespace is the identity mapping, per spec.md §4.2.
func ToTier(ns, key string) string {
	if ns == "" || ns == defaultNamespace {
		return key
	}
	return ns + separator + key
}

// FromTier strips a namespace prefix off a tier-facing key, returning the
// caller-facing key. It is the inverse of ToTier and is used by scan-like
// operations that enumerate raw tier keys.
func FromTier(ns, tierKey string) string {
	if ns == "" || ns == defaultNamespace {
		return tierKey
	}
	prefix := ns + separator
	return strings.TrimPrefix(tierKey, prefix)
}

// HasPrefix reports whether tierKey was produced by ToTier(ns, ...) for a
// non-default ns. It is used by namespace-scoped clear/scan operations.
func HasPrefix(ns, tierKey string) bool {
	if ns == "" || ns == defaultNamespace {
		return true
	}
	return strings.HasPrefix(tierKey, ns+separator)
}
