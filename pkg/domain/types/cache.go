package types

import "fmt"

// CacheNamespace identifies one of the independent memoization tables.
type CacheNamespace string

const (
	// CacheMethodology holds extracted methodology fragments such as scale
	// definitions and formula descriptions.
	CacheMethodology CacheNamespace = "methodology"
	// CacheTemplate holds generated questionnaire templates keyed by asset
	// type and methodology version.
	CacheTemplate CacheNamespace = "questionnaire_template"
	// CacheRetrieval holds ranked passage lookups keyed by normalized query.
	CacheRetrieval CacheNamespace = "retrieval_result"
)

// AllCacheNamespaces returns all cache namespaces
func AllCacheNamespaces() []CacheNamespace {
	return []CacheNamespace{
		CacheMethodology,
		CacheTemplate,
		CacheRetrieval,
	}
}

// IsValid checks if the cache namespace is valid
func (n CacheNamespace) IsValid() bool {
	switch n {
	case CacheMethodology, CacheTemplate, CacheRetrieval:
		return true
	default:
		return false
	}
}

// String returns the string representation of the cache namespace
func (n CacheNamespace) String() string {
	return string(n)
}

// ParseCacheNamespace parses a string into a CacheNamespace
func ParseCacheNamespace(s string) (CacheNamespace, error) {
	n := CacheNamespace(s)
	if !n.IsValid() {
		return "", fmt.Errorf("invalid cache namespace: %s", s)
	}
	return n, nil
}
