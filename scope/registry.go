// Package scope identifies which entity types may act as a permission scope,
// i.e. host roles, role assignments, enrollment methods and access requests.
package scope

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/coursebook/scopedauth/models"
)

// Registry is the explicit allow-list of scope types. Only types registered
// here may appear in a ScopeRef; every write path that constructs one
// validates against the registry.
//
// The enumerated type list is cached and invalidated whenever registrations
// change. Recomputation under a race is idempotent, so no further locking is
// needed by callers.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]struct{}
	cached []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]struct{})}
}

// Register marks the given entity type as hosting roles. Registering an
// already-registered type is a no-op. The cached type list is invalidated.
func (r *Registry) Register(scopeType string) {
	scopeType = normalize(scopeType)
	if scopeType == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[scopeType] = struct{}{}
	r.cached = nil
}

// IsScope reports whether the given entity type is registered as a scope.
func (r *Registry) IsScope(scopeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[normalize(scopeType)]
	return ok
}

// ScopeTypes returns the sorted list of registered scope types. The result
// is computed lazily and cached until the next registration or Invalidate.
func (r *Registry) ScopeTypes() []string {
	r.mu.RLock()
	if r.cached != nil {
		out := make([]string, len(r.cached))
		copy(out, r.cached)
		r.mu.RUnlock()
		return out
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached == nil {
		r.cached = make([]string, 0, len(r.types))
		for t := range r.types {
			r.cached = append(r.cached, t)
		}
		sort.Strings(r.cached)
	}
	out := make([]string, len(r.cached))
	copy(out, r.cached)
	return out
}

// Invalidate drops the cached type list. It is recomputed on the next call
// to ScopeTypes.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
}

// ValidateRef checks that the reference names a registered scope type and a
// non-empty instance id. Referencing an unregistered type is a validation
// error, never silently accepted.
func (r *Registry) ValidateRef(ref models.ScopeRef) error {
	if strings.TrimSpace(ref.ScopeUUID) == "" {
		return fmt.Errorf("%w: empty scope uuid", models.ErrInvalidData)
	}
	if !r.IsScope(ref.ScopeType) {
		return fmt.Errorf("%w: %q", models.ErrScopeTypeInvalid, ref.ScopeType)
	}
	return nil
}

func normalize(scopeType string) string {
	return strings.ToLower(strings.TrimSpace(scopeType))
}
