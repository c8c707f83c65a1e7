package identifier

import (
	"fmt"

	"nwbconv/internal/convert"
)

// Registry records identifiers issued within one session and rejects repeats.
type Registry struct {
	kind   string
	issued map[int64]string
}

// NewRegistry returns an empty registry; kind labels error messages.
func NewRegistry(kind string) *Registry {
	return &Registry{kind: kind, issued: make(map[int64]string)}
}

// Claim records id for owner, failing if another owner already holds it.
func (r *Registry) Claim(id int64, owner string) error {
	if prev, ok := r.issued[id]; ok {
		return convert.Errorf(convert.ErrIdentifierCollision, r.kind+" registry",
			"%s id %d issued to both %s and %s", r.kind, id, prev, owner)
	}
	r.issued[id] = owner
	return nil
}

// Len reports how many identifiers have been claimed.
func (r *Registry) Len() int { return len(r.issued) }

// Owner formats a registry owner label for a probe-local value.
func Owner(probe string, local int) string {
	return fmt.Sprintf("%s/%d", probe, local)
}
