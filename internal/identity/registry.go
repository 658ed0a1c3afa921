// Package identity checks National Identification Numbers against a registry.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lgcert/indigene-certificate/internal/apperr"
)

// Identity is the registry record for one NIN.
type Identity struct {
	NIN         string `json:"nin"`
	FirstName   string `json:"first_name"`
	MiddleName  string `json:"middle_name,omitempty"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender,omitempty"`
	State       string `json:"state,omitempty"`
}

func (i Identity) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{i.FirstName, i.MiddleName, i.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Registry looks up a NIN. Unknown numbers return an error wrapping apperr.ErrNotFound.
type Registry interface {
	Lookup(ctx context.Context, nin string) (*Identity, error)
}

// MemoryRegistry serves a fixed set of identities.
type MemoryRegistry struct {
	mu         sync.RWMutex
	identities map[string]Identity
}

func NewMemoryRegistry(identities ...Identity) *MemoryRegistry {
	r := &MemoryRegistry{identities: make(map[string]Identity, len(identities))}
	for _, id := range identities {
		r.Add(id)
	}
	return r
}

func (r *MemoryRegistry) Add(id Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities[id.NIN] = id
}

func (r *MemoryRegistry) Lookup(_ context.Context, nin string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.identities[nin]
	if !ok {
		return nil, fmt.Errorf("nin %s: %w", nin, apperr.ErrNotFound)
	}
	return &id, nil
}

// SampleIdentities seed the in-memory registry in development.
func SampleIdentities() []Identity {
	return []Identity{
		{NIN: "12345678901", FirstName: "Amina", LastName: "Bello", DateOfBirth: "1990-04-01", Gender: "F", State: "Lagos"},
		{NIN: "10987654321", FirstName: "Chidi", LastName: "Okafor", DateOfBirth: "1984-11-20", Gender: "M", State: "Enugu"},
		{NIN: "22233344455", FirstName: "Ibrahim", MiddleName: "Musa", LastName: "Sani", DateOfBirth: "1979-02-14", Gender: "M", State: "Kano"},
		{NIN: "55566677788", FirstName: "Funmilayo", LastName: "Adeyemi", DateOfBirth: "1995-07-30", Gender: "F", State: "Oyo"},
	}
}
