// Package idgen assigns DDEX reference identifiers for entities the caller
// did not name. Strategies trade reproducibility for convenience: sequential
// ids are positional, UUIDs are unique but unstable across builds, and
// stable-hash ids are derived from identity fields so republishing the same
// catalog yields the same references.
package idgen

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Kind selects the DDEX reference prefix.
type Kind int

const (
	KindResource Kind = iota
	KindRelease
	KindParty
	KindMessage
)

func (k Kind) prefix() string {
	switch k {
	case KindResource:
		return "A"
	case KindRelease:
		return "R"
	case KindParty:
		return "P"
	default:
		return "MSG"
	}
}

// Identity carries the identity fields of one entity, keyed by field name.
// Insertion order is irrelevant; stable hashing reads fields in recipe order.
type Identity map[string]string

// Generator produces reference identifiers.
type Generator interface {
	Next(kind Kind, id Identity) (string, error)
}

// Sequential numbers references in emission order: A1, A2, R1, ...
// Not reproducible across reorderings; intended for throwaway builds.
type Sequential struct {
	counters [4]int
}

// NewSequential returns a sequential generator starting at 1 per kind.
func NewSequential() *Sequential {
	return &Sequential{}
}

// Next returns the next identifier for the kind.
func (s *Sequential) Next(kind Kind, _ Identity) (string, error) {
	s.counters[kind]++
	return fmt.Sprintf("%s%d", kind.prefix(), s.counters[kind]), nil
}

// UUID generates random (v4) or time-ordered (v7) identifiers. Output is
// unique but differs on every build.
type UUID struct {
	timeOrdered bool
}

// NewUUID returns a random UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// NewUUIDv7 returns a time-ordered UUID generator.
func NewUUIDv7() *UUID {
	return &UUID{timeOrdered: true}
}

// Next returns a prefixed UUID.
func (g *UUID) Next(kind Kind, _ Identity) (string, error) {
	if g.timeOrdered {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generate uuidv7: %w", err)
		}
		return kind.prefix() + strings.ReplaceAll(id.String(), "-", ""), nil
	}
	return kind.prefix() + strings.ReplaceAll(uuid.NewString(), "-", ""), nil
}

// Recipe defines which identity fields feed a stable hash and tags the
// derivation with a version. Changing the recipe version is the only
// sanctioned way to change generated ids for existing content.
type Recipe struct {
	Version string
	Fields  []string
}

// RecipeV1 hashes the fields that identify releases and resources in
// catalog feeds.
var RecipeV1 = Recipe{
	Version: "v1",
	Fields:  []string{"title", "artist", "icpn", "isrc"},
}

// StableHash derives fixed-width identifiers from identity fields. Two
// entities with equal identity fields get equal ids regardless of field
// insertion order or unrelated optional fields.
type StableHash struct {
	recipe Recipe
	seen   map[string]string // digest -> id, disambiguates collisions per batch
	counts map[string]int
}

// NewStableHash returns a stable-hash generator for the recipe.
func NewStableHash(recipe Recipe) *StableHash {
	if len(recipe.Fields) == 0 {
		recipe = RecipeV1
	}
	return &StableHash{
		recipe: recipe,
		seen:   make(map[string]string),
		counts: make(map[string]int),
	}
}

// Next derives the identifier for the entity's identity fields.
func (s *StableHash) Next(kind Kind, id Identity) (string, error) {
	digest := s.digest(kind, id)
	if existing, ok := s.seen[digest]; ok {
		return existing, nil
	}

	generated := fmt.Sprintf("%s%016x", kind.prefix(), xxhash.Sum64String(digest))
	// Distinct identities colliding on the 64-bit hash get a positional
	// suffix; the digest key keeps equal identities mapped to one id.
	s.counts[generated]++
	if n := s.counts[generated]; n > 1 {
		generated = fmt.Sprintf("%s.%d", generated, n)
	}
	s.seen[digest] = generated
	return generated, nil
}

// digest serializes the recipe fields in recipe order, so map iteration
// order never reaches the hash.
func (s *StableHash) digest(kind Kind, id Identity) string {
	var b strings.Builder
	b.WriteString("ddex-stable-hash/")
	b.WriteString(s.recipe.Version)
	b.WriteString("\x1f")
	b.WriteString(kind.prefix())
	for _, field := range s.recipe.Fields {
		b.WriteString("\x1f")
		b.WriteString(field)
		b.WriteString("=")
		b.WriteString(id[field])
	}
	// Fields outside the recipe never participate.
	return b.String()
}
