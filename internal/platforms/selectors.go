package platforms

import "fmt"

// SelectorKind identifies the stability tier of an element lookup.
// Semantic lookups survive UI redesigns better than structural ones, so
// chains are ordered semantic -> attribute -> structural.
type SelectorKind string

const (
	// SelectorSemantic targets ARIA roles, labels and other accessibility semantics
	SelectorSemantic SelectorKind = "semantic"
	// SelectorAttribute targets stable attributes (name, id, data-*)
	SelectorAttribute SelectorKind = "attribute"
	// SelectorStructural targets document structure and is the fallback of last resort
	SelectorStructural SelectorKind = "structural"
)

// tier returns the ordering rank of a selector kind
func (k SelectorKind) tier() int {
	switch k {
	case SelectorSemantic:
		return 0
	case SelectorAttribute:
		return 1
	case SelectorStructural:
		return 2
	}
	return 3
}

// Selector is a single element-resolution attempt
type Selector struct {
	Kind  SelectorKind `toml:"kind" json:"kind" validate:"required,oneof=semantic attribute structural"`
	Query string       `toml:"query" json:"query" validate:"required"`
}

// SelectorChain is an ordered list of resolution attempts. The first attempt
// that yields a visible, interactable element wins.
type SelectorChain []Selector

// Validate checks the chain is non-empty and ordered by stability tier
func (c SelectorChain) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("selector chain is empty")
	}
	for i := 1; i < len(c); i++ {
		if c[i].Kind.tier() < c[i-1].Kind.tier() {
			return fmt.Errorf("selector chain out of order: %s before %s", c[i-1].Kind, c[i].Kind)
		}
	}
	return nil
}

// Queries returns the raw queries in resolution order
func (c SelectorChain) Queries() []string {
	queries := make([]string, len(c))
	for i, s := range c {
		queries[i] = s.Query
	}
	return queries
}
