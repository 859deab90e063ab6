package platforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorChain_Validate(t *testing.T) {
	ordered := SelectorChain{
		{Kind: SelectorSemantic, Query: `input[aria-label="Title"]`},
		{Kind: SelectorAttribute, Query: `input[name="title"]`},
		{Kind: SelectorStructural, Query: `form input[type="text"]`},
	}
	assert.NoError(t, ordered.Validate())

	// A chain may skip tiers as long as it never goes back up
	sparse := SelectorChain{
		{Kind: SelectorAttribute, Query: `input[name="title"]`},
		{Kind: SelectorStructural, Query: `form input`},
	}
	assert.NoError(t, sparse.Validate())

	single := SelectorChain{{Kind: SelectorStructural, Query: `button`}}
	assert.NoError(t, single.Validate())
}

func TestSelectorChain_ValidateRejectsEmpty(t *testing.T) {
	assert.Error(t, SelectorChain{}.Validate())
	assert.Error(t, SelectorChain(nil).Validate())
}

func TestSelectorChain_ValidateRejectsOutOfOrder(t *testing.T) {
	chain := SelectorChain{
		{Kind: SelectorStructural, Query: `form input`},
		{Kind: SelectorSemantic, Query: `input[aria-label="Title"]`},
	}
	err := chain.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "out of order")
}

func TestSelectorChain_Queries(t *testing.T) {
	chain := SelectorChain{
		{Kind: SelectorSemantic, Query: "a"},
		{Kind: SelectorStructural, Query: "b"},
	}
	assert.Equal(t, []string{"a", "b"}, chain.Queries())
}
