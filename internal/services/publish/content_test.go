package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareBody_RichTextKeepsParagraphBreaks(t *testing.T) {
	body, err := PrepareBody(`<p>First paragraph.</p><p>Second paragraph.</p>`, true)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", body)
}

func TestPrepareBody_LinksDegradeToVisibleURL(t *testing.T) {
	body, err := PrepareBody(`<p>See <a href="https://example.com/doc">the docs</a> for more.</p>`, true)
	require.NoError(t, err)
	assert.Equal(t, "See the docs (https://example.com/doc) for more.", body)
}

func TestPrepareBody_BareURLAnchorNotDoubled(t *testing.T) {
	body, err := PrepareBody(`<p>Read <a href="https://example.com">https://example.com</a></p>`, true)
	require.NoError(t, err)
	assert.Equal(t, "Read https://example.com", body)
}

func TestPrepareBody_EmptyAnchorReplacedByURL(t *testing.T) {
	body, err := PrepareBody(`<p>Go here: <a href="https://example.com"></a></p>`, true)
	require.NoError(t, err)
	assert.Equal(t, "Go here: https://example.com", body)
}

func TestPrepareBody_NoBlockElements(t *testing.T) {
	body, err := PrepareBody(`Hello <b>there</b>`, true)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", body)
}

func TestPrepareBody_PlainTextFlattened(t *testing.T) {
	body, err := PrepareBody(`<p>First paragraph.</p><p>Second paragraph.</p>`, false)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", body)
}

func TestPrepareBody_ListItems(t *testing.T) {
	body, err := PrepareBody(`<ul><li>one</li><li>two</li></ul>`, true)
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo", body)
}

func TestPrepareBody_Empty(t *testing.T) {
	body, err := PrepareBody("", true)
	require.NoError(t, err)
	assert.Empty(t, body)
}
