package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDoc_SummaryAndTags(t *testing.T) {
	t.Parallel()
	d := ParseDoc(`/**
 * Creates a new instance.
 *
 * @param name - the name
 * @hideconstructor protected
 */`)

	assert.Equal(t, "Creates a new instance.", d.Text)
	require.Len(t, d.Tags, 2)
	assert.Equal(t, Tag{Name: "param", Payload: "name - the name"}, d.Tags[0])

	payload, ok := d.Tag("hideconstructor")
	require.True(t, ok)
	assert.Equal(t, "protected", payload)
}

func TestParseDoc_TagWithoutPayload(t *testing.T) {
	t.Parallel()
	d := ParseDoc("/** @hideconstructor */")

	payload, ok := d.Tag("hideconstructor")
	require.True(t, ok)
	assert.Empty(t, payload)
	assert.Empty(t, d.Text)
	assert.False(t, d.Empty())
}

func TestParseDoc_MultilineTagPayload(t *testing.T) {
	t.Parallel()
	d := ParseDoc("/**\n * @deprecated use\n *   something else\n */")

	payload, ok := d.Tag("deprecated")
	require.True(t, ok)
	assert.Equal(t, "use something else", payload)
}

func TestParseDoc_NotJSDoc(t *testing.T) {
	t.Parallel()
	assert.True(t, ParseDoc("// line comment").Empty())
	assert.True(t, ParseDoc("/* block */").Empty())
}

func TestDoc_MissingTag(t *testing.T) {
	t.Parallel()
	_, ok := ParseDoc("/** text */").Tag("hideconstructor")
	assert.False(t, ok)
}

func TestDocWithout(t *testing.T) {
	t.Parallel()

	only := ParseDoc("/** @hideconstructor protected */")
	assert.True(t, only.Without("hideconstructor").Empty())

	d := ParseDoc(`/**
 * Creates a widget.
 * @hideconstructor
 * @since 2.0
 */`)
	got := d.Without("hideconstructor")
	assert.Equal(t, "Creates a widget.", got.Text)
	assert.Equal(t, []Tag{{Name: "since", Payload: "2.0"}}, got.Tags)
	assert.Equal(t, "/**\n * Creates a widget.\n * @since 2.0\n */", got.Raw)
	assert.Equal(t, got, ParseDoc(got.Raw))

	assert.Equal(t, "/** Creates a widget. */", d.Without("hideconstructor", "since").Raw)
	assert.Equal(t, d, d.Without("param"), "nothing to remove")
}
