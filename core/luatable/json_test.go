package luatable_test

import (
	"encoding/json"
	"testing"

	"sidecar-sync/core/luatable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJSONStringifiesIntegerKeys(t *testing.T) {
	doc, err := luatable.Decode(sampleSidecar)
	require.NoError(t, err)

	data, err := luatable.ToJSON(doc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	bookmarks, ok := raw["bookmarks"].(map[string]any)
	require.True(t, ok, "bookmarks should be an object, not an array")
	assert.Contains(t, bookmarks, "1")
	assert.Contains(t, bookmarks, "2")
}

func TestFromJSONKeepsNumberKinds(t *testing.T) {
	doc, err := luatable.FromJSON([]byte(`{"pages": 312, "percent_finished": 0.5, "whole": 1.0}`))
	require.NoError(t, err)

	v, ok := doc.Lookup("pages")
	require.True(t, ok)
	assert.Equal(t, luatable.KindInt, v.Kind())

	v, ok = doc.Lookup("percent_finished")
	require.True(t, ok)
	assert.Equal(t, luatable.KindFloat, v.Kind())

	// A literal with a decimal point stays a float even when it is whole.
	v, ok = doc.Lookup("whole")
	require.True(t, ok)
	assert.Equal(t, luatable.KindFloat, v.Kind())
}

func TestFromJSONArrayBecomesSequence(t *testing.T) {
	doc, err := luatable.FromJSON([]byte(`{"list": ["a", "b"]}`))
	require.NoError(t, err)

	v, ok := doc.Lookup("list")
	require.True(t, ok)
	require.Equal(t, luatable.KindTable, v.Kind())
	assert.Equal(t, int64(2), v.Table().SeqLen())
}

func TestFromJSONRejectsNonObjectRoot(t *testing.T) {
	_, err := luatable.FromJSON([]byte(`[1, 2, 3]`))
	require.Error(t, err)

	_, err = luatable.FromJSON([]byte(`not json`))
	require.Error(t, err)
}

func TestJSONRoundTripThenEncode(t *testing.T) {
	// The full raw-sidecar path: decode Lua, store as JSON, rebuild and
	// re-encode Lua. Integer bookmark keys survive via encoder coercion.
	doc, err := luatable.Decode(sampleSidecar)
	require.NoError(t, err)

	data, err := luatable.ToJSON(doc)
	require.NoError(t, err)

	rebuilt, err := luatable.FromJSON(data)
	require.NoError(t, err)

	out := luatable.Encode(rebuilt)
	back, err := luatable.Decode(out)
	require.NoError(t, err)
	assert.True(t, doc.Equal(back), "JSON round trip changed the document")
}
