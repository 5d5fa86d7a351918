package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeID(t *testing.T) {
	var zero EdgeID
	assert.True(t, zero.IsZero())

	id := MustEdgeID("e1")
	assert.Equal(t, "e1", id.String())
	assert.False(t, id.IsZero())
	assert.True(t, id.Equals(MustEdgeID("e1")))
	assert.False(t, id.Equals(NewEdgeID()))
}

func TestGraphID(t *testing.T) {
	const raw = "6F9619FF-8B86-D011-B42D-00C04FC964FF"

	id, err := ParseGraphID(raw)
	require.NoError(t, err)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", id.String())
	assert.False(t, id.IsZero())

	again, minted := GraphIDOrNew(raw)
	assert.False(t, minted)
	assert.True(t, id.Equals(again))

	fresh, minted := GraphIDOrNew("strategy-1")
	assert.True(t, minted)
	assert.False(t, fresh.Equals(id))

	_, err = ParseGraphID("")
	assert.Error(t, err)
}
