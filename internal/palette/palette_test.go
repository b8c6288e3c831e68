package palette

import (
	"testing"

	"mask2coco/pkg/colorutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryIDsFirstSeen(t *testing.T) {
	p, err := New([]Spec{
		{Color: "1,1,1", Label: "road"},
		{Color: "2,2,2", Label: "car"},
		{Color: "3,3,3", Label: "road"},
		{Color: "4,4,4", Label: "sky"},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, p.Len())
	assert.Equal(t, []Category{{ID: 1, Name: "road"}, {ID: 2, Name: "car"}, {ID: 3, Name: "sky"}}, p.Categories())

	entries := p.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, 1, entries[0].CategoryID)
	assert.Equal(t, 2, entries[1].CategoryID)
	assert.Equal(t, 1, entries[2].CategoryID)
	assert.Equal(t, 3, entries[3].CategoryID)

	id, ok := p.CategoryID("car")
	assert.True(t, ok)
	assert.Equal(t, 2, id)
	_, ok = p.CategoryID("bus")
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	p := MustNew([]Spec{{Color: "10,20,30", Label: "a"}})

	e, ok := p.Lookup(colorutil.RGB{R: 10, G: 20, B: 30})
	require.True(t, ok)
	assert.Equal(t, "a", e.Label)

	_, ok = p.Lookup(colorutil.RGB{R: 10, G: 20, B: 31})
	assert.False(t, ok)
}

func TestNewRejectsBadTables(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]Spec{{Color: "1,2", Label: "x"}})
	assert.Error(t, err)

	_, err = New([]Spec{{Color: "1,2,3", Label: ""}})
	assert.Error(t, err)

	_, err = New([]Spec{{Color: "1,2,3", Label: "x"}, {Color: "1, 2, 3", Label: "y"}})
	assert.Error(t, err)
}

func TestStreetScene(t *testing.T) {
	p, err := New(StreetScene)
	require.NoError(t, err)

	assert.Equal(t, 21, p.Len())
	assert.Len(t, p.Categories(), 21)

	for label, want := range map[string]int{"background": 1, "bicycle": 2, "car": 3, "sky": 21} {
		id, ok := p.CategoryID(label)
		require.True(t, ok, label)
		assert.Equal(t, want, id, label)
	}
}

func TestFingerprintTracksOrder(t *testing.T) {
	a := MustNew([]Spec{{Color: "1,1,1", Label: "a"}, {Color: "2,2,2", Label: "b"}})
	b := MustNew([]Spec{{Color: "2,2,2", Label: "b"}, {Color: "1,1,1", Label: "a"}})
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), MustNew([]Spec{{Color: "1,1,1", Label: "a"}, {Color: "2,2,2", Label: "b"}}).Fingerprint())
}
