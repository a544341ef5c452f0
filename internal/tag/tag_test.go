package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	tg, err := ByName("ntag216")
	require.NoError(t, err)
	assert.Equal(t, 4, tg.BytesPerPage)
	assert.Equal(t, 4, tg.UserPageStart)
	assert.Equal(t, 226, tg.UserPageLimit)

	// Case and whitespace are forgiven.
	tg2, err := ByName("  NTAG216 ")
	require.NoError(t, err)
	assert.Equal(t, tg, tg2)

	_, err = ByName("ntag999")
	assert.Error(t, err)
}

func TestCapacity(t *testing.T) {
	cases := map[string]int{
		"ntag213": 144,
		"ntag215": 504,
		"ntag216": 888,
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			tg, err := ByName(name)
			require.NoError(t, err)
			assert.Equal(t, want, tg.Capacity())
		})
	}
}

func TestMatchesATR(t *testing.T) {
	tg, err := ByName("ntag215")
	require.NoError(t, err)

	assert.True(t, tg.MatchesATR(ntagATR))
	assert.False(t, tg.MatchesATR([]byte{0x3B, 0x00}))
	assert.False(t, tg.MatchesATR(nil))
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	require.Len(t, names, 3)
	assert.Equal(t, []string{"ntag213", "ntag215", "ntag216"}, names)

	tags := Known()
	require.Len(t, tags, 3)
	assert.Equal(t, "ntag213", tags[0].Name)
}
