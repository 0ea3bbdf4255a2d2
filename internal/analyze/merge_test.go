package analyze

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldpan/goldpan/internal/appstore"
)

func TestMergeRankedDropsUnenrichedAndKeepsOrder(t *testing.T) {
	t.Parallel()

	ids := []int64{111, 222, 333}
	details := map[int64]appstore.App{
		222: {ID: 222, Title: "Two"},
		333: {ID: 333, Title: "Three"},
	}

	got := MergeRanked(ids, details)

	require.Len(t, got.Apps, 2)
	assert.Equal(t, 1, got.Apps[0].Rank)
	assert.Equal(t, int64(222), got.Apps[0].App.ID)
	assert.Equal(t, 2, got.Apps[1].Rank)
	assert.Equal(t, int64(333), got.Apps[1].App.ID)
	assert.Equal(t, []int64{111}, got.Omitted)
}

func TestMergeRankedNeverReordersByMetadata(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(40)
		ids := make([]int64, n)
		details := make(map[int64]appstore.App)
		for i := range ids {
			ids[i] = int64(1000 + i)
			if rng.Intn(3) > 0 {
				details[ids[i]] = appstore.App{ID: ids[i]}
			}
		}

		got := MergeRanked(ids, details)

		// Relative order of kept ids equals their order in the ranking.
		pos := make(map[int64]int, n)
		for i, id := range ids {
			pos[id] = i
		}
		for i := 1; i < len(got.Apps); i++ {
			assert.Less(t, pos[got.Apps[i-1].App.ID], pos[got.Apps[i].App.ID])
		}

		// Ranks contiguous from 1 over kept results.
		for i, ranked := range got.Apps {
			assert.Equal(t, i+1, ranked.Rank)
		}

		// Every ranked id is either merged or counted exactly once.
		assert.Equal(t, n, len(got.Apps)+len(got.Omitted))
	}
}

func TestMergeRankedEmptyRanking(t *testing.T) {
	t.Parallel()

	got := MergeRanked(nil, map[int64]appstore.App{9: {ID: 9}})
	assert.Empty(t, got.Apps)
	assert.Empty(t, got.Omitted)
}
