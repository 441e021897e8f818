package matchmaking

import (
	"errors"
	"math"
	"math/bits"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster(ratings ...int) []Player {
	players := make([]Player, len(ratings))
	for i, r := range ratings {
		players[i] = Player{ID: 100 + i, Rating: r}
	}
	return players
}

// bruteForceGap checks every subset of the expected size with a bitmask,
// independently of the Combinations generator.
func bruteForceGap(players []Player) float64 {
	n := len(players)
	sizeA := n / 2
	best := math.Inf(1)
	for mask := 0; mask < 1<<n; mask++ {
		if bits.OnesCount(uint(mask)) != sizeA {
			continue
		}
		var sumA, sumB float64
		for i, p := range players {
			if mask&(1<<i) != 0 {
				sumA += float64(p.Rating)
			} else {
				sumB += float64(p.Rating)
			}
		}
		gap := math.Abs(sumA/float64(sizeA) - sumB/float64(n-sizeA))
		if gap < best {
			best = gap
		}
	}
	return best
}

func assertPartition(t *testing.T, players []Player, a *Assignment) {
	t.Helper()
	n := len(players)
	require.Len(t, a.TeamA, n/2)
	require.Len(t, a.TeamB, n-n/2)

	seen := make(map[int]int)
	for _, id := range a.TeamA {
		seen[id]++
	}
	for _, id := range a.TeamB {
		seen[id]++
	}
	require.Len(t, seen, n, "teams must cover the roster")
	for id, count := range seen {
		assert.Equal(t, 1, count, "player %d assigned %d times", id, count)
	}
}

func TestBalance_InsufficientPlayers(t *testing.T) {
	b := NewBalancer(DefaultMaxRoster)

	_, err := b.Balance(nil)
	assert.ErrorIs(t, err, ErrInsufficientPlayers)

	_, err = b.Balance(roster(1000))
	assert.ErrorIs(t, err, ErrInsufficientPlayers)
}

func TestBalance_RosterCeiling(t *testing.T) {
	b := NewBalancer(4)
	_, err := b.Balance(roster(1, 2, 3, 4, 5))
	assert.True(t, errors.Is(err, ErrRosterTooLarge))

	_, err = b.Balance(roster(1, 2, 3, 4))
	assert.NoError(t, err)
}

func TestBalance_DuplicatePlayer(t *testing.T) {
	b := NewBalancer(DefaultMaxRoster)
	players := []Player{{ID: 1, Rating: 1000}, {ID: 1, Rating: 1200}}
	_, err := b.Balance(players)
	assert.ErrorIs(t, err, ErrDuplicatePlayer)
}

func TestBalance_TwoPlayersIsForced(t *testing.T) {
	b := NewBalancer(DefaultMaxRoster)
	a, err := b.Balance(roster(1400, 900))
	require.NoError(t, err)

	assert.Equal(t, []int{100}, a.TeamA)
	assert.Equal(t, []int{101}, a.TeamB)
	assert.Equal(t, 1400.0, a.AverageA)
	assert.Equal(t, 900.0, a.AverageB)
	assert.Equal(t, 500.0, a.Gap)
}

func TestBalance_KnownSplit(t *testing.T) {
	b := NewBalancer(DefaultMaxRoster)
	a, err := b.Balance(roster(1000, 1000, 1200, 1200))
	require.NoError(t, err)

	assert.Equal(t, 0.0, a.Gap)
	assert.Equal(t, []int{100, 102}, a.TeamA, "first zero-gap combination wins")
	assert.Equal(t, []int{101, 103}, a.TeamB)
	assert.Equal(t, 1100.0, a.AverageA)
	assert.Equal(t, 1100.0, a.AverageB)
}

func TestBalance_OddRoster(t *testing.T) {
	b := NewBalancer(DefaultMaxRoster)
	players := roster(1500, 1000, 1000)
	a, err := b.Balance(players)
	require.NoError(t, err)
	assertPartition(t, players, a)

	// 1 против 2: одиночка с 1000 против (1500+1000)/2 = 1250 даёт 250,
	// одиночка с 1500 против 1000 даёт 500.
	assert.Equal(t, []int{101}, a.TeamA)
	assert.Equal(t, 250.0, a.Gap)
}

func TestBalance_ExhaustiveAgainstBruteForce(t *testing.T) {
	faker := gofakeit.New(42)
	b := NewBalancer(DefaultMaxRoster)

	for n := 2; n <= 8; n++ {
		for trial := 0; trial < 25; trial++ {
			ratings := make([]int, n)
			for i := range ratings {
				ratings[i] = faker.IntRange(600, 2399)
			}
			players := roster(ratings...)

			a, err := b.Balance(players)
			require.NoError(t, err)
			assertPartition(t, players, a)
			assert.InDelta(t, bruteForceGap(players), a.Gap, 1e-9, "n=%d ratings=%v", n, ratings)
			assert.InDelta(t, math.Abs(a.AverageA-a.AverageB), a.Gap, 1e-9)
		}
	}
}

func TestBalance_Deterministic(t *testing.T) {
	b := NewBalancer(DefaultMaxRoster)
	players := roster(1000, 1100, 1050, 980, 1210, 1000, 1000, 1330, 870, 1150)

	first, err := b.Balance(players)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := b.Balance(players)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNewBalancer_DefaultsInvalidCeiling(t *testing.T) {
	assert.Equal(t, DefaultMaxRoster, NewBalancer(0).MaxRoster())
	assert.Equal(t, 10, NewBalancer(10).MaxRoster())
}
