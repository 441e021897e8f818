// Package matchmaking splits a lobby roster into two rating-balanced teams.
//
// The search is exhaustive: every way to pick floor(n/2) players for team A is
// evaluated and the split with the smallest difference between team average
// ratings wins. The number of candidates grows as C(n, n/2), so the balancer
// refuses rosters above a configured ceiling instead of degrading silently.
package matchmaking

import (
	"errors"
	"fmt"
)

// DefaultMaxRoster keeps the search under a thousand candidate splits (C(12,6) = 924).
const DefaultMaxRoster = 12

var (
	ErrInsufficientPlayers = errors.New("at least 2 players are required to balance teams")
	ErrRosterTooLarge      = errors.New("roster exceeds the balancing ceiling")
	ErrDuplicatePlayer     = errors.New("player appears more than once in the roster")
)

// Player is the balancer's view of a queued player.
type Player struct {
	ID     int `json:"player_id"`
	Rating int `json:"rating"`
}

// Assignment is the result of balancing. TeamA always holds floor(n/2) players.
type Assignment struct {
	TeamA    []int   `json:"team_a"`
	TeamB    []int   `json:"team_b"`
	AverageA float64 `json:"average_a"`
	AverageB float64 `json:"average_b"`
	Gap      float64 `json:"gap"`
}

type Balancer struct {
	maxRoster int
}

func NewBalancer(maxRoster int) *Balancer {
	if maxRoster < 2 {
		maxRoster = DefaultMaxRoster
	}
	return &Balancer{maxRoster: maxRoster}
}

func (b *Balancer) MaxRoster() int {
	return b.maxRoster
}

// Balance returns the bisection of players minimizing the absolute difference
// of team average ratings. Ties keep the lexicographically first combination
// of roster indices, so the same roster always yields the same split.
func (b *Balancer) Balance(players []Player) (*Assignment, error) {
	n := len(players)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientPlayers, n)
	}
	if n > b.maxRoster {
		return nil, fmt.Errorf("%w: %d players, limit %d", ErrRosterTooLarge, n, b.maxRoster)
	}

	seen := make(map[int]struct{}, n)
	var total int64
	for _, p := range players {
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePlayer, p.ID)
		}
		seen[p.ID] = struct{}{}
		total += int64(p.Rating)
	}

	sizeA := n / 2
	sizeB := n - sizeA

	// |sumA/sizeA - sumB/sizeB| * sizeA*sizeB = |sumA*sizeB - sumB*sizeA|.
	// Размеры команд фиксированы, поэтому сравниваем целые числа без float.
	var (
		best     []int
		bestDiff int64 = -1
		bestSumA int64
	)
	combos := NewCombinations(n, sizeA)
	for combo, ok := combos.Next(); ok; combo, ok = combos.Next() {
		var sumA int64
		for _, i := range combo {
			sumA += int64(players[i].Rating)
		}
		sumB := total - sumA
		diff := sumA*int64(sizeB) - sumB*int64(sizeA)
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff, bestSumA = combo, diff, sumA
		}
	}

	inA := make([]bool, n)
	for _, i := range best {
		inA[i] = true
	}
	result := &Assignment{
		TeamA: make([]int, 0, sizeA),
		TeamB: make([]int, 0, sizeB),
	}
	for i, p := range players {
		if inA[i] {
			result.TeamA = append(result.TeamA, p.ID)
		} else {
			result.TeamB = append(result.TeamB, p.ID)
		}
	}
	result.AverageA = float64(bestSumA) / float64(sizeA)
	result.AverageB = float64(total-bestSumA) / float64(sizeB)
	result.Gap = float64(bestDiff) / float64(sizeA*sizeB)

	return result, nil
}
