// Package rating recomputes player ratings after a finished match.
//
// The model is team Elo: both teams are reduced to their average rating, the
// logistic expectation decides how surprising the result was, and every player
// moves by K * (actual - expected). K depends on the player's own rating and the
// delta is scaled by the player's kill/death ratio.
package rating

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultRating = 1000
	Floor         = 0
)

var (
	ErrMissingRating = errors.New("no pre-match rating for player")
	ErrInvalidWinner = errors.New("winner must be A, B or draw")
)

type Winner string

const (
	WinnerA    Winner = "A"
	WinnerB    Winner = "B"
	WinnerDraw Winner = "draw"
)

func (w Winner) Valid() bool {
	return w == WinnerA || w == WinnerB || w == WinnerDraw
}

// MissingPolicy decides what happens to a rostered player without a known rating.
type MissingPolicy string

const (
	// MissingSkip leaves the player out of the result.
	MissingSkip MissingPolicy = "skip"
	// MissingError fails the whole update.
	MissingError MissingPolicy = "error"
)

// Stat is the per-player combat line used for the performance adjustment.
type Stat struct {
	Kills  int `json:"kills"`
	Deaths int `json:"deaths"`
}

// KD returns kills/deaths, or kills alone when the player never died.
func (s Stat) KD() float64 {
	if s.Deaths == 0 {
		return float64(s.Kills)
	}
	return float64(s.Kills) / float64(s.Deaths)
}

// Change is one player's rating movement.
type Change struct {
	PlayerID int `json:"player_id"`
	Before   int `json:"old_elo"`
	After    int `json:"new_elo"`
	Delta    int `json:"elo_change"`
}

// ExpectedScore is the logistic win expectation of a side rated a against a side rated b.
func ExpectedScore(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

// KFactor returns the volatility band for a rating: low-rated players move faster.
func KFactor(r int) float64 {
	switch {
	case r < 1200:
		return 40
	case r > 1800:
		return 24
	default:
		return 32
	}
}

// PerformanceMultiplier scales a delta by individual performance.
func PerformanceMultiplier(s Stat) float64 {
	kd := s.KD()
	switch {
	case kd > 1.5:
		return 1.2
	case kd < 0.8:
		return 0.8
	default:
		return 1.0
	}
}

type Model struct {
	policy MissingPolicy
}

func NewModel(policy MissingPolicy) *Model {
	if policy != MissingError {
		policy = MissingSkip
	}
	return &Model{policy: policy}
}

// Update computes one Change per rostered player. Team A players come first, in
// roster order, followed by team B. A player listed twice is processed once.
// Players without stats get no performance adjustment.
func (m *Model) Update(teamA, teamB []int, before map[int]int, winner Winner, stats map[int]Stat) ([]Change, error) {
	if !winner.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWinner, winner)
	}

	avgA, err := m.average(teamA, before)
	if err != nil {
		return nil, err
	}
	avgB, err := m.average(teamB, before)
	if err != nil {
		return nil, err
	}

	expectedA := ExpectedScore(avgA, avgB)
	expectedB := 1 - expectedA

	var actualA float64
	switch winner {
	case WinnerA:
		actualA = 1
	case WinnerDraw:
		actualA = 0.5
	}
	actualB := 1 - actualA

	changes := make([]Change, 0, len(teamA)+len(teamB))
	done := make(map[int]struct{}, len(teamA)+len(teamB))

	apply := func(team []int, expected, actual float64) {
		for _, id := range team {
			if _, ok := done[id]; ok {
				continue
			}
			old, ok := before[id]
			if !ok {
				continue
			}
			done[id] = struct{}{}

			delta := KFactor(old) * (actual - expected)
			if st, ok := stats[id]; ok {
				delta *= PerformanceMultiplier(st)
			}
			rounded := int(math.Round(delta))
			changes = append(changes, Change{
				PlayerID: id,
				Before:   old,
				After:    max(Floor, old+rounded),
				Delta:    rounded,
			})
		}
	}
	apply(teamA, expectedA, actualA)
	apply(teamB, expectedB, actualB)

	return changes, nil
}

// average ignores players without a rating; an empty team counts as DefaultRating.
func (m *Model) average(team []int, before map[int]int) (float64, error) {
	var sum, n int
	for _, id := range team {
		r, ok := before[id]
		if !ok {
			if m.policy == MissingError {
				return 0, fmt.Errorf("%w: %d", ErrMissingRating, id)
			}
			continue
		}
		sum += r
		n++
	}
	if n == 0 {
		return DefaultRating, nil
	}
	return float64(sum) / float64(n), nil
}
