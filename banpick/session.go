package banpick

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrSessionClosed = errors.New("ban/pick session is already completed")
	ErrInvalidMap    = errors.New("map is not among the remaining candidates")
	ErrWrongTurn     = errors.New("it is not this team's turn for this action")
	ErrNotOnTeam     = errors.New("player is not on the acting team")
	ErrInvalidPool   = errors.New("map pool must contain at least 2 distinct maps")
	ErrInvalidTeams  = errors.New("both teams must have at least one player")
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Record is one resolved step in the session's action log.
type Record struct {
	Side   Side           `json:"team"`
	Action Action         `json:"action"`
	Map    string         `json:"map"`
	Tally  map[string]int `json:"votes"`
	At     time.Time      `json:"timestamp"`
}

// Session holds the full ban/pick state. It is a plain value: persistence and
// serialization of concurrent voters is the caller's job.
type Session struct {
	TeamA       []int          `json:"team_a"`
	TeamB       []int          `json:"team_b"`
	Pool        []string       `json:"maps"`
	Candidates  []string       `json:"available_maps"`
	Step        int            `json:"current_step"`
	Log         []Record       `json:"bp_history"`
	Votes       map[int]string `json:"current_votes"`
	Status      Status         `json:"status"`
	ResolvedMap string         `json:"final_map,omitempty"`
}

// Start opens a session over pool for the two given rosters.
func Start(pool []string, teamA, teamB []int) (*Session, error) {
	if len(teamA) == 0 || len(teamB) == 0 {
		return nil, ErrInvalidTeams
	}
	candidates := make([]string, 0, len(pool))
	for _, m := range pool {
		if m == "" || slices.Contains(candidates, m) {
			return nil, fmt.Errorf("%w: bad entry %q", ErrInvalidPool, m)
		}
		candidates = append(candidates, m)
	}
	if len(candidates) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPool, len(candidates))
	}

	return &Session{
		TeamA:      slices.Clone(teamA),
		TeamB:      slices.Clone(teamB),
		Pool:       slices.Clone(candidates),
		Candidates: candidates,
		Log:        []Record{},
		Votes:      map[int]string{},
		Status:     StatusInProgress,
	}, nil
}

// NextStep returns the step the session is waiting for, or false once completed.
func (s *Session) NextStep() (Step, bool) {
	if s.Status == StatusCompleted {
		return Step{}, false
	}
	return StepAt(s.Step)
}

func (s *Session) roster(side Side) []int {
	if side == SideA {
		return s.TeamA
	}
	return s.TeamB
}

// Outcome describes what a single accepted vote did to the session.
type Outcome struct {
	// Resolved is false while the acting team is still below quorum.
	Resolved bool           `json:"resolved"`
	Votes    map[int]string `json:"votes"`
	Tally    map[string]int `json:"vote_counts"`
	Quorum   int            `json:"required_votes"`
	Leading  string         `json:"leading_map,omitempty"`
	Count    int            `json:"leading_votes"`

	Record    *Record  `json:"record,omitempty"`
	Completed bool     `json:"completed"`
	FinalMap  string   `json:"final_map,omitempty"`
	Next      *Step    `json:"next_action,omitempty"`
	Remaining []string `json:"available_maps"`
}

// SubmitVote records playerID's vote for mapName on behalf of side performing action.
// A repeated vote from the same player within a step replaces the earlier one.
// Rejected votes leave the session untouched.
func (s *Session) SubmitVote(side Side, action Action, mapName string, playerID int, now time.Time) (*Outcome, error) {
	if s.Status == StatusCompleted {
		return nil, ErrSessionClosed
	}
	if !slices.Contains(s.Candidates, mapName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMap, mapName)
	}
	expected, ok := StepAt(s.Step)
	if !ok {
		// Сессия в процессе, но шаг за пределами расписания: сломан инвариант.
		panic(fmt.Sprintf("banpick: step %d outside schedule while in progress", s.Step))
	}
	if expected.Side != side || expected.Action != action {
		return nil, fmt.Errorf("%w: expected team %s to %s", ErrWrongTurn, expected.Side, expected.Action)
	}
	team := s.roster(side)
	if !slices.Contains(team, playerID) {
		return nil, fmt.Errorf("%w: player %d, team %s", ErrNotOnTeam, playerID, side)
	}

	if s.Votes == nil {
		s.Votes = map[int]string{}
	}
	s.Votes[playerID] = mapName

	tally := s.tally()
	leading, count := s.leader(tally)
	quorum := Quorum(len(team))

	out := &Outcome{
		Votes:   cloneVotes(s.Votes),
		Tally:   tally,
		Quorum:  quorum,
		Leading: leading,
		Count:   count,
	}
	if count < quorum {
		out.Remaining = slices.Clone(s.Candidates)
		out.Next = &expected
		return out, nil
	}

	rec := Record{Side: side, Action: action, Map: leading, Tally: tally, At: now}
	s.Log = append(s.Log, rec)
	s.Candidates = slices.DeleteFunc(s.Candidates, func(m string) bool { return m == leading })
	s.Step++
	s.Votes = map[int]string{}

	if s.Step >= StepCount || len(s.Candidates) == 1 {
		s.Status = StatusCompleted
		if action == ActionPick {
			s.ResolvedMap = leading
		} else {
			s.ResolvedMap = s.Candidates[0]
		}
	}

	out.Resolved = true
	out.Record = &rec
	out.Completed = s.Status == StatusCompleted
	out.FinalMap = s.ResolvedMap
	out.Remaining = slices.Clone(s.Candidates)
	if next, ok := s.NextStep(); ok {
		out.Next = &next
	}
	return out, nil
}

func (s *Session) tally() map[string]int {
	counts := make(map[string]int, len(s.Votes))
	for _, m := range s.Votes {
		counts[m]++
	}
	return counts
}

// leader picks the map with the most votes. Ties go to the map listed first
// among the remaining candidates, which preserves map pool order.
func (s *Session) leader(tally map[string]int) (string, int) {
	best, bestCount := "", 0
	for _, m := range s.Candidates {
		if c := tally[m]; c > bestCount {
			best, bestCount = m, c
		}
	}
	if best == "" {
		panic("banpick: tally has no candidate map after a recorded vote")
	}
	return best, bestCount
}

func cloneVotes(v map[int]string) map[int]string {
	out := make(map[int]string, len(v))
	for k, m := range v {
		out[k] = m
	}
	return out
}
