package banpick

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testPool = []string{"inferno", "mirage", "dust2", "nuke", "overpass", "ancient", "anubis"}
	teamA    = []int{1, 2, 3, 4, 5}
	teamB    = []int{6, 7, 8, 9, 10}
	now      = time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
)

func newSession(t *testing.T, pool []string, a, b []int) *Session {
	t.Helper()
	s, err := Start(pool, a, b)
	require.NoError(t, err)
	return s
}

// voteUntilResolved casts votes for m from the given players in order and
// returns the outcome of the last vote.
func voteUntilResolved(t *testing.T, s *Session, side Side, action Action, m string, players ...int) *Outcome {
	t.Helper()
	var out *Outcome
	for _, p := range players {
		var err error
		out, err = s.SubmitVote(side, action, m, p, now)
		require.NoError(t, err)
	}
	return out
}

func TestStart(t *testing.T) {
	s := newSession(t, testPool, teamA, teamB)

	assert.Equal(t, StatusInProgress, s.Status)
	assert.Equal(t, 0, s.Step)
	assert.Equal(t, testPool, s.Candidates)
	assert.Empty(t, s.Log)
	assert.Empty(t, s.Votes)

	next, ok := s.NextStep()
	require.True(t, ok)
	assert.Equal(t, Step{Side: SideA, Action: ActionBan}, next)
}

func TestStart_Validation(t *testing.T) {
	tests := []struct {
		name    string
		pool    []string
		a, b    []int
		wantErr error
	}{
		{"single map", []string{"inferno"}, teamA, teamB, ErrInvalidPool},
		{"duplicate map", []string{"inferno", "inferno"}, teamA, teamB, ErrInvalidPool},
		{"empty map name", []string{"inferno", ""}, teamA, teamB, ErrInvalidPool},
		{"empty team", testPool, nil, teamB, ErrInvalidTeams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Start(tt.pool, tt.a, tt.b)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStart_CopiesInputs(t *testing.T) {
	pool := []string{"inferno", "mirage", "nuke"}
	a := []int{1}
	s := newSession(t, pool, a, []int{2})
	pool[0] = "changed"
	a[0] = 99
	assert.Equal(t, []string{"inferno", "mirage", "nuke"}, s.Candidates)
	assert.Equal(t, []int{1}, s.TeamA)
}

func TestQuorum(t *testing.T) {
	assert.Equal(t, 3, Quorum(5))
	assert.Equal(t, 2, Quorum(4))
	assert.Equal(t, 1, Quorum(1))
	assert.Equal(t, 1, Quorum(2))
	assert.Equal(t, 2, Quorum(3))
}

func TestSubmitVote_FullRitual(t *testing.T) {
	s := newSession(t, testPool, teamA, teamB)

	out := voteUntilResolved(t, s, SideA, ActionBan, "nuke", 1, 2, 3)
	require.True(t, out.Resolved)
	assert.False(t, out.Completed)
	assert.Equal(t, &Step{Side: SideB, Action: ActionBan}, out.Next)

	out = voteUntilResolved(t, s, SideB, ActionBan, "anubis", 6, 7, 8)
	require.True(t, out.Resolved)
	assert.False(t, out.Completed)

	out = voteUntilResolved(t, s, SideA, ActionPick, "mirage", 4, 5, 1)
	require.True(t, out.Resolved)
	assert.True(t, out.Completed)
	assert.Equal(t, "mirage", out.FinalMap)
	assert.Nil(t, out.Next)

	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, "mirage", s.ResolvedMap)
	assert.Equal(t, 3, s.Step)
	assert.Equal(t, []string{"inferno", "dust2", "overpass", "ancient"}, s.Candidates)

	wantLog := []Record{
		{Side: SideA, Action: ActionBan, Map: "nuke", Tally: map[string]int{"nuke": 3}, At: now},
		{Side: SideB, Action: ActionBan, Map: "anubis", Tally: map[string]int{"anubis": 3}, At: now},
		{Side: SideA, Action: ActionPick, Map: "mirage", Tally: map[string]int{"mirage": 3}, At: now},
	}
	if diff := cmp.Diff(wantLog, s.Log); diff != "" {
		t.Errorf("action log mismatch (-want +got):\n%s", diff)
	}

	_, err := s.SubmitVote(SideA, ActionPick, "inferno", 1, now)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSubmitVote_TwoMapPoolCompletesOnFirstBan(t *testing.T) {
	s := newSession(t, []string{"inferno", "mirage"}, []int{1}, []int{2})

	out, err := s.SubmitVote(SideA, ActionBan, "inferno", 1, now)
	require.NoError(t, err)

	assert.True(t, out.Completed)
	assert.Equal(t, "mirage", out.FinalMap)
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, "mirage", s.ResolvedMap)
	assert.Len(t, s.Log, 1)
}

func TestSubmitVote_ThreeMapPoolCompletesAfterSecondBan(t *testing.T) {
	s := newSession(t, []string{"inferno", "mirage", "dust2"}, []int{1}, []int{2})

	_, err := s.SubmitVote(SideA, ActionBan, "inferno", 1, now)
	require.NoError(t, err)
	out, err := s.SubmitVote(SideB, ActionBan, "dust2", 2, now)
	require.NoError(t, err)

	assert.True(t, out.Completed)
	assert.Equal(t, "mirage", s.ResolvedMap)
	assert.Equal(t, 2, s.Step)
}

func TestSubmitVote_WaitingBelowQuorum(t *testing.T) {
	s := newSession(t, testPool, teamA, teamB)

	out, err := s.SubmitVote(SideA, ActionBan, "nuke", 1, now)
	require.NoError(t, err)
	assert.False(t, out.Resolved)
	assert.Equal(t, 3, out.Quorum)
	assert.Equal(t, map[string]int{"nuke": 1}, out.Tally)

	out, err = s.SubmitVote(SideA, ActionBan, "nuke", 2, now)
	require.NoError(t, err)
	assert.False(t, out.Resolved)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, 0, s.Step)
	assert.Len(t, s.Votes, 2)
}

func TestSubmitVote_QuorumForTeamOfFour(t *testing.T) {
	s := newSession(t, testPool, []int{1, 2, 3, 4}, []int{5, 6, 7, 8})

	out, err := s.SubmitVote(SideA, ActionBan, "dust2", 1, now)
	require.NoError(t, err)
	assert.False(t, out.Resolved)
	assert.Equal(t, 2, out.Quorum)

	out, err = s.SubmitVote(SideA, ActionBan, "dust2", 2, now)
	require.NoError(t, err)
	assert.True(t, out.Resolved)
	assert.Equal(t, "dust2", out.Record.Map)
}

func TestSubmitVote_LastVoteWins(t *testing.T) {
	s := newSession(t, testPool, teamA, teamB)

	voteUntilResolved(t, s, SideA, ActionBan, "nuke", 1, 2)
	out, err := s.SubmitVote(SideA, ActionBan, "dust2", 2, now)
	require.NoError(t, err)

	assert.False(t, out.Resolved)
	assert.Equal(t, map[int]string{1: "nuke", 2: "dust2"}, s.Votes)
	assert.Equal(t, map[string]int{"nuke": 1, "dust2": 1}, out.Tally)
}

func TestSubmitVote_TieGoesToPoolOrder(t *testing.T) {
	// Кворум 2: по одному голосу за две карты, лидер определяется порядком пула.
	s := newSession(t, testPool, []int{1, 2, 3, 4}, []int{5, 6})

	voteUntilResolved(t, s, SideA, ActionBan, "ancient", 1)
	out, err := s.SubmitVote(SideA, ActionBan, "mirage", 2, now)
	require.NoError(t, err)

	require.False(t, out.Resolved)
	assert.Equal(t, "mirage", out.Leading, "mirage precedes ancient in the pool")
	assert.Equal(t, 1, out.Count)

	out, err = s.SubmitVote(SideA, ActionBan, "ancient", 3, now)
	require.NoError(t, err)
	require.True(t, out.Resolved)
	assert.Equal(t, "ancient", out.Record.Map)
}

func TestSubmitVote_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		side    Side
		action  Action
		mapName string
		player  int
		wantErr error
	}{
		{"unknown map", SideA, ActionBan, "vertigo", 1, ErrInvalidMap},
		{"wrong team", SideB, ActionBan, "nuke", 6, ErrWrongTurn},
		{"wrong action", SideA, ActionPick, "nuke", 1, ErrWrongTurn},
		{"player from other team", SideA, ActionBan, "nuke", 6, ErrNotOnTeam},
		{"unknown player", SideA, ActionBan, "nuke", 42, ErrNotOnTeam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, testPool, teamA, teamB)
			_, err := s.SubmitVote(tt.side, tt.action, tt.mapName, tt.player, now)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, s.Votes, "rejected vote must not touch the tally")
			assert.Equal(t, 0, s.Step)
		})
	}
}

func TestSubmitVote_NotOnTeamKeepsExistingVotes(t *testing.T) {
	s := newSession(t, testPool, teamA, teamB)
	voteUntilResolved(t, s, SideA, ActionBan, "nuke", 1)

	_, err := s.SubmitVote(SideA, ActionBan, "nuke", 7, now)
	require.ErrorIs(t, err, ErrNotOnTeam)
	assert.Equal(t, map[int]string{1: "nuke"}, s.Votes)
}

func TestSubmitVote_BannedMapCannotBePicked(t *testing.T) {
	s := newSession(t, testPool, []int{1}, []int{2})
	voteUntilResolved(t, s, SideA, ActionBan, "nuke", 1)
	voteUntilResolved(t, s, SideB, ActionBan, "dust2", 2)

	_, err := s.SubmitVote(SideA, ActionPick, "nuke", 1, now)
	assert.ErrorIs(t, err, ErrInvalidMap)
}

func TestSubmitVote_CandidatesOnlyShrink(t *testing.T) {
	s := newSession(t, testPool, teamA, teamB)
	prev := len(s.Candidates)
	steps := []struct {
		side    Side
		action  Action
		m       string
		players []int
	}{
		{SideA, ActionBan, "inferno", []int{1, 2, 3}},
		{SideB, ActionBan, "overpass", []int{8, 9, 10}},
		{SideA, ActionPick, "ancient", []int{3, 4, 5}},
	}
	for _, st := range steps {
		for _, p := range st.players {
			_, err := s.SubmitVote(st.side, st.action, st.m, p, now)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(s.Candidates), prev)
			prev = len(s.Candidates)
		}
	}
	assert.Equal(t, "ancient", s.ResolvedMap)
}

func TestSubmitVote_PanicsOnCorruptedStep(t *testing.T) {
	s := newSession(t, testPool, teamA, teamB)
	s.Step = StepCount
	assert.Panics(t, func() {
		_, _ = s.SubmitVote(SideA, ActionBan, "nuke", 1, now)
	})
}
