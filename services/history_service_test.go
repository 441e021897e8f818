package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/scrim-system/models"
	"github.com/Dosada05/scrim-system/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryService_Ranking(t *testing.T) {
	env := newTestEnv()
	env.store.addPlayer(1, "low", 900)
	top := env.store.addPlayer(2, "top", 1800)
	top.TotalMatches, top.Wins, top.Losses = 3, 2, 1
	top.TotalKills, top.TotalDeaths = 50, 30
	mid := env.store.addPlayer(3, "mid", 1200)
	mid.TotalMatches, mid.Wins = 1, 1
	mid.TotalKills = 7

	svc := NewHistoryService(env.players, env.stats, env.history, nil)
	ranking, err := svc.Ranking(context.Background())
	require.NoError(t, err)
	require.Len(t, ranking, 3)

	assert.Equal(t, models.RankingEntry{
		Rank: 1, PlayerID: 2, Nickname: "top", Rating: 1800,
		TotalMatches: 3, Wins: 2, Losses: 1, WinRate: 67, KDRatio: "1.67",
	}, ranking[0])
	assert.Equal(t, 2, ranking[1].Rank)
	assert.Equal(t, 100, ranking[1].WinRate)
	assert.Equal(t, "7.00", ranking[1].KDRatio)
	assert.Equal(t, "low", ranking[2].Nickname)
	assert.Zero(t, ranking[2].WinRate)
	assert.Equal(t, "0.00", ranking[2].KDRatio)
}

func TestHistoryService_AfterFinishedMatch(t *testing.T) {
	env := newTestEnv()
	match := playingMatch(env)
	_, err := newTestMatchService(env, nil, rating.MissingSkip).Finish(context.Background(), match.ID, ResultInput{
		ScoreA:      16,
		ScoreB:      12,
		PlayerStats: []models.PlayerStat{{PlayerID: 3, Kills: 20, Deaths: 10}},
	})
	require.NoError(t, err)

	svc := NewHistoryService(env.players, env.stats, env.history, nil)

	matches, err := svc.PlayerHistory(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, match.ID, matches[0].MatchID)
	assert.Equal(t, "de_mirage", *matches[0].MatchMap)
	assert.Equal(t, models.WinnerA, *matches[0].MatchWinner)
	assert.Equal(t, 20, matches[0].Kills)

	changes, err := svc.RatingHistory(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "loss", changes[0].Reason)
	assert.Equal(t, -19, changes[0].Change)

	profile, err := svc.Profile(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1481, profile.Player.Rating)
	assert.Len(t, profile.RecentMatches, 1)
	assert.Len(t, profile.RatingHistory, 1)
}

func TestHistoryService_UnknownPlayer(t *testing.T) {
	env := newTestEnv()
	svc := NewHistoryService(env.players, env.stats, env.history, nil)

	_, err := svc.PlayerHistory(context.Background(), 5)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, err = svc.RatingHistory(context.Background(), 5)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, err = svc.Profile(context.Background(), 5)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestHistoryService_ProfileFailure(t *testing.T) {
	env := newTestEnv()
	env.store.addPlayer(1, "alpha", 1000)
	boom := errors.New("connection reset")
	env.history.ListErr = boom

	_, err := NewHistoryService(env.players, env.stats, env.history, nil).Profile(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}
