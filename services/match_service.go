package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/Dosada05/scrim-system/matchmaking"
	"github.com/Dosada05/scrim-system/models"
	"github.com/Dosada05/scrim-system/rating"
	"github.com/Dosada05/scrim-system/repositories"
	"golang.org/x/sync/singleflight"
)

type MatchService interface {
	// StartMatching balances the room's roster once. Repeated calls return the stored teams.
	StartMatching(ctx context.Context, roomID int) (*models.Room, error)
	GetCurrentMatch(ctx context.Context, roomID int) (*models.Match, error)
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	UpdateLive(ctx context.Context, matchID int, input ResultInput) (*models.Match, error)
	Finish(ctx context.Context, matchID int, input ResultInput) (*FinishResult, error)
}

type ResultInput struct {
	ScoreA      int                 `json:"score_a"`
	ScoreB      int                 `json:"score_b"`
	PlayerStats []models.PlayerStat `json:"player_stats"`
}

type FinishResult struct {
	Match   *models.Match   `json:"match"`
	Changes []rating.Change `json:"elo_changes"`
}

type matchService struct {
	tx            repositories.Transactor
	roomRepo      repositories.RoomRepository
	matchRepo     repositories.MatchRepository
	playerRepo    repositories.PlayerRepository
	statRepo      repositories.PlayerStatRepository
	ratingHistory repositories.RatingHistoryRepository
	balancer      *matchmaking.Balancer
	model         *rating.Model
	notifier      Notifier
	metrics       Metrics
	logger        *slog.Logger
	matching      singleflight.Group
}

type MatchServiceDeps struct {
	Tx            repositories.Transactor
	Rooms         repositories.RoomRepository
	Matches       repositories.MatchRepository
	Players       repositories.PlayerRepository
	Stats         repositories.PlayerStatRepository
	RatingHistory repositories.RatingHistoryRepository
	Balancer      *matchmaking.Balancer
	Model         *rating.Model
	Notifier      Notifier
	Metrics       Metrics
	Logger        *slog.Logger
}

func NewMatchService(deps MatchServiceDeps) MatchService {
	if deps.Balancer == nil {
		deps.Balancer = matchmaking.NewBalancer(matchmaking.DefaultMaxRoster)
	}
	if deps.Model == nil {
		deps.Model = rating.NewModel(rating.MissingSkip)
	}
	return &matchService{
		tx:            deps.Tx,
		roomRepo:      deps.Rooms,
		matchRepo:     deps.Matches,
		playerRepo:    deps.Players,
		statRepo:      deps.Stats,
		ratingHistory: deps.RatingHistory,
		balancer:      deps.Balancer,
		model:         deps.Model,
		notifier:      notifierOrNop(deps.Notifier),
		metrics:       metricsOrNop(deps.Metrics),
		logger:        deps.Logger,
	}
}

func (s *matchService) StartMatching(ctx context.Context, roomID int) (*models.Room, error) {
	// singleflight схлопывает одновременные запросы в одном процессе,
	// FOR UPDATE и проверка IsMatched защищают от остальных.
	v, err, _ := s.matching.Do(strconv.Itoa(roomID), func() (interface{}, error) {
		return s.startMatching(ctx, roomID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Room), nil
}

func (s *matchService) startMatching(ctx context.Context, roomID int) (*models.Room, error) {
	var (
		room    *models.Room
		matched bool
	)
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		room, err = s.roomRepo.GetByIDForUpdate(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if room.IsMatched() {
			return nil
		}
		if room.Status != models.RoomStatusReady {
			return fmt.Errorf("%w: room is %s, all players must be ready", ErrInvalidState, room.Status)
		}

		roster := make([]matchmaking.Player, 0, len(room.Players))
		for _, p := range room.Players {
			roster = append(roster, matchmaking.Player{ID: p.PlayerID, Rating: p.Rating})
		}
		assignment, err := s.balancer.Balance(roster)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidState, err)
		}

		room.TeamA = assignment.TeamA
		room.TeamB = assignment.TeamB
		room.AverageA = assignment.AverageA
		room.AverageB = assignment.AverageB
		room.Gap = assignment.Gap
		room.Status = models.RoomStatusMatching
		matched = true
		return s.roomRepo.Update(ctx, tx, room)
	})
	if err != nil {
		return nil, translateMatchError(err)
	}

	if matched {
		s.logger.Info("room matched",
			slog.Int("room_id", room.ID),
			slog.Int("players", len(room.Players)),
			slog.Float64("team_a_avg", room.AverageA),
			slog.Float64("team_b_avg", room.AverageB),
			slog.Float64("gap", room.Gap))
		s.metrics.RoomMatched(room.Gap)
		s.notifier.Publish(room.ID, EventRoomMatched, room)
	}
	return room, nil
}

func (s *matchService) GetCurrentMatch(ctx context.Context, roomID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByRoom(ctx, nil, roomID)
	if err != nil {
		return nil, translateMatchError(err)
	}
	return match, nil
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, translateMatchError(err)
	}
	return match, nil
}

func (s *matchService) UpdateLive(ctx context.Context, matchID int, input ResultInput) (*models.Match, error) {
	if input.ScoreA < 0 || input.ScoreB < 0 {
		return nil, fmt.Errorf("%w: scores cannot be negative", ErrInvalidScore)
	}
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, translateMatchError(err)
	}
	if match.Status == models.MatchStatusFinished {
		return nil, ErrMatchAlreadyClosed
	}
	if err := validateStats(match, input.PlayerStats, false); err != nil {
		return nil, err
	}

	match.ScoreA = input.ScoreA
	match.ScoreB = input.ScoreB
	match.PlayerStats = input.PlayerStats
	if err := s.matchRepo.UpdateLive(ctx, match); err != nil {
		return nil, translateMatchError(err)
	}

	s.notifier.Publish(match.RoomID, EventMatchUpdated, match)
	return match, nil
}

func (s *matchService) Finish(ctx context.Context, matchID int, input ResultInput) (*FinishResult, error) {
	if input.ScoreA < 0 || input.ScoreB < 0 {
		return nil, fmt.Errorf("%w: scores cannot be negative", ErrInvalidScore)
	}
	if input.ScoreA == 0 && input.ScoreB == 0 {
		return nil, fmt.Errorf("%w: a finished match cannot be 0:0", ErrInvalidScore)
	}
	winner := winnerFromScore(input.ScoreA, input.ScoreB)

	var (
		match   *models.Match
		changes []rating.Change
	)
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if match.Status == models.MatchStatusFinished {
			return ErrMatchAlreadyClosed
		}
		if err := validateStats(match, input.PlayerStats, true); err != nil {
			return err
		}

		ids := make([]int, 0, len(match.TeamA)+len(match.TeamB))
		ids = append(ids, match.TeamA...)
		ids = append(ids, match.TeamB...)
		players, err := s.playerRepo.ListByIDsForUpdate(ctx, tx, ids)
		if err != nil {
			return fmt.Errorf("failed to lock match players: %w", err)
		}
		before := make(map[int]int, len(players))
		for _, p := range players {
			before[p.ID] = p.Rating
		}

		submitted := make(map[int]models.PlayerStat, len(input.PlayerStats))
		combat := make(map[int]rating.Stat, len(input.PlayerStats))
		for _, st := range input.PlayerStats {
			submitted[st.PlayerID] = st
			combat[st.PlayerID] = rating.Stat{Kills: st.Kills, Deaths: st.Deaths}
		}

		changes, err = s.model.Update(match.TeamA, match.TeamB, before, winner, combat)
		if err != nil {
			return err
		}

		w := string(winner)
		match.ScoreA = input.ScoreA
		match.ScoreB = input.ScoreB
		match.Winner = &w
		match.PlayerStats = input.PlayerStats
		if err := s.matchRepo.Finalize(ctx, tx, match); err != nil {
			return err
		}

		statRows := make([]models.PlayerMatchStat, 0, len(changes))
		results := make([]models.PlayerResult, 0, len(changes))
		history := make([]models.RatingChange, 0, len(changes))
		for _, c := range changes {
			st := submitted[c.PlayerID]
			side := match.SideOf(c.PlayerID)
			statRows = append(statRows, models.PlayerMatchStat{
				MatchID:      match.ID,
				PlayerID:     c.PlayerID,
				Team:         side,
				Kills:        st.Kills,
				Deaths:       st.Deaths,
				Assists:      st.Assists,
				KDRatio:      roundKD(rating.Stat{Kills: st.Kills, Deaths: st.Deaths}.KD()),
				RatingBefore: c.Before,
				RatingAfter:  c.After,
				RatingChange: c.Delta,
			})
			won := winner != rating.WinnerDraw && side == w
			lost := winner != rating.WinnerDraw && side != w
			results = append(results, models.PlayerResult{
				PlayerID:  c.PlayerID,
				NewRating: c.After,
				Win:       won,
				Loss:      lost,
				Kills:     st.Kills,
				Deaths:    st.Deaths,
			})
			history = append(history, models.RatingChange{
				PlayerID: c.PlayerID,
				MatchID:  match.ID,
				Before:   c.Before,
				After:    c.After,
				Change:   c.Delta,
				Reason:   resultReason(won, lost),
			})
		}

		if err := s.statRepo.CreateBatch(ctx, tx, statRows); err != nil {
			return err
		}
		if err := s.playerRepo.ApplyResults(ctx, tx, results); err != nil {
			return err
		}
		if err := s.ratingHistory.CreateBatch(ctx, tx, history); err != nil {
			return err
		}

		room, err := s.roomRepo.GetByIDForUpdate(ctx, tx, match.RoomID)
		if err != nil {
			return err
		}
		room.Status = models.RoomStatusFinished
		return s.roomRepo.Update(ctx, tx, room)
	})
	if err != nil {
		return nil, translateMatchError(err)
	}

	result := &FinishResult{Match: match, Changes: changes}
	s.logger.Info("match finished",
		slog.Int("match_id", match.ID),
		slog.Int("room_id", match.RoomID),
		slog.String("winner", string(winner)),
		slog.Int("score_a", match.ScoreA),
		slog.Int("score_b", match.ScoreB),
		slog.Int("rated_players", len(changes)))
	deltas := make([]int, 0, len(changes))
	for _, c := range changes {
		deltas = append(deltas, c.Delta)
	}
	s.metrics.MatchFinished(string(winner), deltas)
	s.notifier.Publish(match.RoomID, EventMatchFinished, result)
	return result, nil
}

// validateStats проверяет, что строки статистики относятся к игрокам матча.
// Для завершения матча строка без убийств и смертей считается ошибочной.
func validateStats(match *models.Match, stats []models.PlayerStat, final bool) error {
	seen := make(map[int]struct{}, len(stats))
	for _, st := range stats {
		if match.SideOf(st.PlayerID) == "" {
			return fmt.Errorf("%w: player %d did not play in match %d", ErrInvalidStats, st.PlayerID, match.ID)
		}
		if _, dup := seen[st.PlayerID]; dup {
			return fmt.Errorf("%w: duplicate row for player %d", ErrInvalidStats, st.PlayerID)
		}
		seen[st.PlayerID] = struct{}{}
		if st.Kills < 0 || st.Deaths < 0 || st.Assists < 0 {
			return fmt.Errorf("%w: negative values for player %d", ErrInvalidStats, st.PlayerID)
		}
		if final && st.Kills == 0 && st.Deaths == 0 {
			return fmt.Errorf("%w: player %d has neither kills nor deaths", ErrInvalidStats, st.PlayerID)
		}
	}
	return nil
}

func winnerFromScore(a, b int) rating.Winner {
	switch {
	case a > b:
		return rating.WinnerA
	case b > a:
		return rating.WinnerB
	default:
		return rating.WinnerDraw
	}
}

func resultReason(won, lost bool) string {
	switch {
	case won:
		return "win"
	case lost:
		return "loss"
	default:
		return "draw"
	}
}

func roundKD(kd float64) float64 {
	return math.Round(kd*100) / 100
}

func translateMatchError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, repositories.ErrMatchAlreadyClosed):
		return ErrMatchAlreadyClosed
	case errors.Is(err, rating.ErrMissingRating), errors.Is(err, repositories.ErrPlayerNotFound):
		return fmt.Errorf("%w: %w", ErrPlayerNotFound, err)
	case repositories.IsRetryable(err):
		return fmt.Errorf("%w: %w", ErrConcurrentUpdate, err)
	default:
		return err
	}
}
