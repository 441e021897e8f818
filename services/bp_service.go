package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Dosada05/scrim-system/banpick"
	"github.com/Dosada05/scrim-system/models"
	"github.com/Dosada05/scrim-system/repositories"
)

type BPService interface {
	Start(ctx context.Context, roomID int) (*BPView, error)
	Vote(ctx context.Context, bpID, playerID int, input VoteInput) (*VoteResult, error)
	Get(ctx context.Context, bpID int) (*BPView, error)
}

type VoteInput struct {
	Team   banpick.Side   `json:"team"`
	Action banpick.Action `json:"action"`
	Map    string         `json:"map"`
}

// BPView is a session together with the action it is waiting for.
type BPView struct {
	*models.BPSession
	NextAction *banpick.Step `json:"next_action"`
}

type VoteResult struct {
	Session *BPView          `json:"session"`
	Outcome *banpick.Outcome `json:"outcome"`
	// Match is set when this vote completed the session.
	Match *models.Match `json:"match,omitempty"`
}

type bpService struct {
	tx        repositories.Transactor
	bpRepo    repositories.BPSessionRepository
	roomRepo  repositories.RoomRepository
	matchRepo repositories.MatchRepository
	notifier  Notifier
	metrics   Metrics
	logger    *slog.Logger
	mapPool   []string
	now       func() time.Time
}

func NewBPService(
	tx repositories.Transactor,
	bpRepo repositories.BPSessionRepository,
	roomRepo repositories.RoomRepository,
	matchRepo repositories.MatchRepository,
	notifier Notifier,
	metrics Metrics,
	logger *slog.Logger,
	mapPool []string,
) BPService {
	return &bpService{
		tx:        tx,
		bpRepo:    bpRepo,
		roomRepo:  roomRepo,
		matchRepo: matchRepo,
		notifier:  notifierOrNop(notifier),
		metrics:   metricsOrNop(metrics),
		logger:    logger,
		mapPool:   slices.Clone(mapPool),
		now:       time.Now,
	}
}

func newBPView(bp *models.BPSession) *BPView {
	view := &BPView{BPSession: bp}
	if step, ok := bp.NextStep(); ok {
		view.NextAction = &step
	}
	return view
}

func (s *bpService) Start(ctx context.Context, roomID int) (*BPView, error) {
	var (
		bp      *models.BPSession
		created bool
	)
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		room, err := s.roomRepo.GetByIDForUpdate(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if room.BPSessionID != nil {
			bp, err = s.bpRepo.GetByID(ctx, tx, *room.BPSessionID)
			return err
		}
		if room.Status != models.RoomStatusMatching || !room.IsMatched() {
			return fmt.Errorf("%w: room is %s, teams must be assigned first", ErrInvalidState, room.Status)
		}

		session, err := banpick.Start(s.mapPool, room.TeamA, room.TeamB)
		if err != nil {
			return fmt.Errorf("failed to open ban/pick session: %w", err)
		}
		bp = &models.BPSession{RoomID: room.ID, Session: *session}
		if err := s.bpRepo.Create(ctx, tx, bp); err != nil {
			return err
		}

		room.BPSessionID = &bp.ID
		room.Status = models.RoomStatusBP
		created = true
		return s.roomRepo.Update(ctx, tx, room)
	})
	if err != nil {
		return nil, s.translateError(err)
	}

	view := newBPView(bp)
	if created {
		s.logger.Info("ban/pick started", slog.Int("room_id", roomID), slog.Int("bp_id", bp.ID),
			slog.Int("maps", len(bp.Pool)))
		s.notifier.Publish(roomID, EventBPUpdated, view)
	}
	return view, nil
}

func (s *bpService) Vote(ctx context.Context, bpID, playerID int, input VoteInput) (*VoteResult, error) {
	if !input.Team.Valid() || !input.Action.Valid() || input.Map == "" {
		return nil, fmt.Errorf("%w: team must be A or B, action ban or pick, map required", ErrValidationFailed)
	}

	var (
		bp      *models.BPSession
		outcome *banpick.Outcome
		match   *models.Match
	)
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		bp, err = s.bpRepo.GetByIDForUpdate(ctx, tx, bpID)
		if err != nil {
			return err
		}

		outcome, err = bp.SubmitVote(input.Team, input.Action, input.Map, playerID, s.now())
		if err != nil {
			return err
		}
		if err := s.bpRepo.Update(ctx, tx, bp); err != nil {
			return err
		}
		if !outcome.Completed {
			return nil
		}

		// Сессия завершена: создаём матч и переводим комнату в playing в той же транзакции.
		match = &models.Match{
			RoomID:      bp.RoomID,
			Map:         outcome.FinalMap,
			TeamA:       slices.Clone(bp.TeamA),
			TeamB:       slices.Clone(bp.TeamB),
			Status:      models.MatchStatusPlaying,
			PlayerStats: []models.PlayerStat{},
		}
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return err
		}
		room, err := s.roomRepo.GetByIDForUpdate(ctx, tx, bp.RoomID)
		if err != nil {
			return err
		}
		room.Status = models.RoomStatusPlaying
		return s.roomRepo.Update(ctx, tx, room)
	})
	if err != nil {
		return nil, s.translateError(err)
	}

	result := &VoteResult{Session: newBPView(bp), Outcome: outcome, Match: match}
	if outcome.Resolved {
		s.logger.Info("ban/pick step resolved",
			slog.Int("bp_id", bp.ID),
			slog.String("team", string(outcome.Record.Side)),
			slog.String("action", string(outcome.Record.Action)),
			slog.String("map", outcome.Record.Map))
		s.metrics.BPStepResolved(string(outcome.Record.Action))
	}
	if outcome.Completed {
		s.logger.Info("ban/pick completed", slog.Int("bp_id", bp.ID), slog.String("map", outcome.FinalMap),
			slog.Int("match_id", match.ID))
		s.metrics.BPCompleted(outcome.FinalMap)
		s.notifier.Publish(bp.RoomID, EventBPCompleted, result)
	} else {
		s.notifier.Publish(bp.RoomID, EventBPUpdated, result)
	}
	return result, nil
}

func (s *bpService) Get(ctx context.Context, bpID int) (*BPView, error) {
	bp, err := s.bpRepo.GetByID(ctx, nil, bpID)
	if err != nil {
		return nil, s.translateError(err)
	}
	return newBPView(bp), nil
}

func (s *bpService) translateError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrBPSessionNotFound):
		return ErrBPSessionNotFound
	case errors.Is(err, repositories.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, repositories.ErrVersionConflict), repositories.IsRetryable(err):
		return fmt.Errorf("%w: %w", ErrConcurrentUpdate, err)
	case errors.Is(err, repositories.ErrBPSessionExists), errors.Is(err, repositories.ErrMatchExists):
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	case errors.Is(err, banpick.ErrNotOnTeam):
		return fmt.Errorf("%w: %w", ErrNotOnTeam, err)
	case errors.Is(err, banpick.ErrInvalidMap):
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	case errors.Is(err, banpick.ErrSessionClosed), errors.Is(err, banpick.ErrWrongTurn):
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	default:
		return err
	}
}
