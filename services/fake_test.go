package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dosada05/scrim-system/banpick"
	"github.com/Dosada05/scrim-system/models"
	"github.com/Dosada05/scrim-system/repositories"
	"github.com/Dosada05/scrim-system/storage"
)

// ------------------------
// In-memory store shared by the fake repositories
// ------------------------

type memStore struct {
	mu      sync.Mutex
	nextID  int
	now     time.Time
	players map[int]*models.Player
	rooms   map[int]*models.Room
	bps     map[int]*models.BPSession
	matches map[int]*models.Match
	stats   []models.PlayerMatchStat
	history []models.RatingChange
}

func newMemStore() *memStore {
	return &memStore{
		now:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		players: map[int]*models.Player{},
		rooms:   map[int]*models.Room{},
		bps:     map[int]*models.BPSession{},
		matches: map[int]*models.Match{},
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

// addPlayer inserts a player with a fixed id.
func (s *memStore) addPlayer(id int, nickname string, rating int) *models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Player{ID: id, Nickname: nickname, Rating: rating, CreatedAt: s.now, UpdatedAt: s.now}
	s.players[id] = p
	if id > s.nextID {
		s.nextID = id
	}
	return p
}

func (s *memStore) player(id int) models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.players[id]
}

func (s *memStore) room(id int) *models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil
	}
	return copyRoom(r)
}

func (s *memStore) match(id int) *models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMatch(s.matches[id])
}

func (s *memStore) putRoom(room *models.Room) *models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.ID == 0 {
		room.ID = s.id()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = s.now
		room.UpdatedAt = s.now
	}
	s.rooms[room.ID] = copyRoom(room)
	return room
}

func (s *memStore) putMatch(m *models.Match) *models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.id()
	m.CreatedAt = s.now
	m.UpdatedAt = s.now
	s.matches[m.ID] = copyMatch(m)
	return m
}

func copyRoom(r *models.Room) *models.Room {
	c := *r
	c.Players = slices.Clone(r.Players)
	c.TeamA = slices.Clone(r.TeamA)
	c.TeamB = slices.Clone(r.TeamB)
	if r.BPSessionID != nil {
		id := *r.BPSessionID
		c.BPSessionID = &id
	}
	return &c
}

func copyBP(bp *models.BPSession) *models.BPSession {
	c := *bp
	c.TeamA = slices.Clone(bp.TeamA)
	c.TeamB = slices.Clone(bp.TeamB)
	c.Pool = slices.Clone(bp.Pool)
	c.Candidates = slices.Clone(bp.Candidates)
	c.Log = make([]banpick.Record, len(bp.Log))
	for i, rec := range bp.Log {
		rec.Tally = maps.Clone(rec.Tally)
		c.Log[i] = rec
	}
	c.Votes = maps.Clone(bp.Votes)
	if c.Votes == nil {
		c.Votes = map[int]string{}
	}
	return &c
}

func copyMatch(m *models.Match) *models.Match {
	if m == nil {
		return nil
	}
	c := *m
	c.TeamA = slices.Clone(m.TeamA)
	c.TeamB = slices.Clone(m.TeamB)
	c.PlayerStats = slices.Clone(m.PlayerStats)
	if m.Winner != nil {
		w := *m.Winner
		c.Winner = &w
	}
	return &c
}

// ------------------------
// Fake transactor
// ------------------------

type fakeTx struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(tx repositories.SQLExecutor) error) error {
	f.calls.Add(1)
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// ------------------------
// Fake player repo
// ------------------------

type fakePlayerRepo struct {
	s *memStore

	ListTopErr error
}

func (r *fakePlayerRepo) Create(ctx context.Context, player *models.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.players {
		if p.Nickname == player.Nickname {
			return repositories.ErrPlayerNicknameConflict
		}
	}
	player.ID = r.s.id()
	player.CreatedAt = r.s.now
	player.UpdatedAt = r.s.now
	c := *player
	r.s.players[player.ID] = &c
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	c := *p
	return &c, nil
}

func (r *fakePlayerRepo) GetByNickname(ctx context.Context, nickname string) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.players {
		if p.Nickname == nickname {
			c := *p
			return &c, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) ListByIDsForUpdate(ctx context.Context, exec repositories.SQLExecutor, ids []int) ([]models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	out := make([]models.Player, 0, len(ids))
	for _, id := range slices.Compact(sorted) {
		if p, ok := r.s.players[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) ApplyResults(ctx context.Context, exec repositories.SQLExecutor, results []models.PlayerResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, res := range results {
		p, ok := r.s.players[res.PlayerID]
		if !ok {
			return repositories.ErrPlayerNotFound
		}
		p.Rating = res.NewRating
		p.TotalMatches++
		if res.Win {
			p.Wins++
		}
		if res.Loss {
			p.Losses++
		}
		p.TotalKills += res.Kills
		p.TotalDeaths += res.Deaths
	}
	return nil
}

func (r *fakePlayerRepo) UpdateAvatarKey(ctx context.Context, playerID int, key *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[playerID]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.AvatarKey = key
	return nil
}

func (r *fakePlayerRepo) ListTopByRating(ctx context.Context, limit int) ([]models.Player, error) {
	if r.ListTopErr != nil {
		return nil, r.ListTopErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Player, 0, len(r.s.players))
	for _, p := range r.s.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ------------------------
// Fake room repo
// ------------------------

type fakeRoomRepo struct {
	s *memStore
}

func (r *fakeRoomRepo) Create(ctx context.Context, exec repositories.SQLExecutor, room *models.Room) error {
	r.s.putRoom(room)
	return nil
}

func (r *fakeRoomRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Room, error) {
	if room := r.s.room(id); room != nil {
		return room, nil
	}
	return nil, repositories.ErrRoomNotFound
}

func (r *fakeRoomRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Room, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeRoomRepo) sortedIDs() []int {
	ids := make([]int, 0, len(r.s.rooms))
	for id := range r.s.rooms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *fakeRoomRepo) FindJoinable(ctx context.Context, exec repositories.SQLExecutor, capacity int) (*models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range r.sortedIDs() {
		room := r.s.rooms[id]
		if room.Status == models.RoomStatusWaiting && len(room.Players) < capacity {
			return copyRoom(room), nil
		}
	}
	return nil, repositories.ErrRoomNotFound
}

func (r *fakeRoomRepo) FindActiveByPlayer(ctx context.Context, exec repositories.SQLExecutor, playerID int) (*models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := r.sortedIDs()
	slices.Reverse(ids)
	for _, id := range ids {
		room := r.s.rooms[id]
		if room.Status != models.RoomStatusFinished && room.HasPlayer(playerID) {
			return copyRoom(room), nil
		}
	}
	return nil, repositories.ErrRoomNotFound
}

func (r *fakeRoomRepo) Update(ctx context.Context, exec repositories.SQLExecutor, room *models.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rooms[room.ID]; !ok {
		return repositories.ErrRoomNotFound
	}
	room.UpdatedAt = r.s.now
	r.s.rooms[room.ID] = copyRoom(room)
	return nil
}

func (r *fakeRoomRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rooms[id]; !ok {
		return repositories.ErrRoomNotFound
	}
	delete(r.s.rooms, id)
	return nil
}

func (r *fakeRoomRepo) ListOpen(ctx context.Context, limit int) ([]models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := r.sortedIDs()
	slices.Reverse(ids)
	out := make([]models.Room, 0)
	for _, id := range ids {
		room := r.s.rooms[id]
		if isLobbyStatus(room.Status) && len(out) < limit {
			out = append(out, *copyRoom(room))
		}
	}
	return out, nil
}

func (r *fakeRoomRepo) DeleteIdleWaiting(ctx context.Context, idleSince time.Time) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	deleted := make([]int, 0)
	for _, id := range r.sortedIDs() {
		room := r.s.rooms[id]
		if room.Status == models.RoomStatusWaiting && room.UpdatedAt.Before(idleSince) {
			delete(r.s.rooms, id)
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// ------------------------
// Fake ban/pick repo
// ------------------------

type fakeBPRepo struct {
	s *memStore

	UpdateErr error
}

func (r *fakeBPRepo) Create(ctx context.Context, exec repositories.SQLExecutor, bp *models.BPSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.bps {
		if existing.RoomID == bp.RoomID {
			return repositories.ErrBPSessionExists
		}
	}
	bp.ID = r.s.id()
	bp.Version = 1
	bp.CreatedAt = r.s.now
	bp.UpdatedAt = r.s.now
	r.s.bps[bp.ID] = copyBP(bp)
	return nil
}

func (r *fakeBPRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.BPSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	bp, ok := r.s.bps[id]
	if !ok {
		return nil, repositories.ErrBPSessionNotFound
	}
	return copyBP(bp), nil
}

func (r *fakeBPRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.BPSession, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeBPRepo) GetByRoom(ctx context.Context, exec repositories.SQLExecutor, roomID int) (*models.BPSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, bp := range r.s.bps {
		if bp.RoomID == roomID {
			return copyBP(bp), nil
		}
	}
	return nil, repositories.ErrBPSessionNotFound
}

func (r *fakeBPRepo) Update(ctx context.Context, exec repositories.SQLExecutor, bp *models.BPSession) error {
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.bps[bp.ID]
	if !ok || stored.Version != bp.Version {
		return repositories.ErrVersionConflict
	}
	bp.Version++
	bp.UpdatedAt = r.s.now
	r.s.bps[bp.ID] = copyBP(bp)
	return nil
}

// ------------------------
// Fake match repo
// ------------------------

type fakeMatchRepo struct {
	s *memStore
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.s.mu.Lock()
	for _, m := range r.s.matches {
		if m.RoomID == match.RoomID {
			r.s.mu.Unlock()
			return repositories.ErrMatchExists
		}
	}
	r.s.mu.Unlock()
	r.s.putMatch(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	if m := r.s.match(id); m != nil {
		return m, nil
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeMatchRepo) GetByRoom(ctx context.Context, exec repositories.SQLExecutor, roomID int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.matches {
		if m.RoomID == roomID {
			return copyMatch(m), nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) UpdateLive(ctx context.Context, match *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.matches[match.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if stored.Status != models.MatchStatusPlaying {
		return repositories.ErrMatchAlreadyClosed
	}
	stored.ScoreA, stored.ScoreB = match.ScoreA, match.ScoreB
	stored.PlayerStats = slices.Clone(match.PlayerStats)
	return nil
}

func (r *fakeMatchRepo) Finalize(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.matches[match.ID]
	if !ok || stored.Status != models.MatchStatusPlaying {
		return repositories.ErrMatchAlreadyClosed
	}
	finished := r.s.now
	match.Status = models.MatchStatusFinished
	match.FinishedAt = &finished
	r.s.matches[match.ID] = copyMatch(match)
	return nil
}

func (r *fakeMatchRepo) CountFinishedByPlayer(ctx context.Context, playerID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.matches {
		if m.Status == models.MatchStatusFinished && m.SideOf(playerID) != "" {
			n++
		}
	}
	return n, nil
}

// ------------------------
// Fake stat and rating history repos
// ------------------------

type fakeStatRepo struct {
	s *memStore
}

func (r *fakeStatRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, stats []models.PlayerMatchStat) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range stats {
		stats[i].ID = r.s.id()
		stats[i].CreatedAt = r.s.now
		r.s.stats = append(r.s.stats, stats[i])
	}
	return nil
}

func (r *fakeStatRepo) ListByPlayer(ctx context.Context, playerID, limit int) ([]models.PlayerMatchStat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.PlayerMatchStat, 0)
	for i := len(r.s.stats) - 1; i >= 0 && len(out) < limit; i-- {
		st := r.s.stats[i]
		if st.PlayerID != playerID {
			continue
		}
		if m, ok := r.s.matches[st.MatchID]; ok {
			st.MatchMap = &m.Map
			st.MatchWinner = m.Winner
			st.MatchDate = m.FinishedAt
			st.ScoreA, st.ScoreB = m.ScoreA, m.ScoreB
		}
		out = append(out, st)
	}
	return out, nil
}

type fakeRatingHistoryRepo struct {
	s *memStore

	ListErr error
}

func (r *fakeRatingHistoryRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, changes []models.RatingChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range changes {
		changes[i].ID = r.s.id()
		changes[i].CreatedAt = r.s.now
		r.s.history = append(r.s.history, changes[i])
	}
	return nil
}

func (r *fakeRatingHistoryRepo) ListByPlayer(ctx context.Context, playerID, limit int) ([]models.RatingChange, error) {
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.RatingChange, 0)
	for i := len(r.s.history) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.history[i].PlayerID == playerID {
			out = append(out, r.s.history[i])
		}
	}
	return out, nil
}

// ------------------------
// Fake notifier and uploader
// ------------------------

type publishedEvent struct {
	RoomID  int
	Type    string
	Payload interface{}
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *fakeNotifier) Publish(roomID int, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{RoomID: roomID, Type: eventType, Payload: payload})
}

func (n *fakeNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

func (n *fakeNotifier) count(eventType string) int {
	return len(slices.DeleteFunc(n.types(), func(t string) bool { return t != eventType }))
}

type fakeMetrics struct {
	mu         sync.Mutex
	gaps       []float64
	steps      map[string]int
	finalMaps  []string
	winners    []string
	deltaCount int
}

func (m *fakeMetrics) RoomMatched(gap float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gaps = append(m.gaps, gap)
}

func (m *fakeMetrics) BPStepResolved(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.steps == nil {
		m.steps = map[string]int{}
	}
	m.steps[action]++
}

func (m *fakeMetrics) BPCompleted(finalMap string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalMaps = append(m.finalMaps, finalMap)
}

func (m *fakeMetrics) MatchFinished(winner string, ratingDeltas []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.winners = append(m.winners, winner)
	m.deltaCount += len(ratingDeltas)
}

type fakeUploader struct {
	uploads   map[string][]byte
	deleted   []string
	UploadErr error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: map[string][]byte{}}
}

func (u *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.UploadErr != nil {
		return nil, u.UploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	u.uploads[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	delete(u.uploads, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return fmt.Sprintf("https://cdn.test/%s", key)
}

// ------------------------
// Wiring helpers
// ------------------------

type testEnv struct {
	store    *memStore
	tx       *fakeTx
	players  *fakePlayerRepo
	rooms    *fakeRoomRepo
	bps      *fakeBPRepo
	matches  *fakeMatchRepo
	stats    *fakeStatRepo
	history  *fakeRatingHistoryRepo
	notifier *fakeNotifier
	metrics  *fakeMetrics
	logger   *slog.Logger
}

func newTestEnv() *testEnv {
	s := newMemStore()
	return &testEnv{
		store:    s,
		tx:       &fakeTx{},
		players:  &fakePlayerRepo{s: s},
		rooms:    &fakeRoomRepo{s: s},
		bps:      &fakeBPRepo{s: s},
		matches:  &fakeMatchRepo{s: s},
		stats:    &fakeStatRepo{s: s},
		history:  &fakeRatingHistoryRepo{s: s},
		notifier: &fakeNotifier{},
		metrics:  &fakeMetrics{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// readyRoom seeds players with the given ratings (ids 1..n) in a ready room.
func (e *testEnv) readyRoom(ratings ...int) *models.Room {
	room := &models.Room{Status: models.RoomStatusReady}
	for i, r := range ratings {
		id := i + 1
		p := e.store.addPlayer(id, fmt.Sprintf("player%d", id), r)
		room.Players = append(room.Players, models.RosterEntry{PlayerID: p.ID, Nickname: p.Nickname, Rating: r, Ready: true})
	}
	return e.store.putRoom(room)
}
