package duel

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/hecto/internal/puzzle"
	"github.com/dyluth/hecto/internal/scoring"
	"github.com/dyluth/hecto/pkg/channel"
)

const (
	// DefaultNamespace scopes channel names and Redis keys.
	DefaultNamespace = "default"

	idLength     = 6
	idAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxIDRetries = 5

	// idByteLimit is the largest multiple of len(idAlphabet) that fits in a
	// byte. Random bytes at or above it are discarded.
	idByteLimit = 256 - 256%len(idAlphabet)

	// recordTimeout bounds rating persistence after a match ends.
	recordTimeout = 5 * time.Second
)

// Recorder receives every terminal match for rating.
type Recorder interface {
	RecordMatch(ctx context.Context, res scoring.MatchResult) error
}

// CreateRequest describes a new match.
type CreateRequest struct {
	CreatorID  string
	Variant    Variant
	Difficulty puzzle.Difficulty
}

// SubmitResult reports the outcome of a puzzle-duel submission. Checker
// errors (bad digit order, malformed or non-finite expressions) are
// reported here rather than as call errors.
type SubmitResult struct {
	Match   *Match  `json:"game"`
	Correct bool    `json:"correct"`
	Value   float64 `json:"value,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Points  int     `json:"points,omitempty"`
}

// SubmitMove is the player-move payload broadcast for each submission.
type SubmitMove struct {
	Solution string `json:"solution"`
	Correct  bool   `json:"correct"`
}

// Service is the authoritative duel state machine. Every mutation goes
// through Store.Update; events are published after the update commits,
// stamped with the match sequence number.
type Service struct {
	store     Store
	transport channel.Transport
	generator *puzzle.Generator
	recorder  Recorder
	logger    *slog.Logger
	namespace string
	countdown time.Duration
	// disconnectTimeout abandons matches whose participants go silent.
	// Zero disables the sweep.
	disconnectTimeout time.Duration
	now               func() time.Time

	ctx    context.Context // for timer callbacks
	cancel context.CancelFunc
	wg     sync.WaitGroup

	timersMu sync.Mutex
	timers   map[string]*time.Timer
	closed   bool
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder feeds terminal matches to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNamespace scopes channel names.
func WithNamespace(ns string) Option {
	return func(s *Service) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithCountdown inserts a COUNTDOWN state of d between a full match and
// ACTIVE. Zero goes straight to ACTIVE.
func WithCountdown(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.countdown = d
		}
	}
}

// WithDisconnectTimeout abandons a match once one of its participants has
// sent no heartbeat, join, move or submission for d. Zero disables it.
func WithDisconnectTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.disconnectTimeout = d
		}
	}
}

// NewService wires a duel service. Call Close to stop pending timers.
func NewService(store Store, transport channel.Transport, generator *puzzle.Generator, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		store:     store,
		transport: transport,
		generator: generator,
		logger:    slog.Default(),
		namespace: DefaultNamespace,
		now:       func() time.Time { return time.Now().UTC() },
		ctx:       ctx,
		cancel:    cancel,
		timers:    make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "duel", "namespace", s.namespace)
	if s.disconnectTimeout > 0 {
		s.wg.Add(1)
		go s.sweepLoop()
	}
	return s
}

// Namespace returns the namespace used for channel names.
func (s *Service) Namespace() string {
	return s.namespace
}

// ChannelName returns the realtime channel of match id.
func (s *Service) ChannelName(id string) string {
	return channel.Name(s.namespace, id)
}

// Close stops every pending countdown and timeout and the disconnect sweep.
// The store and transport are owned by the caller.
func (s *Service) Close() error {
	s.timersMu.Lock()
	if s.closed {
		s.timersMu.Unlock()
		return nil
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.timersMu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

// pending is an event produced by a mutation, published after commit.
type pending struct {
	seq   uint64
	event channel.Event
}

type outbox struct {
	events []pending
}

func (o *outbox) emit(m *Match, ev channel.Event) {
	m.Seq++
	o.events = append(o.events, pending{seq: m.Seq, event: ev})
}

// mutate runs fn atomically on match id and publishes what it emitted.
func (s *Service) mutate(ctx context.Context, id string, fn func(*Match, *outbox) error) (*Match, error) {
	var box outbox
	m, err := s.store.Update(ctx, id, func(m *Match) error {
		box = outbox{} // optimistic stores may retry
		return fn(m, &box)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, m.ID, box.events)
	return m, nil
}

// publish sends events in order. A failure is logged, not returned: the
// store already committed and is authoritative. The transport marks itself
// disconnected, so later calls fail fast.
func (s *Service) publish(ctx context.Context, id string, events []pending) {
	name := s.ChannelName(id)
	for _, p := range events {
		if err := s.transport.Trigger(ctx, name, p.seq, p.event); err != nil {
			s.logger.Error("publish_failed",
				"match_id", id,
				"event_type", string(p.event.Type()),
				"seq", p.seq,
				"error", err.Error(),
			)
			return
		}
	}
}

func (s *Service) ensureConnected() error {
	if !s.transport.Connected() {
		return channel.ErrTransportUnavailable
	}
	return nil
}

// newMatchID draws idLength characters uniformly from idAlphabet.
func newMatchID() string {
	var b strings.Builder
	buf := make([]byte, 2*idLength)
	for b.Len() < idLength {
		rand.Read(buf)
		for _, c := range buf {
			if int(c) >= idByteLimit {
				continue
			}
			b.WriteByte(idAlphabet[int(c)%len(idAlphabet)])
			if b.Len() == idLength {
				break
			}
		}
	}
	return b.String()
}

// Create opens a match with a freshly generated puzzle. If a creator is
// given they become the first participant.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Match, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	if req.Variant == "" {
		req.Variant = PuzzleDuel
	}
	if _, err := ParseVariant(string(req.Variant)); err != nil {
		return nil, err
	}
	if req.Difficulty == "" {
		req.Difficulty = puzzle.Easy
	}
	if err := req.Difficulty.Validate(); err != nil {
		return nil, err
	}

	seq, err := s.generator.Generate(ctx, req.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("generate puzzle: %w", err)
	}

	m := &Match{
		Variant:          req.Variant,
		Participants:     []string{},
		Spectators:       []string{},
		State:            StateOpen,
		Puzzle:           seq,
		Difficulty:       req.Difficulty,
		TimeLimitSeconds: int(req.Difficulty.DuelTimeLimit() / time.Second),
		CreatedAt:        s.now(),
	}
	var box outbox
	if req.CreatorID != "" {
		m.Participants = append(m.Participants, req.CreatorID)
		m.touch(req.CreatorID, m.CreatedAt)
		box.emit(m, channel.PlayerJoin{PlayerID: req.CreatorID})
	}

	for attempt := 0; ; attempt++ {
		m.ID = newMatchID()
		err = s.store.Create(ctx, m)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrMatchExists) || attempt >= maxIDRetries {
			return nil, err
		}
	}

	s.logger.Info("match_created",
		"match_id", m.ID,
		"variant", string(m.Variant),
		"difficulty", string(m.Difficulty),
		"puzzle", seq.String(),
		"creator", req.CreatorID,
	)
	s.publish(ctx, m.ID, box.events)
	return m, nil
}

// Get returns the match or ErrMatchNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Match, error) {
	return s.store.Get(ctx, id)
}

// List returns every active match.
func (s *Service) List(ctx context.Context) ([]*Match, error) {
	return s.store.List(ctx)
}

// Join adds playerID to match id. Any join on a full match gets ErrMatchFull,
// even from a participant. Joining an open match twice is a no-op. The
// second join starts the match.
func (s *Service) Join(ctx context.Context, id, playerID string) (*Match, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(playerID) == "" {
		return nil, fmt.Errorf("player id is required")
	}

	m, err := s.mutate(ctx, id, func(m *Match, box *outbox) error {
		if len(m.Participants) >= MaxParticipants {
			return ErrMatchFull
		}
		if m.IsParticipant(playerID) {
			return nil
		}
		if m.State != StateOpen {
			return ErrMatchNotActive
		}

		if i := slices.Index(m.Spectators, playerID); i >= 0 {
			m.Spectators = slices.Delete(m.Spectators, i, i+1)
			box.emit(m, channel.SpectatorLeave{SpectatorID: playerID})
		}
		m.Participants = append(m.Participants, playerID)
		m.touch(playerID, s.now())
		box.emit(m, channel.PlayerJoin{PlayerID: playerID})

		if len(m.Participants) == MaxParticipants {
			if m.Variant == TurnBased {
				m.TurnHolder = m.Participants[0]
			}
			box.emit(m, channel.StartGame{Players: append([]string(nil), m.Participants...)})
			if s.countdown > 0 {
				m.State = StateCountdown
			} else {
				m.State = StateActive
				m.StartedAt = s.now()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("player_joined", "match_id", id, "player_id", playerID, "state", string(m.State))
	s.scheduleFor(m)
	return m, nil
}

// scheduleFor arms the timer the match state calls for, if any.
func (s *Service) scheduleFor(m *Match) {
	switch {
	case m.State == StateCountdown:
		s.schedule(m.ID, s.countdown, s.activate)
	case m.State == StateActive && m.Variant == PuzzleDuel:
		wait := time.Until(m.Deadline())
		s.schedule(m.ID, wait, s.expire)
	}
}

// activate ends a countdown.
func (s *Service) activate(id string) {
	m, err := s.mutate(s.ctx, id, func(m *Match, _ *outbox) error {
		if m.State != StateCountdown {
			return ErrMatchNotActive
		}
		m.State = StateActive
		m.StartedAt = s.now()
		return nil
	})
	if err != nil {
		s.logTimerError("countdown", id, err)
		return
	}
	s.logger.Info("match_active", "match_id", id)
	s.scheduleFor(m)
}

// expire resolves an active puzzle duel nobody solved in time.
func (s *Service) expire(id string) {
	m, err := s.mutate(s.ctx, id, func(m *Match, box *outbox) error {
		if m.State != StateActive {
			return ErrMatchNotActive
		}
		m.resolve(StateResolved, "", ReasonTimeout, s.now())
		box.emit(m, channel.GameEnd{Reason: ReasonTimeout})
		return nil
	})
	if err != nil {
		s.logTimerError("timeout", id, err)
		return
	}
	s.finish(s.ctx, m)
}

func (s *Service) logTimerError(timer, id string, err error) {
	if errors.Is(err, ErrMatchNotFound) || errors.Is(err, ErrMatchNotActive) {
		s.logger.Debug("timer_stale", "timer", timer, "match_id", id)
		return
	}
	s.logger.Error("timer_failed", "timer", timer, "match_id", id, "error", err.Error())
}

// Move applies a turn-based move by the participant holding the turn and
// passes the turn on.
func (s *Service) Move(ctx context.Context, id, playerID string, move json.RawMessage) (*Match, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	if len(move) == 0 {
		move = json.RawMessage("null")
	}
	if !json.Valid(move) {
		return nil, fmt.Errorf("move must be valid JSON")
	}

	return s.mutate(ctx, id, func(m *Match, box *outbox) error {
		if m.Variant != TurnBased {
			return ErrWrongVariant
		}
		if m.State != StateActive {
			return ErrMatchNotActive
		}
		i := m.indexOf(playerID)
		if i < 0 {
			return ErrNotParticipant
		}
		if playerID != m.TurnHolder {
			return ErrOutOfTurn
		}
		m.Moves++
		m.TurnHolder = m.Participants[(i+1)%len(m.Participants)]
		m.touch(playerID, s.now())
		box.emit(m, channel.PlayerMove{PlayerID: playerID, Move: move})
		return nil
	})
}

// Submit checks a puzzle-duel solution. Every attempt is recorded and
// broadcast; the first correct one resolves the match for its author.
func (s *Service) Submit(ctx context.Context, id, playerID, solution string) (*SubmitResult, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	var res SubmitResult
	m, err := s.mutate(ctx, id, func(m *Match, box *outbox) error {
		res = SubmitResult{}
		if m.Variant != PuzzleDuel {
			return ErrWrongVariant
		}
		if !m.IsParticipant(playerID) {
			return ErrNotParticipant
		}
		if m.State != StateActive {
			return ErrMatchNotActive
		}

		now := s.now()
		m.touch(playerID, now)
		if !now.Before(m.Deadline()) {
			m.resolve(StateResolved, "", ReasonTimeout, now)
			box.emit(m, channel.GameEnd{Reason: ReasonTimeout})
			res.Reason = "time limit exceeded"
			return nil
		}

		v, verr := puzzle.Verify(m.Puzzle, solution)
		res.Value = v
		res.Correct = verr == nil && puzzle.Matches(v, m.Puzzle.Target)
		switch {
		case verr != nil:
			res.Reason = verr.Error()
		case !res.Correct:
			res.Reason = fmt.Sprintf("evaluates to %g, not %d", v, m.Puzzle.Target)
		}

		if m.Submissions == nil {
			m.Submissions = make(map[string]Submission)
		}
		sub := m.Submissions[playerID]
		sub.Solution = solution
		sub.SubmittedAt = now
		sub.Correct = res.Correct
		sub.Attempts++
		m.Submissions[playerID] = sub

		payload, err := json.Marshal(SubmitMove{Solution: solution, Correct: res.Correct})
		if err != nil {
			return err
		}
		box.emit(m, channel.PlayerMove{PlayerID: playerID, Move: payload})

		if res.Correct {
			res.Points = scoring.RoundPoints(m.Deadline().Sub(now), m.Difficulty)
			m.Points = res.Points
			m.resolve(StateResolved, playerID, ReasonSolved, now)
			box.emit(m, channel.GameEnd{Winner: playerID, Reason: ReasonSolved, Points: res.Points})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("solution_submitted",
		"match_id", id,
		"player_id", playerID,
		"correct", res.Correct,
		"points", res.Points,
		"state", string(m.State),
	)
	res.Match = m
	if m.State.Terminal() {
		s.finish(ctx, m)
	}
	return &res, nil
}

// End resolves the match with winner, which must be a participant or empty.
func (s *Service) End(ctx context.Context, id, winner string) (*Match, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	m, err := s.mutate(ctx, id, func(m *Match, box *outbox) error {
		if m.State.Terminal() {
			return ErrMatchNotActive
		}
		if winner != "" && !m.IsParticipant(winner) {
			return ErrNotParticipant
		}
		m.resolve(StateResolved, winner, ReasonEnded, s.now())
		box.emit(m, channel.GameEnd{Winner: winner, Reason: ReasonEnded})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, m)
	return m, nil
}

// Leave abandons the match on behalf of playerID.
func (s *Service) Leave(ctx context.Context, id, playerID string) (*Match, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	m, err := s.mutate(ctx, id, func(m *Match, box *outbox) error {
		if !m.IsParticipant(playerID) {
			return ErrNotParticipant
		}
		if m.State.Terminal() {
			return ErrMatchNotActive
		}
		m.resolve(StateAbandoned, "", ReasonAbandoned, s.now())
		box.emit(m, channel.PlayerLeave{PlayerID: playerID})
		box.emit(m, channel.GameEnd{Reason: ReasonAbandoned})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, m)
	return m, nil
}

// Heartbeat records that playerID is still connected. In a puzzle duel a
// non-empty draft also updates the player's progress estimate.
func (s *Service) Heartbeat(ctx context.Context, id, playerID, draft string) (*Match, error) {
	return s.store.Update(ctx, id, func(m *Match) error {
		if !m.IsParticipant(playerID) {
			return ErrNotParticipant
		}
		if m.State.Terminal() {
			return ErrMatchNotActive
		}
		m.touch(playerID, s.now())
		if draft != "" && m.Variant == PuzzleDuel {
			if m.Progress == nil {
				m.Progress = make(map[string]int)
			}
			m.Progress[playerID] = puzzle.Progress(m.Puzzle, draft)
		}
		return nil
	})
}

// Spectate adds spectatorID to the match audience. Watching twice is a no-op.
func (s *Service) Spectate(ctx context.Context, id, spectatorID string) (*Match, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(spectatorID) == "" {
		return nil, fmt.Errorf("spectator id is required")
	}
	m, err := s.mutate(ctx, id, func(m *Match, box *outbox) error {
		if m.IsParticipant(spectatorID) {
			return ErrAlreadyParticipant
		}
		if m.State.Terminal() {
			return ErrMatchNotActive
		}
		if m.IsSpectator(spectatorID) {
			return nil
		}
		m.Spectators = append(m.Spectators, spectatorID)
		box.emit(m, channel.SpectatorJoin{SpectatorID: spectatorID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("spectator_joined", "match_id", id, "spectator_id", spectatorID, "spectators", len(m.Spectators))
	return m, nil
}

// Unspectate removes spectatorID from the audience. Unknown spectators are
// a no-op.
func (s *Service) Unspectate(ctx context.Context, id, spectatorID string) (*Match, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(m *Match, box *outbox) error {
		i := slices.Index(m.Spectators, spectatorID)
		if i < 0 {
			return nil
		}
		m.Spectators = slices.Delete(m.Spectators, i, i+1)
		box.emit(m, channel.SpectatorLeave{SpectatorID: spectatorID})
		return nil
	})
}

func (s *Service) sweepLoop() {
	defer s.wg.Done()
	interval := s.disconnectTimeout / 2
	if interval <= 0 {
		interval = s.disconnectTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep(s.ctx)
		}
	}
}

// sweep abandons every live match with a participant silent for longer than
// the disconnect timeout.
func (s *Service) sweep(ctx context.Context) {
	matches, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("sweep_failed", "error", err.Error())
		return
	}
	now := s.now()
	for _, m := range matches {
		if m.State.Terminal() {
			continue
		}
		for _, p := range m.Participants {
			if m.stale(p, now, s.disconnectTimeout) {
				s.disconnect(ctx, m.ID, p)
				break
			}
		}
	}
}

// disconnect abandons match id on behalf of a silent participant.
func (s *Service) disconnect(ctx context.Context, id, playerID string) {
	m, err := s.mutate(ctx, id, func(m *Match, box *outbox) error {
		now := s.now()
		if m.State.Terminal() || !m.stale(playerID, now, s.disconnectTimeout) {
			return ErrMatchNotActive
		}
		m.resolve(StateAbandoned, "", ReasonDisconnected, now)
		box.emit(m, channel.PlayerLeave{PlayerID: playerID})
		box.emit(m, channel.GameEnd{Reason: ReasonDisconnected})
		return nil
	})
	if err != nil {
		s.logTimerError("disconnect", id, err)
		return
	}
	s.logger.Warn("player_disconnected", "match_id", id, "player_id", playerID)
	s.finish(ctx, m)
}

// finish evicts a terminal match, stops its timer and records the result.
func (s *Service) finish(ctx context.Context, m *Match) {
	s.cancelTimer(m.ID)
	if err := s.store.Delete(ctx, m.ID); err != nil {
		s.logger.Error("evict_failed", "match_id", m.ID, "error", err.Error())
	}

	s.logger.Info("match_resolved",
		"match_id", m.ID,
		"state", string(m.State),
		"winner", m.Winner,
		"reason", m.Reason,
	)

	if s.recorder == nil {
		return
	}
	// Rating must survive the request context being cancelled.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.recorder.RecordMatch(recCtx, m.Result()); err != nil {
		s.logger.Error("record_failed", "match_id", m.ID, "error", err.Error())
	}
}

func (s *Service) schedule(id string, d time.Duration, fn func(string)) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	if d < 0 {
		d = 0
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.timersMu.Lock()
		current, ok := s.timers[id]
		if !ok || current != t || s.closed {
			s.timersMu.Unlock()
			return
		}
		delete(s.timers, id)
		s.timersMu.Unlock()
		fn(id)
	})
	s.timers[id] = t
}

func (s *Service) cancelTimer(id string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// pendingTimers returns the number of armed timers.
func (s *Service) pendingTimers() int {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	return len(s.timers)
}
