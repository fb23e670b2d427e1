package duel

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/dyluth/hecto/pkg/channel"
)

// replayWindow is how many sequence numbers a replica remembers.
const replayWindow = channel.DefaultSeenCapacity

// View is a client's picture of a match, built only from channel events.
type View struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
	Spectators   []string `json:"spectators"`
	Started      bool     `json:"started"`
	TurnHolder   string   `json:"turnHolder,omitempty"`
	Moves        int      `json:"moves"`
	LastMove     string   `json:"lastMove,omitempty"`
	Left         string   `json:"left,omitempty"`
	Ended        bool     `json:"ended"`
	Winner       string   `json:"winner,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	Points       int      `json:"points,omitempty"`
	LastSeq      uint64   `json:"lastSeq"`
}

// Replica follows a match channel and applies events to a View. Each
// sequence number is applied at most once, in whatever order it arrives, so
// redelivery is harmless and a late envelope is not lost. Unsequenced
// envelopes and ones older than the replay window are ignored.
type Replica struct {
	variant   Variant
	transport channel.Transport
	handle    *channel.Handle
	onChange  func(View, *channel.Envelope)

	mu           sync.Mutex
	view         View
	seen         *channel.Seen
	lastMoveSeq  uint64
	lastMover    string
	spectatorSeq map[string]uint64
}

// ReplicaOption configures a Replica.
type ReplicaOption func(*Replica)

// OnChange registers fn to run after each applied event. It runs on the
// handle's delivery goroutine.
func OnChange(fn func(View, *channel.Envelope)) ReplicaOption {
	return func(r *Replica) { r.onChange = fn }
}

// NewReplica builds an unsubscribed replica. Use Follow to attach it to a
// channel, or feed it envelopes with Apply.
func NewReplica(matchID string, variant Variant, opts ...ReplicaOption) *Replica {
	r := &Replica{
		variant:      variant,
		view:         View{MatchID: matchID, Participants: []string{}, Spectators: []string{}},
		seen:         channel.NewSeen(replayWindow),
		spectatorSeq: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Follow subscribes the replica to channelID on t.
func (r *Replica) Follow(ctx context.Context, t channel.Transport, channelID string) error {
	h, err := t.Subscribe(ctx, channelID)
	if err != nil {
		return err
	}
	for _, et := range channel.EventTypes {
		h.Bind(et, func(env *channel.Envelope) { r.Apply(env) })
	}
	r.mu.Lock()
	r.transport, r.handle = t, h
	r.mu.Unlock()
	return nil
}

// Done is closed when the underlying handle stops. Nil before Follow.
func (r *Replica) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return nil
	}
	return r.handle.Done()
}

// Close unsubscribes.
func (r *Replica) Close() error {
	r.mu.Lock()
	t, h := r.transport, r.handle
	r.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.Unsubscribe(h)
}

// View returns a copy of the current view.
func (r *Replica) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Replica) snapshot() View {
	v := r.view
	v.Participants = append([]string(nil), r.view.Participants...)
	v.Spectators = append([]string(nil), r.view.Spectators...)
	return v
}

// Apply folds env into the view and reports whether it was applied.
func (r *Replica) Apply(env *channel.Envelope) bool {
	r.mu.Lock()
	if env.Seq == 0 || env.Seq+replayWindow <= r.view.LastSeq ||
		!r.seen.Add(strconv.FormatUint(env.Seq, 10)) {
		r.mu.Unlock()
		return false
	}
	r.view.LastSeq = max(r.view.LastSeq, env.Seq)

	switch ev := env.Event.(type) {
	case channel.PlayerJoin:
		// Once started, start-game carries the authoritative roster.
		if !r.view.Started && !contains(r.view.Participants, ev.PlayerID) && len(r.view.Participants) < MaxParticipants {
			r.view.Participants = append(r.view.Participants, ev.PlayerID)
		}
	case channel.StartGame:
		r.view.Participants = append([]string(nil), ev.Players...)
		r.view.Started = true
	case channel.PlayerMove:
		r.view.Moves++
		if env.Seq > r.lastMoveSeq {
			r.lastMoveSeq = env.Seq
			r.lastMover = ev.PlayerID
			r.view.LastMove = string(ev.Move)
		}
	case channel.PlayerLeave:
		r.view.Left = ev.PlayerID
	case channel.GameEnd:
		r.view.Ended = true
		r.view.Winner = ev.Winner
		r.view.Reason = ev.Reason
		r.view.Points = ev.Points
	case channel.SpectatorJoin:
		if r.spectatorNewer(ev.SpectatorID, env.Seq) && !contains(r.view.Spectators, ev.SpectatorID) {
			r.view.Spectators = append(r.view.Spectators, ev.SpectatorID)
		}
	case channel.SpectatorLeave:
		if r.spectatorNewer(ev.SpectatorID, env.Seq) {
			r.view.Spectators = slices.DeleteFunc(r.view.Spectators, func(id string) bool { return id == ev.SpectatorID })
		}
	}
	r.view.TurnHolder = r.turnHolder()

	v := r.snapshot()
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(v, env)
	}
	return true
}

// spectatorNewer reports whether seq is the latest event seen for id, and
// records it if so.
func (r *Replica) spectatorNewer(id string, seq uint64) bool {
	if seq <= r.spectatorSeq[id] {
		return false
	}
	r.spectatorSeq[id] = seq
	return true
}

// turnHolder derives the turn from the roster and the latest move.
func (r *Replica) turnHolder() string {
	if r.variant != TurnBased || !r.view.Started || r.view.Ended || len(r.view.Participants) == 0 {
		return ""
	}
	if r.lastMover == "" {
		return r.view.Participants[0]
	}
	return next(r.view.Participants, r.lastMover)
}

func contains(ids []string, id string) bool {
	for _, p := range ids {
		if p == id {
			return true
		}
	}
	return false
}

func next(ids []string, id string) string {
	for i, p := range ids {
		if p == id {
			return ids[(i+1)%len(ids)]
		}
	}
	return ""
}
