package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType is the wire name of an event.
type EventType string

const (
	TypePlayerJoin  EventType = "player-join"
	TypeStartGame   EventType = "start-game"
	TypePlayerMove  EventType = "player-move"
	TypePlayerLeave EventType = "player-leave"
	TypeGameEnd     EventType = "game-end"

	TypeSpectatorJoin  EventType = "spectator-join"
	TypeSpectatorLeave EventType = "spectator-leave"
)

// EventTypes lists every event type.
var EventTypes = []EventType{
	TypePlayerJoin, TypeStartGame, TypePlayerMove, TypePlayerLeave, TypeGameEnd,
	TypeSpectatorJoin, TypeSpectatorLeave,
}

// ErrUnknownEventType is returned when decoding an envelope whose type is not
// one of EventTypes.
var ErrUnknownEventType = errors.New("unknown event type")

// Event is implemented by the payload structs below and nothing else.
type Event interface {
	Type() EventType
	event()
}

// PlayerJoin announces a participant joining.
type PlayerJoin struct {
	PlayerID string `json:"playerId"`
}

// StartGame announces the match has its participants and is starting.
type StartGame struct {
	Players []string `json:"players"`
}

// PlayerMove carries a participant's move. Move is opaque to the transport.
type PlayerMove struct {
	PlayerID string          `json:"playerId"`
	Move     json.RawMessage `json:"move"`
}

// PlayerLeave announces a participant leaving before resolution.
type PlayerLeave struct {
	PlayerID string `json:"playerId"`
}

// GameEnd announces resolution. Winner is empty for a draw or abandonment.
// Points is what the winner scored, if the match awards points.
type GameEnd struct {
	Winner string `json:"winner"`
	Reason string `json:"reason,omitempty"`
	Points int    `json:"points,omitempty"`
}

// SpectatorJoin announces a watcher who does not play.
type SpectatorJoin struct {
	SpectatorID string `json:"spectatorId"`
}

// SpectatorLeave announces a watcher leaving.
type SpectatorLeave struct {
	SpectatorID string `json:"spectatorId"`
}

func (PlayerJoin) Type() EventType  { return TypePlayerJoin }
func (StartGame) Type() EventType   { return TypeStartGame }
func (PlayerMove) Type() EventType  { return TypePlayerMove }
func (PlayerLeave) Type() EventType { return TypePlayerLeave }
func (GameEnd) Type() EventType     { return TypeGameEnd }

func (SpectatorJoin) Type() EventType  { return TypeSpectatorJoin }
func (SpectatorLeave) Type() EventType { return TypeSpectatorLeave }

func (PlayerJoin) event()  {}
func (StartGame) event()   {}
func (PlayerMove) event()  {}
func (PlayerLeave) event() {}
func (GameEnd) event()     {}

func (SpectatorJoin) event()  {}
func (SpectatorLeave) event() {}

// Envelope is the unit published on a channel.
type Envelope struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Origin    string          `json:"origin"`
	Timestamp time.Time       `json:"timestamp"`

	// Event is the decoded payload. It is set by NewEnvelope and
	// DecodeEnvelope and never serialized.
	Event Event `json:"-"`
}

// NewEnvelope wraps ev for publication.
func NewEnvelope(origin string, seq uint64, ev Event) (*Envelope, error) {
	if ev == nil {
		return nil, fmt.Errorf("event cannot be nil")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", ev.Type(), err)
	}
	return &Envelope{
		ID:        uuid.New().String(),
		Seq:       seq,
		Type:      ev.Type(),
		Payload:   payload,
		Origin:    origin,
		Timestamp: time.Now().UTC(),
		Event:     ev,
	}, nil
}

// Encode serializes the envelope to JSON.
func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses an envelope and its typed payload.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.ID == "" {
		return nil, fmt.Errorf("envelope id is required")
	}
	ev, err := decodeEvent(env.Type, env.Payload)
	if err != nil {
		return nil, err
	}
	env.Event = ev
	return &env, nil
}

func decodeEvent(t EventType, payload json.RawMessage) (Event, error) {
	switch t {
	case TypePlayerJoin:
		return decodePayload[PlayerJoin](t, payload)
	case TypeStartGame:
		return decodePayload[StartGame](t, payload)
	case TypePlayerMove:
		return decodePayload[PlayerMove](t, payload)
	case TypePlayerLeave:
		return decodePayload[PlayerLeave](t, payload)
	case TypeGameEnd:
		return decodePayload[GameEnd](t, payload)
	case TypeSpectatorJoin:
		return decodePayload[SpectatorJoin](t, payload)
	case TypeSpectatorLeave:
		return decodePayload[SpectatorLeave](t, payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, string(t))
	}
}

func decodePayload[T Event](t EventType, payload json.RawMessage) (Event, error) {
	var ev T
	if len(payload) == 0 {
		return nil, fmt.Errorf("%s payload is required", t)
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", t, err)
	}
	return ev, nil
}
