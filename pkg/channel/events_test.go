package channel

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	events := []Event{
		PlayerJoin{PlayerID: "p1"},
		StartGame{Players: []string{"p1", "p2"}},
		PlayerMove{PlayerID: "p2", Move: json.RawMessage(`{"solution":"1+2","correct":false}`)},
		PlayerLeave{PlayerID: "p1"},
		GameEnd{Winner: "p2", Reason: "solved", Points: 142},
		SpectatorJoin{SpectatorID: "s1"},
		SpectatorLeave{SpectatorID: "s1"},
	}
	for _, ev := range events {
		t.Run(string(ev.Type()), func(t *testing.T) {
			env, err := NewEnvelope("origin-1", 7, ev)
			require.NoError(t, err)
			assert.NotEmpty(t, env.ID)
			assert.Equal(t, ev.Type(), env.Type)

			data, err := env.Encode()
			require.NoError(t, err)

			decoded, err := DecodeEnvelope(data)
			require.NoError(t, err)
			assert.Equal(t, env.ID, decoded.ID)
			assert.Equal(t, uint64(7), decoded.Seq)
			assert.Equal(t, "origin-1", decoded.Origin)
			assert.Equal(t, ev, decoded.Event)
		})
	}
}

func TestEnvelopeWireFormat(t *testing.T) {
	env, err := NewEnvelope("o", 1, PlayerJoin{PlayerID: "alice"})
	require.NoError(t, err)
	data, err := env.Encode()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "player-join", raw["type"])
	assert.Equal(t, map[string]any{"playerId": "alice"}, raw["payload"])
	assert.NotContains(t, raw, "Event")
}

func TestDecodeEnvelope_Rejects(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{"id":"x","type":"chat","payload":{}}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownEventType))
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{"type":"player-join","payload":{"playerId":"a"}}`))
		assert.Error(t, err)
	})

	t.Run("missing payload", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{"id":"x","type":"player-join"}`))
		assert.Error(t, err)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{"id":"x","type":"start-game","payload":{"players":"a"}}`))
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`nope`))
		assert.Error(t, err)
	})
}

func TestNewEnvelope_NilEvent(t *testing.T) {
	_, err := NewEnvelope("o", 1, nil)
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	name := Name("prod", "abc123")
	assert.Equal(t, "hecto:prod:game-abc123", name)

	id, ok := MatchID("prod", name)
	assert.True(t, ok)
	assert.Equal(t, "abc123", id)

	_, ok = MatchID("other", name)
	assert.False(t, ok)
	_, ok = MatchID("prod", "hecto:prod:game-")
	assert.False(t, ok)
}

func TestSeen(t *testing.T) {
	s := NewSeen(2)
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.True(t, s.Add("c"), "evicts a")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Add("a"), "a was forgotten")
	assert.False(t, s.Add("c"))
}
