package duel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/hecto/pkg/channel"
)

func envelope(t *testing.T, seq uint64, ev channel.Event) *channel.Envelope {
	t.Helper()
	env, err := channel.NewEnvelope("test", seq, ev)
	require.NoError(t, err)
	return env
}

func TestReplica_Apply(t *testing.T) {
	var changes int
	r := NewReplica("m1", TurnBased, OnChange(func(View, *channel.Envelope) { changes++ }))

	assert.True(t, r.Apply(envelope(t, 1, channel.PlayerJoin{PlayerID: "a"})))
	assert.True(t, r.Apply(envelope(t, 2, channel.PlayerJoin{PlayerID: "b"})))
	assert.True(t, r.Apply(envelope(t, 3, channel.StartGame{Players: []string{"a", "b"}})))

	v := r.View()
	assert.Equal(t, []string{"a", "b"}, v.Participants)
	assert.True(t, v.Started)
	assert.Equal(t, "a", v.TurnHolder)

	assert.True(t, r.Apply(envelope(t, 4, channel.PlayerMove{PlayerID: "a", Move: []byte(`1`)})))
	assert.Equal(t, "b", r.View().TurnHolder)

	assert.True(t, r.Apply(envelope(t, 5, channel.GameEnd{Winner: "a", Reason: ReasonEnded})))
	v = r.View()
	assert.True(t, v.Ended)
	assert.Equal(t, "a", v.Winner)
	assert.Empty(t, v.TurnHolder)
	assert.Equal(t, uint64(5), v.LastSeq)
	assert.Equal(t, 5, changes)
}

func TestReplica_IgnoresDuplicates(t *testing.T) {
	r := NewReplica("m1", PuzzleDuel)

	move := envelope(t, 3, channel.PlayerMove{PlayerID: "a", Move: []byte(`{}`)})
	assert.True(t, r.Apply(move))
	assert.False(t, r.Apply(move), "same envelope twice")
	assert.False(t, r.Apply(envelope(t, 3, channel.PlayerMove{PlayerID: "a", Move: []byte(`{}`)})), "same seq, new envelope id")
	assert.False(t, r.Apply(envelope(t, 0, channel.PlayerJoin{PlayerID: "unsequenced"})))

	v := r.View()
	assert.Equal(t, 1, v.Moves)
	assert.Empty(t, v.Participants)
	assert.Empty(t, v.TurnHolder, "puzzle duels have no turns")
	assert.Equal(t, uint64(3), v.LastSeq)
}

func TestReplica_OutOfOrder(t *testing.T) {
	envs := map[uint64]*channel.Envelope{
		1: envelope(t, 1, channel.PlayerJoin{PlayerID: "a"}),
		2: envelope(t, 2, channel.PlayerJoin{PlayerID: "b"}),
		3: envelope(t, 3, channel.StartGame{Players: []string{"a", "b"}}),
		4: envelope(t, 4, channel.PlayerMove{PlayerID: "a", Move: []byte(`"first"`)}),
		5: envelope(t, 5, channel.PlayerMove{PlayerID: "b", Move: []byte(`"second"`)}),
	}

	tests := []struct {
		name  string
		order []uint64
	}{
		{"in order", []uint64{1, 2, 3, 4, 5}},
		{"interleaved", []uint64{1, 3, 2, 5, 4}},
		{"reversed", []uint64{5, 4, 3, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReplica("m1", TurnBased)
			for _, seq := range tt.order {
				assert.True(t, r.Apply(envs[seq]), "seq %d", seq)
			}
			for _, seq := range tt.order {
				assert.False(t, r.Apply(envs[seq]), "redelivered seq %d", seq)
			}

			v := r.View()
			assert.Equal(t, []string{"a", "b"}, v.Participants)
			assert.True(t, v.Started)
			assert.Equal(t, 2, v.Moves)
			assert.Equal(t, `"second"`, v.LastMove)
			assert.Equal(t, "a", v.TurnHolder)
			assert.Equal(t, uint64(5), v.LastSeq)
		})
	}
}

func TestReplica_LateJoinAfterStart(t *testing.T) {
	r := NewReplica("m1", PuzzleDuel)
	require.True(t, r.Apply(envelope(t, 3, channel.StartGame{Players: []string{"a", "b"}})))
	assert.True(t, r.Apply(envelope(t, 1, channel.PlayerJoin{PlayerID: "a"})))
	assert.True(t, r.Apply(envelope(t, 2, channel.PlayerJoin{PlayerID: "b"})))
	assert.Equal(t, []string{"a", "b"}, r.View().Participants)
}

func TestReplica_Spectators(t *testing.T) {
	r := NewReplica("m1", PuzzleDuel)
	r.Apply(envelope(t, 1, channel.SpectatorJoin{SpectatorID: "s1"}))
	r.Apply(envelope(t, 2, channel.SpectatorJoin{SpectatorID: "s2"}))
	assert.Equal(t, []string{"s1", "s2"}, r.View().Spectators)

	// s1 leaves at 4 and rejoins at 5, delivered backwards.
	r.Apply(envelope(t, 5, channel.SpectatorJoin{SpectatorID: "s1"}))
	r.Apply(envelope(t, 4, channel.SpectatorLeave{SpectatorID: "s1"}))
	assert.ElementsMatch(t, []string{"s1", "s2"}, r.View().Spectators)

	r.Apply(envelope(t, 6, channel.SpectatorLeave{SpectatorID: "s2"}))
	assert.Equal(t, []string{"s1"}, r.View().Spectators)
}

func TestReplica_GameEndPoints(t *testing.T) {
	r := NewReplica("m1", PuzzleDuel)
	r.Apply(envelope(t, 7, channel.GameEnd{Winner: "a", Reason: ReasonSolved, Points: 240}))
	v := r.View()
	assert.True(t, v.Ended)
	assert.Equal(t, 240, v.Points)
}

func TestReplica_JoinBounded(t *testing.T) {
	r := NewReplica("m1", PuzzleDuel)
	r.Apply(envelope(t, 1, channel.PlayerJoin{PlayerID: "a"}))
	r.Apply(envelope(t, 2, channel.PlayerJoin{PlayerID: "a"}))
	r.Apply(envelope(t, 3, channel.PlayerJoin{PlayerID: "b"}))
	r.Apply(envelope(t, 4, channel.PlayerJoin{PlayerID: "c"}))
	assert.Equal(t, []string{"a", "b"}, r.View().Participants)
}

func TestReplica_CloseWithoutFollow(t *testing.T) {
	r := NewReplica("m1", PuzzleDuel)
	assert.NoError(t, r.Close())
	assert.Nil(t, r.Done())
}
