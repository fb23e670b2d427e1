package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects delivered envelopes.
type recorder struct {
	mu   sync.Mutex
	envs []*Envelope
}

func (r *recorder) add(env *Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.envs))
	for i, e := range r.envs {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.envs)
}

// scriptedMatch is the event stream of a short duel.
func scriptedMatch() []Event {
	return []Event{
		PlayerJoin{PlayerID: "p1"},
		PlayerJoin{PlayerID: "p2"},
		StartGame{Players: []string{"p1", "p2"}},
		PlayerMove{PlayerID: "p1", Move: []byte(`{"solution":"1+1","correct":false}`)},
		PlayerMove{PlayerID: "p2", Move: []byte(`{"solution":"1+(2+3+4)×(5+6)","correct":true}`)},
		GameEnd{Winner: "p2", Reason: "solved"},
	}
}

// testTransportContract runs the behavior every Transport must share.
func testTransportContract(t *testing.T, tr Transport) {
	ctx := context.Background()

	t.Run("delivers in trigger order", func(t *testing.T) {
		name := Name("test", "order")
		h, err := tr.Subscribe(ctx, name)
		require.NoError(t, err)
		defer tr.Unsubscribe(h)

		rec := &recorder{}
		h.BindAll(rec.add)

		for i, ev := range scriptedMatch() {
			require.NoError(t, tr.Trigger(ctx, name, uint64(i+1), ev))
		}

		require.Eventually(t, func() bool { return rec.len() == 6 }, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, []EventType{
			TypePlayerJoin, TypePlayerJoin, TypeStartGame, TypePlayerMove, TypePlayerMove, TypeGameEnd,
		}, rec.types())
		for i, env := range rec.envs {
			assert.Equal(t, uint64(i+1), env.Seq)
		}
	})

	t.Run("bind filters by type", func(t *testing.T) {
		name := Name("test", "filter")
		h, err := tr.Subscribe(ctx, name)
		require.NoError(t, err)
		defer tr.Unsubscribe(h)

		joins, ends := &recorder{}, &recorder{}
		h.Bind(TypePlayerJoin, joins.add)
		h.Bind(TypeGameEnd, ends.add)

		for i, ev := range scriptedMatch() {
			require.NoError(t, tr.Trigger(ctx, name, uint64(i+1), ev))
		}

		require.Eventually(t, func() bool { return ends.len() == 1 }, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, 2, joins.len())
		assert.Equal(t, GameEnd{Winner: "p2", Reason: "solved"}, ends.envs[0].Event)
	})

	t.Run("channels are isolated", func(t *testing.T) {
		a, err := tr.Subscribe(ctx, Name("test", "a"))
		require.NoError(t, err)
		defer tr.Unsubscribe(a)

		rec := &recorder{}
		a.BindAll(rec.add)

		require.NoError(t, tr.Trigger(ctx, Name("test", "b"), 1, PlayerJoin{PlayerID: "x"}))
		require.NoError(t, tr.Trigger(ctx, Name("test", "a"), 1, PlayerJoin{PlayerID: "y"}))

		require.Eventually(t, func() bool { return rec.len() == 1 }, 2*time.Second, 10*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 1, rec.len())
		assert.Equal(t, PlayerJoin{PlayerID: "y"}, rec.envs[0].Event)
	})

	t.Run("fan out to every handle", func(t *testing.T) {
		name := Name("test", "fanout")
		h1, err := tr.Subscribe(ctx, name)
		require.NoError(t, err)
		defer tr.Unsubscribe(h1)
		h2, err := tr.Subscribe(ctx, name)
		require.NoError(t, err)
		defer tr.Unsubscribe(h2)

		r1, r2 := &recorder{}, &recorder{}
		h1.BindAll(r1.add)
		h2.BindAll(r2.add)

		require.NoError(t, tr.Trigger(ctx, name, 1, StartGame{Players: []string{"a", "b"}}))
		require.Eventually(t, func() bool { return r1.len() == 1 && r2.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("unsubscribed handle stops", func(t *testing.T) {
		name := Name("test", "unsub")
		h, err := tr.Subscribe(ctx, name)
		require.NoError(t, err)

		rec := &recorder{}
		h.BindAll(rec.add)
		require.NoError(t, tr.Unsubscribe(h))
		require.NoError(t, tr.Unsubscribe(h), "second unsubscribe is a no-op")

		select {
		case <-h.Done():
		case <-time.After(time.Second):
			t.Fatal("handle did not stop")
		}

		require.NoError(t, tr.Trigger(ctx, name, 1, PlayerJoin{PlayerID: "late"}))
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 0, rec.len())
	})
}

func TestHandle_DropsDuplicates(t *testing.T) {
	h := newHandle("c", nil)
	defer h.Close()

	rec := &recorder{}
	h.BindAll(rec.add)

	env, err := NewEnvelope("o", 1, PlayerJoin{PlayerID: "a"})
	require.NoError(t, err)
	h.enqueue(env, time.Time{})
	h.enqueue(env, time.Time{})

	other, err := NewEnvelope("o", 2, PlayerLeave{PlayerID: "a"})
	require.NoError(t, err)
	h.enqueue(other, time.Time{})

	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []EventType{TypePlayerJoin, TypePlayerLeave}, rec.types())
}
