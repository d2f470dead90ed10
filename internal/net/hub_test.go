package net

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawld/server/internal/core/store"
	"github.com/crawld/server/internal/world"
)

func TestHubPollSweepsDeadSessions(t *testing.T) {
	h := NewHub(zap.NewNop())
	s, _ := pipeSession(t, 1, 4, 4)
	s.identity.Store(9)
	h.Add(s)
	require.Equal(t, 1, h.Len())

	var gone []world.Identity
	h.OnGone = func(id world.Identity) { gone = append(gone, id) }

	h.Poll(func(*Session, *Request) { t.Fatal("no request was queued") })
	assert.Equal(t, 1, h.Len(), "live sessions stay registered")

	s.Close()
	h.Poll(func(*Session, *Request) {})
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, []world.Identity{9}, gone)
}

func TestHubPollSkipsUnauthenticatedGone(t *testing.T) {
	h := NewHub(zap.NewNop())
	s, _ := pipeSession(t, 1, 4, 4)
	h.Add(s)
	h.OnGone = func(world.Identity) { t.Fatal("no identity was ever bound") }

	s.Close()
	h.Poll(func(*Session, *Request) {})
	assert.Equal(t, 0, h.Len())
}

func TestHubPollDrainsQueuedRequests(t *testing.T) {
	h := NewHub(zap.NewNop())
	s, _ := pipeSession(t, 1, 4, 4)
	h.Add(s)

	s.InQueue <- &Request{Op: "cmd", Name: "attack", Seq: 1}
	s.InQueue <- &Request{Op: "cmd", Name: "dash", Seq: 2}

	var names []string
	h.Poll(func(sess *Session, req *Request) {
		assert.Same(t, s, sess)
		names = append(names, req.Name)
	})
	assert.Equal(t, []string{"attack", "dash"}, names)
}

func TestHubBroadcastHonorsSubscriptions(t *testing.T) {
	h := NewHub(zap.NewNop())
	sub, _ := pipeSession(t, 1, 4, 4)
	other, _ := pipeSession(t, 2, 4, 4)
	h.Add(sub)
	h.Add(other)
	sub.ApplySub([]string{"player_message"})
	other.ApplySub([]string{"player"})

	h.Broadcast([]store.RowEvent{{
		Table: "player_message",
		Kind:  store.KindInsert,
		Key:   uint64(1),
		Row:   &world.Message{ID: 1, Kind: "chat", Content: "hello"},
	}})

	require.Len(t, sub.OutQueue, 1)
	var up RowUpdate
	require.NoError(t, json.Unmarshal(<-sub.OutQueue, &up))
	assert.Equal(t, "row", up.Op)
	assert.Equal(t, "player_message", up.Table)
	assert.Equal(t, "insert", up.Kind)
	assert.Empty(t, other.OutQueue)
}

func TestHubSeedReplaysTableContents(t *testing.T) {
	h := NewHub(zap.NewNop())
	s, _ := pipeSession(t, 1, 4, 4)

	st := world.New()
	st.Players.Insert(7, &world.Player{Identity: 7, Name: "Aria", Class: "dps", Level: 3})
	st.Messages.Insert(1, &world.Message{ID: 1, Kind: "chat", Content: "hi"})

	h.Seed(s, st, []string{"player", "player_message", "no_such_table"})
	s.FlushOutput()

	require.Len(t, s.OutQueue, 2)
	var up RowUpdate
	require.NoError(t, json.Unmarshal(<-s.OutQueue, &up))
	assert.Equal(t, "player", up.Table)
	assert.Equal(t, "insert", up.Kind)
}

func TestHubCloseAllDropsEverySession(t *testing.T) {
	h := NewHub(zap.NewNop())
	a, _ := pipeSession(t, 1, 4, 4)
	b, _ := pipeSession(t, 2, 4, 4)
	h.Add(a)
	h.Add(b)

	h.CloseAll()

	assert.Equal(t, 0, h.Len())
	assert.True(t, a.IsClosed())
	assert.True(t, b.IsClosed())
}
